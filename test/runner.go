package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kballard/go-shellquote"
	"golang.org/x/sync/errgroup"
)

var (
	filter = flag.String("filter", ".*", "A regex filtering which tests to run")
	jobs   = flag.Int("j", 4, "Number of tests run in parallel")
	cfg    = Config{
		PreprocessCmd: "ppcc -P {{.Flags}} -o {{.Out}} {{.In}}",
	}
)

type Config struct {
	PreprocessCmd string
}

func (c Config) Preprocess(in, flags, out string) error {
	return RunWithInOutTemplate(in, flags, out, c.PreprocessCmd, 5*time.Second)
}

func RunWithInOutTemplate(in, flags, out, templ string, timeout time.Duration) error {
	data := struct{ In, Flags, Out string }{In: shellquote.Join(in), Flags: flags, Out: shellquote.Join(out)}
	t := template.New("gencmdline")
	t, err := t.Parse(templ)
	if err != nil {
		return err
	}
	var b bytes.Buffer
	err = t.Execute(&b, data)
	if err != nil {
		return err
	}
	cmdline := b.String()
	return RunWithTimeout(cmdline, timeout)
}

// RunWithTimeout runs the shell quoted command, killing it after timeout.
func RunWithTimeout(command string, timeout time.Duration) error {
	args, err := shellquote.Split(command)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("malformed command %s", command)
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var stderr bytes.Buffer
	c := exec.CommandContext(ctx, args[0], args[1:]...)
	c.Stderr = &stderr
	err = c.Run()
	if ctx.Err() != nil {
		return fmt.Errorf("%s timed out", args[0])
	}
	if err != nil {
		return fmt.Errorf("%s: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func normalize(s string) string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

// runTest preprocesses tc and compares the output with the .exp file next
// to it. Extra ppcc flags are read from a .flags file when there is one.
func runTest(tc string) error {
	base := strings.TrimSuffix(tc, ".c")
	expected, err := os.ReadFile(base + ".exp")
	if err != nil {
		return err
	}
	flags, err := os.ReadFile(base + ".flags")
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	out, err := os.CreateTemp("", "ppcc-*.i")
	if err != nil {
		return err
	}
	out.Close()
	defer os.Remove(out.Name())
	err = cfg.Preprocess(tc, strings.TrimSpace(string(flags)), out.Name())
	if err != nil {
		return fmt.Errorf("preprocess - %s", err)
	}
	got, err := os.ReadFile(out.Name())
	if err != nil {
		return err
	}
	if diff := cmp.Diff(normalize(string(expected)), normalize(string(got))); diff != "" {
		return fmt.Errorf("mismatch (-want +got):\n%s", diff)
	}
	return nil
}

// Tests which are expected to preprocess to their .exp file.
func ExecuteTests(tdir string) error {
	fmt.Println("execute tests in", tdir)
	tests, err := filepath.Glob(filepath.Join(tdir, "*.c"))
	if err != nil {
		return err
	}
	var (
		mu        sync.Mutex
		passcount int
		runcount  int
		g         errgroup.Group
	)
	sem := make(chan struct{}, *jobs)
	for _, tc := range tests {
		m, err := regexp.MatchString(*filter, tc)
		if err != nil {
			return err
		}
		if !m {
			continue
		}
		runcount += 1
		tc := tc
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			err := runTest(tc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fmt.Printf("FAIL: %s %s\n", tc, err)
				return nil
			}
			fmt.Printf("PASS: %s\n", tc)
			passcount += 1
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if passcount != runcount {
		return fmt.Errorf("passed %d/%d", passcount, runcount)
	}
	return nil
}

func main() {
	flag.Parse()
	pass := true
	for _, tdir := range []string{"test/testcases/preprocess"} {
		err := ExecuteTests(tdir)
		if err != nil {
			fmt.Printf("%s FAIL: %s\n", tdir, err)
			pass = false
		}
	}
	if !pass {
		os.Exit(1)
	}
}
