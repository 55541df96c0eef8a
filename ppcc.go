package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/andrewchambers/ppengine/cpp"
	"github.com/andrewchambers/ppengine/document"
)

var (
	version = "0.1"
	logger  = log.New(io.Discard, "ppcc: ", 0)

	cliOpts = defaultOptions()
	opts    *options
)

var rootCmd = &cobra.Command{
	Use:   "ppcc [flags] FILE...",
	Short: "A C and C++ preprocessor",
	Long: `ppcc preprocesses C and C++ source files.

Settings are read from the YAML file given with --config, then from the
PPCC_FLAGS environment variable, then from the command line. Later sources
win. Use - as FILE to read standard input.`,
	Args:              cobra.MinimumNArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runPreprocess,
}

var tokensCmd = &cobra.Command{
	Use:   "tokens FILE",
	Short: "Print the tokens of FILE before preprocessing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOutput(opts.Output, func(w io.Writer) error {
			return tokenizeFile(args[0], w, os.Stderr)
		})
	},
}

var macrosCmd = &cobra.Command{
	Use:   "macros FILE...",
	Short: "Print the macros defined after preprocessing FILE",
	Long: `Print the macros defined after preprocessing FILE.

With several files, they are preprocessed in order and each include of an
earlier file reuses the macros recorded for it instead of reading it again.
The macros printed are those of the last file and everything it includes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		var results []result
		var env *cpp.Environment
		if len(args) == 1 {
			r, err := preprocessFile(ctx, opts, args[0])
			if err != nil {
				return err
			}
			results, env = []result{r}, r.env
		} else {
			var err error
			results, env, err = snapshotMacros(ctx, opts, args)
			if err != nil {
				return err
			}
		}
		return withOutput(opts.Output, func(w io.Writer) error {
			for _, m := range env.Macros() {
				fmt.Fprintln(w, m)
			}
			nerrors := 0
			for _, r := range results {
				nerrors += reportResult(os.Stderr, r)
			}
			if nerrors != 0 {
				return fmt.Errorf("%d errors", nerrors)
			}
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func init() {
	cliOpts.bind(rootCmd.PersistentFlags())
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(macrosCmd)
	rootCmd.AddCommand(versionCmd)
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "ppcc version %s\n", version)
}

func setup(cmd *cobra.Command, args []string) error {
	o, err := resolveOptions(cliOpts, cmd.Flags(), os.Getenv("PPCC_FLAGS"))
	if err != nil {
		return err
	}
	opts = o
	if opts.Verbose {
		logger.SetOutput(os.Stderr)
	}
	if opts.Config != "" {
		logger.Printf("using config %s", opts.Config)
	}
	return nil
}

// result is the outcome of preprocessing one file.
type result struct {
	doc *document.Document
	env *cpp.Environment
	// Set when the run stopped early.
	err error
}

func readSource(path string) (string, []byte, error) {
	if path == "-" {
		src, err := io.ReadAll(os.Stdin)
		return "<stdin>", src, err
	}
	src, err := os.ReadFile(path)
	return path, src, err
}

// preprocessFile runs a fresh preprocessor over path. The returned error
// is set only when path could not be read.
func preprocessFile(ctx context.Context, o *options, path string) (result, error) {
	name, src, err := readSource(path)
	if err != nil {
		return result{}, fmt.Errorf("failed to open source file %s for preprocessing: %w", path, err)
	}
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	doc := document.New(name)
	pp := cpp.New(doc, nil)
	pp.SetIncludeSearcher(cpp.NewStandardIncludeSearcher(o.QuoteDirs, o.IncludeDirs))
	pp.SetConfiguration(o.configuration())
	pp.SetExpandFunctionlikeMacros(o.ExpandFunctionMacros)
	pp.SetKeepComments(o.KeepComments)
	pp.SetCancelChecker(func() bool {
		return ctx.Err() != nil
	})

	start := time.Now()
	out, err := pp.Run(name, src, o.NoLines, o.MarkGenerated)
	doc.Source = out
	if errors.Is(err, cpp.ErrCanceled) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%s: timed out after %s: %w", name, o.Timeout, err)
	}
	logger.Printf("%s (%s)", doc.Summary(), time.Since(start))
	return result{doc: doc, env: pp.Environment(), err: err}, nil
}

// snapshotMacros preprocesses paths in order through one document
// snapshot. Includes resolve only to earlier paths, whose recorded macros
// are merged instead of the files being read again. The environment
// returned holds the macros of the last path and of what it includes.
func snapshotMacros(ctx context.Context, o *options, paths []string) ([]result, *cpp.Environment, error) {
	s := document.Snapshot{}
	sopts := document.Options{
		QuoteDirs:                o.QuoteDirs,
		SystemDirs:               o.IncludeDirs,
		Configuration:            o.configuration(),
		ExpandFunctionlikeMacros: o.ExpandFunctionMacros,
		KeepComments:             o.KeepComments,
		Cancel: func() bool {
			return ctx.Err() != nil
		},
	}
	var results []result
	var last string
	for _, p := range paths {
		name, src, err := readSource(p)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open source file %s for preprocessing: %w", p, err)
		}
		last = filepath.Clean(name)
		doc, err := s.Preprocess(last, src, sopts)
		logger.Println(doc.Summary())
		results = append(results, result{doc: doc, err: err})
		if err != nil {
			break
		}
	}
	env := cpp.NewEnvironment()
	s.MergeEnvironment(env, last)
	return results, env, nil
}

// reportResult prints the diagnostics of r and returns how many of them
// are errors.
func reportResult(w io.Writer, r result) int {
	for _, d := range r.doc.Diagnostics {
		reportDiagnostic(w, d)
	}
	n := r.doc.Errors()
	if r.err != nil {
		reportError(w, r.err)
		n++
	}
	return n
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results := make([]result, len(args))
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, opts.Jobs)
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			r, err := preprocessFile(gctx, opts, path)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return withOutput(opts.Output, func(w io.Writer) error {
		nerrors := 0
		for _, r := range results {
			if _, err := w.Write(r.doc.Source); err != nil {
				return err
			}
			nerrors += reportResult(os.Stderr, r)
		}
		if nerrors != 0 {
			return fmt.Errorf("%d errors", nerrors)
		}
		return nil
	})
}

func withOutput(path string, f func(w io.Writer) error) error {
	if path == "-" {
		return f(os.Stdout)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	err = f(out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}

// tokenizeFile dumps the tokens of sourceFile, one per line.
func tokenizeFile(sourceFile string, out io.Writer, errOut io.Writer) error {
	name, src, err := readSource(sourceFile)
	if err != nil {
		return fmt.Errorf("failed to open source file %s for tokenizing: %w", sourceFile, err)
	}
	nerrors := 0
	lexer := cpp.Lex(name, src)
	lexer.SetErrorHandler(func(pos cpp.FilePos, msg string) {
		reportDiagnostic(errOut, cpp.Diagnostic{Level: cpp.Error, Pos: pos, Msg: msg})
		nerrors++
	})
	for {
		tok := lexer.Next()
		fmt.Fprintf(out, "%s:%s:%d:%d\n", tok.Kind, tok.Val, tok.Pos.Line, tok.Pos.Col)
		if tok.Kind == cpp.EOF {
			break
		}
	}
	if nerrors != 0 {
		return fmt.Errorf("%d errors", nerrors)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ppcc: %v\n", err)
		os.Exit(1)
	}
}
