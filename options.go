package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"

	"github.com/andrewchambers/ppengine/cpp"
)

// options controls a ppcc invocation. They are layered: the config file,
// then PPCC_FLAGS, then the command line, each overriding the previous one
// for the settings it names.
type options struct {
	IncludeDirs          []string `yaml:"include_dirs"`
	QuoteDirs            []string `yaml:"quote_dirs"`
	Defines              []string `yaml:"defines"`
	Undefines            []string `yaml:"undefines"`
	NoLines              bool     `yaml:"no_lines"`
	MarkGenerated        bool     `yaml:"mark_generated"`
	KeepComments         bool     `yaml:"keep_comments"`
	ExpandFunctionMacros bool     `yaml:"expand_function_macros"`
	Jobs                 int      `yaml:"jobs"`

	Output  string        `yaml:"-"`
	Config  string        `yaml:"-"`
	Timeout time.Duration `yaml:"-"`
	Verbose bool          `yaml:"-"`

	noFunctionMacros bool
}

func defaultOptions() *options {
	return &options{
		ExpandFunctionMacros: true,
		Jobs:                 1,
		Output:               "-",
	}
}

func (o *options) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Output, "output", "o", o.Output, "File to write output to, - for stdout.")
	fs.StringArrayVarP(&o.IncludeDirs, "include", "I", o.IncludeDirs, "Add a directory to the include search path.")
	fs.StringArrayVar(&o.QuoteDirs, "iquote", o.QuoteDirs, "Add a directory searched by quote includes only.")
	fs.StringArrayVarP(&o.Defines, "define", "D", o.Defines, "Define NAME or NAME=VALUE.")
	fs.StringArrayVarP(&o.Undefines, "undef", "U", o.Undefines, "Undefine NAME.")
	fs.BoolVarP(&o.NoLines, "no-lines", "P", o.NoLines, "Do not emit line markers.")
	fs.BoolVar(&o.MarkGenerated, "mark-generated", o.MarkGenerated, "Wrap macro expansions in expansion begin/end markers.")
	fs.BoolVarP(&o.KeepComments, "keep-comments", "C", o.KeepComments, "Keep comments in the output.")
	fs.BoolVar(&o.noFunctionMacros, "no-function-macros", o.noFunctionMacros, "Leave function-like macro invocations unexpanded.")
	fs.StringVar(&o.Config, "config", o.Config, "YAML file with default settings.")
	fs.IntVarP(&o.Jobs, "jobs", "j", o.Jobs, "Number of files preprocessed in parallel.")
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "Give up on a file after this long, 0 for no limit.")
	fs.BoolVarP(&o.Verbose, "verbose", "v", o.Verbose, "Log progress to stderr.")
}

// merge copies into o the settings fs saw on its command line.
func (o *options) merge(from *options, fs *pflag.FlagSet) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "output":
			o.Output = from.Output
		case "include":
			o.IncludeDirs = from.IncludeDirs
		case "iquote":
			o.QuoteDirs = from.QuoteDirs
		case "define":
			o.Defines = from.Defines
		case "undef":
			o.Undefines = from.Undefines
		case "no-lines":
			o.NoLines = from.NoLines
		case "mark-generated":
			o.MarkGenerated = from.MarkGenerated
		case "keep-comments":
			o.KeepComments = from.KeepComments
		case "no-function-macros":
			o.ExpandFunctionMacros = !from.noFunctionMacros
		case "config":
			o.Config = from.Config
		case "jobs":
			o.Jobs = from.Jobs
		case "timeout":
			o.Timeout = from.Timeout
		case "verbose":
			o.Verbose = from.Verbose
		}
	})
}

func (o *options) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, o); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// parseEnvFlags parses the shell quoted flags of the PPCC_FLAGS variable.
func parseEnvFlags(value string) (*options, *pflag.FlagSet, error) {
	o := defaultOptions()
	fs := pflag.NewFlagSet("PPCC_FLAGS", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	o.bind(fs)
	words, err := shellquote.Split(value)
	if err != nil {
		return nil, nil, fmt.Errorf("PPCC_FLAGS: %w", err)
	}
	if err := fs.Parse(words); err != nil {
		return nil, nil, fmt.Errorf("PPCC_FLAGS: %w", err)
	}
	if fs.NArg() != 0 {
		return nil, nil, fmt.Errorf("PPCC_FLAGS: unexpected argument %q", fs.Arg(0))
	}
	return o, fs, nil
}

// resolveOptions layers the config file, the environment flags and the
// command line flags cli was parsed into.
func resolveOptions(cli *options, cliFlags *pflag.FlagSet, env string) (*options, error) {
	envOpts, envFlags, err := parseEnvFlags(env)
	if err != nil {
		return nil, err
	}
	config := envOpts.Config
	if cliFlags.Changed("config") {
		config = cli.Config
	}
	o := defaultOptions()
	if config != "" {
		if err := o.loadFile(config); err != nil {
			return nil, err
		}
		o.Config = config
	}
	o.merge(envOpts, envFlags)
	o.merge(cli, cliFlags)
	if o.Jobs < 1 {
		o.Jobs = 1
	}
	return o, nil
}

// configuration renders the -D and -U settings after the default
// configuration.
func (o *options) configuration() []byte {
	var b strings.Builder
	b.Write(cpp.DefaultConfiguration)
	for _, d := range o.Defines {
		name, value := d, "1"
		if idx := strings.IndexByte(d, '='); idx >= 0 {
			name, value = d[:idx], d[idx+1:]
		}
		fmt.Fprintf(&b, "#define %s %s\n", name, value)
	}
	for _, u := range o.Undefines {
		fmt.Fprintf(&b, "#undef %s\n", u)
	}
	return []byte(b.String())
}
