package cpp

import (
	"os"
	"time"
)

const (
	// MaxLevel is the deepest #if nesting accepted.
	MaxLevel = 512
	// MaxIncludeDepth bounds nested #include directives.
	MaxIncludeDepth = 200
)

// DefaultConfiguration is the configuration source preprocessed before
// every top level file unless replaced with SetConfiguration.
var DefaultConfiguration = []byte(`#define __cplusplus 1
#define __STDC__ 1
#define __STDC_HOSTED__ 1
`)

// ConfigurationFileName is the file name diagnostics use for the
// configuration source.
func ConfigurationFileName() string {
	return "<configuration>"
}

// state is the per file part of a run. Included files get their own state
// while sharing the environment and the output.
type state struct {
	fileName string
	// Search directory the file was found in, for #include_next.
	dirIndex int

	lx *Lexer
	sc *scanner

	level      int
	skippingAt [MaxLevel + 1]bool
	trueTest   [MaxLevel + 1]bool
	sawElse    [MaxLevel + 1]bool

	guard guardDetector
}

func (st *state) skipping() bool {
	return st.skippingAt[st.level]
}

// Preprocessor expands macros and executes directives of C and C++ source.
//
// A Preprocessor runs one file at a time; Run must not be called again
// until it returns, not even from a Client callback.
type Preprocessor struct {
	client   Client
	env      *Environment
	searcher IncludeSearcher

	configuration            []byte
	expandFunctionlikeMacros bool
	keepComments             bool
	cancelChecker            func() bool

	running      bool
	st           *state
	out          *output
	includeDepth int
	liveFrames   int
	canceled     bool
	fatal        error

	builtins map[string]*Macro
	// Include guard macro by resolved path.
	guards   map[string]string
	once     map[string]bool
	included map[string]bool
	pushed   map[string][]*Macro
	counter  int
	now      time.Time
}

// New creates a preprocessor defining macros in env. A nil client ignores
// all notifications and a nil env is replaced by an empty one.
func New(client Client, env *Environment) *Preprocessor {
	if client == nil {
		client = BaseClient{}
	}
	if env == nil {
		env = NewEnvironment()
	}
	ret := new(Preprocessor)
	ret.client = client
	ret.env = env
	ret.searcher = NewStandardIncludeSearcher(nil, nil)
	ret.configuration = DefaultConfiguration
	ret.expandFunctionlikeMacros = true
	ret.builtins = newBuiltins()
	return ret
}

func (pp *Preprocessor) Environment() *Environment {
	return pp.env
}

// SetCancelChecker installs a function polled during a run; when it
// returns true the run stops with ErrCanceled.
func (pp *Preprocessor) SetCancelChecker(f func() bool) {
	pp.cancelChecker = f
}

func (pp *Preprocessor) SetExpandFunctionlikeMacros(expand bool) {
	pp.expandFunctionlikeMacros = expand
}

func (pp *Preprocessor) ExpandFunctionlikeMacros() bool {
	return pp.expandFunctionlikeMacros
}

// SetKeepComments copies comments to the output instead of dropping them.
func (pp *Preprocessor) SetKeepComments(keep bool) {
	pp.keepComments = keep
}

func (pp *Preprocessor) KeepComments() bool {
	return pp.keepComments
}

func (pp *Preprocessor) SetIncludeSearcher(is IncludeSearcher) {
	pp.searcher = is
}

func (pp *Preprocessor) IncludeSearcher() IncludeSearcher {
	return pp.searcher
}

// SetConfiguration replaces the source preprocessed into the environment
// before each run. nil disables it.
func (pp *Preprocessor) SetConfiguration(src []byte) {
	pp.configuration = src
}

func (pp *Preprocessor) Configuration() []byte {
	return pp.configuration
}

// GeneratedRanges returns the byte ranges of the last output that were
// produced by macro expansion.
func (pp *Preprocessor) GeneratedRanges() []Range {
	if pp.out == nil {
		return nil
	}
	return pp.out.ranges
}

func (pp *Preprocessor) report(level Level, pos FilePos, msg string) {
	pp.client.Report(Diagnostic{Level: level, Pos: pos, Msg: msg})
}

func (pp *Preprocessor) pollCancel() {
	if !pp.canceled && pp.cancelChecker != nil && pp.cancelChecker() {
		pp.canceled = true
	}
}

// RunFile reads and preprocesses the file at path.
func (pp *Preprocessor) RunFile(path string, noLines, markGeneratedTokens bool) ([]byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return pp.Run(path, src, noLines, markGeneratedTokens)
}

// Run preprocesses source as the file fileName and returns the output.
//
// Diagnostics are delivered to the client. The error is nil unless the
// run stopped early: ErrNestingTooDeep (wrapped in an ErrorLoc) when
// conditionals nest too deep, ErrCanceled when the cancel checker asked
// for it. The output produced until then is returned in both cases.
func (pp *Preprocessor) Run(fileName string, source []byte, noLines, markGeneratedTokens bool) ([]byte, error) {
	if pp.running {
		return nil, ErrReentrant
	}
	pp.running = true
	defer func() {
		pp.running = false
		pp.st = nil
	}()
	pp.reset()

	if len(pp.configuration) > 0 {
		pp.out = newOutput(true, false)
		if err := pp.runFile(ConfigurationFileName(), -1, pp.configuration); err != nil {
			return nil, err
		}
	}

	pp.out = newOutput(noLines, markGeneratedTokens)
	pp.out.startFile(fileName)
	pp.included[fileName] = true
	err := pp.runFile(fileName, -1, source)
	pp.out.end()
	return pp.out.bytes(), err
}

func (pp *Preprocessor) reset() {
	pp.st = nil
	pp.includeDepth = 0
	pp.liveFrames = 0
	pp.canceled = false
	pp.fatal = nil
	pp.guards = make(map[string]string)
	pp.once = make(map[string]bool)
	pp.included = make(map[string]bool)
	pp.pushed = make(map[string][]*Macro)
	pp.counter = 0
	pp.now = time.Now()
}

// runFile preprocesses src with a fresh per file state.
func (pp *Preprocessor) runFile(fileName string, dirIndex int, src []byte) error {
	st := &state{
		fileName: fileName,
		dirIndex: dirIndex,
		guard:    newGuardDetector(),
	}
	st.lx = Lex(fileName, src)
	st.lx.SetKeepComments(pp.keepComments)
	st.lx.SetErrorHandler(func(pos FilePos, msg string) {
		pp.report(Error, pos, msg)
	})
	st.sc = newScanner(pp, st.lx)

	prev := pp.st
	pp.st = st
	pp.includeDepth++
	defer func() {
		st.sc.drain()
		pp.st = prev
		pp.includeDepth--
	}()
	return pp.preprocess()
}

// preprocess is the main loop over the tokens of the current file.
func (pp *Preprocessor) preprocess() error {
	st := pp.st
	for {
		pp.pollCancel()
		if pp.canceled {
			return ErrCanceled
		}
		if pp.fatal != nil {
			return pp.fatal
		}
		t := st.sc.next()
		if !t.Generated {
			pp.out.finishExpansion()
		}
		switch {
		case t.Kind == EOF:
			pp.endOfFile(t)
			return nil
		case pp.isDirectiveStart(st.sc, t):
			if err := pp.directive(t, false); err != nil {
				return err
			}
			continue
		case st.skipping(), t.Kind == END_DIRECTIVE:
			continue
		case t.Kind == COMMENT:
			pp.out.token(t)
			continue
		}
		st.guard.hint(OtherToken, "")
		if t.Kind == IDENT {
			if last, ok := pp.expandIdent(st.sc, t); ok {
				pp.out.beginExpansion(t, last)
				continue
			}
		}
		pp.out.token(t)
		if t.Generated && !st.sc.expanding() {
			pp.out.finishExpansion()
		}
	}
}

func (pp *Preprocessor) endOfFile(eof *Token) {
	st := pp.st
	pos := eof.Pos
	if st.level > 0 {
		pp.report(Error, pos, "unterminated conditional directive")
		if st.skipping() {
			pp.client.StopSkippingBlocks(pos)
		}
	}
	if g := st.guard.guard(); g != "" {
		pp.guards[st.fileName] = g
		pp.client.MarkAsIncludeGuard(st.fileName, g)
	}
}
