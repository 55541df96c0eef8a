package cpp

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceToExpectFile(s string) string {
	return s[0:len(s)-2] + ".exp"
}

// recorder keeps every client notification in order.
type recorder struct {
	BaseClient
	events []string
	diags  []Diagnostic
	guards map[string]string
	args   [][]MacroArgumentReference
}

func newRecorder() *recorder {
	return &recorder{guards: make(map[string]string)}
}

func (r *recorder) MacroAdded(m *Macro) {
	r.events = append(r.events, "define "+m.Name)
}

func (r *recorder) MacroReferenced(pos FilePos, m *Macro) {
	r.events = append(r.events, "ref "+m.Name)
}

func (r *recorder) UndefinedMacroReferenced(pos FilePos, name string) {
	r.events = append(r.events, "undefref "+name)
}

func (r *recorder) StartExpandingMacro(pos FilePos, m *Macro, args []MacroArgumentReference) {
	r.events = append(r.events, "start "+m.Name)
	r.args = append(r.args, args)
}

func (r *recorder) StopExpandingMacro(pos FilePos, m *Macro) {
	r.events = append(r.events, "stop "+m.Name)
}

func (r *recorder) StartSkippingBlocks(pos FilePos) {
	r.events = append(r.events, fmt.Sprintf("skip %d", pos.Line))
}

func (r *recorder) StopSkippingBlocks(pos FilePos) {
	r.events = append(r.events, fmt.Sprintf("endskip %d", pos.Line))
}

func (r *recorder) SourceNeeded(pos FilePos, fileName string, resolved string, mode IncludeType) {
	r.events = append(r.events, fmt.Sprintf("include %s %s %s", fileName, resolved, mode))
}

func (r *recorder) MarkAsIncludeGuard(fileName string, macroName string) {
	r.guards[fileName] = macroName
}

func (r *recorder) Report(d Diagnostic) {
	r.diags = append(r.diags, d)
}

func (r *recorder) messages(level Level) []string {
	var ret []string
	for _, d := range r.diags {
		if d.Level == level {
			ret = append(ret, d.Msg)
		}
	}
	return ret
}

// normalize drops blank lines and the indentation of the others.
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

func newTestPreprocessor(rec *recorder) *Preprocessor {
	pp := New(rec, nil)
	pp.SetConfiguration(nil)
	return pp
}

func preprocess(t *testing.T, src string) (string, *recorder) {
	t.Helper()
	rec := newRecorder()
	pp := newTestPreprocessor(rec)
	out, err := pp.Run("test.c", []byte(src), true, false)
	require.NoError(t, err)
	return string(out), rec
}

func cppTestCase(t *testing.T, cfile string, expectfile string) {
	src, err := os.ReadFile(cfile)
	require.NoError(t, err)
	expected, err := os.ReadFile(expectfile)
	require.NoError(t, err)

	rec := newRecorder()
	pp := newTestPreprocessor(rec)
	pp.SetIncludeSearcher(NewStandardIncludeSearcher(nil, []string{filepath.Join("testdata", "sys")}))
	out, err := pp.Run(cfile, src, true, false)
	require.NoError(t, err)
	if diff := cmp.Diff(normalize(string(expected)), normalize(string(out))); diff != "" {
		t.Errorf("Test failed %s (-want +got):\n%s", cfile, diff)
	}
	assert.Empty(t, rec.messages(Error), cfile)
	assert.Empty(t, rec.messages(Warning), cfile)
}

func TestPreprocessor(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("testdata", "*.c"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	for _, cfile := range matches {
		cfile := cfile
		t.Run(filepath.Base(cfile), func(t *testing.T) {
			cppTestCase(t, cfile, sourceToExpectFile(cfile))
		})
	}
}

func TestSpacing(t *testing.T) {
	out, _ := preprocess(t, "#define ADD(a, b) a+b\nint x = ADD(1, 2);\n")
	assert.Equal(t, "\nint x = 1+2;\n", out)

	out, _ = preprocess(t, "#define NEG -1\nint y = -NEG;\n")
	assert.Equal(t, "\nint y = - -1;\n", out)

	out, _ = preprocess(t, "#define E\n  a E b\n")
	assert.Equal(t, "\n  a b\n", out)
}

func TestLeadingDotNumbers(t *testing.T) {
	out, rec := preprocess(t, "x = .5;\na .5e-3 b\n")
	assert.Equal(t, "x = .5;\na .5e-3 b\n", out)
	assert.Empty(t, rec.diags)

	out, rec = preprocess(t, "#if .5\nyes\n#endif\n")
	assert.Equal(t, "", normalize(out))
	assert.Equal(t, []string{"floating constant in preprocessor expression"}, rec.messages(Error))
}

func TestIndentation(t *testing.T) {
	out, _ := preprocess(t, "a\n  d\n\tb\n")
	assert.Equal(t, "a\n  d\n\tb\n", out)
}

func TestBluePaint(t *testing.T) {
	out, _ := preprocess(t, "#define A A\nA\nx A\n")
	assert.Equal(t, "A\nx A", normalize(out))

	out, _ = preprocess(t, "#define A B\n#define B A\nA B\n")
	assert.Equal(t, "A B", normalize(out))

	out, rec := preprocess(t, "#define f(x) x f\nf(1)(2)\n")
	assert.Equal(t, "1 f(2)", normalize(out))
	assert.Empty(t, rec.diags)
}

func TestFunctionLikeNotInvoked(t *testing.T) {
	out, rec := preprocess(t, "#define F(x) x\nint F;\nF\n(3)\n")
	assert.Equal(t, "int F;\n3", normalize(out))
	assert.Contains(t, rec.events, "ref F")
}

func TestFunctionLikeExpansionDisabled(t *testing.T) {
	rec := newRecorder()
	pp := newTestPreprocessor(rec)
	pp.SetExpandFunctionlikeMacros(false)
	assert.False(t, pp.ExpandFunctionlikeMacros())
	out, err := pp.Run("test.c", []byte("#define F(x) x+1\n#define O 2\nF(O)\n"), true, false)
	require.NoError(t, err)
	assert.Equal(t, "F(2)", normalize(string(out)))
	assert.Equal(t, []string{"define F", "define O", "ref F", "start O", "stop O"}, rec.events)
}

func TestArityErrors(t *testing.T) {
	out, rec := preprocess(t, "#define F(a, b) a b\nF(1)\nF(1,2,3)\nF(x, y)\n")
	assert.Equal(t, "F(1)\nF(1,2,3)\nx y", normalize(out))
	assert.Equal(t, []string{
		`macro "F" requires 2 arguments, but only 1 given`,
		`macro "F" passed 3 arguments, but takes just 2`,
	}, rec.messages(Error))
}

func TestUnterminatedArguments(t *testing.T) {
	out, rec := preprocess(t, "#define F(a) a\nF(1\n")
	assert.Equal(t, "F(1", normalize(out))
	assert.Equal(t, []string{`unterminated argument list invoking macro "F"`}, rec.messages(Error))
}

func TestIdempotence(t *testing.T) {
	src := "#define STR(x) #x\n#define CAT(a, b) a ## b\n#define N 4\nint CAT(x, N) = N * 2; const char *s = STR(N);\n"
	first, _ := preprocess(t, src)
	second, rec := preprocess(t, first)
	assert.Equal(t, normalize(first), normalize(second))
	assert.Empty(t, rec.diags)

	// An invocation left alone because of an error stays alone.
	def := "#define F(a, b) a b\n"
	first, rec1 := preprocess(t, def+"F(1)\n")
	second, rec2 := preprocess(t, def+first)
	assert.Equal(t, normalize(first), normalize(second))
	assert.Equal(t, rec1.messages(Error), rec2.messages(Error))
}

func TestSameOutputOnRerun(t *testing.T) {
	src := []byte("#define F(x) (x + __COUNTER__)\nF(1) F(2)\n#if F(0)\nyes\n#endif\n")
	pp := newTestPreprocessor(newRecorder())
	first, err := pp.Run("test.c", src, false, false)
	require.NoError(t, err)
	pp.Environment().Reset()
	second, err := pp.Run("test.c", src, false, false)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestNestingTooDeep(t *testing.T) {
	ok := strings.Repeat("#if 1\n", MaxLevel) + "inside\n" + strings.Repeat("#endif\n", MaxLevel)
	out, rec := preprocess(t, ok)
	assert.Equal(t, "inside", normalize(out))
	assert.Empty(t, rec.diags)

	tooDeep := strings.Repeat("#if 1\n", MaxLevel+1) + "inside\n" + strings.Repeat("#endif\n", MaxLevel+1)
	rec = newRecorder()
	pp := newTestPreprocessor(rec)
	_, err := pp.Run("test.c", []byte(tooDeep), true, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNestingTooDeep))
	var el ErrorLoc
	require.True(t, errors.As(err, &el))
	assert.Equal(t, MaxLevel+1, el.Pos.Line)
	assert.Len(t, rec.messages(Fatal), 1)

	// The preprocessor can be used again afterwards.
	out2, err := pp.Run("test.c", []byte(ok), true, false)
	require.NoError(t, err)
	assert.Equal(t, "inside", normalize(string(out2)))
}

func TestExpansionTooDeep(t *testing.T) {
	n := maxTokenBufferDepth + 1
	var b strings.Builder
	b.WriteString("#define M00000 end\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "#define M%05d M%05d\n", i, i-1)
	}
	fmt.Fprintf(&b, "M%05d\n", n)
	out, rec := preprocess(t, b.String())
	assert.Equal(t, []string{"macro expansion of M00001 too deeply nested"}, rec.messages(Error))
	assert.Equal(t, "M00001", normalize(out))
}

func TestCancel(t *testing.T) {
	polls := 0
	pp := newTestPreprocessor(newRecorder())
	pp.SetCancelChecker(func() bool {
		polls++
		return polls > 10
	})
	src := strings.Repeat("a b c d\n", 100)
	out, err := pp.Run("test.c", []byte(src), true, false)
	assert.True(t, errors.Is(err, ErrCanceled))
	assert.NotEmpty(t, out)
	assert.True(t, len(out) < len(src))
}

func TestCancelDuringExpansion(t *testing.T) {
	var b strings.Builder
	b.WriteString("#define L0 x x\n")
	for i := 1; i <= 30; i++ {
		fmt.Fprintf(&b, "#define L%d L%d L%d\n", i, i-1, i-1)
	}
	b.WriteString("L30\n")
	polls := 0
	pp := newTestPreprocessor(newRecorder())
	pp.SetCancelChecker(func() bool {
		polls++
		return polls > 1000
	})
	_, err := pp.Run("test.c", []byte(b.String()), true, false)
	assert.True(t, errors.Is(err, ErrCanceled))
}

type reentrantClient struct {
	BaseClient
	pp  *Preprocessor
	err error
}

func (c *reentrantClient) MacroAdded(m *Macro) {
	_, c.err = c.pp.Run("inner.c", []byte("x\n"), true, false)
}

func TestReentrantRun(t *testing.T) {
	c := &reentrantClient{}
	pp := New(c, nil)
	c.pp = pp
	_, err := pp.Run("test.c", []byte("#define X 1\n"), true, false)
	require.NoError(t, err)
	assert.True(t, errors.Is(c.err, ErrReentrant))
}

func TestIncludeGuards(t *testing.T) {
	files := map[string]string{
		"a.h":     "// comment\n#ifndef A_H\n#define A_H\n#if 1\nint a;\n#endif\n#endif\n",
		"b.h":     "#if !defined(B_H)\n#define B_H\nint b;\n#endif\n",
		"c.h":     "#ifndef C_H\n#define C_H\nint c;\n#endif\nint after;\n",
		"d.h":     "#ifndef D_H\n#define D_H\nint d;\n#else\nint e;\n#endif\n",
		"main.c":  "",
		"other.h": "#ifndef O_H\n#define OTHER\n#endif\n",
	}
	rec := newRecorder()
	pp := newTestPreprocessor(rec)
	pp.SetIncludeSearcher(NewMapIncludeSearcher(files, nil, nil))
	src := "#include \"a.h\"\n#include \"a.h\"\n#include \"b.h\"\n#include \"b.h\"\n#include \"c.h\"\n#include \"d.h\"\n#include \"other.h\"\n"
	out, err := pp.Run("main.c", []byte(src), true, false)
	require.NoError(t, err)
	assert.Equal(t, "int a;\nint b;\nint c;\nint after;\nint d;", normalize(string(out)))
	assert.Equal(t, map[string]string{"a.h": "A_H", "b.h": "B_H"}, rec.guards)
	assert.Contains(t, rec.events, "include a.h a.h local")
	assert.Empty(t, rec.diags)
}

func TestIncludeErrors(t *testing.T) {
	rec := newRecorder()
	pp := newTestPreprocessor(rec)
	pp.SetIncludeSearcher(NewMapIncludeSearcher(map[string]string{"self.h": "#include \"self.h\"\n"}, nil, nil))
	_, err := pp.Run("main.c", []byte("#include \"missing.h\"\n#include\n#include \"self.h\"\n"), true, false)
	require.NoError(t, err)
	assert.Contains(t, rec.events, "include missing.h  local")
	errs := rec.messages(Error)
	require.Len(t, errs, 3)
	assert.Equal(t, "'missing.h' file not found", errs[0])
	assert.Equal(t, `#include expects "FILENAME" or <FILENAME>`, errs[1])
	assert.Contains(t, errs[2], "exceeds maximum")
}

func TestMalformedIncludes(t *testing.T) {
	files := map[string]string{"ab": "AB_FOUND\n", "abc": "ABC_FOUND\n"}
	for _, src := range []string{
		"#include \"\n",
		"#include <\n",
		"#include \"abc\n",
		"#include <abc\n",
		"#include \"abc\\\"\n",
	} {
		rec := newRecorder()
		pp := newTestPreprocessor(rec)
		pp.SetIncludeSearcher(NewMapIncludeSearcher(files, nil, nil))
		out, err := pp.Run("p.c", []byte(src+"after\n"), true, false)
		require.NoError(t, err, "%q", src)
		assert.Equal(t, "after", normalize(string(out)), "%q", src)
		assert.Contains(t, rec.messages(Error), `#include expects "FILENAME" or <FILENAME>`, "%q", src)
		assert.Empty(t, rec.events, "%q", src)
	}
}

func TestIncludeStopsIncluder(t *testing.T) {
	rec := newRecorder()
	pp := newTestPreprocessor(rec)
	deep := strings.Repeat("#if 1\n", MaxLevel+1)
	pp.SetIncludeSearcher(NewMapIncludeSearcher(map[string]string{"deep.h": deep}, nil, nil))
	out, err := pp.Run("main.c", []byte("before\n#include \"deep.h\"\nafter\n"), true, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNestingTooDeep))
	var el ErrorLoc
	require.True(t, errors.As(err, &el))
	assert.Equal(t, "deep.h", el.Pos.File)
	assert.Equal(t, "before", normalize(string(out)))
}

func TestIncludeNext(t *testing.T) {
	files := map[string]string{
		"a/x.h": "#include_next <x.h>\nfirst\n",
		"b/x.h": "second\n",
	}
	rec := newRecorder()
	pp := newTestPreprocessor(rec)
	pp.SetIncludeSearcher(NewMapIncludeSearcher(files, nil, []string{"a", "b"}))
	out, err := pp.Run("main.c", []byte("#include <x.h>\n"), true, false)
	require.NoError(t, err)
	assert.Equal(t, "second\nfirst", normalize(string(out)))
	assert.Equal(t, []string{"include x.h a/x.h global", "include x.h b/x.h next"}, rec.events)
}

func TestComputedInclude(t *testing.T) {
	files := map[string]string{
		"inc/h.h": "computed\n",
		"sys/s.h": "angled\n",
	}
	pp := newTestPreprocessor(newRecorder())
	pp.SetIncludeSearcher(NewMapIncludeSearcher(files, []string{"inc"}, []string{"sys"}))
	src := "#define H \"h.h\"\n#define S <s.h>\n#include H\n#include S\n"
	out, err := pp.Run("main.c", []byte(src), true, false)
	require.NoError(t, err)
	assert.Equal(t, "computed\nangled", normalize(string(out)))
}

func TestPragmas(t *testing.T) {
	files := map[string]string{"o.h": "#pragma once\nonce_body\n"}
	rec := newRecorder()
	pp := newTestPreprocessor(rec)
	pp.SetIncludeSearcher(NewMapIncludeSearcher(files, nil, nil))
	src := "#include \"o.h\"\n#include \"o.h\"\n" +
		"#define X 1\n#pragma push_macro(\"X\")\n#undef X\n#define X 2\nX\n#pragma pop_macro(\"X\")\nX\n" +
		"#pragma omp parallel for\nend\n"
	out, err := pp.Run("main.c", []byte(src), true, false)
	require.NoError(t, err)
	assert.Equal(t, "once_body\n2\n1\n#pragma omp parallel for\nend", normalize(string(out)))
	assert.Empty(t, rec.diags)
}

func TestLineDirective(t *testing.T) {
	out, rec := preprocess(t, "#line 100 \"foo.c\"\n__LINE__ __FILE__\n# 7 \"bar.c\" 2\n__LINE__ __FILE__\n")
	assert.Equal(t, "100 \"foo.c\"\n7 \"bar.c\"", normalize(out))
	assert.Empty(t, rec.diags)

	_, rec = preprocess(t, "#line x\n")
	assert.Equal(t, []string{"#line directive requires a positive integer argument"}, rec.messages(Error))
}

func TestBuiltins(t *testing.T) {
	out, _ := preprocess(t, "__COUNTER__ __COUNTER__ __COUNTER__\n#define L __LINE__\nL\n")
	assert.Equal(t, "0 1 2\n3", normalize(out))

	_, rec := preprocess(t, "#define __LINE__ 3\n#undef __FILE__\n")
	assert.Len(t, rec.messages(Error), 2)
}

func TestConditionals(t *testing.T) {
	out, rec := preprocess(t, "#if 0\nx\n#elif 1\ny\n#else\nz\n#endif\n")
	assert.Equal(t, "y", normalize(out))
	assert.Equal(t, []string{"skip 1", "endskip 3", "skip 5", "endskip 7"}, rec.events)

	out, rec = preprocess(t, "#ifdef X\n#endif\n#ifndef X\nn\n#endif\n#if defined(X) || defined Y\n#endif\n")
	assert.Equal(t, "n", normalize(out))
	assert.Equal(t, []string{"undefref X", "skip 1", "endskip 2", "undefref X", "undefref X", "undefref Y", "skip 6", "endskip 7"}, rec.events)
}

func TestConditionalErrors(t *testing.T) {
	_, rec := preprocess(t, "#if 1/0\nbad\n#else\ngood\n#endif\n")
	assert.Equal(t, []string{"division by zero in #if"}, rec.messages(Error))

	out, rec := preprocess(t, "#if 1/0\nbad\n#else\ngood\n#endif\n")
	assert.Equal(t, "good", normalize(out))
	assert.Len(t, rec.diags, 1)

	_, rec = preprocess(t, "#endif\n#else\n#elif 1\n#if 1\n#else\n#else\n#endif\n#if 1\n")
	assert.Equal(t, []string{
		"#endif without #if",
		"#else without #if",
		"#elif without #if",
		"#else after #else",
		"unterminated conditional directive",
	}, rec.messages(Error))

	_, rec = preprocess(t, "#if defined(\n#endif\n#ifdef\n#endif\n")
	assert.Equal(t, []string{
		`operator "defined" requires an identifier`,
		"no macro name given in #ifdef directive",
	}, rec.messages(Error))
}

func TestDirectivesInArguments(t *testing.T) {
	out, rec := preprocess(t, "#define F(x) [x]\nF(\n#ifdef NOPE\na\n#else\nb\n#endif\n)\n")
	assert.Equal(t, "[b]", normalize(out))
	assert.Empty(t, rec.messages(Error))
}

func TestDefineErrors(t *testing.T) {
	_, rec := preprocess(t, "#define\n#define 3\n#define defined\n#define F(a, a) a\n#define G(a) #b\n#define H ## x\n#define I(a, ...) __VA_ARGS__\n#define J __VA_ARGS__\n")
	assert.Equal(t, []string{
		"no macro name given in #define directive",
		"macro names must be identifiers",
		`"defined" cannot be used as a macro name`,
		`duplicate macro parameter "a"`,
		"'#' is not followed by a macro parameter",
		"'##' cannot appear at either end of a macro expansion",
	}, rec.messages(Error))
	assert.Equal(t, []string{"__VA_ARGS__ can only appear in the expansion of a C99 variadic macro"}, rec.messages(Warning))
}

func TestRedefinition(t *testing.T) {
	_, rec := preprocess(t, "#define A 1\n#define A 1\n#define B(x) x\n#define B(x) x\n")
	assert.Empty(t, rec.diags)

	_, rec = preprocess(t, "#define A 1\n#define A 2\n")
	require.Len(t, rec.diags, 1)
	assert.Equal(t, Warning, rec.diags[0].Level)
	assert.Equal(t, `"A" redefined, previous definition at test.c:1:9`, rec.diags[0].Msg)
}

func TestInvalidPaste(t *testing.T) {
	out, rec := preprocess(t, "#define P(a, b) a##b\nP(+, -)\nP(x, 1)\n")
	assert.Equal(t, "+-\nx1", normalize(out))
	assert.Equal(t, []string{`pasting "+" and "-" does not give a valid preprocessing token`}, rec.messages(Warning))
}

func TestErrorDirectives(t *testing.T) {
	_, rec := preprocess(t, "#error stop  here\n#warning careful\n#if 0\n#error skipped\n#endif\n")
	assert.Equal(t, []string{"#error stop here"}, rec.messages(Error))
	assert.Equal(t, []string{"#warning careful"}, rec.messages(Warning))
}

func TestExpansionEvents(t *testing.T) {
	_, rec := preprocess(t, "#define F(x) x\n#define G F(1)\nG\n")
	assert.Equal(t, []string{"define F", "define G", "start G", "start F", "stop F", "stop G"}, rec.events)

	_, rec = preprocess(t, "#define F(a, b) a b\nF(abc, d e)\n")
	require.Len(t, rec.args, 1)
	assert.Equal(t, []MacroArgumentReference{
		{Offset: 22, Length: 3, Pos: FilePos{File: "test.c", Line: 2, Col: 3}},
		{Offset: 27, Length: 3, Pos: FilePos{File: "test.c", Line: 2, Col: 8}},
	}, rec.args[0])
}

func TestMarkGenerated(t *testing.T) {
	pp := newTestPreprocessor(newRecorder())
	out, err := pp.Run("t.c", []byte("#define N 42\nint x = N;\n"), false, true)
	require.NoError(t, err)
	assert.Equal(t, "# 1 \"t.c\"\n\nint x =\n# expansion begin 21,1 2\n 42\n# expansion end\n# 2 \"t.c\"\n;\n", string(out))
	ranges := pp.GeneratedRanges()
	require.Len(t, ranges, 1)
	r := ranges[0]
	assert.Equal(t, " 42", string(out[r.Offset:r.Offset+r.Length]))
}

func TestGeneratedRanges(t *testing.T) {
	pp := newTestPreprocessor(newRecorder())
	out, err := pp.Run("t.c", []byte("#define N 42\n#define M(a) a + a\nN M(1)\n"), true, false)
	require.NoError(t, err)
	ranges := pp.GeneratedRanges()
	require.Len(t, ranges, 2)
	assert.Equal(t, "42", string(out[ranges[0].Offset:ranges[0].Offset+ranges[0].Length]))
	assert.Equal(t, " 1 + 1", string(out[ranges[1].Offset:ranges[1].Offset+ranges[1].Length]))
}

func TestLineMarkers(t *testing.T) {
	pp := newTestPreprocessor(newRecorder())
	src := "a\n" + strings.Repeat("\n", 20) + "b\n"
	out, err := pp.Run("m.c", []byte(src), false, false)
	require.NoError(t, err)
	assert.Equal(t, "# 1 \"m.c\"\na\n# 22 \"m.c\"\nb\n", string(out))
}

func TestKeepComments(t *testing.T) {
	rec := newRecorder()
	pp := newTestPreprocessor(rec)
	pp.SetKeepComments(true)
	assert.True(t, pp.KeepComments())
	out, err := pp.Run("test.c", []byte("a /* c */ b\n#define X 1 // x\nX\n"), true, false)
	require.NoError(t, err)
	assert.Equal(t, "a /* c */ b\n1", normalize(string(out)))
}

func TestConfiguration(t *testing.T) {
	pp := New(nil, nil)
	assert.Equal(t, DefaultConfiguration, pp.Configuration())
	out, err := pp.Run("test.c", []byte("__cplusplus\n"), true, false)
	require.NoError(t, err)
	assert.Equal(t, "1", normalize(string(out)))

	pp.SetConfiguration([]byte("#define CONFIGURED 7\n"))
	out, err = pp.Run("test.c", []byte("CONFIGURED\n"), true, false)
	require.NoError(t, err)
	assert.Equal(t, "7", normalize(string(out)))
}
