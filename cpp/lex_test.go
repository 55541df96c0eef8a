package cpp

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(name, src string, keepComments bool) ([]*Token, []string) {
	var errs []string
	lx := Lex(name, []byte(src))
	lx.SetKeepComments(keepComments)
	lx.SetErrorHandler(func(pos FilePos, msg string) {
		errs = append(errs, fmt.Sprintf("%s: %s", pos, msg))
	})
	var toks []*Token
	for {
		t := lx.Next()
		toks = append(toks, t)
		if t.Kind == EOF {
			return toks, errs
		}
	}
}

func tokStrings(toks []*Token) []string {
	var ret []string
	for _, tok := range toks {
		ret = append(ret, fmt.Sprintf("%s:%s:%d:%d", tok.Kind, tok.Val, tok.Pos.Line, tok.Pos.Col))
	}
	return ret
}

var lexTestCases = []struct {
	name     string
	src      string
	expected []string
}{
	{
		"include",
		"#include <stdio.h>\nint main() {\n\treturn 0x1f+1.5e+3;\n}\n",
		[]string{
			"'#':#:1:1",
			"ident:include:1:2",
			"header:<stdio.h>:1:10",
			"enddirective::1:19",
			"ident:int:2:1",
			"ident:main:2:5",
			"'(':(:2:9",
			"')':):2:10",
			"'{':{:2:12",
			"ident:return:3:5",
			"intconst:0x1f:3:12",
			"'+':+:3:16",
			"floatconst:1.5e+3:3:17",
			"';':;:3:23",
			"'}':}:4:1",
			"EOF::5:1",
		},
	},
	{
		"punctuators",
		"a->b ... x<<=y ## :: .* ->* @",
		[]string{
			"ident:a:1:1",
			"'->':->:1:2",
			"ident:b:1:4",
			"'...':...:1:6",
			"ident:x:1:10",
			"'<<=':<<=:1:11",
			"ident:y:1:14",
			"'##':##:1:16",
			"'::'::::1:19",
			"'.*':.*:1:22",
			"'->*':->*:1:25",
			"other:@:1:29",
			"EOF::1:30",
		},
	},
	{
		"less than is not a header outside include",
		"#if a<b\n#endif",
		[]string{
			"'#':#:1:1",
			"ident:if:1:2",
			"ident:a:1:5",
			"'<':<:1:6",
			"ident:b:1:7",
			"enddirective::1:8",
			"'#':#:2:1",
			"ident:endif:2:2",
			"enddirective::2:7",
			"EOF::2:7",
		},
	},
	{
		"literals",
		`L"w" u8"s" 'c' R"x(a)"b)x" 1'000 .5 1.2.3`,
		[]string{
			`string:L"w":1:1`,
			`string:u8"s":1:6`,
			`charconst:'c':1:12`,
			`string:R"x(a)"b)x":1:16`,
			`intconst:1'000:1:28`,
			`floatconst:.5:1:34`,
			`floatconst:1.2.3:1:37`,
			`EOF::1:42`,
		},
	},
	{
		"line splice",
		"ab\\\ncd ef",
		[]string{
			"ident:abcd:1:1",
			"ident:ef:2:4",
			"EOF::2:6",
		},
	},
}

func TestLexer(t *testing.T) {
	for _, tc := range lexTestCases {
		toks, errs := lexAll("testcase.c", tc.src, false)
		assert.Empty(t, errs, tc.name)
		if diff := cmp.Diff(tc.expected, tokStrings(toks)); diff != "" {
			t.Errorf("Test failed %s (-want +got):\n%s", tc.name, diff)
		}
	}
}

func TestLexerFlags(t *testing.T) {
	toks, _ := lexAll("flags.c", "a b/**/c\n  d\n#define X\ne", false)
	require.Len(t, toks, 10)
	assert.True(t, toks[0].BOL)
	assert.False(t, toks[0].WS)
	assert.True(t, toks[1].WS)
	assert.False(t, toks[1].BOL)
	assert.True(t, toks[2].WS, "a comment counts as whitespace")
	assert.Equal(t, "d", toks[3].Val)
	assert.True(t, toks[3].BOL)
	assert.Equal(t, "  ", toks[3].indent)
	assert.Equal(t, TokenKind(HASH), toks[4].Kind)
	assert.Equal(t, TokenKind(END_DIRECTIVE), toks[7].Kind)
	assert.Equal(t, "e", toks[8].Val)
	assert.True(t, toks[8].BOL)
	assert.Equal(t, 11, toks[3].Offset)
}

func TestLexerKeepComments(t *testing.T) {
	toks, errs := lexAll("comments.c", "a /* one\ntwo */ b // three\n#x\n", true)
	assert.Empty(t, errs)
	var kinds []string
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind.String()+" "+tok.Val)
	}
	assert.Equal(t, []string{
		"ident a",
		"comment /* one\ntwo */",
		"ident b",
		"comment // three",
		"'#' #",
		"ident x",
		"enddirective ",
		"EOF ",
	}, kinds)
	assert.False(t, toks[2].BOL, "a block comment does not start a new line")
	assert.True(t, toks[4].BOL)
}

func TestLexerErrors(t *testing.T) {
	for _, src := range []string{
		"/* open",
		"\"open\n",
		"'x\n",
		"#include <stdio.h\n",
		"R\"abc",
	} {
		_, errs := lexAll("errors.c", src, false)
		assert.NotEmpty(t, errs, "%q", src)
	}
}

func TestLexerUnterminatedMessages(t *testing.T) {
	toks, errs := lexAll("q.c", "\"open\n'x\n", false)
	assert.Equal(t, []string{
		"q.c:1:6: missing terminating \" character",
		"q.c:2:3: missing terminating ' character",
	}, errs)
	assert.Equal(t, `"open`, toks[0].Val)
	assert.Equal(t, "'x", toks[1].Val)
}

func TestLexerPeekKeepsPushback(t *testing.T) {
	toks, errs := lexAll("p.c", ".5 1'2 3''", false)
	assert.Empty(t, errs)
	assert.Equal(t, []string{
		"floatconst:.5:1:1",
		"intconst:1'2:1:4",
		"intconst:3:1:8",
		"charconst:'':1:9",
		"EOF::1:11",
	}, tokStrings(toks))
}

func TestLexerSetLine(t *testing.T) {
	lx := Lex("a.c", []byte("#line 10 \"b.c\"\nx\ny\n"))
	for {
		tok := lx.Next()
		if tok.Kind == END_DIRECTIVE {
			break
		}
	}
	lx.SetLine(10, "b.c")
	x := lx.Next()
	y := lx.Next()
	assert.Equal(t, FilePos{File: "b.c", Line: 10, Col: 1}, x.Pos)
	assert.Equal(t, 11, y.Pos.Line)
	assert.Equal(t, "b.c", lx.File())
	assert.Equal(t, 11, lx.Line())
}

func TestLexString(t *testing.T) {
	toks, errs := lexString("paste", "a##b")
	assert.Empty(t, errs)
	require.Len(t, toks, 3)
	assert.Equal(t, "##", toks[1].Val)
}
