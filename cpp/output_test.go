package cpp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var pasteTestCases = []struct {
	a, b     string
	aKind    TokenKind
	expected bool
}{
	{"a", "b", IDENT, true},
	{"a", "1", IDENT, true},
	{"1", "x", INT_CONSTANT, true},
	{"1", ".5", INT_CONSTANT, true},
	{"1e", "+", FLOAT_CONSTANT, true},
	{"1", "+", INT_CONSTANT, false},
	{"+", "+", ADD, true},
	{"+", "=", ADD, true},
	{"-", ">", SUB, true},
	{"/", "*", QUO, true},
	{"/", "/", QUO, true},
	{"<", "<", LSS, true},
	{"<", ":", LSS, true},
	{"L", `"s"`, IDENT, true},
	{"x", "(", IDENT, false},
	{")", "x", RPAREN, false},
	{"+", "-", ADD, false},
	{",", ",", COMMA, false},
	{"#", "#", HASH, true},
}

func TestWouldPaste(t *testing.T) {
	for _, tc := range pasteTestCases {
		a := &Token{Kind: tc.aKind, Val: tc.a}
		b := &Token{Val: tc.b}
		assert.Equal(t, tc.expected, wouldPaste(a, b), "%s %s", tc.a, tc.b)
	}
	assert.False(t, wouldPaste(nil, &Token{Val: "x"}))
}

func TestOutputSync(t *testing.T) {
	o := newOutput(false, false)
	o.startFile("a.c")
	o.token(&Token{Kind: IDENT, Val: "x", Pos: FilePos{File: "a.c", Line: 1}, BOL: true})
	o.token(&Token{Kind: IDENT, Val: "y", Pos: FilePos{File: "a.c", Line: 3}, BOL: true, indent: "\t"})
	o.token(&Token{Kind: IDENT, Val: "z", Pos: FilePos{File: "b.h", Line: 1}, BOL: true})
	o.token(&Token{Kind: IDENT, Val: "w", Pos: FilePos{File: "a.c", Line: 2}, BOL: true})
	o.end()
	assert.Equal(t, "# 1 \"a.c\"\nx\n\n\ty\n# 1 \"b.h\"\nz\n# 2 \"a.c\"\nw\n", string(o.bytes()))
}
