package cpp

import (
	"fmt"
)

// The list of tokens.
const (

	// Single char tokens are themselves.
	ADD       = '+'
	SUB       = '-'
	MUL       = '*'
	QUO       = '/'
	REM       = '%'
	AND       = '&'
	OR        = '|'
	XOR       = '^'
	QUESTION  = '?'
	HASH      = '#'
	LSS       = '<'
	GTR       = '>'
	ASSIGN    = '='
	NOT       = '!'
	BNOT      = '~'
	LPAREN    = '('
	LBRACK    = '['
	LBRACE    = '{'
	COMMA     = ','
	PERIOD    = '.'
	RPAREN    = ')'
	RBRACK    = ']'
	RBRACE    = '}'
	SEMICOLON = ';'
	COLON     = ':'

	ERROR = 10000 + iota
	EOF
	//some cpp only tokens
	END_DIRECTIVE //New line at the end of a directive
	HEADER      // <stdio.h> after an include directive
	HASHHASH    // ##
	COMMENT     // Only produced when comments are kept.
	PLACEMARKER // Empty argument next to ##, never emitted.
	OTHER       // Stray characters like @ or a lone backslash.
	// Identifiers and basic type literals
	// (these tokens stand for classes of literals)
	IDENT          // main
	INT_CONSTANT   // 12345
	FLOAT_CONSTANT // 123.45
	CHAR_CONSTANT  // 'a'
	STRING         // "abc"

	SHL        // <<
	SHR        // >>
	ADD_ASSIGN // +=
	SUB_ASSIGN // -=
	MUL_ASSIGN // *=
	QUO_ASSIGN // /=
	REM_ASSIGN // %=
	AND_ASSIGN // &=
	OR_ASSIGN  // |=
	XOR_ASSIGN // ^=
	SHL_ASSIGN // <<=
	SHR_ASSIGN // >>=
	LAND       // &&
	LOR        // ||
	ARROW      // ->
	INC        // ++
	DEC        // --
	EQL        // ==
	NEQ        // !=
	LEQ        // <=
	GEQ        // >=
	ELLIPSIS   // ...
	SCOPE      // ::
	ARROWSTAR  // ->*
	DOTSTAR    // .*
)

var tokenKindToStr = [...]string{
	HASH:           "'#'",
	EOF:            "EOF",
	ERROR:          "error",
	END_DIRECTIVE:  "enddirective",
	HEADER:         "header",
	HASHHASH:       "'##'",
	COMMENT:        "comment",
	PLACEMARKER:    "placemarker",
	OTHER:          "other",
	CHAR_CONSTANT:  "charconst",
	INT_CONSTANT:   "intconst",
	FLOAT_CONSTANT: "floatconst",
	IDENT:          "ident",
	STRING:         "string",
	ADD:            "'+'",
	SUB:            "'-'",
	MUL:            "'*'",
	QUO:            "'/'",
	REM:            "'%'",
	AND:            "'&'",
	OR:             "'|'",
	XOR:            "'^'",
	SHL:            "'<<'",
	SHR:            "'>>'",
	ADD_ASSIGN:     "'+='",
	SUB_ASSIGN:     "'-='",
	MUL_ASSIGN:     "'*='",
	QUO_ASSIGN:     "'/='",
	REM_ASSIGN:     "'%='",
	AND_ASSIGN:     "'&='",
	OR_ASSIGN:      "'|='",
	XOR_ASSIGN:     "'^='",
	SHL_ASSIGN:     "'<<='",
	SHR_ASSIGN:     "'>>='",
	LAND:           "'&&'",
	LOR:            "'||'",
	ARROW:          "'->'",
	INC:            "'++'",
	DEC:            "'--'",
	EQL:            "'=='",
	LSS:            "'<'",
	GTR:            "'>'",
	ASSIGN:         "'='",
	NOT:            "'!'",
	BNOT:           "'~'",
	NEQ:            "'!='",
	LEQ:            "'<='",
	GEQ:            "'>='",
	ELLIPSIS:       "'...'",
	SCOPE:          "'::'",
	ARROWSTAR:      "'->*'",
	DOTSTAR:        "'.*'",
	LPAREN:         "'('",
	LBRACK:         "'['",
	LBRACE:         "'{'",
	COMMA:          "','",
	PERIOD:         "'.'",
	RPAREN:         "')'",
	RBRACK:         "']'",
	RBRACE:         "'}'",
	SEMICOLON:      "';'",
	COLON:          "':'",
	QUESTION:       "'?'",
}

type TokenKind uint32

func (tk TokenKind) String() string {
	if uint32(tk) >= uint32(len(tokenKindToStr)) {
		return "Unknown"
	}
	ret := tokenKindToStr[tk]
	if ret == "" {
		return "Unknown"
	}
	return ret
}

type FilePos struct {
	File string
	Line int
	Col  int
}

func (pos FilePos) String() string {
	return fmt.Sprintf("%s:%d:%d", pos.File, pos.Line, pos.Col)
}

//Token represents a grouping of characters
//that provide semantic meaning to the preprocessor.
type Token struct {
	Kind TokenKind
	Val  string
	Pos  FilePos
	// Byte offset of the token in the source it was read from.
	Offset int
	// Whitespace or a comment came before the token.
	WS bool
	// First token on a logical source line.
	BOL bool
	// Produced by a macro expansion instead of read from the source.
	Generated bool

	// Leading whitespace of the line, set on BOL tokens only.
	indent string
	hs     *hideset
}

func (t *Token) copy() *Token {
	ret := *t
	return &ret
}

// Len is the length of the token's spelling in bytes.
func (t *Token) Len() int {
	return len(t.Val)
}

func (t *Token) is(k TokenKind) bool {
	return t != nil && t.Kind == k
}

func (t *Token) isIdent(name string) bool {
	return t != nil && t.Kind == IDENT && t.Val == name
}

func (t Token) String() string {
	if t.Generated {
		return fmt.Sprintf("%s expanded from macro at %s", t.Val, t.Pos)
	}
	return fmt.Sprintf("%s at %s", t.Val, t.Pos)
}

// spell joins the spellings of toks, separating tokens that had whitespace
// before them with a single space.
func spell(toks []*Token) string {
	var b []byte
	for i, t := range toks {
		if t.Kind == PLACEMARKER {
			continue
		}
		if i > 0 && (t.WS || t.BOL) {
			b = append(b, ' ')
		}
		b = append(b, t.Val...)
	}
	return string(b)
}
