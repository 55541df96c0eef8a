package cpp

import (
	"bytes"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Lexer reads raw preprocessing tokens from a source buffer. No macro
// expansion or directive processing happens here; whitespace and newlines
// are folded into the WS and BOL flags of the following token, and the end
// of a directive line is reported as an END_DIRECTIVE token.
type Lexer struct {
	src []byte
	off int
	pos FilePos

	lastOff       int
	lastPos       FilePos
	lastBol       bool
	lastLineStart int

	markedOff int
	markedPos FilePos
	lineStart int

	// At the beginning on line not including whitespace.
	bol bool
	// Whitespace or a comment was seen since the last token.
	ws bool
	// Set to true if we are currently reading a # directive line
	inDirective bool
	dirToks     int
	wantHeader  bool

	keepComments bool
	lineDelta    int
	fileOverride string

	onError func(pos FilePos, msg string)
	// Last token returned.
	prev *Token
}

// Lex creates a lexer over src.
// fname is used for error messages when showing the source location.
func Lex(fname string, src []byte) *Lexer {
	lx := new(Lexer)
	lx.src = src
	lx.pos.File = fname
	lx.pos.Line = 1
	lx.pos.Col = 1
	lx.markedPos = lx.pos
	lx.lastPos = lx.pos
	lx.bol = true
	return lx
}

// SetKeepComments makes the lexer return comments as COMMENT tokens
// instead of treating them as whitespace.
func (lx *Lexer) SetKeepComments(keep bool) {
	lx.keepComments = keep
}

// SetErrorHandler installs the function receiving lexical errors. The lexer
// always recovers and continues after reporting.
func (lx *Lexer) SetErrorHandler(f func(pos FilePos, msg string)) {
	lx.onError = f
}

// SetLine renumbers the source so the next physical line is reported as
// line n, optionally in another file. It is called for #line once the
// newline ending the directive has been read.
func (lx *Lexer) SetLine(n int, file string) {
	lx.lineDelta = n - lx.pos.Line
	if file != "" {
		lx.fileOverride = file
	}
}

// File is the file name tokens are currently attributed to.
func (lx *Lexer) File() string {
	if lx.fileOverride != "" {
		return lx.fileOverride
	}
	return lx.pos.File
}

// Line is the logical line of the last token read.
func (lx *Lexer) Line() int {
	if lx.prev == nil {
		return lx.logicalPos(lx.pos).Line
	}
	return lx.prev.Pos.Line
}

func (lx *Lexer) Error(e string) {
	if lx.onError != nil {
		lx.onError(lx.logicalPos(lx.pos), e)
	}
}

func (lx *Lexer) logicalPos(p FilePos) FilePos {
	p.Line += lx.lineDelta
	if lx.fileOverride != "" {
		p.File = lx.fileOverride
	}
	return p
}

func (lx *Lexer) markPos() {
	lx.markedPos = lx.pos
	lx.markedOff = lx.off
}

func (lx *Lexer) sendTok(kind TokenKind, val string) *Token {
	tok := &Token{
		Kind:   kind,
		Val:    val,
		Pos:    lx.logicalPos(lx.markedPos),
		Offset: lx.markedOff,
		WS:     lx.ws,
		BOL:    lx.bol,
		hs:     emptyHS,
	}
	lx.prev = tok
	if tok.BOL && kind != END_DIRECTIVE && kind != EOF {
		tok.indent = lx.indentOf(lx.markedOff)
	}
	switch kind {
	case END_DIRECTIVE:
		//Do nothing as this is a pseudo directive.
		return tok
	case EOF:
		return tok
	}
	lx.bol = false
	lx.ws = false
	if lx.inDirective {
		lx.dirToks++
		lx.wantHeader = lx.dirToks == 1 && kind == IDENT &&
			(val == "include" || val == "include_next" || val == "import")
	} else if kind == HASH && tok.BOL {
		lx.inDirective = true
		lx.dirToks = 0
		lx.wantHeader = false
	}
	return tok
}

func (lx *Lexer) indentOf(off int) string {
	if lx.lineStart > off {
		return ""
	}
	b := make([]byte, 0, off-lx.lineStart)
	for _, c := range lx.src[lx.lineStart:off] {
		if c == '\t' {
			b = append(b, '\t')
		} else {
			b = append(b, ' ')
		}
	}
	return string(b)
}

func (lx *Lexer) unreadRune() {
	lx.pos = lx.lastPos
	lx.off = lx.lastOff
	lx.bol = lx.lastBol
	lx.lineStart = lx.lastLineStart
}

// peek returns the next character without consuming it. Unlike a
// readRune/unreadRune pair it leaves a pending unreadRune intact.
func (lx *Lexer) peek() (rune, bool) {
	lastOff, lastPos, lastBol, lastLineStart := lx.lastOff, lx.lastPos, lx.lastBol, lx.lastLineStart
	r, eof := lx.readRune()
	lx.unreadRune()
	lx.lastOff, lx.lastPos, lx.lastBol, lx.lastLineStart = lastOff, lastPos, lastBol, lastLineStart
	return r, eof
}

// spliceLen returns the length of a newline at off, 0 if there is none.
func (lx *Lexer) spliceLen(off int) int {
	if off < len(lx.src) && lx.src[off] == '\n' {
		return 1
	}
	if off+1 < len(lx.src) && lx.src[off] == '\r' && lx.src[off+1] == '\n' {
		return 2
	}
	return 0
}

// readRune returns the next character, with backslash-newline pairs removed.
func (lx *Lexer) readRune() (rune, bool) {
	lx.lastPos = lx.pos
	lx.lastOff = lx.off
	lx.lastBol = lx.bol
	lx.lastLineStart = lx.lineStart
	for {
		if lx.off >= len(lx.src) {
			return 0, true
		}
		r, size := utf8.DecodeRune(lx.src[lx.off:])
		if r == '\\' {
			if n := lx.spliceLen(lx.off + 1); n > 0 {
				lx.off += 1 + n
				lx.pos.Line += 1
				lx.pos.Col = 1
				continue
			}
		}
		lx.off += size
		switch r {
		case '\n':
			lx.pos.Line += 1
			lx.pos.Col = 1
			lx.bol = true
			lx.lineStart = lx.off
		case '\t':
			lx.pos.Col += 4
		default:
			lx.pos.Col += 1
		}
		return r, false
	}
}

// accept consumes the next character if it is r.
func (lx *Lexer) accept(r rune) bool {
	c, eof := lx.readRune()
	if !eof && c == r {
		return true
	}
	lx.unreadRune()
	return false
}

// Next returns the next token. At the end of input it keeps returning EOF.
func (lx *Lexer) Next() *Token {
	for {
		lx.markPos()
		first, eof := lx.readRune()
		if eof {
			if lx.inDirective {
				lx.inDirective = false
				return lx.sendTok(END_DIRECTIVE, "")
			}
			return lx.sendTok(EOF, "")
		}
		switch {
		case first == '\n':
			lx.ws = true
			if lx.inDirective {
				lx.inDirective = false
				return lx.sendTok(END_DIRECTIVE, "")
			}
		case isWhiteSpace(first):
			lx.ws = true
		case first == '<' && lx.wantHeader:
			lx.unreadRune()
			return lx.readHeaderInclude()
		case isValidIdentStart(first):
			lx.unreadRune()
			return lx.readIdentOrLiteral()
		case isNumeric(first):
			lx.unreadRune()
			return lx.readPPNumber()
		case first == '.' && lx.peekNumeric():
			lx.unreadRune()
			return lx.readPPNumber()
		case first == '\'':
			lx.unreadRune()
			return lx.readQuoted('\'', CHAR_CONSTANT, "")
		case first == '"':
			lx.unreadRune()
			return lx.readQuoted('"', STRING, "")
		case first == '/' && lx.accept('*'):
			if t := lx.blockComment(); t != nil {
				return t
			}
		case first == '/' && lx.accept('/'):
			if t := lx.lineComment(); t != nil {
				return t
			}
		default:
			return lx.readPunct(first)
		}
	}
}

func (lx *Lexer) peekNumeric() bool {
	r, eof := lx.peek()
	return !eof && isNumeric(r)
}

func (lx *Lexer) readPunct(first rune) *Token {
	switch first {
	case '#':
		if lx.accept('#') {
			return lx.sendTok(HASHHASH, "##")
		}
		return lx.sendTok(HASH, "#")
	case '!':
		if lx.accept('=') {
			return lx.sendTok(NEQ, "!=")
		}
		return lx.sendTok(NOT, "!")
	case '<':
		if lx.accept('<') {
			if lx.accept('=') {
				return lx.sendTok(SHL_ASSIGN, "<<=")
			}
			return lx.sendTok(SHL, "<<")
		}
		if lx.accept('=') {
			return lx.sendTok(LEQ, "<=")
		}
		return lx.sendTok(LSS, "<")
	case '>':
		if lx.accept('>') {
			if lx.accept('=') {
				return lx.sendTok(SHR_ASSIGN, ">>=")
			}
			return lx.sendTok(SHR, ">>")
		}
		if lx.accept('=') {
			return lx.sendTok(GEQ, ">=")
		}
		return lx.sendTok(GTR, ">")
	case '+':
		if lx.accept('+') {
			return lx.sendTok(INC, "++")
		}
		if lx.accept('=') {
			return lx.sendTok(ADD_ASSIGN, "+=")
		}
		return lx.sendTok(ADD, "+")
	case '-':
		if lx.accept('>') {
			if lx.accept('*') {
				return lx.sendTok(ARROWSTAR, "->*")
			}
			return lx.sendTok(ARROW, "->")
		}
		if lx.accept('-') {
			return lx.sendTok(DEC, "--")
		}
		if lx.accept('=') {
			return lx.sendTok(SUB_ASSIGN, "-=")
		}
		return lx.sendTok(SUB, "-")
	case '.':
		if lx.accept('*') {
			return lx.sendTok(DOTSTAR, ".*")
		}
		save, savePos, saveBol, saveLineStart := lx.off, lx.pos, lx.bol, lx.lineStart
		if lx.accept('.') {
			if lx.accept('.') {
				return lx.sendTok(ELLIPSIS, "...")
			}
			lx.off, lx.pos, lx.bol, lx.lineStart = save, savePos, saveBol, saveLineStart
		}
		return lx.sendTok(PERIOD, ".")
	case ':':
		if lx.accept(':') {
			return lx.sendTok(SCOPE, "::")
		}
		return lx.sendTok(COLON, ":")
	case '^':
		if lx.accept('=') {
			return lx.sendTok(XOR_ASSIGN, "^=")
		}
		return lx.sendTok(XOR, "^")
	case '*':
		if lx.accept('=') {
			return lx.sendTok(MUL_ASSIGN, "*=")
		}
		return lx.sendTok(MUL, "*")
	case '/':
		if lx.accept('=') {
			return lx.sendTok(QUO_ASSIGN, "/=")
		}
		return lx.sendTok(QUO, "/")
	case '%':
		if lx.accept('=') {
			return lx.sendTok(REM_ASSIGN, "%=")
		}
		return lx.sendTok(REM, "%")
	case '|':
		if lx.accept('|') {
			return lx.sendTok(LOR, "||")
		}
		if lx.accept('=') {
			return lx.sendTok(OR_ASSIGN, "|=")
		}
		return lx.sendTok(OR, "|")
	case '&':
		if lx.accept('&') {
			return lx.sendTok(LAND, "&&")
		}
		if lx.accept('=') {
			return lx.sendTok(AND_ASSIGN, "&=")
		}
		return lx.sendTok(AND, "&")
	case '=':
		if lx.accept('=') {
			return lx.sendTok(EQL, "==")
		}
		return lx.sendTok(ASSIGN, "=")
	case '?', '~', '(', ')', '{', '}', '[', ']', ',', ';':
		return lx.sendTok(TokenKind(first), string(first))
	}
	return lx.sendTok(OTHER, string(first))
}

func (lx *Lexer) blockComment() *Token {
	wasBol := lx.bol
	for {
		c, eof := lx.readRune()
		if eof {
			lx.Error("unclosed comment.")
			break
		}
		if c == '*' && lx.accept('/') {
			break
		}
	}
	// Newlines inside a comment do not start a new logical line.
	lx.bol = wasBol
	if lx.keepComments {
		return lx.sendComment()
	}
	lx.ws = true
	return nil
}

func (lx *Lexer) lineComment() *Token {
	for {
		c, eof := lx.readRune()
		if eof {
			break
		}
		if c == '\n' {
			lx.unreadRune()
			break
		}
	}
	if lx.keepComments {
		return lx.sendComment()
	}
	lx.ws = true
	return nil
}

// sendComment returns a COMMENT token without disturbing the line state, so
// a kept comment never turns the following # into a non-directive.
func (lx *Lexer) sendComment() *Token {
	bol, ws := lx.bol, lx.ws
	tok := &Token{
		Kind:   COMMENT,
		Val:    string(lx.src[lx.markedOff:lx.off]),
		Pos:    lx.logicalPos(lx.markedPos),
		Offset: lx.markedOff,
		WS:     ws,
		BOL:    bol,
		hs:     emptyHS,
	}
	if bol {
		tok.indent = lx.indentOf(lx.markedOff)
	}
	lx.ws = true
	return tok
}

func (lx *Lexer) readHeaderInclude() *Token {
	var buff bytes.Buffer
	lx.markPos()
	opening, _ := lx.readRune()
	buff.WriteRune(opening)
	for {
		c, eof := lx.readRune()
		if eof || c == '\n' {
			if !eof {
				lx.unreadRune()
			}
			lx.Error("missing terminating > character in header include.")
			break
		}
		buff.WriteRune(c)
		if c == '>' {
			break
		}
	}
	return lx.sendTok(HEADER, buff.String())
}

func (lx *Lexer) readIdentOrLiteral() *Token {
	var buff bytes.Buffer
	lx.markPos()
	for {
		b, eof := lx.readRune()
		if !eof && isValidIdentTail(b) {
			buff.WriteRune(b)
			continue
		}
		if !eof {
			lx.unreadRune()
		}
		break
	}
	str := buff.String()
	switch str {
	case "L", "u", "U", "u8":
		if lx.accept('"') {
			lx.unreadRune()
			return lx.readQuoted('"', STRING, str)
		}
		if lx.accept('\'') {
			lx.unreadRune()
			return lx.readQuoted('\'', CHAR_CONSTANT, str)
		}
	case "R", "LR", "uR", "UR", "u8R":
		if lx.accept('"') {
			return lx.readRawString()
		}
	}
	return lx.sendTok(IDENT, str)
}

// readPPNumber reads a preprocessing number, which is more lenient than
// the C grammar for constants: 0x1p-3, 1e+10, 12ull and 1.2.3 are all one
// token.
func (lx *Lexer) readPPNumber() *Token {
	var buff bytes.Buffer
	lx.markPos()
	isFloat := false
	for {
		r, eof := lx.readRune()
		if eof {
			break
		}
		if r == 'e' || r == 'E' || r == 'p' || r == 'P' {
			buff.WriteRune(r)
			if lx.accept('+') {
				buff.WriteRune('+')
			} else if lx.accept('-') {
				buff.WriteRune('-')
			}
			continue
		}
		if r == '\'' && buff.Len() > 0 && lx.peekAlnum() {
			// C++14 digit separator.
			buff.WriteRune(r)
			continue
		}
		if isValidIdentTail(r) || r == '.' {
			buff.WriteRune(r)
			continue
		}
		lx.unreadRune()
		break
	}
	s := buff.String()
	hex := len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', 'p', 'P':
			isFloat = true
		case 'e', 'E':
			if !hex {
				isFloat = true
			}
		}
	}
	if isFloat {
		return lx.sendTok(FLOAT_CONSTANT, s)
	}
	return lx.sendTok(INT_CONSTANT, s)
}

func (lx *Lexer) peekAlnum() bool {
	r, eof := lx.peek()
	return !eof && (isNumeric(r) || isAlpha(r))
}

// readQuoted reads a string or character literal. The spelling, escapes
// included, is kept verbatim. An unterminated literal ends at the newline.
func (lx *Lexer) readQuoted(quote rune, kind TokenKind, prefix string) *Token {
	var buff bytes.Buffer
	if prefix == "" {
		lx.markPos()
	}
	buff.WriteString(prefix)
	r, _ := lx.readRune()
	buff.WriteRune(r)
	escaped := false
	for {
		r, eof := lx.readRune()
		if eof || r == '\n' {
			if !eof {
				lx.unreadRune()
			}
			lx.Error(fmt.Sprintf("missing terminating %c character", quote))
			break
		}
		buff.WriteRune(r)
		if escaped {
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		if r == quote {
			break
		}
	}
	return lx.sendTok(kind, buff.String())
}

// readRawString reads a C++11 raw string literal; the opening quote has
// been consumed.
func (lx *Lexer) readRawString() *Token {
	start := lx.markedOff
	var delim bytes.Buffer
	for {
		r, eof := lx.readRune()
		if eof || r == '\n' || delim.Len() > 16 {
			lx.Error("invalid raw string delimiter")
			return lx.sendTok(STRING, string(lx.src[start:lx.off]))
		}
		if r == '(' {
			break
		}
		delim.WriteRune(r)
	}
	closing := []byte(")" + delim.String() + "\"")
	idx := bytes.Index(lx.src[lx.off:], closing)
	if idx < 0 {
		lx.Error("unterminated raw string")
		idx = len(lx.src) - lx.off
		closing = nil
	}
	end := lx.off + idx + len(closing)
	for lx.off < end {
		lx.readRune()
	}
	return lx.sendTok(STRING, string(lx.src[start:end]))
}

// lexString tokenizes text on its own, returning every token before EOF.
// Used to re-lex pasted tokens and computed include names.
func lexString(name string, text string) ([]*Token, []string) {
	var errs []string
	lx := Lex(name, []byte(text))
	lx.SetErrorHandler(func(pos FilePos, msg string) {
		errs = append(errs, fmt.Sprintf("%s at %s", msg, pos))
	})
	var toks []*Token
	for {
		t := lx.Next()
		if t.Kind == EOF {
			return toks, errs
		}
		if t.Kind == END_DIRECTIVE {
			continue
		}
		toks = append(toks, t)
	}
}

func isValidIdentTail(b rune) bool {
	return isValidIdentStart(b) || isNumeric(b)
}

func isValidIdentStart(b rune) bool {
	return b == '_' || b == '$' || isAlpha(b) || (b >= utf8.RuneSelf && unicode.IsLetter(b))
}

func isAlpha(b rune) bool {
	if b >= 'a' && b <= 'z' {
		return true
	}
	if b >= 'A' && b <= 'Z' {
		return true
	}
	return false
}

func isWhiteSpace(b rune) bool {
	return b == ' ' || b == '\r' || b == '\n' || b == '\t' || b == '\f' || b == '\v'
}

func isNumeric(b rune) bool {
	if b >= '0' && b <= '9' {
		return true
	}
	return false
}

func isHexDigit(b rune) bool {
	return isNumeric(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
