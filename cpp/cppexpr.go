package cpp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

/*
   Implements the expression parsing and evaluation for #if statements

   Note that "defined name" and "define(name)" and macro expansion are
   handled before this part of code.

   #if expression
       controlled text
   #endif

   expression may be:

   Integer constants.

   Character constants, which are interpreted as they would be in normal code.

   Arithmetic operators for most of C

   Identifiers that are not macros, which are all considered to be the number zero.
*/

var errDivByZero = errors.New("division by zero in #if")

type cppExprCtx struct {
	toks []*Token
	pos  int
	// Non zero while parsing an operand that is not evaluated, like the
	// right side of 0 && x.
	unevaluated int
}

func (ctx *cppExprCtx) nextToken() *Token {
	if ctx.pos >= len(ctx.toks) {
		return nil
	}
	tok := ctx.toks[ctx.pos]
	ctx.pos++
	return tok
}

func (ctx *cppExprCtx) peek() *Token {
	if ctx.pos >= len(ctx.toks) {
		return nil
	}
	return ctx.toks[ctx.pos]
}

func parseCPPExprAtom(ctx *cppExprCtx) (Value, error) {
	toCheck := ctx.nextToken()
	if toCheck == nil {
		return invalidValue, fmt.Errorf("#if with no expression")
	}
	switch toCheck.Kind {
	case NOT:
		v, err := parseCPPExprAtom(ctx)
		if err != nil {
			return invalidValue, err
		}
		return boolValue(v.bits == 0), nil
	case BNOT:
		v, err := parseCPPExprAtom(ctx)
		if err != nil {
			return invalidValue, err
		}
		return Value{Kind: v.Kind, bits: ^v.bits}, nil
	case SUB:
		v, err := parseCPPExprAtom(ctx)
		if err != nil {
			return invalidValue, err
		}
		return Value{Kind: v.Kind, bits: -v.bits}, nil
	case ADD:
		return parseCPPExprAtom(ctx)
	case LPAREN:
		v, err := parseCPPExpr(ctx)
		if err != nil {
			return invalidValue, err
		}
		rparen := ctx.nextToken()
		if rparen == nil || rparen.Kind != RPAREN {
			return invalidValue, fmt.Errorf("missing ')' in expression")
		}
		return v, nil
	case INT_CONSTANT:
		return parseIntConstant(toCheck.Val)
	case FLOAT_CONSTANT:
		return invalidValue, fmt.Errorf("floating constant in preprocessor expression")
	case CHAR_CONSTANT:
		return parseCharConstant(toCheck.Val)
	case IDENT:
		// Identifiers left after macro expansion are zero.
		return SignedValue(0), nil
	case STRING:
		return invalidValue, fmt.Errorf("token %s is not valid in preprocessor expressions", toCheck.Val)
	}
	return invalidValue, fmt.Errorf("token \"%s\" is not valid in preprocessor expressions", toCheck.Val)
}

// parseIntConstant parses an integer literal with its suffix. A u suffix or
// a value too large for int64 makes the value unsigned.
func parseIntConstant(s string) (Value, error) {
	digits := strings.ReplaceAll(s, "'", "")
	end := len(digits)
	for end > 0 && strings.ContainsRune("uUlLzZ", rune(digits[end-1])) {
		end--
	}
	suffix := strings.ToLower(digits[end:])
	digits = digits[:end]
	switch suffix {
	case "", "u", "l", "ul", "lu", "ll", "ull", "llu", "z", "uz", "zu":
	default:
		return invalidValue, fmt.Errorf("invalid suffix \"%s\" on integer constant", s[len(s)-len(suffix):])
	}
	if digits == "" || strings.ContainsRune(digits, '_') {
		return invalidValue, fmt.Errorf("invalid integer constant %s", s)
	}
	v, err := strconv.ParseUint(digits, 0, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return invalidValue, fmt.Errorf("integer constant %s is too large", s)
		}
		return invalidValue, fmt.Errorf("invalid integer constant %s", s)
	}
	if strings.ContainsRune(suffix, 'u') || v > math.MaxInt64 {
		return UnsignedValue(v), nil
	}
	return SignedValue(int64(v)), nil
}

// parseCharConstant evaluates a character constant. Plain constants are
// signed chars, multi-char constants pack their bytes big endian.
func parseCharConstant(s string) (Value, error) {
	prefix := s[:strings.IndexByte(s, '\'')]
	body := s[len(prefix)+1:]
	if !strings.HasSuffix(body, "'") || len(body) < 2 {
		return invalidValue, fmt.Errorf("malformed character constant %s", s)
	}
	body = body[:len(body)-1]
	var chars []uint64
	for len(body) > 0 {
		c, n, err := unescapeChar(body, prefix == "")
		if err != nil {
			return invalidValue, fmt.Errorf("%s in character constant %s", err, s)
		}
		chars = append(chars, c)
		body = body[n:]
	}
	if len(chars) == 0 {
		return invalidValue, fmt.Errorf("empty character constant")
	}
	if prefix != "" {
		return SignedValue(int64(chars[len(chars)-1])), nil
	}
	if len(chars) == 1 {
		return SignedValue(int64(int8(chars[0]))), nil
	}
	var v uint64
	for _, c := range chars {
		v = v<<8 | (c & 0xff)
	}
	return SignedValue(int64(int32(v))), nil
}

// unescapeChar decodes the first character of s, returning its value and
// length. With bytewise set a non ASCII character yields its first byte.
func unescapeChar(s string, bytewise bool) (uint64, int, error) {
	if s[0] != '\\' {
		if bytewise || s[0] < utf8.RuneSelf {
			return uint64(s[0]), 1, nil
		}
		r, n := utf8.DecodeRuneInString(s)
		return uint64(r), n, nil
	}
	if len(s) < 2 {
		return 0, 0, fmt.Errorf("incomplete escape")
	}
	switch s[1] {
	case 'n':
		return '\n', 2, nil
	case 't':
		return '\t', 2, nil
	case 'r':
		return '\r', 2, nil
	case 'a':
		return '\a', 2, nil
	case 'b':
		return '\b', 2, nil
	case 'f':
		return '\f', 2, nil
	case 'v':
		return '\v', 2, nil
	case 'e', 'E':
		return 27, 2, nil
	case '\\', '\'', '"', '?':
		return uint64(s[1]), 2, nil
	case 'x':
		n := 2
		var v uint64
		for n < len(s) && isHexDigit(rune(s[n])) {
			d, _ := strconv.ParseUint(s[n:n+1], 16, 8)
			v = v<<4 | d
			n++
		}
		if n == 2 {
			return 0, 0, fmt.Errorf("\\x used with no following hex digits")
		}
		return v, n, nil
	case 'u', 'U':
		width := 4
		if s[1] == 'U' {
			width = 8
		}
		if len(s) < 2+width {
			return 0, 0, fmt.Errorf("incomplete universal character name")
		}
		v, err := strconv.ParseUint(s[2:2+width], 16, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid universal character name")
		}
		return v, 2 + width, nil
	}
	if s[1] >= '0' && s[1] <= '7' {
		n := 1
		var v uint64
		for n < len(s) && n < 4 && s[n] >= '0' && s[n] <= '7' {
			v = v<<3 | uint64(s[n]-'0')
			n++
		}
		return v, n, nil
	}
	return 0, 0, fmt.Errorf("unknown escape sequence '\\%c'", s[1])
}

// convert applies the usual arithmetic conversions to an operand pair.
func convert(l, r Value) (Value, Value, bool) {
	unsigned := l.Kind == Unsigned || r.Kind == Unsigned
	if unsigned {
		l.Kind, r.Kind = Unsigned, Unsigned
	}
	return l, r, unsigned
}

func evalCPPBinop(ctx *cppExprCtx, k TokenKind, l Value, r Value) (Value, error) {
	switch k {
	case LOR:
		return boolValue(l.bits != 0 || r.bits != 0), nil
	case LAND:
		return boolValue(l.bits != 0 && r.bits != 0), nil
	case SHL, SHR:
		// The result has the type of the left operand.
		n := r.bits
		if r.Kind == Signed && r.Int() < 0 {
			if k == SHL {
				k = SHR
			} else {
				k = SHL
			}
			n = uint64(-r.Int())
		}
		if n >= 64 {
			if k == SHR && l.Kind == Signed && l.Int() < 0 {
				return SignedValue(-1), nil
			}
			return Value{Kind: l.Kind}, nil
		}
		if k == SHL {
			return Value{Kind: l.Kind, bits: l.bits << n}, nil
		}
		if l.Kind == Signed {
			return SignedValue(l.Int() >> n), nil
		}
		return UnsignedValue(l.bits >> n), nil
	case COMMA:
		return r, nil
	}
	l, r, unsigned := convert(l, r)
	switch k {
	case OR:
		return Value{Kind: l.Kind, bits: l.bits | r.bits}, nil
	case XOR:
		return Value{Kind: l.Kind, bits: l.bits ^ r.bits}, nil
	case AND:
		return Value{Kind: l.Kind, bits: l.bits & r.bits}, nil
	case ADD:
		return Value{Kind: l.Kind, bits: l.bits + r.bits}, nil
	case SUB:
		return Value{Kind: l.Kind, bits: l.bits - r.bits}, nil
	case MUL:
		return Value{Kind: l.Kind, bits: l.bits * r.bits}, nil
	case QUO, REM:
		if r.bits == 0 {
			if ctx.unevaluated > 0 {
				return Value{Kind: l.Kind}, nil
			}
			return invalidValue, errDivByZero
		}
		if unsigned {
			if k == QUO {
				return UnsignedValue(l.bits / r.bits), nil
			}
			return UnsignedValue(l.bits % r.bits), nil
		}
		if l.Int() == math.MinInt64 && r.Int() == -1 {
			// Overflows; wrap like the hardware would.
			if k == QUO {
				return l, nil
			}
			return SignedValue(0), nil
		}
		if k == QUO {
			return SignedValue(l.Int() / r.Int()), nil
		}
		return SignedValue(l.Int() % r.Int()), nil
	case EQL:
		return boolValue(l.bits == r.bits), nil
	case NEQ:
		return boolValue(l.bits != r.bits), nil
	}
	var less, greater bool
	if unsigned {
		less, greater = l.bits < r.bits, l.bits > r.bits
	} else {
		less, greater = l.Int() < r.Int(), l.Int() > r.Int()
	}
	switch k {
	case LSS:
		return boolValue(less), nil
	case GTR:
		return boolValue(greater), nil
	case LEQ:
		return boolValue(!greater), nil
	case GEQ:
		return boolValue(!less), nil
	}
	return invalidValue, fmt.Errorf("internal error %s", k)
}

func parseCPPTernary(ctx *cppExprCtx) (Value, error) {
	cond, err := parseCPPBinop(ctx)
	if err != nil {
		return invalidValue, err
	}
	t := ctx.peek()
	if t == nil || t.Kind != QUESTION {
		return cond, nil
	}
	ctx.nextToken()
	taken := cond.bits != 0
	if !taken {
		ctx.unevaluated++
	}
	a, err := parseCPPExpr(ctx)
	if !taken {
		ctx.unevaluated--
	}
	if err != nil {
		return invalidValue, err
	}
	colon := ctx.nextToken()
	if colon == nil || colon.Kind != COLON {
		return invalidValue, fmt.Errorf("'?' without following ':'")
	}
	if taken {
		ctx.unevaluated++
	}
	b, err := parseCPPTernary(ctx)
	if taken {
		ctx.unevaluated--
	}
	if err != nil {
		return invalidValue, err
	}
	a, b, _ = convert(a, b)
	if taken {
		return a, nil
	}
	return b, nil
}

func parseCPPComma(ctx *cppExprCtx) (Value, error) {
	v, err := parseCPPTernary(ctx)
	if err != nil {
		return invalidValue, err
	}
	for {
		t := ctx.peek()
		if t == nil || t.Kind != COMMA {
			break
		}
		ctx.nextToken()
		v, err = parseCPPTernary(ctx)
		if err != nil {
			return invalidValue, err
		}
	}
	return v, nil
}

func getPrec(k TokenKind) int {
	switch k {
	case MUL, REM, QUO:
		return 10
	case ADD, SUB:
		return 9
	case SHR, SHL:
		return 8
	case LSS, GTR, GEQ, LEQ:
		return 7
	case EQL, NEQ:
		return 6
	case AND:
		return 5
	case XOR:
		return 4
	case OR:
		return 3
	case LAND:
		return 2
	case LOR:
		return 1
	}
	return -1
}

// This is the precedence climbing algorithm, simplified because
// all the operators are left associative. The CPP doesn't
// deal with assignment operators.
func parseCPPBinop_1(ctx *cppExprCtx, prec int) (Value, error) {
	l, err := parseCPPExprAtom(ctx)
	if err != nil {
		return invalidValue, err
	}
	for {
		t := ctx.peek()
		if t == nil {
			break
		}
		p := getPrec(t.Kind)
		if p == -1 {
			break
		}
		if p < prec {
			break
		}
		ctx.nextToken()
		shortCircuit := (t.Kind == LAND && l.bits == 0) || (t.Kind == LOR && l.bits != 0)
		if shortCircuit {
			ctx.unevaluated++
		}
		r, err := parseCPPBinop_1(ctx, p+1)
		if shortCircuit {
			ctx.unevaluated--
		}
		if err != nil {
			return invalidValue, err
		}
		l, err = evalCPPBinop(ctx, t.Kind, l, r)
		if err != nil {
			return invalidValue, err
		}
	}
	return l, nil
}

func parseCPPBinop(ctx *cppExprCtx) (Value, error) {
	return parseCPPBinop_1(ctx, 0)
}

func parseCPPExpr(ctx *cppExprCtx) (Value, error) {
	return parseCPPComma(ctx)
}

// evalIfExpr evaluates the macro expanded tokens of an #if line.
func evalIfExpr(toks []*Token) (Value, error) {
	ctx := &cppExprCtx{toks: toks}
	ret, err := parseCPPExpr(ctx)
	if err != nil {
		return invalidValue, err
	}
	t := ctx.nextToken()
	if t != nil {
		return invalidValue, fmt.Errorf("missing binary operator before token \"%s\"", t.Val)
	}
	return ret, nil
}
