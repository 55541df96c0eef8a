package cpp

import (
	"fmt"
	"strconv"
	"strings"
)

// Macro expansion follows Prosser's algorithm: every token carries the set
// of macro names whose expansion produced it, and a name in its own
// hideset is painted and never expanded again. The scanner additionally
// keeps a macro hidden for as long as its frame is live.

func (pp *Preprocessor) lookupMacro(name string) *Macro {
	if m, ok := pp.builtins[name]; ok {
		return m
	}
	return pp.env.Lookup(name)
}

// expandIdent tries to expand the identifier t read from sc. On success the
// replacement has been pushed on sc and the last token consumed by the
// invocation is returned; otherwise t must be passed on as is.
func (pp *Preprocessor) expandIdent(sc *scanner, t *Token) (*Token, bool) {
	name := t.Val
	m := pp.lookupMacro(name)
	if m == nil {
		return nil, false
	}
	if m.Hidden() || t.hs.contains(name) {
		t.hs = t.hs.add(name)
		return nil, false
	}
	if pp.canceled {
		return nil, false
	}
	if pp.liveFrames >= maxTokenBufferDepth {
		pp.report(Error, t.Pos, fmt.Sprintf("macro expansion of %s too deeply nested", name))
		return nil, false
	}
	if m.builtin {
		tok := pp.expandBuiltin(m, t)
		pp.client.StartExpandingMacro(t.Pos, m, nil)
		sc.push([]*Token{tok}, m, t.Pos)
		return t, true
	}
	if !m.FunctionLike {
		hs := t.hs.add(name)
		pp.client.StartExpandingMacro(t.Pos, m, nil)
		sc.push(pp.subst(m, nil, hs, t), m, t.Pos)
		return t, true
	}
	if !pp.expandFunctionlikeMacros {
		pp.client.MacroReferenced(t.Pos, m)
		return nil, false
	}
	args, rparen, ok := pp.collectArgs(sc, t, m)
	if !ok {
		return nil, false
	}
	hs := t.hs.intersection(rparen.hs).add(name)
	pp.client.StartExpandingMacro(t.Pos, m, argumentRefs(args, rparen))
	sc.push(pp.subst(m, args, hs, t), m, t.Pos)
	return rparen, true
}

func argumentRefs(args [][]*Token, rparen *Token) []MacroArgumentReference {
	refs := make([]MacroArgumentReference, 0, len(args))
	for _, arg := range args {
		ref := MacroArgumentReference{Offset: -1}
		if len(arg) > 0 {
			first, last := arg[0], arg[len(arg)-1]
			ref.Pos = first.Pos
			if !first.Generated && !last.Generated && first.Pos.File == last.Pos.File {
				ref.Offset = first.Offset
				ref.Length = last.Offset + last.Len() - first.Offset
			}
		} else if !rparen.Generated {
			ref.Pos = rparen.Pos
		}
		refs = append(refs, ref)
	}
	return refs
}

// isDirectiveStart reports whether t, just read from sc, starts a directive.
func (pp *Preprocessor) isDirectiveStart(sc *scanner, t *Token) bool {
	return t.Kind == HASH && t.BOL && !sc.fromMacro && pp.st != nil && sc == pp.st.sc
}

// collectArgs reads the argument list of a function-like macro invocation.
// When name is not followed by ( or the arguments are malformed, every
// token read is pushed back and ok is false.
func (pp *Preprocessor) collectArgs(sc *scanner, name *Token, m *Macro) (args [][]*Token, rparen *Token, ok bool) {
	var consumed []*Token
	// Look for the ( across newlines and comments.
	for {
		t := sc.next()
		if t.Kind == COMMENT {
			consumed = append(consumed, t)
			continue
		}
		if t.Kind == LPAREN {
			consumed = append(consumed, t)
			break
		}
		if t.Kind != EOF {
			consumed = append(consumed, t)
		}
		sc.unget(consumed...)
		pp.client.MacroReferenced(name.Pos, m)
		return nil, nil, false
	}

	depth := 0
	var cur []*Token
	ws := false
	for {
		t := sc.next()
		if t.Kind == EOF {
			pp.report(Error, name.Pos, fmt.Sprintf("unterminated argument list invoking macro \"%s\"", m.Name))
			sc.unget(consumed...)
			return nil, nil, false
		}
		if pp.isDirectiveStart(sc, t) {
			if err := pp.directive(t, true); err != nil {
				sc.unget(consumed...)
				return nil, nil, false
			}
			continue
		}
		if pp.st != nil && sc == pp.st.sc && pp.st.skipping() {
			continue
		}
		consumed = append(consumed, t)
		if t.Kind == COMMENT {
			ws = true
			continue
		}
		if ws || t.BOL {
			t = t.copy()
			t.WS = true
			t.BOL = false
			t.indent = ""
			ws = false
		}
		switch t.Kind {
		case LPAREN:
			depth++
		case RPAREN:
			if depth == 0 {
				args = append(args, cur)
				return pp.checkArity(name, m, args, t, consumed, sc)
			}
			depth--
		case COMMA:
			if depth == 0 && !(m.Variadic && len(args) == len(m.Params)-1) {
				args = append(args, cur)
				cur = nil
				continue
			}
		}
		cur = append(cur, t)
	}
}

func (pp *Preprocessor) checkArity(name *Token, m *Macro, args [][]*Token, rparen *Token, consumed []*Token, sc *scanner) ([][]*Token, *Token, bool) {
	nparams := len(m.Params)
	// f() passes no argument to a macro without parameters, and one empty
	// argument to a macro with one.
	if nparams == 0 && len(args) == 1 && len(args[0]) == 0 {
		args = nil
	}
	if m.Variadic && len(args) == nparams-1 {
		args = append(args, nil)
	}
	if len(args) != nparams {
		if len(args) > nparams {
			pp.report(Error, name.Pos, fmt.Sprintf("macro \"%s\" passed %d arguments, but takes just %d", m.Name, len(args), nparams))
		} else {
			pp.report(Error, name.Pos, fmt.Sprintf("macro \"%s\" requires %d arguments, but only %d given", m.Name, nparams, len(args)))
		}
		sc.unget(consumed...)
		return nil, nil, false
	}
	return args, rparen, true
}

func copyTokens(toks []*Token) []*Token {
	ret := make([]*Token, len(toks))
	for i, t := range toks {
		ret[i] = t.copy()
	}
	return ret
}

// subst builds the replacement of an invocation of m, name being the
// invoking identifier and hs the hideset given to every resulting token.
func (pp *Preprocessor) subst(m *Macro, args [][]*Token, hs *hideset, name *Token) []*Token {
	var out []*Token
	expanded := make([][]*Token, len(args))
	done := make([]bool, len(args))
	body := m.Tokens

	// appendArg appends tokens in place of a parameter that had spacing ws.
	appendArg := func(toks []*Token, ws bool) {
		start := len(out)
		out = append(out, copyTokens(toks)...)
		if len(out) > start {
			out[start].WS = ws
		}
	}

	for i := 0; i < len(body); i++ {
		t := body[i]
		if m.FunctionLike && t.Kind == HASH && i+1 < len(body) {
			if idx, ok := m.isParam(body[i+1]); ok {
				s := pp.stringize(args[idx], t)
				s.WS = t.WS
				out = append(out, s)
				i++
				continue
			}
		}
		if t.Kind == HASHHASH && i+1 < len(body) && len(out) > 0 {
			i++
			rhs := body[i]
			var rtoks []*Token
			if idx, ok := m.isParam(rhs); ok {
				arg := args[idx]
				lhs := out[len(out)-1]
				if lhs.Kind == COMMA && m.isVariadicParam(idx) {
					// GNU , ## __VA_ARGS__ drops the comma when there are no
					// variadic arguments.
					if len(arg) == 0 {
						out = out[:len(out)-1]
					} else {
						appendArg(arg, rhs.WS)
					}
					continue
				}
				rtoks = copyTokens(arg)
				if len(rtoks) == 0 {
					rtoks = []*Token{pp.placemarker(rhs)}
				}
			} else if rhs.Kind == HASH && i+1 < len(body) && m.FunctionLike {
				if idx, ok := m.isParam(body[i+1]); ok {
					rtoks = []*Token{pp.stringize(args[idx], rhs)}
					i++
				}
			}
			if rtoks == nil {
				rtoks = []*Token{rhs.copy()}
			}
			out[len(out)-1] = pp.paste(out[len(out)-1], rtoks[0])
			out = append(out, rtoks[1:]...)
			continue
		}
		if idx, ok := m.isParam(t); ok {
			if i+1 < len(body) && body[i+1].Kind == HASHHASH {
				if len(args[idx]) == 0 {
					out = append(out, pp.placemarker(t))
				} else {
					appendArg(args[idx], t.WS)
				}
				continue
			}
			if !done[idx] {
				expanded[idx] = pp.expandTokens(args[idx])
				done[idx] = true
			}
			appendArg(expanded[idx], t.WS)
			continue
		}
		out = append(out, t.copy())
	}

	ret := out[:0]
	for _, t := range out {
		if t.Kind == PLACEMARKER {
			continue
		}
		t.hs = t.hs.union(hs)
		t.Generated = true
		t.BOL = false
		t.indent = ""
		ret = append(ret, t)
	}
	if len(ret) > 0 {
		ret[0].WS = name.WS
		ret[0].BOL = name.BOL
		ret[0].indent = name.indent
	}
	return ret
}

func (pp *Preprocessor) placemarker(at *Token) *Token {
	return &Token{Kind: PLACEMARKER, Pos: at.Pos, WS: at.WS, hs: emptyHS}
}

// stringize makes a string literal of the spelling of arg.
func (pp *Preprocessor) stringize(arg []*Token, hash *Token) *Token {
	var b strings.Builder
	b.WriteByte('"')
	first := true
	for _, t := range arg {
		if t.Kind == PLACEMARKER {
			continue
		}
		if !first && (t.WS || t.BOL) {
			b.WriteByte(' ')
		}
		first = false
		if t.Kind == STRING || t.Kind == CHAR_CONSTANT {
			for _, c := range []byte(t.Val) {
				if c == '"' || c == '\\' {
					b.WriteByte('\\')
				}
				b.WriteByte(c)
			}
			continue
		}
		b.WriteString(t.Val)
	}
	b.WriteByte('"')
	return &Token{
		Kind:      STRING,
		Val:       b.String(),
		Pos:       hash.Pos,
		Offset:    hash.Offset,
		Generated: true,
		hs:        emptyHS,
	}
}

// paste glues l and r into one token. When the result does not lex as a
// single token a warning is reported and the text is kept as one token
// anyway.
func (pp *Preprocessor) paste(l, r *Token) *Token {
	if l.Kind == PLACEMARKER {
		ret := r.copy()
		ret.WS = l.WS
		return ret
	}
	if r.Kind == PLACEMARKER {
		return l
	}
	text := l.Val + r.Val
	ret := l.copy()
	ret.Val = text
	ret.hs = l.hs.intersection(r.hs)
	toks, errs := lexString(l.Pos.File, text)
	if len(toks) != 1 || len(errs) != 0 || toks[0].Kind == COMMENT {
		pp.report(Warning, l.Pos, fmt.Sprintf("pasting \"%s\" and \"%s\" does not give a valid preprocessing token", l.Val, r.Val))
		ret.Kind = OTHER
		return ret
	}
	ret.Kind = toks[0].Kind
	return ret
}

// expandTokens fully macro expands toks on their own, as done for macro
// arguments before substitution.
func (pp *Preprocessor) expandTokens(toks []*Token) []*Token {
	if len(toks) == 0 {
		return nil
	}
	sc := newScanner(pp, nil)
	sc.push(toks, nil, FilePos{})
	var out []*Token
	for {
		t := sc.next()
		if t.Kind == EOF {
			return out
		}
		if t.Kind == IDENT {
			if _, ok := pp.expandIdent(sc, t); ok {
				continue
			}
		}
		out = append(out, t)
	}
}

// expandCondition expands the tokens of an #if or #elif line, replacing
// defined X and defined(X) by 1 or 0 before any expansion of X.
func (pp *Preprocessor) expandCondition(toks []*Token) ([]*Token, error) {
	sc := newScanner(pp, nil)
	sc.push(toks, nil, FilePos{})
	defer sc.drain()
	var out []*Token
	for {
		t := sc.next()
		switch {
		case t.Kind == EOF:
			return out, nil
		case t.isIdent("defined"):
			v, err := pp.evalDefined(sc, t)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			continue
		case t.Kind == IDENT:
			if _, ok := pp.expandIdent(sc, t); ok {
				continue
			}
		}
		out = append(out, t)
	}
}

func (pp *Preprocessor) evalDefined(sc *scanner, defined *Token) (*Token, error) {
	t := sc.next()
	paren := false
	if t.Kind == LPAREN {
		paren = true
		t = sc.next()
	}
	if t.Kind != IDENT {
		return nil, ErrWithLoc(fmt.Errorf("operator \"defined\" requires an identifier"), defined.Pos)
	}
	if paren {
		if rp := sc.next(); rp.Kind != RPAREN {
			return nil, ErrWithLoc(fmt.Errorf("missing ')' after \"defined\""), defined.Pos)
		}
	}
	val := "0"
	if m := pp.lookupMacro(t.Val); m != nil {
		val = "1"
		pp.client.MacroReferenced(t.Pos, m)
	} else {
		pp.client.UndefinedMacroReferenced(t.Pos, t.Val)
	}
	return &Token{Kind: INT_CONSTANT, Val: val, Pos: defined.Pos, hs: emptyHS}, nil
}

var builtinMacros = []string{"__LINE__", "__FILE__", "__DATE__", "__TIME__", "__COUNTER__"}

func newBuiltins() map[string]*Macro {
	ret := make(map[string]*Macro, len(builtinMacros))
	for _, name := range builtinMacros {
		ret[name] = &Macro{Name: name, builtin: true}
	}
	return ret
}

func (pp *Preprocessor) expandBuiltin(m *Macro, at *Token) *Token {
	tok := &Token{
		Kind:      STRING,
		Pos:       at.Pos,
		Offset:    at.Offset,
		WS:        at.WS,
		BOL:       at.BOL,
		Generated: true,
		indent:    at.indent,
		hs:        at.hs.add(m.Name),
	}
	switch m.Name {
	case "__LINE__":
		tok.Kind = INT_CONSTANT
		tok.Val = strconv.Itoa(pp.currentLine(at))
	case "__FILE__":
		tok.Val = quoteString(pp.currentFile(at))
	case "__DATE__":
		tok.Val = pp.now.Format(`"Jan _2 2006"`)
	case "__TIME__":
		tok.Val = pp.now.Format(`"15:04:05"`)
	case "__COUNTER__":
		tok.Kind = INT_CONSTANT
		tok.Val = strconv.Itoa(pp.counter)
		pp.counter++
	}
	return tok
}

func (pp *Preprocessor) currentLine(at *Token) int {
	if !at.Generated || pp.st == nil {
		return at.Pos.Line
	}
	return pp.st.lx.Line()
}

func (pp *Preprocessor) currentFile(at *Token) string {
	if pp.st == nil {
		return at.Pos.File
	}
	return pp.st.lx.File()
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, c := range []byte(s) {
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}
