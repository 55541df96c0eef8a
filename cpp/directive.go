package cpp

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readDirectiveLine returns the tokens of the directive line after the #.
func (pp *Preprocessor) readDirectiveLine() []*Token {
	var toks []*Token
	for {
		t := pp.st.sc.next()
		switch t.Kind {
		case END_DIRECTIVE, EOF:
			return toks
		case COMMENT:
			continue
		}
		toks = append(toks, t)
	}
}

// directive handles the directive starting at hash. inArgs is set when the
// directive appears inside the arguments of a macro invocation; only
// directives affecting macros and conditionals are honored there. The error
// is set when the run has to stop.
func (pp *Preprocessor) directive(hash *Token, inArgs bool) error {
	st := pp.st
	toks := pp.readDirectiveLine()
	if len(toks) == 0 {
		// Null directive.
		if !st.skipping() {
			st.guard.hint(OtherToken, "")
		}
		return nil
	}
	name, args := toks[0], toks[1:]
	if name.Kind == INT_CONSTANT {
		// GNU line marker: # 12 "file.c" 2
		if !st.skipping() && !inArgs {
			st.guard.hint(OtherToken, "")
			pp.lineDirective(hash, toks, true)
		}
		return nil
	}
	if name.Kind != IDENT {
		if !st.skipping() {
			st.guard.hint(OtherToken, "")
		}
		return nil
	}
	switch name.Val {
	case "if":
		pp.ifDirective(hash, args)
		return pp.fatal
	case "ifdef":
		pp.ifdefDirective(hash, args, false)
		return pp.fatal
	case "ifndef":
		pp.ifdefDirective(hash, args, true)
		return pp.fatal
	case "elif":
		pp.elifDirective(hash, args)
		return pp.fatal
	case "else":
		pp.elseDirective(hash, args)
		return pp.fatal
	case "endif":
		pp.endifDirective(hash, args)
		return pp.fatal
	}
	if st.skipping() {
		return nil
	}
	switch name.Val {
	case "define":
		pp.defineDirective(hash, args)
	case "undef":
		st.guard.hint(OtherToken, "")
		pp.undefDirective(hash, args)
	case "include", "include_next", "import":
		st.guard.hint(OtherToken, "")
		if inArgs {
			pp.report(Warning, hash.Pos, fmt.Sprintf("#%s inside macro arguments ignored", name.Val))
			return nil
		}
		return pp.includeDirective(hash, name.Val, args)
	case "pragma":
		st.guard.hint(OtherToken, "")
		pp.pragmaDirective(hash, args, inArgs)
	case "line":
		st.guard.hint(OtherToken, "")
		if inArgs {
			pp.report(Warning, hash.Pos, "#line inside macro arguments ignored")
			return nil
		}
		pp.lineDirective(hash, args, false)
	case "error":
		st.guard.hint(OtherToken, "")
		pp.report(Error, hash.Pos, strings.TrimSpace("#error "+spell(args)))
	case "warning":
		st.guard.hint(OtherToken, "")
		pp.report(Warning, hash.Pos, strings.TrimSpace("#warning "+spell(args)))
	default:
		// Unknown directives are ignored like null directives.
		st.guard.hint(OtherToken, "")
	}
	return nil
}

func (pp *Preprocessor) extraTokens(directive string, args []*Token) {
	if len(args) > 0 {
		pp.report(Warning, args[0].Pos, fmt.Sprintf("extra tokens at end of #%s directive", directive))
	}
}

// pushLevel opens a conditional. cond is only evaluated when the enclosing
// level is not skipped.
func (pp *Preprocessor) pushLevel(hash *Token, cond func() bool) {
	st := pp.st
	if st.level >= MaxLevel {
		pp.report(Fatal, hash.Pos, fmt.Sprintf("#if nesting exceeds %d levels", MaxLevel))
		pp.fatal = ErrWithLoc(ErrNestingTooDeep, hash.Pos)
		return
	}
	wasSkipping := st.skipping()
	st.level++
	st.trueTest[st.level] = false
	st.sawElse[st.level] = false
	if wasSkipping {
		st.skippingAt[st.level] = true
		return
	}
	v := cond()
	st.trueTest[st.level] = v
	st.skippingAt[st.level] = !v
	if !v {
		pp.client.StartSkippingBlocks(hash.Pos)
	}
}

// evalCondition evaluates the expression of an #if or #elif. Errors are
// reported and make the condition false.
func (pp *Preprocessor) evalCondition(hash *Token, toks []*Token) bool {
	st := pp.st
	st.guard.inCondition = true
	defer func() { st.guard.inCondition = false }()
	expanded, err := pp.expandCondition(toks)
	var v Value
	if err == nil {
		v, err = evalIfExpr(expanded)
	}
	if err != nil {
		pos := hash.Pos
		var el ErrorLoc
		if errors.As(err, &el) {
			pos, err = el.Pos, el.Err
		}
		pp.report(Error, pos, err.Error())
		return false
	}
	return v.IsTrue()
}

// notDefinedGuard matches the expression !defined(X) or !defined X.
func notDefinedGuard(args []*Token) (string, bool) {
	if len(args) < 3 || args[0].Kind != NOT || !args[1].isIdent("defined") {
		return "", false
	}
	rest := args[2:]
	if len(rest) == 1 && rest[0].Kind == IDENT {
		return rest[0].Val, true
	}
	if len(rest) == 3 && rest[0].Kind == LPAREN && rest[1].Kind == IDENT && rest[2].Kind == RPAREN {
		return rest[1].Val, true
	}
	return "", false
}

func (pp *Preprocessor) ifDirective(hash *Token, args []*Token) {
	st := pp.st
	if name, ok := notDefinedGuard(args); ok && st.level == 0 {
		st.guard.hint(IfndefHint, name)
	} else {
		st.guard.hint(OtherToken, "")
	}
	pp.pushLevel(hash, func() bool {
		return pp.evalCondition(hash, args)
	})
}

func (pp *Preprocessor) ifdefDirective(hash *Token, args []*Token, negate bool) {
	st := pp.st
	directive := "ifdef"
	if negate {
		directive = "ifndef"
	}
	if negate && st.level == 0 && len(args) > 0 && args[0].Kind == IDENT {
		st.guard.hint(IfndefHint, args[0].Val)
	} else {
		st.guard.hint(OtherToken, "")
	}
	pp.pushLevel(hash, func() bool {
		if len(args) == 0 || args[0].Kind != IDENT {
			pp.report(Error, hash.Pos, fmt.Sprintf("no macro name given in #%s directive", directive))
			return false
		}
		pp.extraTokens(directive, args[1:])
		m := pp.lookupMacro(args[0].Val)
		if m != nil {
			pp.client.MacroReferenced(args[0].Pos, m)
		} else {
			pp.client.UndefinedMacroReferenced(args[0].Pos, args[0].Val)
		}
		return (m != nil) != negate
	})
}

func (pp *Preprocessor) elifDirective(hash *Token, args []*Token) {
	st := pp.st
	if st.level == 0 {
		st.guard.hint(OtherToken, "")
		pp.report(Error, hash.Pos, "#elif without #if")
		return
	}
	if st.level == 1 {
		st.guard.hint(ElseHint, "")
	} else {
		st.guard.hint(OtherToken, "")
	}
	if st.sawElse[st.level] {
		pp.report(Error, hash.Pos, "#elif after #else")
		return
	}
	if st.skippingAt[st.level-1] {
		return
	}
	if st.trueTest[st.level] {
		if !st.skippingAt[st.level] {
			st.skippingAt[st.level] = true
			pp.client.StartSkippingBlocks(hash.Pos)
		}
		return
	}
	if pp.evalCondition(hash, args) {
		st.trueTest[st.level] = true
		st.skippingAt[st.level] = false
		pp.client.StopSkippingBlocks(hash.Pos)
	}
}

func (pp *Preprocessor) elseDirective(hash *Token, args []*Token) {
	st := pp.st
	if st.level == 0 {
		st.guard.hint(OtherToken, "")
		pp.report(Error, hash.Pos, "#else without #if")
		return
	}
	if st.level == 1 {
		st.guard.hint(ElseHint, "")
	} else {
		st.guard.hint(OtherToken, "")
	}
	if st.sawElse[st.level] {
		pp.report(Error, hash.Pos, "#else after #else")
		return
	}
	st.sawElse[st.level] = true
	if st.skippingAt[st.level-1] {
		return
	}
	pp.extraTokens("else", args)
	wasSkipping := st.skippingAt[st.level]
	st.skippingAt[st.level] = st.trueTest[st.level]
	st.trueTest[st.level] = true
	switch {
	case wasSkipping && !st.skippingAt[st.level]:
		pp.client.StopSkippingBlocks(hash.Pos)
	case !wasSkipping && st.skippingAt[st.level]:
		pp.client.StartSkippingBlocks(hash.Pos)
	}
}

func (pp *Preprocessor) endifDirective(hash *Token, args []*Token) {
	st := pp.st
	if st.level == 0 {
		st.guard.hint(OtherToken, "")
		pp.report(Error, hash.Pos, "#endif without #if")
		return
	}
	wasSkipping := st.skippingAt[st.level]
	outerSkipping := st.skippingAt[st.level-1]
	if !outerSkipping {
		pp.extraTokens("endif", args)
	}
	st.skippingAt[st.level] = false
	st.level--
	if st.level == 0 {
		st.guard.hint(EndifHint, "")
	} else {
		st.guard.hint(OtherToken, "")
	}
	if wasSkipping && !outerSkipping {
		pp.client.StopSkippingBlocks(hash.Pos)
	}
}

func (pp *Preprocessor) checkMacroName(t *Token, directive string) error {
	switch {
	case t == nil:
		return fmt.Errorf("no macro name given in #%s directive", directive)
	case t.Kind != IDENT:
		return fmt.Errorf("macro names must be identifiers")
	case t.Val == "defined":
		return fmt.Errorf("\"defined\" cannot be used as a macro name")
	case pp.builtins[t.Val] != nil:
		return fmt.Errorf("builtin macro \"%s\" cannot be changed", t.Val)
	}
	return nil
}

func (pp *Preprocessor) defineDirective(hash *Token, args []*Token) {
	st := pp.st
	m, err := pp.parseDefine(args)
	if err != nil {
		st.guard.hint(OtherToken, "")
		pp.report(Error, hash.Pos, err.Error())
		return
	}
	if st.level == 1 {
		st.guard.hint(DefineHint, m.Name)
	} else {
		st.guard.hint(OtherToken, "")
	}
	if prev := pp.env.Lookup(m.Name); prev != nil && !prev.Equal(m) {
		pp.report(Warning, m.Pos, fmt.Sprintf("\"%s\" redefined, previous definition at %s", m.Name, prev.Pos))
	}
	pp.env.Define(m)
	pp.client.MacroAdded(m)
}

func (pp *Preprocessor) parseDefine(args []*Token) (*Macro, error) {
	var name *Token
	if len(args) > 0 {
		name = args[0]
	}
	if err := pp.checkMacroName(name, "define"); err != nil {
		return nil, err
	}
	m := &Macro{Name: name.Val, Pos: name.Pos}
	rest := args[1:]
	if len(rest) > 0 && rest[0].Kind == LPAREN && !rest[0].WS {
		params, variadic, n, err := parseParams(rest)
		if err != nil {
			return nil, err
		}
		m.FunctionLike = true
		m.Params = params
		m.Variadic = variadic
		rest = rest[n:]
	} else if len(rest) > 0 && !rest[0].WS {
		pp.report(Warning, rest[0].Pos, "missing whitespace after the macro name")
	}
	body := copyTokens(rest)
	if len(body) > 0 {
		body[0].WS = false
		if body[0].Kind == HASHHASH || body[len(body)-1].Kind == HASHHASH {
			return nil, fmt.Errorf("'##' cannot appear at either end of a macro expansion")
		}
	}
	for i, t := range body {
		if m.FunctionLike && t.Kind == HASH {
			if i+1 >= len(body) || m.paramIndex(body[i+1].Val) < 0 || body[i+1].Kind != IDENT {
				return nil, fmt.Errorf("'#' is not followed by a macro parameter")
			}
		}
		if t.isIdent("__VA_ARGS__") && (!m.Variadic || m.Params[len(m.Params)-1] != "__VA_ARGS__") {
			pp.report(Warning, t.Pos, "__VA_ARGS__ can only appear in the expansion of a C99 variadic macro")
		}
	}
	m.Tokens = body
	m.Definition = spell(body)
	return m, nil
}

// parseParams parses the parameter list starting at toks[0], which is (.
// It returns the number of tokens used.
func parseParams(toks []*Token) ([]string, bool, int, error) {
	var params []string
	variadic := false
	i := 1
	if i < len(toks) && toks[i].Kind == RPAREN {
		return nil, false, 2, nil
	}
	for {
		if i >= len(toks) {
			return nil, false, 0, fmt.Errorf("missing ')' in macro parameter list")
		}
		t := toks[i]
		switch {
		case t.Kind == ELLIPSIS:
			params = append(params, "__VA_ARGS__")
			variadic = true
			i++
		case t.Kind == IDENT:
			if t.Val == "__VA_ARGS__" {
				return nil, false, 0, fmt.Errorf("__VA_ARGS__ can not be used as a parameter name")
			}
			for _, p := range params {
				if p == t.Val {
					return nil, false, 0, fmt.Errorf("duplicate macro parameter \"%s\"", t.Val)
				}
			}
			params = append(params, t.Val)
			i++
			if i < len(toks) && toks[i].Kind == ELLIPSIS {
				variadic = true
				i++
			}
		default:
			return nil, false, 0, fmt.Errorf("expected parameter name, found \"%s\"", t.Val)
		}
		if i >= len(toks) {
			return nil, false, 0, fmt.Errorf("missing ')' in macro parameter list")
		}
		if toks[i].Kind == RPAREN {
			return params, variadic, i + 1, nil
		}
		if variadic {
			return nil, false, 0, fmt.Errorf("expected ')' after \"...\"")
		}
		if toks[i].Kind != COMMA {
			return nil, false, 0, fmt.Errorf("expected ',' or ')', found \"%s\"", toks[i].Val)
		}
		i++
	}
}

func (pp *Preprocessor) undefDirective(hash *Token, args []*Token) {
	var name *Token
	if len(args) > 0 {
		name = args[0]
	}
	if err := pp.checkMacroName(name, "undef"); err != nil {
		pp.report(Error, hash.Pos, err.Error())
		return
	}
	pp.extraTokens("undef", args[1:])
	if m := pp.env.Undefine(name.Val); m != nil {
		pp.client.MacroReferenced(name.Pos, m)
	}
}

// delimited strips the l and r delimiters around s. Unterminated
// spellings are rejected, including a string ending in an escaped quote.
func delimited(s string, l, r byte) (string, bool) {
	if len(s) < 2 || s[0] != l || s[len(s)-1] != r {
		return "", false
	}
	if r == '"' {
		n := 0
		for i := len(s) - 2; i > 0 && s[i] == '\\'; i-- {
			n++
		}
		if n%2 == 1 {
			return "", false
		}
	}
	return s[1 : len(s)-1], true
}

// includeName returns the header named by the tokens of an include
// directive, expanding them when they are not "file" or <file>.
func (pp *Preprocessor) includeName(directive string, args []*Token) (string, bool, bool) {
	if len(args) == 0 {
		return "", false, false
	}
	t := args[0]
	switch {
	case t.Kind == HEADER:
		name, ok := delimited(t.Val, '<', '>')
		if ok {
			pp.extraTokens(directive, args[1:])
		}
		return name, true, ok
	case t.Kind == STRING && strings.HasPrefix(t.Val, "\""):
		name, ok := delimited(t.Val, '"', '"')
		if ok {
			pp.extraTokens(directive, args[1:])
		}
		return name, false, ok
	}
	toks := pp.expandTokens(copyTokens(args))
	if len(toks) == 0 {
		return "", false, false
	}
	if toks[0].Kind == STRING {
		name, ok := delimited(toks[0].Val, '"', '"')
		return name, false, ok
	}
	if toks[0].Kind == LSS {
		for i := 1; i < len(toks); i++ {
			if toks[i].Kind == GTR {
				return spell(toks[1:i]), true, true
			}
		}
	}
	return "", false, false
}

// includeDirective returns the error that stopped the included file.
func (pp *Preprocessor) includeDirective(hash *Token, directive string, args []*Token) error {
	st := pp.st
	name, angled, ok := pp.includeName(directive, args)
	if !ok || name == "" {
		pp.report(Error, hash.Pos, fmt.Sprintf("#%s expects \"FILENAME\" or <FILENAME>", directive))
		return nil
	}
	mode := IncludeLocal
	if angled {
		mode = IncludeGlobal
	}
	if directive == "include_next" {
		mode = IncludeNext
	}
	if pp.includeDepth >= MaxIncludeDepth {
		pp.report(Error, hash.Pos, fmt.Sprintf("#include nested depth %d exceeds maximum of %d", pp.includeDepth, MaxIncludeDepth))
		return nil
	}
	var (
		path string
		dir  int
		rdr  io.Reader
		err  error
	)
	switch {
	case mode == IncludeNext:
		path, dir, rdr, err = pp.searcher.IncludeNext(st.fileName, st.dirIndex, name)
	case angled:
		path, dir, rdr, err = pp.searcher.IncludeAngled(st.fileName, name)
	default:
		path, dir, rdr, err = pp.searcher.IncludeQuote(st.fileName, name)
	}
	if err != nil {
		pp.client.SourceNeeded(hash.Pos, name, "", mode)
		pp.report(Error, hash.Pos, fmt.Sprintf("'%s' file not found", name))
		return nil
	}
	pp.client.SourceNeeded(hash.Pos, name, path, mode)
	if pp.once[path] || (directive == "import" && pp.included[path]) {
		return nil
	}
	if g, ok := pp.guards[path]; ok && pp.env.IsDefined(g) {
		return nil
	}
	src, err := io.ReadAll(rdr)
	if err != nil {
		pp.report(Error, hash.Pos, fmt.Sprintf("reading %s: %s", path, err))
		return nil
	}
	pp.included[path] = true
	return pp.runFile(path, dir, src)
}

// pragmaMacroName returns X of push_macro("X").
func pragmaMacroName(args []*Token) (string, bool) {
	if len(args) != 4 || args[1].Kind != LPAREN || args[2].Kind != STRING || args[3].Kind != RPAREN {
		return "", false
	}
	s := args[2].Val
	if len(s) < 2 || s[0] != '"' {
		return "", false
	}
	return s[1 : len(s)-1], true
}

func (pp *Preprocessor) pragmaDirective(hash *Token, args []*Token, inArgs bool) {
	st := pp.st
	if len(args) > 0 {
		switch {
		case args[0].isIdent("once"):
			pp.once[st.fileName] = true
			return
		case args[0].isIdent("push_macro"):
			if name, ok := pragmaMacroName(args); ok {
				pp.pushed[name] = append(pp.pushed[name], pp.env.Lookup(name))
				return
			}
		case args[0].isIdent("pop_macro"):
			if name, ok := pragmaMacroName(args); ok {
				stack := pp.pushed[name]
				if len(stack) == 0 {
					return
				}
				m := stack[len(stack)-1]
				pp.pushed[name] = stack[:len(stack)-1]
				if m == nil {
					pp.env.Undefine(name)
				} else {
					pp.env.Define(m)
				}
				return
			}
		}
	}
	if inArgs {
		return
	}
	pp.out.directiveLine(hash.Pos, strings.TrimSpace("#pragma "+spell(args)))
}

func (pp *Preprocessor) lineDirective(hash *Token, args []*Token, marker bool) {
	toks := args
	if len(toks) == 0 || toks[0].Kind != INT_CONSTANT {
		toks = pp.expandTokens(copyTokens(args))
	}
	if len(toks) == 0 || toks[0].Kind != INT_CONSTANT {
		pp.report(Error, hash.Pos, "#line directive requires a positive integer argument")
		return
	}
	n, err := strconv.Atoi(toks[0].Val)
	if err != nil || n < 0 {
		pp.report(Error, hash.Pos, fmt.Sprintf("\"%s\" after #line is not a positive integer", toks[0].Val))
		return
	}
	file := ""
	if len(toks) > 1 {
		s := toks[1].Val
		if toks[1].Kind != STRING || len(s) < 2 || s[0] != '"' {
			pp.report(Error, hash.Pos, fmt.Sprintf("invalid filename \"%s\"", s))
			return
		}
		file = s[1 : len(s)-1]
		if !marker {
			pp.extraTokens("line", toks[2:])
		}
	}
	pp.st.lx.SetLine(n, file)
}
