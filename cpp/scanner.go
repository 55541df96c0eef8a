package cpp

// The scanner splices macro replacements in front of the remaining input
// as a stack of token frames. A frame is popped lazily, on the read after
// its last token, so the macro that produced the frame is still hidden
// while its last token is being examined. Popping a frame unhides its
// macro again.

// Upper bound of live frames across all scanners of a run.
const maxTokenBufferDepth = 16000

type frame struct {
	toks  []*Token
	pos   int
	macro *Macro
	// Where the expansion was invoked, for StopExpandingMacro.
	at FilePos
}

type scanner struct {
	pp *Preprocessor
	// nil for a scanner bounded by its initial frames.
	lx     *Lexer
	frames []*frame
	eof    *Token
	// The last token came out of a macro expansion.
	fromMacro bool
}

func newScanner(pp *Preprocessor, lx *Lexer) *scanner {
	return &scanner{
		pp:  pp,
		lx:  lx,
		eof: &Token{Kind: EOF, hs: emptyHS},
	}
}

// next returns the next token, from the innermost frame if there is one.
func (sc *scanner) next() *Token {
	for len(sc.frames) > 0 {
		f := sc.frames[len(sc.frames)-1]
		if f.pos < len(f.toks) {
			t := f.toks[f.pos]
			f.pos++
			sc.fromMacro = t.Generated
			return t
		}
		sc.pop()
	}
	sc.fromMacro = false
	if sc.lx == nil {
		return sc.eof
	}
	return sc.lx.Next()
}

// push makes toks the next tokens to be read. A non nil macro is hidden
// until the frame is popped.
func (sc *scanner) push(toks []*Token, m *Macro, at FilePos) {
	if m != nil {
		m.setHidden(true)
	}
	sc.frames = append(sc.frames, &frame{toks: toks, macro: m, at: at})
	sc.pp.liveFrames++
	sc.pp.pollCancel()
}

// unget pushes back tokens that were read but not consumed.
func (sc *scanner) unget(toks ...*Token) {
	if len(toks) == 0 {
		return
	}
	sc.push(toks, nil, FilePos{})
}

func (sc *scanner) pop() {
	f := sc.frames[len(sc.frames)-1]
	sc.frames[len(sc.frames)-1] = nil
	sc.frames = sc.frames[:len(sc.frames)-1]
	sc.pp.liveFrames--
	if f.macro != nil {
		f.macro.setHidden(false)
		sc.pp.client.StopExpandingMacro(f.at, f.macro)
	}
}

// expanding reports whether unread generated tokens remain.
func (sc *scanner) expanding() bool {
	for _, f := range sc.frames {
		for _, t := range f.toks[f.pos:] {
			if t.Generated {
				return true
			}
		}
	}
	return false
}

// drain pops every frame, unhiding their macros. Used on early exits.
func (sc *scanner) drain() {
	for len(sc.frames) > 0 {
		sc.pop()
	}
}
