package cpp

import (
	"bytes"
	"fmt"
)

type expansionStatus int

const (
	NotExpanding expansionStatus = iota
	ReadyForExpansion
	Expanding
	JustFinishedExpansion
)

// Lines skipped before a line marker is preferred over blank lines.
const maxBlankLines = 8

// Range is a byte range of the output.
type Range struct {
	Offset int
	Length int
}

// output writes preprocessed tokens, keeping the output lines in step with
// the source lines.
type output struct {
	buf bytes.Buffer
	// Text of the expansion in progress.
	scratch bytes.Buffer

	noLines       bool
	markGenerated bool

	status expansionStatus
	// Source range and line of the invocation being expanded.
	invOffset int
	invEnd    int
	invLine   int

	// Source file and line the current output line belongs to.
	file string
	line int
	// Nothing has been written to the current output line.
	atBOL bool
	// atBOL of the main buffer when the expansion started.
	bufAtBOL bool
	// The next token must be preceded by a line marker.
	needMarker bool
	last       *Token

	ranges []Range
}

func newOutput(noLines, markGenerated bool) *output {
	return &output{noLines: noLines, markGenerated: markGenerated, atBOL: true}
}

func (o *output) w() *bytes.Buffer {
	if o.status == Expanding {
		return &o.scratch
	}
	return &o.buf
}

func (o *output) newline() {
	o.buf.WriteByte('\n')
	o.atBOL = true
	o.last = nil
}

func (o *output) marker(line int, file string) {
	if !o.atBOL {
		o.newline()
	}
	if !o.noLines {
		fmt.Fprintf(&o.buf, "# %d %s\n", line, quoteString(file))
	}
	o.file = file
	o.line = line
	o.atBOL = true
	o.last = nil
	o.needMarker = false
}

// startFile writes the marker opening the top level file.
func (o *output) startFile(file string) {
	if o.noLines {
		o.file = file
		o.line = 1
		return
	}
	o.marker(1, file)
}

// sync moves the output to source line of file.
func (o *output) sync(line int, file string) {
	if file != o.file || o.needMarker {
		if o.noLines {
			if !o.atBOL {
				o.newline()
			}
			o.file, o.line, o.needMarker = file, line, false
			return
		}
		o.marker(line, file)
		return
	}
	if line == o.line {
		return
	}
	if line < o.line || line-o.line > maxBlankLines {
		if o.noLines {
			o.newline()
			o.line = line
			return
		}
		o.marker(line, file)
		return
	}
	for o.line < line {
		o.newline()
		o.line++
	}
}

// beginExpansion is called when a macro invoked by name starts expanding
// on the top level scanner.
func (o *output) beginExpansion(name, last *Token) {
	if o.status != NotExpanding {
		o.extendExpansion(last)
		return
	}
	o.status = ReadyForExpansion
	o.invOffset = name.Offset
	o.invLine = name.Pos.Line
	o.invEnd = name.Offset + name.Len()
	o.extendExpansion(last)
	o.sync(name.Pos.Line, name.Pos.File)
}

// extendExpansion grows the invocation to cover the source token last.
func (o *output) extendExpansion(last *Token) {
	if last == nil || last.Generated {
		return
	}
	if end := last.Offset + last.Len(); end > o.invEnd {
		o.invEnd = end
	}
}

// finishExpansion commits the expansion text to the output.
func (o *output) finishExpansion() {
	switch o.status {
	case NotExpanding:
		return
	case ReadyForExpansion:
		o.status = NotExpanding
		return
	}
	o.status = JustFinishedExpansion
	text := o.scratch.Bytes()
	if o.markGenerated {
		if !o.bufAtBOL {
			o.newline()
		}
		fmt.Fprintf(&o.buf, "# expansion begin %d,%d %d\n", o.invOffset, o.invEnd-o.invOffset, o.invLine)
		o.ranges = append(o.ranges, Range{Offset: o.buf.Len(), Length: len(text)})
		o.buf.Write(text)
		o.buf.WriteString("\n# expansion end\n")
		o.atBOL = true
		o.last = nil
		o.needMarker = true
	} else {
		o.ranges = append(o.ranges, Range{Offset: o.buf.Len(), Length: len(text)})
		o.buf.Write(text)
	}
	o.scratch.Reset()
	o.status = NotExpanding
}

// token writes t. Source tokens move the output to their line; generated
// tokens stay on the line of the invocation.
func (o *output) token(t *Token) {
	if t.Generated {
		if o.status == NotExpanding {
			o.status = ReadyForExpansion
			o.invOffset, o.invEnd, o.invLine = t.Offset, t.Offset, t.Pos.Line
		}
		if o.status == ReadyForExpansion {
			if o.needMarker {
				o.sync(o.invLine, o.file)
			}
			o.status = Expanding
			o.bufAtBOL = o.atBOL
		}
	} else {
		o.finishExpansion()
		o.sync(t.Pos.Line, t.Pos.File)
	}
	w := o.w()
	switch {
	case o.atBOL:
		if t.BOL {
			w.WriteString(t.indent)
		}
	case t.WS || t.BOL || wouldPaste(o.last, t):
		w.WriteByte(' ')
	}
	w.WriteString(t.Val)
	o.atBOL = false
	o.last = t
	if t.Kind == COMMENT {
		o.line += bytes.Count([]byte(t.Val), []byte{'\n'})
	}
}

// directiveLine copies a directive, like an unknown #pragma, to the output.
func (o *output) directiveLine(pos FilePos, text string) {
	o.finishExpansion()
	o.sync(pos.Line, pos.File)
	if !o.atBOL {
		o.newline()
		o.line++
	}
	o.buf.WriteString(text)
	o.atBOL = false
	o.last = &Token{Kind: OTHER, Val: text}
}

// end terminates the output with a newline.
func (o *output) end() {
	o.finishExpansion()
	if !o.atBOL {
		o.newline()
	}
}

func (o *output) bytes() []byte {
	return o.buf.Bytes()
}

// wouldPaste reports whether writing b right after a could lex as a
// single different token.
func wouldPaste(a, b *Token) bool {
	if a == nil || a.Val == "" || b.Val == "" {
		return false
	}
	x, y := a.Val[len(a.Val)-1], b.Val[0]
	identChar := func(c byte) bool {
		return c == '_' || c == '$' || c >= 0x80 || isAlpha(rune(c)) || isNumeric(rune(c))
	}
	switch {
	case identChar(x) && identChar(y):
		return true
	case a.Kind == INT_CONSTANT || a.Kind == FLOAT_CONSTANT:
		// 1 .2, 1e +2
		return y == '.' || ((y == '+' || y == '-') && bytes.IndexByte([]byte("eEpP"), x) >= 0)
	case y == '.' && len(b.Val) > 1 && isNumeric(rune(b.Val[1])):
		return identChar(x) || x == '.'
	case identChar(x) && (y == '"' || y == '\''):
		// L "x" would become a wide string.
		return true
	}
	switch x {
	case '+', '-', '&', '|', '<', '>', '=', '#', ':':
		if x == y {
			return true
		}
	}
	switch {
	case y == '=':
		return bytes.IndexByte([]byte("+-*/%&|^<>=!"), x) >= 0
	case x == '-' && y == '>':
		return true
	case x == '/' && (y == '/' || y == '*'):
		return true
	case x == '.' && (y == '.' || y == '*'):
		return true
	case x == '>' && y == '*' && a.Val == "->":
		return true
	case x == '%' && (y == ':' || y == '>'):
		return true
	case x == '<' && (y == ':' || y == '%'):
		return true
	case x == ':' && y == '>':
		return true
	}
	return false
}
