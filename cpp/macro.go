package cpp

import (
	"strings"
)

//Data structures representing macros inside the cpreprocessor.
//Apart from the hidden marker these should be immutable once defined.

type Macro struct {
	Name string
	// Formal parameter names. A variadic macro's last parameter collects the
	// excess arguments; it is __VA_ARGS__ unless named (GNU args...).
	Params       []string
	Variadic     bool
	FunctionLike bool
	// Replacement list.
	Tokens []*Token
	// Where the #define was.
	Pos FilePos
	// Source text of the replacement list.
	Definition string

	// Number of live expansions of this macro; a macro is hidden while
	// its replacement is being rescanned.
	hidden  int
	builtin bool
}

func (m *Macro) Hidden() bool {
	return m.hidden > 0
}

func (m *Macro) setHidden(hidden bool) {
	if hidden {
		m.hidden++
	} else if m.hidden > 0 {
		m.hidden--
	}
}

// IsBuiltin reports whether the macro is computed by the preprocessor,
// like __LINE__.
func (m *Macro) IsBuiltin() bool {
	return m.builtin
}

// paramIndex returns the index of the parameter named s, or -1.
func (m *Macro) paramIndex(s string) int {
	if !m.FunctionLike {
		return -1
	}
	for i, p := range m.Params {
		if p == s {
			return i
		}
	}
	return -1
}

func (m *Macro) isParam(t *Token) (int, bool) {
	if t.Kind != IDENT {
		return -1, false
	}
	idx := m.paramIndex(t.Val)
	return idx, idx >= 0
}

// isVariadicParam reports whether idx is the parameter collecting excess arguments.
func (m *Macro) isVariadicParam(idx int) bool {
	return m.Variadic && idx == len(m.Params)-1
}

// Equal reports whether two definitions are the same in the sense of the
// redefinition rules: same kind, same parameters, and replacement lists
// with identical spelling and whitespace separation.
func (m *Macro) Equal(o *Macro) bool {
	if m.FunctionLike != o.FunctionLike || m.Variadic != o.Variadic {
		return false
	}
	if len(m.Params) != len(o.Params) || len(m.Tokens) != len(o.Tokens) {
		return false
	}
	for i := range m.Params {
		if m.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range m.Tokens {
		a, b := m.Tokens[i], o.Tokens[i]
		if a.Val != b.Val {
			return false
		}
		if i > 0 && a.WS != b.WS {
			return false
		}
	}
	return true
}

// String renders the macro as a #define line.
func (m *Macro) String() string {
	var b strings.Builder
	b.WriteString("#define ")
	b.WriteString(m.Name)
	if m.FunctionLike {
		b.WriteByte('(')
		for i, p := range m.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			if m.isVariadicParam(i) {
				if p == "__VA_ARGS__" {
					b.WriteString("...")
				} else {
					b.WriteString(p + "...")
				}
				continue
			}
			b.WriteString(p)
		}
		b.WriteByte(')')
	}
	if len(m.Tokens) > 0 {
		b.WriteByte(' ')
		b.WriteString(spell(m.Tokens))
	}
	return b.String()
}
