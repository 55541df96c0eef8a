package cpp

// guardState is where a file is in the include guard idiom
//
//	#ifndef G
//	#define G
//	...
//	#endif
type guardState int

const (
	// No guard is possible anymore.
	NoGuard guardState = iota
	BeforeIfndef
	AfterIfndef
	AfterDefine
	AfterEndif
)

type guardHint int

const (
	// A token or directive that is not part of the idiom.
	OtherToken guardHint = iota
	// #ifndef at nesting level 0.
	IfndefHint
	// #define at nesting level 1.
	DefineHint
	// #endif closing nesting level 1.
	EndifHint
	// #else or #elif at nesting level 1.
	ElseHint
)

type guardDetector struct {
	state guardState
	macro string
	// Set while the tokens of an #if expression are examined.
	inCondition bool
}

func newGuardDetector() guardDetector {
	return guardDetector{state: BeforeIfndef}
}

func (g *guardDetector) hint(h guardHint, name string) {
	if g.state == NoGuard || g.inCondition {
		return
	}
	if g.state == AfterDefine && (h == OtherToken || h == DefineHint) {
		return
	}
	switch g.state {
	case BeforeIfndef:
		if h == IfndefHint {
			g.state = AfterIfndef
			g.macro = name
			return
		}
	case AfterIfndef:
		if h == DefineHint && name == g.macro {
			g.state = AfterDefine
			return
		}
	case AfterDefine:
		if h == EndifHint {
			g.state = AfterEndif
			return
		}
	}
	g.state = NoGuard
	g.macro = ""
}

// guard returns the guarding macro of a completely read file, or "".
func (g *guardDetector) guard() string {
	if g.state == AfterEndif {
		return g.macro
	}
	return ""
}
