// Package document records what preprocessing a file reveals about it:
// the macros it defines and uses, its includes, its dead code and its
// diagnostics.
package document

import (
	"fmt"

	"github.com/andrewchambers/ppengine/cpp"
)

type Include struct {
	// Name as written in the directive.
	FileName string
	// Path of the file found, empty when the include failed.
	Resolved string
	Pos      cpp.FilePos
	Type     cpp.IncludeType
}

func (inc Include) Unresolved() bool {
	return inc.Resolved == ""
}

// MacroUse is an expansion of a macro, or a mention of it that did not
// expand like #ifdef X.
type MacroUse struct {
	Macro    *cpp.Macro
	Pos      cpp.FilePos
	Args     []cpp.MacroArgumentReference
	Expanded bool
}

type UndefinedMacroUse struct {
	Name string
	Pos  cpp.FilePos
}

// Block is a region skipped by a false conditional.
type Block struct {
	Begin cpp.FilePos
	End   cpp.FilePos
}

// Document is a cpp.Client collecting the notifications of one run.
type Document struct {
	FileName string
	// Preprocessed output.
	Source []byte

	Macros             []*cpp.Macro
	MacroUses          []MacroUse
	UndefinedMacroUses []UndefinedMacroUse
	Includes           []Include
	SkippedBlocks      []Block
	Diagnostics        []cpp.Diagnostic
	// Include guard of FileName itself.
	Guard string

	guards    map[string]string
	skipBegin *cpp.FilePos
}

func New(fileName string) *Document {
	return &Document{
		FileName: fileName,
		guards:   make(map[string]string),
	}
}

func (doc *Document) MacroAdded(m *cpp.Macro) {
	if m.Pos.File == cpp.ConfigurationFileName() {
		return
	}
	doc.Macros = append(doc.Macros, m)
}

func (doc *Document) MacroReferenced(pos cpp.FilePos, m *cpp.Macro) {
	doc.MacroUses = append(doc.MacroUses, MacroUse{Macro: m, Pos: pos})
}

func (doc *Document) UndefinedMacroReferenced(pos cpp.FilePos, name string) {
	doc.UndefinedMacroUses = append(doc.UndefinedMacroUses, UndefinedMacroUse{Name: name, Pos: pos})
}

func (doc *Document) StartExpandingMacro(pos cpp.FilePos, m *cpp.Macro, args []cpp.MacroArgumentReference) {
	doc.MacroUses = append(doc.MacroUses, MacroUse{Macro: m, Pos: pos, Args: args, Expanded: true})
}

func (doc *Document) StopExpandingMacro(pos cpp.FilePos, m *cpp.Macro) {}

func (doc *Document) StartSkippingBlocks(pos cpp.FilePos) {
	doc.skipBegin = &pos
}

func (doc *Document) StopSkippingBlocks(pos cpp.FilePos) {
	if doc.skipBegin == nil {
		return
	}
	doc.SkippedBlocks = append(doc.SkippedBlocks, Block{Begin: *doc.skipBegin, End: pos})
	doc.skipBegin = nil
}

func (doc *Document) SourceNeeded(pos cpp.FilePos, fileName string, resolved string, mode cpp.IncludeType) {
	doc.Includes = append(doc.Includes, Include{
		FileName: fileName,
		Resolved: resolved,
		Pos:      pos,
		Type:     mode,
	})
}

func (doc *Document) MarkAsIncludeGuard(fileName string, macroName string) {
	doc.guards[fileName] = macroName
	if fileName == doc.FileName {
		doc.Guard = macroName
	}
}

func (doc *Document) Report(d cpp.Diagnostic) {
	doc.Diagnostics = append(doc.Diagnostics, d)
}

// IncludeGuard returns the guard macro found for any file of the run.
func (doc *Document) IncludeGuard(fileName string) (string, bool) {
	g, ok := doc.guards[fileName]
	return g, ok
}

// Errors counts the diagnostics of level Error and above.
func (doc *Document) Errors() int {
	n := 0
	for _, d := range doc.Diagnostics {
		if d.Level >= cpp.Error {
			n++
		}
	}
	return n
}

func (doc *Document) unresolved() int {
	n := 0
	for _, inc := range doc.Includes {
		if inc.Unresolved() {
			n++
		}
	}
	return n
}

// Summary describes the document in one line.
func (doc *Document) Summary() string {
	s := fmt.Sprintf("%s: %d macros, %d macro uses, %d includes (%d unresolved), %d skipped blocks, %d diagnostics",
		doc.FileName, len(doc.Macros), len(doc.MacroUses), len(doc.Includes), doc.unresolved(),
		len(doc.SkippedBlocks), len(doc.Diagnostics))
	if doc.Guard != "" {
		s += ", guarded by " + doc.Guard
	}
	return s
}
