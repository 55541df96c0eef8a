package cpp

// IncludeType tells how an include directive named its file.
type IncludeType int

const (
	IncludeLocal  IncludeType = iota // #include "foo.h"
	IncludeGlobal                    // #include <foo.h>
	IncludeNext                      // #include_next
)

func (it IncludeType) String() string {
	switch it {
	case IncludeLocal:
		return "local"
	case IncludeGlobal:
		return "global"
	case IncludeNext:
		return "next"
	}
	return "unknown"
}

// MacroArgumentReference locates one actual argument of a macro call in
// the source. Offset is -1 for arguments produced by another expansion.
type MacroArgumentReference struct {
	Offset int
	Length int
	Pos    FilePos
}

// Client receives notifications while a file is preprocessed. All methods
// are called synchronously, in source order, from inside Run.
type Client interface {
	// MacroAdded is called for every #define.
	MacroAdded(m *Macro)
	// MacroReferenced is called when a macro is named without being
	// expanded: #ifdef, defined(), #undef, or a function-like macro name
	// that is not called.
	MacroReferenced(pos FilePos, m *Macro)
	// UndefinedMacroReferenced is called when #ifdef, #ifndef or defined()
	// name a macro that does not exist.
	UndefinedMacroReferenced(pos FilePos, name string)
	StartExpandingMacro(pos FilePos, m *Macro, args []MacroArgumentReference)
	StopExpandingMacro(pos FilePos, m *Macro)
	// StartSkippingBlocks and StopSkippingBlocks bracket the dead regions
	// of conditionals.
	StartSkippingBlocks(pos FilePos)
	StopSkippingBlocks(pos FilePos)
	// SourceNeeded is called for every include directive. resolved is the
	// path of the file found, or empty when the include failed.
	SourceNeeded(pos FilePos, fileName string, resolved string, mode IncludeType)
	// MarkAsIncludeGuard is called at the end of a file that is entirely
	// guarded by #ifndef macroName.
	MarkAsIncludeGuard(fileName string, macroName string)
	Report(d Diagnostic)
}

// BaseClient implements Client with methods that do nothing. Embed it to
// implement only the notifications of interest.
type BaseClient struct{}

func (BaseClient) MacroAdded(*Macro)                                           {}
func (BaseClient) MacroReferenced(FilePos, *Macro)                             {}
func (BaseClient) UndefinedMacroReferenced(FilePos, string)                    {}
func (BaseClient) StartExpandingMacro(FilePos, *Macro, []MacroArgumentReference) {}
func (BaseClient) StopExpandingMacro(FilePos, *Macro)                          {}
func (BaseClient) StartSkippingBlocks(FilePos)                                 {}
func (BaseClient) StopSkippingBlocks(FilePos)                                  {}
func (BaseClient) SourceNeeded(FilePos, string, string, IncludeType)           {}
func (BaseClient) MarkAsIncludeGuard(string, string)                           {}
func (BaseClient) Report(Diagnostic)                                           {}
