package cpp

import (
	"errors"
	"fmt"
)

var (
	// ErrNestingTooDeep aborts a run whose conditionals nest deeper than MaxLevel.
	ErrNestingTooDeep = errors.New("too many nested #if directives")
	// ErrCanceled is returned when the cancel checker asked the run to stop.
	ErrCanceled = errors.New("preprocessing canceled")
	// ErrReentrant is returned by Run when called while a run is in progress.
	ErrReentrant = errors.New("preprocessor is already running")
)

type ErrorLoc struct {
	Err error
	Pos FilePos
}

func ErrWithLoc(e error, pos FilePos) error {
	return ErrorLoc{
		Err: e,
		Pos: pos,
	}
}

func (e ErrorLoc) Error() string {
	return fmt.Sprintf("%s at %s", e.Err, e.Pos)
}

func (e ErrorLoc) Unwrap() error {
	return e.Err
}

// Level is the severity of a Diagnostic.
type Level int

const (
	Warning Level = iota
	Error
	// Fatal diagnostics stop the current run.
	Fatal
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal error"
	}
	return "unknown"
}

// Diagnostic is a problem found while preprocessing. Diagnostics are
// handed to Client.Report as they are found; apart from Fatal ones they do
// not interrupt the run.
type Diagnostic struct {
	Level Level
	Pos   FilePos
	Msg   string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Level, d.Msg)
}
