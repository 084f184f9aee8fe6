// Package diag implements the four-kind error model used by the linker and
// the command binaries (§7 of the distilled spec): IO errors, located errors
// tied to a source position, plain basic errors, and fatal VM runtime
// errors. It also renders diagnostics the way the original linker prints
// its "no header" notice -- colourised, terse, one line.
package diag

import (
	"fmt"

	"rvm/internal/object"
)

// Kind tags which of the four error categories an Error belongs to.
type Kind int

const (
	KindIO Kind = iota
	KindLocated
	KindBasic
	KindFatal
)

// Error is the error type the linker and the command binaries return; the
// assembler, disassembler and VM report failures through their own error
// values. Located errors carry a SourceLocation and render it as a
// "(file:line:col)" prefix; the other kinds render the message alone.
type Error struct {
	Kind Kind
	Loc  object.SourceLocation
	Msg  string
	Err  error // wrapped cause, if any (IO errors in particular)
}

func (e *Error) Error() string {
	if e.Kind == KindLocated && e.Loc.File != "" {
		return fmt.Sprintf("(%s) %s", e.Loc, e.Msg)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func IO(err error) *Error {
	return &Error{Kind: KindIO, Msg: err.Error(), Err: err}
}

func IOf(format string, args ...any) *Error {
	return &Error{Kind: KindIO, Msg: fmt.Sprintf(format, args...)}
}

func Located(loc object.SourceLocation, format string, args ...any) *Error {
	return &Error{Kind: KindLocated, Loc: loc, Msg: fmt.Sprintf(format, args...)}
}

func Basic(format string, args ...any) *Error {
	return &Error{Kind: KindBasic, Msg: fmt.Sprintf(format, args...)}
}

func Fatal(format string, args ...any) *Error {
	return &Error{Kind: KindFatal, Msg: fmt.Sprintf(format, args...)}
}
