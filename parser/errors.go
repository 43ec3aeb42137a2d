package parser

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/waveparse/waveparse"
)

// Error codes used by parser, on top of waveparse.SyntaxErrors/ParserErrors.
const (
	// ErrIllegalSyntax marks input that no top-level rule table could match.
	ErrIllegalSyntax = waveparse.SyntaxErrors + iota

	// ErrAmbiguousTopLevel marks input more than one top-level rule table
	// matched to the same end position: per DESIGN.md's resolution of
	// spec.md's Open Question, this is a hard error rather than a
	// first-wins pick, because spec.md lists top-level ambiguity as its
	// own fatal category distinct from illegal syntax.
	ErrAmbiguousTopLevel

	// ErrInternal marks a grammar/analyzer invariant violation: a
	// left-recursion lead with no recorded fronts, a ChildRef pointing
	// past the end of Grammar.Rules, and similar corrupted-input states
	// that indicate a bug upstream of the matcher, not a bad parse.
	ErrInternal = waveparse.ParserErrors + iota
)

// FatalError is returned by Session.ParseOneStatement for illegal syntax
// and top-level ambiguity; internal errors (internalError) are plain
// wrapped errors, not FatalErrors. It wraps
// with github.com/pkg/errors so the original call site's stack frame
// survives up to the caller that logs or reports it.
type FatalError struct {
	Code     int
	Message  string
	StartPos int
	EndPos   int
	cause    error
}

func (e *FatalError) Error() string {
	return e.Message
}

// Unwrap exposes the wrapped stack-carrying cause to errors.As/errors.Is.
func (e *FatalError) Unwrap() error {
	return e.cause
}

func newFatalError(code int, startPos, endPos int, format string, args ...any) *FatalError {
	msg := fmt.Sprintf(format, args...)
	return &FatalError{
		Code:     code,
		Message:  msg,
		StartPos: startPos,
		EndPos:   endPos,
		cause:    errors.WithStack(fmt.Errorf(msg)),
	}
}

func illegalSyntaxError(pos int) *FatalError {
	return newFatalError(ErrIllegalSyntax, pos, pos, "illegal syntax at token %d", pos)
}

func ambiguousTopLevelError(startPos int, ends []int) *FatalError {
	return newFatalError(ErrAmbiguousTopLevel, startPos, startPos,
		"ambiguous top-level match starting at token %d: %d distinct end positions", startPos, len(ends))
}

func internalError(format string, args ...any) error {
	return errors.Wrapf(fmt.Errorf(format, args...), "internal parser error")
}
