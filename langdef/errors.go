package langdef

import (
	"github.com/waveparse/waveparse"
)

// Error codes used by langdef:
const (
	// SyntaxError indicates a malformed grammar-spec text (scanner or
	// parser could not make sense of it).
	SyntaxError = waveparse.LangDefErrors + iota

	// SemanticError indicates a well-formed but meaningless spec: an
	// undefined rule reference, a duplicate rule name, an unknown token
	// Kind name, and similar.
	SemanticError
)

func newSyntaxError(line int, format string, args ...any) *waveparse.Error {
	return waveparse.FormatError(SyntaxError, "line %d: "+format, prepend(line, args)...)
}

func newSemanticError(line int, format string, args ...any) *waveparse.Error {
	return waveparse.FormatError(SemanticError, "line %d: "+format, prepend(line, args)...)
}

func prepend(line int, args []any) []any {
	out := make([]any, 0, len(args)+1)
	out = append(out, line)
	out = append(out, args...)
	return out
}
