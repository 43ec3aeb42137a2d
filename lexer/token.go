package lexer

import (
	"github.com/waveparse/waveparse/source"
)

// Kind classifies a Token the way spec.md's external lexer interface
// requires: the coarse class Lexer.NextOf gates on, never a lexer-internal
// regexp-group index. grammar.ChildRef.RefTypeToken names a TypeName, not a
// Kind.
type Kind int

const (
	// NA is the kind of the synthetic end-of-file/end-of-input tokens.
	NA Kind = iota
	Identifier
	Keyword
	Literal
	Separator
	Operator
	Comment
)

func (k Kind) String() string {
	switch k {
	case Identifier:
		return "Identifier"
	case Keyword:
		return "Keyword"
	case Literal:
		return "Literal"
	case Separator:
		return "Separator"
	case Operator:
		return "Operator"
	case Comment:
		return "Comment"
	default:
		return "NA"
	}
}

// Token is one lexeme: its Kind, its exact text, and the source position
// it starts at.
type Token struct {
	kind     Kind
	typeName string
	text     string
	source   *source.Source
	line, col int
}

func (t *Token) Kind() Kind { return t.kind }

// TypeName names the specific lexer rule that produced this token (e.g.
// "INT", "IDENT", or the literal keyword text for a Keyword token) — the
// name grammar.ChildRef.RefTypeToken matches against, finer than Kind.
func (t *Token) TypeName() string { return t.typeName }

func (t *Token) Text() string { return t.text }

func (t *Token) Source() *source.Source { return t.source }

func (t *Token) SourceName() string {
	if t.source == nil {
		return ""
	}
	return t.source.Name()
}

func (t *Token) Line() int { return t.line }
func (t *Token) Col() int  { return t.col }

// SourcePos mirrors waveparse.SourcePos for types that carry a *source.Source
// rather than just a name, matching the teacher's lexer/source split.
type SourcePos interface {
	Source() *source.Source
	Line() int
	Col() int
}

func NewToken(kind Kind, typeName, text string, sp SourcePos) *Token {
	if sp == nil {
		return &Token{kind: kind, typeName: typeName, text: text}
	}
	return &Token{kind: kind, typeName: typeName, text: text, source: sp.Source(), line: sp.Line(), col: sp.Col()}
}

const (
	EofTypeName = "-end-of-file-"
	EoiTypeName = "-end-of-input-"
)

// EofToken marks the end of one source file in a multi-source queue.
func EofToken(s *source.Source) *Token {
	line, col := 0, 0
	if s != nil {
		line, col = s.LineCol(s.Len())
	}
	return &Token{kind: NA, typeName: EofTypeName, source: s, line: line, col: col}
}

// EoiToken marks the end of the whole input (no more sources queued).
func EoiToken() *Token {
	return &Token{kind: NA, typeName: EoiTypeName}
}

// IsEnd reports whether t is an Eof or Eoi sentinel rather than a real
// lexeme — the matcher's look-ahead gate treats both the same way: no
// further token is available to widen into.
func (t *Token) IsEnd() bool {
	return t.typeName == EofTypeName || t.typeName == EoiTypeName
}
