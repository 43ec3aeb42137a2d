package lexer

import (
	"github.com/waveparse/waveparse/source"
)

// Source is the pull-style lexer interface parser.Engine consumes: drive a
// line at a time with ReadNextLine, pull tokens within the current line
// with LexToken until EndOfLine, and stop once EndOfFile. Engine never
// touches a *Lexer or *source.Queue directly — only this interface — so a
// caller can supply a hand-written Source instead of LineReader.
type Source interface {
	// ReadNextLine advances to the next source line, returning false once
	// there are no more lines (EndOfFile becomes true).
	ReadNextLine() bool

	// LexToken fetches the next token of the current line. Returns
	// (nil, nil) once the current line is exhausted (EndOfLine becomes
	// true); the caller must call ReadNextLine before calling LexToken
	// again.
	LexToken() (*Token, error)

	// EndOfLine reports whether the current line has no more tokens.
	EndOfLine() bool

	// EndOfFile reports whether the source itself is exhausted.
	EndOfFile() bool

	// LineNumber returns the 1-based number of the current line.
	LineNumber() int

	// LineText returns the raw text of the current line, for diagnostics.
	LineText() string
}

// LineReader is the concrete Source backing cmd/wavefront and the package
// tests: it drives a *Lexer over a single *source.Source one line at a
// time.
type LineReader struct {
	lx       *Lexer
	src      *source.Source
	q        *source.Queue
	line     int
	lineText string
	eol      bool
	eof      bool
	pending  *Token // already lexed, but starts on a later line
}

// NewLineReader creates a Source that lexes src with lx.
func NewLineReader(lx *Lexer, src *source.Source) *LineReader {
	q := source.NewQueue().Append(src)
	return &LineReader{lx: lx, src: src, q: q, line: 0, eol: true, eof: src.Len() == 0}
}

func (r *LineReader) ReadNextLine() bool {
	if r.line >= r.src.LineCount() || (r.eof && r.line > 0) {
		r.eof = true
		r.eol = true
		return false
	}
	r.line++
	r.lineText = r.src.LineText(r.line)
	r.eol = false
	return true
}

func (r *LineReader) LexToken() (*Token, error) {
	if r.eol || r.eof {
		r.eol = true
		return nil, nil
	}

	tok := r.pending
	r.pending = nil
	var err error
	if tok == nil {
		tok, err = r.lx.Next(r.q)
	}
	if err != nil {
		return nil, err
	}
	if tok.IsEnd() {
		r.eof = true
		r.eol = true
		return nil, nil
	}
	if tok.Line() > r.line {
		// tok starts on a later line, so the current one is exhausted:
		// hold tok back until ReadNextLine reaches its line.
		r.pending = tok
		r.eol = true
		return nil, nil
	}
	return tok, nil
}

func (r *LineReader) EndOfLine() bool { return r.eol }
func (r *LineReader) EndOfFile() bool { return r.eof }
func (r *LineReader) LineNumber() int { return r.line }
func (r *LineReader) LineText() string { return r.lineText }
