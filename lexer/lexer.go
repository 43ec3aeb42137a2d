// Package lexer implements a regex-table lexical analyzer: a single
// compiled regexp with one capturing group per recognized lexeme shape,
// each group tagged with the Kind and type name it produces. Matching
// whitespace/layout lexemes (no capturing group, or only the outer match)
// is treated as insignificant and skipped.
package lexer

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/waveparse/waveparse"
	"github.com/waveparse/waveparse/source"
)

// Error codes used by lexer:
const (
	// WrongCharError indicates that lexer cannot fetch any token at current position.
	WrongCharError = waveparse.LexicalErrors + iota

	// BadTokenError indicates that lexer has fetched a lexeme tagged as broken (e.g. an unterminated string).
	BadTokenError
)

// TokenType describes the Kind and type name produced by a specific
// capturing group of the lexer's compiled regexp.
type TokenType struct {
	Kind     Kind
	TypeName string

	// Broken marks a capturing group that matches a deliberately malformed
	// lexeme (e.g. an unterminated string literal), used only to produce a
	// precise error message; Next/NextOf never return a Token of this type.
	Broken bool
}

// TokenKindSet represents a set of acceptable Kinds, each coded as 1<<Kind.
type TokenKindSet = uint64

const AllKinds = TokenKindSet(1<<64 - 1)

func kindMask(k Kind) TokenKindSet { return TokenKindSet(1) << uint(k) }

// KindSet builds a TokenKindSet from individual Kinds, for NextOf callers
// that only want to accept, say, Identifier and Keyword at this position.
func KindSet(kinds ...Kind) TokenKindSet {
	var s TokenKindSet
	for _, k := range kinds {
		s |= kindMask(k)
	}
	return s
}

// Lexer performs lexical analysis over a source.Queue using a single
// regexp.Regexp. Lexer itself is immutable and safe for concurrent use; it
// only ever mutates the queue passed to it. Every byte of source must
// belong to some lexeme, matched or skipped.
type Lexer struct {
	types    []TokenType
	re       *regexp.Regexp
	keywords map[string]bool
}

// New creates a new Lexer. The n-th element of types describes the token
// produced by the (n+1)-th capturing group of re. keywords, if non-nil,
// names exact-text lexemes that should be reclassified from Identifier to
// Keyword after matching — the same two-pass "lex as identifier, then
// check the keyword table" scheme most hand-rolled Go lexers use instead
// of enumerating every keyword as its own regexp alternative.
func New(re *regexp.Regexp, types []TokenType, keywords []string) *Lexer {
	ts := make([]TokenType, len(types))
	copy(ts, types)
	kw := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		kw[k] = true
	}
	return &Lexer{types: ts, re: re, keywords: kw}
}

func wrongCharError(s *source.Source, content []byte, line, col int) *waveparse.Error {
	r, _ := utf8.DecodeRune(content)
	msg := fmt.Sprintf("wrong char %q (u+%x)", r, r)
	return waveparse.NewError(WrongCharError, msg, s.Name(), line, col)
}

func wrongTokenError(t *Token) *waveparse.Error {
	return waveparse.FormatErrorPos(tokenPos{t}, BadTokenError, "bad token %q", t.Text())
}

// tokenPos adapts *Token (which exposes *source.Source rather than a bare
// name) to waveparse.SourcePos for error formatting.
type tokenPos struct{ t *Token }

func (p tokenPos) SourceName() string { return p.t.SourceName() }
func (p tokenPos) Line() int          { return p.t.Line() }
func (p tokenPos) Col() int           { return p.t.Col() }

func (l *Lexer) matchToken(src *source.Source, content []byte, pos int, kinds TokenKindSet) (*Token, int, error) {
	content = content[pos:]
	match := l.re.FindSubmatchIndex(content)
	if len(match) == 0 || match[0] != 0 || match[1] <= match[0] {
		line, col := src.LineCol(pos)
		return nil, 0, wrongCharError(src, content, line, col)
	}

	subMatched := false
	for i := 2; i < len(match); i += 2 {
		if match[i] < 0 || match[i+1] < 0 {
			continue
		}
		subMatched = true
		groupIndex := (i >> 1) - 1
		if groupIndex >= len(l.types) {
			continue
		}

		tt := l.types[groupIndex]
		if tt.Broken {
			sp := source.NewPos(src, pos+match[i])
			token := NewToken(NA, tt.TypeName, string(content[match[i]:match[i+1]]), sp)
			return nil, 0, wrongTokenError(token)
		}

		if kinds&kindMask(tt.Kind) == 0 {
			continue
		}

		text := string(content[match[i]:match[i+1]])
		kind := tt.Kind
		typeName := tt.TypeName
		if kind == Identifier && l.keywords[text] {
			kind = Keyword
			typeName = text
		}

		sp := source.NewPos(src, pos+match[i])
		return NewToken(kind, typeName, text, sp), match[1], nil
	}

	advance := 0
	if !subMatched {
		advance = match[1]
	}
	return nil, advance, nil
}

func (l *Lexer) fetch(q *source.Queue, kinds TokenKindSet) (*Token, bool, error) {
	content, pos := q.ContentPos()
	src := q.Source()
	if len(content)-pos <= 0 {
		if src == nil {
			return EoiToken(), false, nil
		}
		eof := EofToken(src)
		q.NextSource()
		return eof, false, nil
	}

	tok, advance, err := l.matchToken(src, content, pos, kinds)
	q.Skip(advance)
	return tok, advance > 0, err
}

// Next fetches the token starting at the queue's current position and
// advances it, skipping insignificant lexemes (e.g. whitespace, comments
// if the grammar classifies them as skippable by excluding Comment from
// every look-ahead set). Returns an Eof token once the current source is
// exhausted with nothing left to move on to (the boundary between two
// queued sources is crossed without one), or the Eoi token if the queue
// holds no source at all.
func (l *Lexer) Next(q *source.Queue) (*Token, error) {
	for {
		t, _, err := l.fetch(q, AllKinds)
		if t != nil || err != nil {
			return t, err
		}
	}
}

// NextOf fetches a token of one of the given kinds, skipping insignificant
// lexemes but returning (nil, nil) without advancing if the next
// significant lexeme is not one of kinds — the look-ahead gate's probe.
func (l *Lexer) NextOf(q *source.Queue, kinds TokenKindSet) (*Token, error) {
	for {
		t, advanced, err := l.fetch(q, kinds)
		if t != nil || err != nil || !advanced {
			return t, err
		}
	}
}
