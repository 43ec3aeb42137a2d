package lexer

import (
	"testing"

	"github.com/waveparse/waveparse/source"
)

func TestLineReaderWalksLinesAndTokens(t *testing.T) {
	lx := newTestLexer()
	src := source.New("t", []byte("foo 1\nbar 2\n"))
	r := NewLineReader(lx, src)

	var gotLines [][]string
	for r.ReadNextLine() {
		var texts []string
		for !r.EndOfLine() {
			tok, err := r.LexToken()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tok == nil {
				break
			}
			texts = append(texts, tok.Text())
		}
		gotLines = append(gotLines, texts)
	}

	want := [][]string{{"foo", "1"}, {"bar", "2"}}
	if len(gotLines) != len(want) {
		t.Fatalf("expecting %d lines, got %d: %v", len(want), len(gotLines), gotLines)
	}
	for i := range want {
		if len(gotLines[i]) != len(want[i]) {
			t.Fatalf("line %d: expecting %v, got %v", i, want[i], gotLines[i])
		}
		for j := range want[i] {
			if gotLines[i][j] != want[i][j] {
				t.Errorf("line %d token %d: expecting %q, got %q", i, j, want[i][j], gotLines[i][j])
			}
		}
	}
	if !r.EndOfFile() {
		t.Fatalf("expecting EndOfFile after the last line")
	}
}

func TestLineReaderOnEmptySource(t *testing.T) {
	lx := newTestLexer()
	src := source.New("t", []byte(""))
	r := NewLineReader(lx, src)

	if !r.EndOfFile() {
		t.Fatalf("expecting an empty source to already report EndOfFile before reading")
	}

	// LineCount() is always >= 1 (an empty source still has one empty
	// line), so the first ReadNextLine still succeeds once, onto that
	// single empty line, before EndOfFile settles for good.
	if !r.ReadNextLine() {
		t.Fatalf("expecting ReadNextLine to succeed once, onto the source's single empty line")
	}
	tok, err := r.LexToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != nil {
		t.Fatalf("expecting no token on an empty line, got %v", tok)
	}
	if !r.EndOfLine() {
		t.Fatalf("expecting EndOfLine once the empty line is exhausted")
	}
	if r.ReadNextLine() {
		t.Fatalf("expecting no further lines after the source's one empty line")
	}
}
