package lexer

import (
	"regexp"
	"testing"

	"github.com/waveparse/waveparse/source"
)

// newTestLexer builds a small lexer recognizing identifiers, integers, and
// a couple of single-character operators, with "if"/"else" reclassified as
// keywords — mirroring cmd/wavefront's own lexer construction at a scale
// small enough to hand-check in a test.
func newTestLexer() *Lexer {
	re := regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)|(\d+)|([+\-])|(?:\s+)`)
	types := []TokenType{
		{Kind: Identifier, TypeName: "IDENT"},
		{Kind: Literal, TypeName: "INT"},
		{Kind: Operator, TypeName: "OP"},
	}
	return New(re, types, []string{"if", "else"})
}

func TestNextSkipsLayoutAndClassifiesTokens(t *testing.T) {
	lx := newTestLexer()
	q := source.NewQueue().Append(source.New("t", []byte("foo  42 + if")))

	want := []struct {
		kind Kind
		text string
	}{
		{Identifier, "foo"},
		{Literal, "42"},
		{Operator, "+"},
		{Keyword, "if"},
	}

	for _, w := range want {
		tok, err := lx.Next(q)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok.Kind() != w.kind || tok.Text() != w.text {
			t.Fatalf("expecting (%s,%q), got (%s,%q)", w.kind, w.text, tok.Kind(), tok.Text())
		}
	}

	tok, err := lx.Next(q)
	if err != nil {
		t.Fatalf("unexpected error at end of input: %v", err)
	}
	if !tok.IsEnd() {
		t.Fatalf("expecting an end token, got %q", tok.Text())
	}
}

func TestNextOfGatesByKind(t *testing.T) {
	lx := newTestLexer()
	q := source.NewQueue().Append(source.New("t", []byte("42")))

	tok, err := lx.NextOf(q, KindSet(Identifier, Keyword))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok != nil {
		t.Fatalf("expecting no match for a disallowed kind, got %v", tok)
	}

	tok, err = lx.NextOf(q, KindSet(Literal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok == nil || tok.Text() != "42" {
		t.Fatalf("expecting to match the literal once its kind is allowed, got %v", tok)
	}
}

func TestWrongCharProducesError(t *testing.T) {
	lx := newTestLexer()
	q := source.NewQueue().Append(source.New("t", []byte("@")))

	_, err := lx.Next(q)
	if err == nil {
		t.Fatalf("expecting an error for an unrecognized character")
	}
}

func TestKeywordReclassificationIsCaseSensitive(t *testing.T) {
	lx := newTestLexer()
	q := source.NewQueue().Append(source.New("t", []byte("If")))

	tok, err := lx.Next(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Kind() != Identifier {
		t.Fatalf("expecting \"If\" to stay an identifier (only exact-case \"if\" is a keyword), got %s", tok.Kind())
	}
}
