package cache

import "testing"

func TestLookupMissing(t *testing.T) {
	c := New()
	if c.Lookup(Key{RuleIndex: 0, StartPos: 0}) != nil {
		t.Fatalf("expecting nil for unvisited key")
	}
}

func TestRememberSuccessReportsNovelty(t *testing.T) {
	c := New()
	key := Key{RuleIndex: 1, StartPos: 3}

	if !c.RememberSuccess(key, 5) {
		t.Fatalf("expecting first end position to be novel")
	}
	if c.RememberSuccess(key, 5) {
		t.Fatalf("expecting repeated end position to not be novel")
	}
	if !c.RememberSuccess(key, 7) {
		t.Fatalf("expecting a different end position to be novel")
	}

	entry := c.Lookup(key)
	if entry == nil || len(entry.EndPositions) != 2 {
		t.Fatalf("expecting two recorded end positions, got %v", entry)
	}
}

func TestMarkDone(t *testing.T) {
	c := New()
	key := Key{RuleIndex: 0, StartPos: 0}

	c.MarkDone(key)
	entry := c.Lookup(key)
	if entry == nil || !entry.Done {
		t.Fatalf("expecting a Done entry after MarkDone on an unseen key")
	}
}

func TestFailedAndReset(t *testing.T) {
	c := New()
	key := Key{RuleIndex: 2, StartPos: 1}

	if c.Failed(key) {
		t.Fatalf("expecting key not failed before RememberFailure")
	}
	c.RememberFailure(key)
	if !c.Failed(key) {
		t.Fatalf("expecting key failed after RememberFailure")
	}
	c.ResetFailure(key)
	if c.Failed(key) {
		t.Fatalf("expecting key not failed after ResetFailure")
	}
}

func TestClear(t *testing.T) {
	c := New()
	key := Key{RuleIndex: 0, StartPos: 0}
	c.RememberSuccess(key, 1)
	c.RememberFailure(key)

	c.Clear()

	if c.Lookup(key) != nil {
		t.Fatalf("expecting no entries after Clear")
	}
	if c.Failed(key) {
		t.Fatalf("expecting no failures after Clear")
	}
}
