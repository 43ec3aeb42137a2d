// Package cache is the per-parse match/failure memoization the matcher
// leans on for termination: every (rule table, start token) pair the
// wavefront matcher visits is looked up here before any matching work
// happens, and its outcome remembered here once matching work does happen,
// so a left-recursive cycle's repeated attempts at the same start position
// converge instead of looping forever.
//
// A Cache belongs to exactly one parser.Session, which clears it (Clear) at
// the start of each top-level statement it parses; it is never shared
// across sessions or goroutines, matching spec.md §5's
// single-threaded-per-session contract.
package cache

// Key identifies one memoized match attempt: a rule table at a start
// token position.
type Key struct {
	RuleIndex int
	StartPos  int
}

// Entry is what Cache remembers for a Key once a match (even a partial,
// not-yet-widened one) has been attempted: the end positions reached so
// far, whether any realizer produced that end position more than once
// (tracked by the caller via RememberSuccess's return), and whether the
// wavefront driver has finished widening this rule table at this start
// (Done) so later lookups can skip straight to the remembered result
// without re-running the matcher.
type Entry struct {
	EndPositions []int
	Done         bool
}

// Cache is the match cache and failed set for a single parse.
type Cache struct {
	entries map[Key]*Entry
	failed  map[Key]bool
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{
		entries: make(map[Key]*Entry),
		failed:  make(map[Key]bool),
	}
}

// Lookup returns the memoized entry for key, or nil if no attempt has been
// recorded yet.
func (c *Cache) Lookup(key Key) *Entry {
	return c.entries[key]
}

// RememberSuccess records endPos as a reachable end position for key,
// returning true if endPos is new (the caller should treat this as
// progress the wavefront driver can still widen from) or false if endPos
// was already recorded (no further widening possible from this outcome).
func (c *Cache) RememberSuccess(key Key, endPos int) bool {
	entry := c.entries[key]
	if entry == nil {
		entry = &Entry{}
		c.entries[key] = entry
	}
	for _, p := range entry.EndPositions {
		if p == endPos {
			return false
		}
	}
	entry.EndPositions = append(entry.EndPositions, endPos)
	return true
}

// MarkDone marks key as fully resolved: the wavefront driver will not
// widen it further this parse, and future lookups should treat its
// EndPositions as final.
func (c *Cache) MarkDone(key Key) {
	entry := c.entries[key]
	if entry == nil {
		entry = &Entry{}
		c.entries[key] = entry
	}
	entry.Done = true
}

// RememberFailure records that key has failed to match at all.
func (c *Cache) RememberFailure(key Key) {
	c.failed[key] = true
}

// Failed reports whether key was previously recorded as a failure.
func (c *Cache) Failed(key Key) bool {
	return c.failed[key]
}

// ResetFailure clears a previously recorded failure for key, used by the
// appeal mechanism when a later, wider match at the same start position
// retroactively makes an earlier failed attempt worth retrying.
func (c *Cache) ResetFailure(key Key) {
	delete(c.failed, key)
}

// Clear drops every memoized entry and failure, used between top-level
// statement parses that reuse a Cache instead of allocating a fresh one.
func (c *Cache) Clear() {
	c.entries = make(map[Key]*Entry)
	c.failed = make(map[Key]bool)
}
