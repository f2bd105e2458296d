package sidecar

import "slices"

// Tracker holds the pairing state of companion JPEGs, keyed by canonical path.
// An absent key means unseen. false means the JPEG was reached first and its
// copy is deferred until a primary file takes it along. true means the JPEG
// was written alongside a primary file; its own walk entry and any further
// primary sharing its stem must not copy it again. Entries live until Drain.
type Tracker struct {
	state map[string]bool
}

// Pending is one residual entry returned by Drain.
type Pending struct {
	Path   string
	Copied bool
}

func NewTracker() *Tracker {
	return &Tracker{state: make(map[string]bool)}
}

// ObserveJPEG records a walk entry for a JPEG that has a primary file. The
// entry is never copied on its own at this point.
func (t *Tracker) ObserveJPEG(path string) {
	if _, seen := t.state[path]; !seen {
		t.state[path] = false
	}
}

// ObserveCompanion records that path was written alongside its primary file.
// Callers must only report a copy that actually happened.
func (t *Tracker) ObserveCompanion(path string) {
	t.state[path] = true
}

// Copied reports whether path was already written alongside a primary file.
func (t *Tracker) Copied(path string) bool {
	return t.state[path]
}

// Lookup returns the state of path and whether it is tracked.
func (t *Tracker) Lookup(path string) (copied, ok bool) {
	copied, ok = t.state[path]
	return copied, ok
}

func (t *Tracker) Len() int { return len(t.state) }

// Drain empties the tracker and returns its entries sorted by path.
func (t *Tracker) Drain() []Pending {
	out := make([]Pending, 0, len(t.state))
	for p, copied := range t.state {
		out = append(out, Pending{Path: p, Copied: copied})
	}
	clear(t.state)
	slices.SortFunc(out, func(a, b Pending) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return out
}
