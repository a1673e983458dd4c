package metadata

import (
	"sort"
	"sync"

	"github.com/spaghettifunk/anima-labs/engine/core"
)

// Tracker is the arena every device object is registered in. It answers the
// live-object queries the debug layer uses at teardown.
type Tracker struct {
	mu       sync.Mutex
	live     map[core.Identifier]*Handle
	created  [ResourceKindMax]uint64
	released [ResourceKindMax]uint64
	next     uint64
}

func NewTracker() *Tracker {
	return &Tracker{
		live: make(map[core.Identifier]*Handle),
	}
}

// Track registers a new object. destroy runs once, on the first Release.
func (t *Tracker) Track(kind ResourceKind, label string, destroy func()) *Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	h := &Handle{
		id:      core.NewIdentifier(),
		kind:    kind,
		label:   label,
		seq:     t.next,
		tracker: t,
		destroy: destroy,
	}
	t.live[h.id] = h
	t.created[kind]++
	return h
}

// Live returns the number of objects not yet released.
func (t *Tracker) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

func (t *Tracker) LiveByKind(kind ResourceKind) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, h := range t.live {
		if h.kind == kind {
			n++
		}
	}
	return n
}

// Created returns how many objects of kind were ever registered.
func (t *Tracker) Created(kind ResourceKind) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.created[kind]
}

func (t *Tracker) Released(kind ResourceKind) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.released[kind]
}

// Report lists the live objects in creation order.
func (t *Tracker) Report() []string {
	handles := t.snapshot()
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		out = append(out, h.String())
	}
	return out
}

// ReleaseAll releases every live object, newest first.
func (t *Tracker) ReleaseAll() {
	handles := t.snapshot()
	for i := len(handles) - 1; i >= 0; i-- {
		handles[i].Release()
	}
}

func (t *Tracker) snapshot() []*Handle {
	t.mu.Lock()
	handles := make([]*Handle, 0, len(t.live))
	for _, h := range t.live {
		handles = append(handles, h)
	}
	t.mu.Unlock()
	sort.Slice(handles, func(i, j int) bool { return handles[i].seq < handles[j].seq })
	return handles
}

type Releaser interface {
	Release()
}

// ReleaseStack collects objects as they are built so a failed build can be
// unwound in reverse order.
type ReleaseStack struct {
	items []Releaser
}

func (s *ReleaseStack) Push(r Releaser) {
	if r == nil {
		return
	}
	s.items = append(s.items, r)
}

func (s *ReleaseStack) Len() int { return len(s.items) }

// ReleaseAll releases in LIFO order and empties the stack.
func (s *ReleaseStack) ReleaseAll() {
	for i := len(s.items) - 1; i >= 0; i-- {
		s.items[i].Release()
	}
	s.items = nil
}
