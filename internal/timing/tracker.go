// Package timing accumulates wall-clock durations per named operation.
// A Tracker is safe for concurrent use by the batch workers.
package timing

import (
	"sort"
	"sync"
	"time"
)

type Span struct {
	tracker   *Tracker
	operation string
	start     time.Time
}

// Stop records the span's duration. Stopping a zero Span is a no-op.
func (s Span) Stop() time.Duration {
	if s.tracker == nil {
		return 0
	}
	d := time.Since(s.start)
	s.tracker.record(s.operation, d)
	return d
}

type Stat struct {
	Operation string
	Count     int
	Total     time.Duration
}

func (s Stat) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

type Tracker struct {
	mu    sync.Mutex
	stats map[string]*Stat
}

func NewTracker() *Tracker {
	return &Tracker{stats: make(map[string]*Stat)}
}

func (t *Tracker) Start(operation string) Span {
	if t == nil {
		return Span{}
	}
	return Span{tracker: t, operation: operation, start: time.Now()}
}

func (t *Tracker) record(operation string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stats[operation]
	if !ok {
		s = &Stat{Operation: operation}
		t.stats[operation] = s
	}
	s.Count++
	s.Total += d
}

func (t *Tracker) Get(operation string) Stat {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.stats[operation]; ok {
		return *s
	}
	return Stat{Operation: operation}
}

// Snapshot returns every operation's stats sorted by name.
func (t *Tracker) Snapshot() []Stat {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Stat, 0, len(t.stats))
	for _, s := range t.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = make(map[string]*Stat)
}
