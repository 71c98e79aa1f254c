package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryLog is an in-process Log used by tests and database-less runs.
type MemoryLog struct {
	mu     sync.Mutex
	events []Event
	nextID int64
	now    func() time.Time
}

var _ Log = (*MemoryLog)(nil)

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{now: func() time.Time { return time.Now().UTC() }}
}

func (l *MemoryLog) Record(_ context.Context, event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	event.ID = l.nextID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = l.now()
	}
	l.events = append(l.events, event)
	return nil
}

func (l *MemoryLog) Unresolved(_ context.Context, before time.Time) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	type key struct {
		id string
		at int64
	}

	closed := make(map[key]bool)
	for _, e := range l.events {
		if e.Type.Terminal() {
			closed[key{e.TransferID, e.RequestedAt.UnixMicro()}] = true
		}
	}

	var out []Event
	for _, e := range l.events {
		if e.Type != EventRequested || !e.RequestedAt.Before(before) {
			continue
		}
		if closed[key{e.TransferID, e.RequestedAt.UnixMicro()}] {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

func (l *MemoryLog) History(_ context.Context, requesterID int64, limit int) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Event
	for i := len(l.events) - 1; i >= 0; i-- {
		e := l.events[i]
		if e.RequesterID != requesterID || !e.Type.Terminal() {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Events returns a copy of everything recorded.
func (l *MemoryLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
