package descriptor

import (
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/fdchannel/internal/shared/id"
)

// Entry describes one open descriptor.
type Entry struct {
	ID       id.DescriptorID `json:"id"`
	Fd       int             `json:"fd"`
	Kind     string          `json:"kind"`
	Reliable bool            `json:"reliable"`
	OpenedAt time.Time       `json:"opened_at"`
}

// Tracker records descriptors between construction and close, so leaks and
// long-lived handles can be inspected at runtime.
type Tracker struct {
	mu   sync.RWMutex
	open map[id.DescriptorID]Entry
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{open: make(map[id.DescriptorID]Entry)}
}

func (t *Tracker) add(e Entry) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.open[e.ID] = e
	t.mu.Unlock()
}

func (t *Tracker) remove(descriptorID id.DescriptorID) {
	if t == nil {
		return
	}
	t.mu.Lock()
	delete(t.open, descriptorID)
	t.mu.Unlock()
}

// Len returns the number of open descriptors.
func (t *Tracker) Len() int {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.open)
}

// Snapshot returns the open descriptors, oldest first.
func (t *Tracker) Snapshot() []Entry {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	entries := make([]Entry, 0, len(t.open))
	for _, e := range t.open {
		entries = append(entries, e)
	}
	t.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].OpenedAt.Equal(entries[j].OpenedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].OpenedAt.Before(entries[j].OpenedAt)
	})
	return entries
}
