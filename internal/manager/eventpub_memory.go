package manager

import (
	"slices"
	"sync"
)

// MemoryPublisher records lifecycle events in order. Tests and the e2e
// harness use it to assert on load, reload and training sequences.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher returns an empty recorder.
func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

// Publish appends e. Fields are cloned so later mutation by the caller is not observed.
func (p *MemoryPublisher) Publish(e Event) {
	if e.Fields != nil {
		f := make(map[string]any, len(e.Fields))
		for k, v := range e.Fields {
			f[k] = v
		}
		e.Fields = f
	}
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

// Names returns the event names in publish order.
func (p *MemoryPublisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Name
	}
	return out
}

// Count returns how many events named name were recorded for run. An empty
// run matches every run.
func (p *MemoryPublisher) Count(name, run string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Name == name && (run == "" || e.Run == run) {
			n++
		}
	}
	return n
}
