package manager

// Event represents a lifecycle event.
// Minimal and stable: name + run name and optional fields via key/values.
type Event struct {
	Name   string
	Run    string
	Fields map[string]any
}

// Event names published by the Service.
const (
	EventLoadStart     = "load_start"
	EventLoadReady     = "load_ready"
	EventLoadFailed    = "load_failed"
	EventUnloaded      = "unloaded"
	EventTrainStart    = "train_start"
	EventTrainDone     = "train_done"
	EventGenerationEnd = "generation_end"
)

// EventPublisher receives events from the Service. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
