package manager

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestMemoryPublisher_CopiesEvents(t *testing.T) {
	p := NewMemoryPublisher()
	p.Publish(Event{Name: EventLoadStart, Run: "r"})
	evs := p.Events()
	evs[0].Name = "mutated"
	if p.Events()[0].Name != EventLoadStart {
		t.Fatalf("Events must return a copy")
	}
	noopPublisher{}.Publish(Event{Name: "dropped"})
}

func TestMemoryPublisher_ClonesFieldsAndCounts(t *testing.T) {
	p := NewMemoryPublisher()
	fields := map[string]any{"engine": "server"}
	p.Publish(Event{Name: EventLoadStart, Run: "a", Fields: fields})
	p.Publish(Event{Name: EventLoadStart, Run: "b"})
	p.Publish(Event{Name: EventLoadReady, Run: "a"})
	fields["engine"] = "mutated"

	if got := p.Events()[0].Fields["engine"]; got != "server" {
		t.Fatalf("fields must be cloned on publish, got %v", got)
	}
	if n := p.Count(EventLoadStart, ""); n != 2 {
		t.Fatalf("Count(any run) = %d, want 2", n)
	}
	if n := p.Count(EventLoadStart, "a"); n != 1 {
		t.Fatalf("Count(run a) = %d, want 1", n)
	}
}

func TestLogPublisher_WritesDebugLine(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
	defer func() { log.Logger = orig }()

	LogPublisher{}.Publish(Event{Name: EventLoadReady, Run: "r", Fields: map[string]any{"took_ms": 12}})
	out := buf.String()
	if !strings.Contains(out, `"event":"load_ready"`) || !strings.Contains(out, `"took_ms":12`) {
		t.Fatalf("unexpected log line %q", out)
	}
}
