package manager

import "github.com/rs/zerolog/log"

// LogPublisher writes events to the global logger at debug level.
type LogPublisher struct{}

func (LogPublisher) Publish(e Event) {
	ev := log.Debug().Str("event", e.Name).Str("run", e.Run)
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("manager event")
}
