package manager

import (
	"time"

	"lsai/internal/checkpoint"
)

// Status returns the current state with a fresh checkpoint inspection. It
// never waits on the load guard, so it answers even mid-load.
func (s *Service) Status() StatusReport {
	info := checkpoint.Inspect(s.RunDir())
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatusReport{
		State:       s.state,
		ModelName:   s.cfg.ModelName,
		RunName:     s.cfg.RunName,
		Engine:      s.eng.Name(),
		Checkpoint:  info,
		LastError:   s.lastErr,
		LoadsTotal:  s.loads,
		Generations: s.generations,
		LoadedAt:    s.loadedAt,
		Uptime:      time.Since(s.startTime),
	}
}
