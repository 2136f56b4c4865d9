package manager

import (
	"context"
	"time"
)

// admit reserves the single generation slot when the engine cannot sample
// concurrently. It returns a release func to be called once sampling ends.
func (s *Service) admit(ctx context.Context) (func(), error) {
	if s.genCh == nil {
		return func() {}, nil
	}
	timer := time.NewTimer(s.cfg.MaxWait)
	defer timer.Stop()
	select {
	case s.genCh <- struct{}{}:
		return func() { <-s.genCh }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, tooBusyError{run: s.cfg.RunName}
	}
}
