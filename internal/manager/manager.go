package manager

import (
	"errors"
	"sync"
	"time"

	"lsai/internal/checkpoint"
	"lsai/internal/engine"
	"lsai/internal/generation"
)

// Service holds the single model slot. Construct one per process.
type Service struct {
	cfg     Config
	eng     engine.Engine
	prompt  *generation.PromptTemplate
	cleaner generation.Cleaner
	pub     EventPublisher

	// loadMu serializes Load, Reload, Train and Close.
	loadMu sync.Mutex
	// inflight is read-held by every running sample; Reload write-locks it
	// to wait for them.
	inflight sync.RWMutex
	// genCh is the single-slot gate, nil when the engine samples concurrently.
	genCh chan struct{}

	mu          sync.RWMutex
	state       State
	sess        engine.Session
	lastErr     string
	loads       int
	generations int64
	loadedAt    time.Time
	startTime   time.Time
}

// New constructs a Service in the unloaded state. It does not load.
func New(cfg Config) (*Service, error) {
	if cfg.Engine == nil {
		return nil, errors.New("manager: engine is required")
	}
	cfg.applyDefaults()
	prompt, err := generation.NewPromptTemplate(cfg.PromptTemplate)
	if err != nil {
		return nil, err
	}
	s := &Service{
		cfg:       cfg,
		eng:       cfg.Engine,
		prompt:    prompt,
		cleaner:   generation.Cleaner{Repetition: cfg.Repetition},
		pub:       cfg.Publisher,
		state:     StateUnloaded,
		startTime: time.Now(),
	}
	if !s.eng.ConcurrentSampling() {
		s.genCh = make(chan struct{}, 1)
	}
	setStateGauge(StateUnloaded)
	return s, nil
}

// State returns the current lifecycle state without touching the load guard.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready reports whether the model is loaded.
func (s *Service) Ready() bool { return s.State() == StateLoaded }

// RunDir is the checkpoint directory of the configured run.
func (s *Service) RunDir() string {
	return checkpoint.RunDir(s.cfg.CheckpointDir, s.cfg.RunName)
}

// ModelName returns the configured base model name.
func (s *Service) ModelName() string { return s.cfg.ModelName }

// RunName returns the configured run name.
func (s *Service) RunName() string { return s.cfg.RunName }

func (s *Service) setState(st State, errMsg string) {
	s.mu.Lock()
	s.state = st
	s.lastErr = errMsg
	s.mu.Unlock()
	setStateGauge(st)
}

func (s *Service) publish(name string, fields map[string]any) {
	s.pub.Publish(Event{Name: name, Run: s.cfg.RunName, Fields: fields})
}
