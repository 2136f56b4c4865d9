package manager

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"lsai/internal/engine"
)

// fakeEngine is a lightweight in-memory engine used for tests.
type fakeEngine struct {
	mu         sync.Mutex
	concurrent bool

	downloads, sessions, loads, samples, finetunes, closed int

	loadDelay   time.Duration
	loadErr     error
	sessionErr  error
	sampleErr   error
	finetuneErr error
	output      string

	// When set, Sample signals sampleStarted and then waits on sampleGate.
	sampleStarted chan struct{}
	sampleGate    chan struct{}

	lastFineTune engine.FineTuneRequest
	lastParams   engine.SampleParams
	lastPrefix   string
}

type fakeSession struct{ e *fakeEngine }

func (s fakeSession) Close() error {
	s.e.mu.Lock()
	s.e.closed++
	s.e.mu.Unlock()
	return nil
}

func (e *fakeEngine) Name() string             { return "fake" }
func (e *fakeEngine) ConcurrentSampling() bool { return e.concurrent }

func (e *fakeEngine) DownloadBaseModel(ctx context.Context, modelName string) error {
	e.mu.Lock()
	e.downloads++
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) StartSession(ctx context.Context) (engine.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions++
	if e.sessionErr != nil {
		return nil, e.sessionErr
	}
	return fakeSession{e: e}, nil
}

func (e *fakeEngine) FineTune(ctx context.Context, s engine.Session, req engine.FineTuneRequest) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finetunes++
	e.lastFineTune = req
	return e.finetuneErr
}

func (e *fakeEngine) LoadCheckpoint(ctx context.Context, s engine.Session, runName string) error {
	if e.loadDelay > 0 {
		time.Sleep(e.loadDelay)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loads++
	return e.loadErr
}

func (e *fakeEngine) Sample(ctx context.Context, s engine.Session, runName, prefix string, p engine.SampleParams) (string, error) {
	e.mu.Lock()
	e.samples++
	e.lastParams = p
	e.lastPrefix = prefix
	started, gate := e.sampleStarted, e.sampleGate
	out, err := e.output, e.sampleErr
	e.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return "", err
	}
	return prefix + out, nil
}

func (e *fakeEngine) counts() (sessions, loads, samples int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions, e.loads, e.samples
}

func (e *fakeEngine) closedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *fakeEngine) downloadCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.downloads
}

// testLayout creates checkpoint/<run> and models/<model> under a temp dir.
func testLayout(t *testing.T, withRun bool) (ckptDir, modelsDir string) {
	t.Helper()
	root := t.TempDir()
	ckptDir = filepath.Join(root, "checkpoint")
	modelsDir = filepath.Join(root, "models")
	if err := os.MkdirAll(filepath.Join(modelsDir, DefaultModelName), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(ckptDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if withRun {
		runDir := filepath.Join(ckptDir, DefaultRunName)
		if err := os.MkdirAll(runDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(runDir, "counter"), []byte("1000"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return ckptDir, modelsDir
}

func newTestService(t *testing.T, fe *fakeEngine, withRun bool, mutate ...func(*Config)) *Service {
	t.Helper()
	ckpt, models := testLayout(t, withRun)
	cfg := Config{Engine: fe, CheckpointDir: ckpt, ModelsDir: models}
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
