package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"lsai/internal/checkpoint"
)

// execEngine drives an external trainer program, one process per call:
//
//	<command...> download --model NAME --models-dir DIR
//	<command...> finetune --dataset FILE --model NAME --run RUN --steps N --restore MODE ...
//	<command...> sample --run RUN --checkpoint-dir DIR --length N --temperature T --prefix TEXT ...
//
// Progress output is logged line by line. Sample prints the generated text,
// prefix included, on stdout.
type execEngine struct {
	command       []string
	modelsDir     string
	checkpointDir string
}

// NewExec constructs a subprocess-backed engine.
func NewExec(command []string, modelsDir, checkpointDir string) Engine {
	return &execEngine{
		command:       append([]string(nil), command...),
		modelsDir:     modelsDir,
		checkpointDir: checkpointDir,
	}
}

type execSession struct {
	mu  sync.RWMutex
	run string
}

func (s *execSession) Close() error { return nil }

func (e *execEngine) Name() string { return BackendExec }

// ConcurrentSampling is false: every sample reloads the checkpoint in a
// fresh process and competes for the same memory.
func (e *execEngine) ConcurrentSampling() bool { return false }

func (e *execEngine) DownloadBaseModel(ctx context.Context, modelName string) error {
	return e.run(ctx, "download", nil, "--model", modelName, "--models-dir", e.modelsDir)
}

func (e *execEngine) StartSession(ctx context.Context) (Session, error) {
	if _, err := exec.LookPath(e.command[0]); err != nil {
		return nil, ErrDependencyUnavailable("trainer command not available: " + err.Error())
	}
	return &execSession{}, nil
}

func (e *execEngine) FineTune(ctx context.Context, s Session, req FineTuneRequest) error {
	if _, err := sessionAs[*execSession](s); err != nil {
		return err
	}
	return e.run(ctx, "finetune", nil,
		"--dataset", req.Dataset,
		"--model", req.ModelName,
		"--run", req.RunName,
		"--steps", strconv.Itoa(req.Steps),
		"--restore", string(req.Restore),
		"--print-every", strconv.Itoa(req.PrintEvery),
		"--sample-every", strconv.Itoa(req.SampleEvery),
		"--save-every", strconv.Itoa(req.SaveEvery),
		"--checkpoint-dir", e.checkpointDir,
		"--models-dir", e.modelsDir,
	)
}

// LoadCheckpoint checks that the run has something to load. The weights
// are read by each sample process.
func (e *execEngine) LoadCheckpoint(ctx context.Context, s Session, runName string) error {
	sess, err := sessionAs[*execSession](s)
	if err != nil {
		return err
	}
	info := checkpoint.Inspect(checkpoint.RunDir(e.checkpointDir, runName))
	if !info.Exists || len(info.Files) == 0 {
		return fmt.Errorf("no checkpoint files in %s", info.Dir)
	}
	sess.mu.Lock()
	sess.run = runName
	sess.mu.Unlock()
	return nil
}

func (e *execEngine) Sample(ctx context.Context, s Session, runName, prefix string, p SampleParams) (string, error) {
	if _, err := sessionAs[*execSession](s); err != nil {
		return "", err
	}
	args := []string{
		"--run", runName,
		"--checkpoint-dir", e.checkpointDir,
		"--length", strconv.Itoa(p.Length),
		"--temperature", strconv.FormatFloat(p.Temperature, 'f', -1, 64),
		"--top-k", strconv.Itoa(p.TopK),
		"--top-p", strconv.FormatFloat(p.TopP, 'f', -1, 64),
	}
	for _, stop := range p.Stop {
		args = append(args, "--stop", stop)
	}
	args = append(args, "--prefix", prefix)
	var out bytes.Buffer
	if err := e.run(ctx, "sample", &out, args...); err != nil {
		return "", err
	}
	return out.String(), nil
}

// run executes one trainer subcommand. When stdout is nil both streams are
// logged; otherwise stdout is captured and only stderr is logged.
func (e *execEngine) run(ctx context.Context, sub string, stdout io.Writer, args ...string) error {
	argv := append(append(append([]string(nil), e.command[1:]...), sub), args...)
	cmd := exec.CommandContext(ctx, e.command[0], argv...)
	lw := newLineLogger(sub, zerolog.InfoLevel)
	cmd.Stderr = lw
	if stdout == nil {
		cmd.Stdout = lw
	} else {
		cmd.Stdout = stdout
	}
	err := cmd.Run()
	lw.Flush()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s %s: %w", e.command[0], sub, err)
	}
	return nil
}
