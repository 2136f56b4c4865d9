//go:build !llama

package engine

import "context"

// llamaEngine is compiled without the 'llama' build tag. It keeps default
// builds CGO-free and refuses to run instead of pretending to.
type llamaEngine struct{}

// NewLlama returns a stub that reports llama support as unavailable.
func NewLlama(checkpointDir string, ctxSize, threads int) Engine { return llamaEngine{} }

func errLlamaNotBuilt() error {
	return ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}

func (llamaEngine) Name() string             { return BackendLlama }
func (llamaEngine) ConcurrentSampling() bool { return false }

func (llamaEngine) DownloadBaseModel(ctx context.Context, modelName string) error {
	return errLlamaNotBuilt()
}

func (llamaEngine) StartSession(ctx context.Context) (Session, error) { return nil, errLlamaNotBuilt() }

func (llamaEngine) FineTune(ctx context.Context, s Session, req FineTuneRequest) error {
	return errLlamaNotBuilt()
}

func (llamaEngine) LoadCheckpoint(ctx context.Context, s Session, runName string) error {
	return errLlamaNotBuilt()
}

func (llamaEngine) Sample(ctx context.Context, s Session, runName, prefix string, p SampleParams) (string, error) {
	return "", errLlamaNotBuilt()
}
