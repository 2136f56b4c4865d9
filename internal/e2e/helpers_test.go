package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lsai/internal/checkpoint"
	"lsai/internal/engine"
	"lsai/internal/httpapi"
	"lsai/internal/manager"
)

const runName = "librescript_code_model"

// completionBackend is an OpenAI-compatible completion server that records
// prompts and answers with a fixed continuation.
type completionBackend struct {
	*httptest.Server
	mu      sync.Mutex
	prompts []string
	reply   string
}

func newCompletionBackend(t *testing.T, reply string) *completionBackend {
	t.Helper()
	b := &completionBackend{reply: reply}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":[{"id":%q}]}`, runName)
	})
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.prompts = append(b.prompts, req.Prompt)
		reply := b.reply
		b.mu.Unlock()
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: {\"choices\":[{\"text\":%q,\"finish_reason\":\"stop\"}]}\n\n", reply)
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func (b *completionBackend) lastPrompt() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.prompts) == 0 {
		return ""
	}
	return b.prompts[len(b.prompts)-1]
}

type stack struct {
	svc     *manager.Service
	pub     *manager.MemoryPublisher
	api     *httptest.Server
	ckptDir string
	runDir  string
}

// newStack wires a real service and HTTP API against backendURL. The run
// directory is created with the given counter contents unless counter is "".
func newStack(t *testing.T, backendURL, counter string) *stack {
	t.Helper()
	root := t.TempDir()
	ckptDir := filepath.Join(root, "checkpoint")
	runDir := checkpoint.RunDir(ckptDir, runName)
	if counter != "" {
		require.NoError(t, os.MkdirAll(runDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(runDir, checkpoint.CounterFile), []byte(counter), 0o644))
	}
	eng, err := engine.New(engine.Config{
		Backend:        engine.BackendServer,
		BaseURL:        backendURL,
		RequestTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	pub := manager.NewMemoryPublisher()
	svc, err := manager.New(manager.Config{
		Engine:        eng,
		RunName:       runName,
		CheckpointDir: ckptDir,
		ModelsDir:     filepath.Join(root, "models"),
		Publisher:     pub,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	api := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(api.Close)
	return &stack{svc: svc, pub: pub, api: api, ckptDir: ckptDir, runDir: runDir}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewBufferString(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
