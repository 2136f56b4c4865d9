package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"lsai/internal/checkpoint"
	"lsai/internal/generation"
	"lsai/internal/manager"
	"lsai/pkg/types"
)

type mockService struct {
	mu        sync.Mutex
	report    manager.StatusReport
	ready     bool
	genErr    error
	reloadErr error
	lastReq   generation.Request
	reloads   int
}

func (m *mockService) Status() manager.StatusReport { return m.report }
func (m *mockService) Ready() bool                  { return m.ready }

// Generate validates like the real service so that 400 paths are exercised.
func (m *mockService) Generate(ctx context.Context, req generation.Request) (generation.Result, error) {
	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()
	if m.genErr != nil {
		return generation.Result{}, m.genErr
	}
	v, err := generation.Validate(req.Prompt, req.Length, req.Temperature)
	if err != nil {
		return generation.Result{}, err
	}
	return generation.Result{Prompt: v.Prompt, Response: "Use a JOIN clause.", Length: v.Length, Temperature: v.Temperature}, nil
}

func (m *mockService) Reload(ctx context.Context) error {
	m.mu.Lock()
	m.reloads++
	m.mu.Unlock()
	return m.reloadErr
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postGenerate(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v (body=%q)", err, w.Body.String())
	}
	return body
}

func TestRootHandler(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.RootResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Status != "ok" || body.Service != ServiceName || !body.ModelLoaded || body.Timestamp.IsZero() {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestStatusHandler(t *testing.T) {
	latest := "model-1000"
	svc := &mockService{report: manager.StatusReport{
		State:     manager.StateLoaded,
		ModelName: "124M",
		RunName:   "run",
		Engine:    "server",
		Checkpoint: checkpoint.Info{
			Exists:      true,
			LatestModel: &latest,
			CurrentStep: 1000,
			CounterOK:   true,
			Files:       []checkpoint.File{{Name: checkpoint.CounterFile}},
		},
		LoadsTotal: 1,
		Uptime:     90 * time.Second,
	}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !body.ModelLoaded || body.State != "loaded" || body.RunName != "run" || !body.CheckpointExists {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.TrainingSteps == nil || *body.TrainingSteps != 1000 {
		t.Fatalf("expected training_steps=1000, got %v", body.TrainingSteps)
	}
	if body.LatestModel == nil || *body.LatestModel != latest || body.UptimeSeconds != 90 {
		t.Fatalf("unexpected checkpoint fields: %+v", body)
	}
}

func TestStatusHandler_OmitsTrainingStepsWithoutCounter(t *testing.T) {
	svc := &mockService{report: manager.StatusReport{State: manager.StateUnloaded}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if strings.Contains(w.Body.String(), "training_steps") {
		t.Fatalf("training_steps must be omitted: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"model_loaded":false`) {
		t.Fatalf("expected model_loaded=false: %s", w.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	r := NewMux(&mockService{ready: false})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "loading") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGenerate_Success(t *testing.T) {
	svc := &mockService{ready: true}
	w := postGenerate(t, NewMux(svc), `{"prompt":"  How do I JOIN?  ","length":120,"temperature":0.5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !body.Success || body.Prompt != "How do I JOIN?" || body.Response != "Use a JOIN clause." {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Parameters.Length != 120 || body.Parameters.Temperature != 0.5 {
		t.Fatalf("unexpected parameters: %+v", body.Parameters)
	}
}

func TestGenerate_DefaultsApplied(t *testing.T) {
	svc := &mockService{ready: true}
	w := postGenerate(t, NewMux(svc), `{"prompt":"hi"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if svc.lastReq.Length != 200 || svc.lastReq.Temperature != 0.7 {
		t.Fatalf("defaults not applied: %+v", svc.lastReq)
	}

	SetGenerationDefaults(300, 0.8)
	defer SetGenerationDefaults(0, 0)
	_ = postGenerate(t, NewMux(svc), `{"prompt":"hi"}`)
	if svc.lastReq.Length != 300 || svc.lastReq.Temperature != 0.8 {
		t.Fatalf("configured defaults not applied: %+v", svc.lastReq)
	}
}

func TestGenerate_NotLoadedWinsOverEverything(t *testing.T) {
	r := NewMux(&mockService{ready: false})
	for _, body := range []string{`{"prompt":"hi"}`, `{"prompt":"hi","temperature":1.5}`, `not-json`} {
		w := postGenerate(t, r, body)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("body %q: expected 503, got %d", body, w.Code)
		}
		e := decodeError(t, w)
		if e.Error != "AI model not available" || !strings.Contains(e.Message, "not yet loaded") {
			t.Fatalf("unexpected 503 payload: %+v", e)
		}
	}
	// 503 is returned before the content type is looked at
	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString("x"))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestGenerate_BadRequests(t *testing.T) {
	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"malformed", "not-json", "JSON data required"},
		{"empty object", "{}", "JSON data required"},
		{"array", `[1,2]`, "JSON data required"},
		{"length not a number", `{"prompt":"hi","length":"long"}`, "JSON data required"},
		{"blank prompt", `{"prompt":"   "}`, "The 'prompt' field is required"},
		{"missing prompt", `{"length":100}`, "The 'prompt' field is required"},
		{"length too small", `{"prompt":"hi","length":20}`, "Length must be between 50 and 500"},
		{"temperature too high", `{"prompt":"hi","temperature":1.5}`, "Temperature must be between 0.1 and 1.0"},
	}
	r := NewMux(&mockService{ready: true})
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := postGenerate(t, r, c.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
			if e := decodeError(t, w); e.Error != c.msg || e.Code != http.StatusBadRequest {
				t.Fatalf("unexpected payload: %+v", e)
			}
		})
	}
	t.Run("no body and no content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/generate", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if e := decodeError(t, w); e.Error != "JSON data required" {
			t.Fatalf("unexpected payload: %+v", e)
		}
	})
	t.Run("whitespace body with non-json content type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(" \n"))
		req.Header.Set("Content-Type", "text/plain")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestGenerate_UnsupportedMediaType(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGenerate_ContentTypeCaseInsensitive(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "Application/JSON; charset=utf-8")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with mixed-case content-type, got %d", w.Code)
	}
}

func TestGenerate_BodyTooLarge(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	big := `{"prompt":"` + strings.Repeat("a", 1<<20) + `"}`
	w := postGenerate(t, r, big)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too-large body, got %d", w.Code)
	}
}

func TestGenerate_WithDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))
	defer func() { zlog = nil }()

	r := NewMux(&mockService{ready: true})
	req := httptest.NewRequest(http.MethodPost, "/generate?log=debug", bytes.NewBufferString(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with debug logging, got %d", w.Code)
	}
	out := buf.String()
	for _, want := range []string{"generate start", "generate> Use a JOIN clause.", "generate end"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %q:\n%s", want, out)
		}
	}
}

func TestGenerate_RequestLogOff(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer func() { zlog = nil }()

	r := NewMux(&mockService{ready: true})
	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Log-Level", "off")
	r.ServeHTTP(httptest.NewRecorder(), req)
	if strings.Contains(buf.String(), "generate start") {
		t.Fatalf("request logs must be silenced:\n%s", buf.String())
	}
}

func TestReload(t *testing.T) {
	svc := &mockService{}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reload", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ReloadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !body.Success || body.Message != "Model reloaded successfully" || svc.reloads != 1 {
		t.Fatalf("unexpected reload result: %+v reloads=%d", body, svc.reloads)
	}
}

func TestReload_Failure(t *testing.T) {
	svc := &mockService{reloadErr: &manager.LoadError{Kind: manager.NoCheckpoint, Cause: io.EOF}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reload", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ReloadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Success || body.Message != "Failed to reload model" || !strings.Contains(body.Error, "no fine-tuned model") {
		t.Fatalf("unexpected reload failure body: %+v", body)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound || decodeError(t, w).Error != "Endpoint not found" {
		t.Fatalf("unexpected 404 response: %d %s", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/generate", nil))
	if w.Code != http.StatusMethodNotAllowed || decodeError(t, w).Error != "Method not allowed" {
		t.Fatalf("unexpected 405 response: %d %s", w.Code, w.Body.String())
	}
}
