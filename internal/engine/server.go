package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// serverEngine talks to a running OpenAI-compatible completion server such
// as llama.cpp's llama-server. Training happens elsewhere; the server is
// expected to serve the fine-tuned run under its name.
type serverEngine struct {
	baseURL    string
	apiKey     string
	reqTimeout time.Duration
	httpClient *http.Client
}

// NewServer constructs a server-backed engine.
func NewServer(baseURL, apiKey string, reqTimeout time.Duration) Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout stays 0: every request carries a context deadline instead.
	return &serverEngine{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		reqTimeout: reqTimeout,
		httpClient: &http.Client{Transport: tr},
	}
}

type serverSession struct {
	mu    sync.RWMutex
	model string
}

func (s *serverSession) Close() error { return nil }

func (s *serverSession) modelID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

func (e *serverEngine) Name() string { return BackendServer }

func (e *serverEngine) ConcurrentSampling() bool { return true }

// DownloadBaseModel is a no-op: the server owns its weights.
func (e *serverEngine) DownloadBaseModel(ctx context.Context, modelName string) error {
	log.Debug().Str("engine", e.Name()).Str("model", modelName).Msg("base model managed by server")
	return nil
}

func (e *serverEngine) StartSession(ctx context.Context) (Session, error) {
	if _, err := e.listModels(ctx); err != nil {
		return nil, err
	}
	return &serverSession{}, nil
}

func (e *serverEngine) FineTune(ctx context.Context, s Session, req FineTuneRequest) error {
	return fmt.Errorf("fine-tune via %s engine: %w", e.Name(), ErrUnsupported)
}

// LoadCheckpoint selects runName when the server lists it and otherwise
// falls back to the server's default model.
func (e *serverEngine) LoadCheckpoint(ctx context.Context, s Session, runName string) error {
	sess, err := sessionAs[*serverSession](s)
	if err != nil {
		return err
	}
	ids, err := e.listModels(ctx)
	if err != nil {
		return err
	}
	model := ""
	for _, id := range ids {
		if id == runName {
			model = id
			break
		}
	}
	if model == "" {
		log.Debug().Str("run", runName).Strs("served", ids).Msg("run not listed by server; using server default model")
	}
	sess.mu.Lock()
	sess.model = model
	sess.mu.Unlock()
	return nil
}

func (e *serverEngine) listModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, err
	}
	e.authorize(req)
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, ErrDependencyUnavailable("completion server unreachable: " + err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrDependencyUnavailable("completion server not ready: " + resp.Status)
	}
	var ids []string
	gjson.GetBytes(body, "data.#.id").ForEach(func(_, v gjson.Result) bool {
		ids = append(ids, v.String())
		return true
	})
	return ids, nil
}

func (e *serverEngine) authorize(req *http.Request) {
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
}

// completionRequest is the payload for /v1/completions.
type completionRequest struct {
	Model       string   `json:"model,omitempty"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	Stream      bool     `json:"stream"`
}

// Sample streams a completion and returns the prefix followed by the
// generated text, the same shape other backends produce.
func (e *serverEngine) Sample(ctx context.Context, s Session, runName, prefix string, p SampleParams) (string, error) {
	sess, err := sessionAs[*serverSession](s)
	if err != nil {
		return "", err
	}
	if e.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.reqTimeout)
		defer cancel()
	}
	payload := completionRequest{
		Model:       sess.modelID(),
		Prompt:      prefix,
		MaxTokens:   p.Length,
		Temperature: p.Temperature,
		TopP:        p.TopP,
		TopK:        p.TopK,
		Stop:        p.Stop,
		Stream:      true,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	e.authorize(req)
	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.New("completion server http error: " + resp.Status + ": " + strings.TrimSpace(string(b)))
	}

	var out strings.Builder
	out.WriteString(prefix)
	r := bufio.NewReader(resp.Body)
	for {
		line, err := r.ReadString('\n')
		if done := appendStreamLine(&out, strings.TrimSpace(line)); done {
			break
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", err
		}
	}
	return out.String(), nil
}

// appendStreamLine handles one line of an SSE or NDJSON completion stream.
// It reports true on the terminating [DONE] marker.
func appendStreamLine(out *strings.Builder, line string) bool {
	if line == "" {
		return false
	}
	data := line
	if strings.HasPrefix(strings.ToLower(line), "data:") {
		data = strings.TrimSpace(line[len("data:"):])
	}
	if data == "[DONE]" {
		return true
	}
	if !gjson.Valid(data) {
		log.Debug().Str("line", line).Msg("engine=server unknown stream line")
		return false
	}
	parsed := gjson.Parse(data)
	// OpenAI completions, chat-style deltas, then llama.cpp native.
	for _, path := range []string{"choices.0.text", "choices.0.delta.content", "content"} {
		if v := parsed.Get(path); v.Exists() {
			out.WriteString(v.String())
			return false
		}
	}
	return false
}
