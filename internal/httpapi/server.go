// Package httpapi exposes the model service over HTTP.
//
//	@title			LibreScript AI API
//	@version		1.0
//	@description	Answers programming questions with a fine-tuned GPT-2 model.
//	@BasePath		/
package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
	"github.com/tidwall/gjson"

	"lsai/internal/generation"
	"lsai/internal/manager"
	"lsai/pkg/types"
)

// ServiceName is reported by / and /status.
const ServiceName = "LibreScript AI API"

const notLoadedDetail = "The model is not yet loaded or training has not been performed"

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Status() manager.StatusReport
	Ready() bool
	Generate(ctx context.Context, req generation.Request) (generation.Result, error)
	Reload(ctx context.Context) error
}

type handlers struct {
	svc Service
}

func NewMux(svc Service) http.Handler {
	h := &handlers{svc: svc}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(*logger()))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(recoverJSON)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/", h.root)
	r.Get("/status", h.status)
	r.Post("/generate", h.generate)
	r.Post("/reload", h.reload)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

func accessLog(r *http.Request, status, size int, d time.Duration) {
	e := hlog.FromRequest(r).Debug()
	if status >= http.StatusInternalServerError {
		e = hlog.FromRequest(r).Warn()
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		e = e.Str("request_id", rid)
	}
	e.Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", d).Msg("request")
}

// recoverJSON turns a handler panic into the JSON 500 payload.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			hlog.FromRequest(r).Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
			writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// root godoc
//
//	@Summary	Liveness with model flag
//	@Produce	json
//	@Success	200	{object}	types.RootResponse
//	@Router		/ [get]
func (h *handlers) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.RootResponse{
		Status:      "ok",
		Service:     ServiceName,
		ModelLoaded: h.svc.Ready(),
		Timestamp:   time.Now(),
	})
}

// status godoc
//
//	@Summary	Model and checkpoint status
//	@Produce	json
//	@Success	200	{object}	types.StatusResponse
//	@Router		/status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	rep := h.svc.Status()
	resp := types.StatusResponse{
		Service:          ServiceName,
		ModelLoaded:      rep.Loaded(),
		State:            string(rep.State),
		ModelName:        rep.ModelName,
		RunName:          rep.RunName,
		Engine:           rep.Engine,
		CheckpointExists: rep.Checkpoint.Exists,
		LatestModel:      rep.Checkpoint.LatestModel,
		LastError:        rep.LastError,
		LoadsTotal:       rep.LoadsTotal,
		Generations:      rep.Generations,
		UptimeSeconds:    rep.Uptime.Seconds(),
		Timestamp:        time.Now(),
	}
	if n, ok := rep.Checkpoint.TrainingSteps(); ok {
		resp.TrainingSteps = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

// generate godoc
//
//	@Summary	Answer a question
//	@Accept		json
//	@Produce	json
//	@Param		request	body		types.GenerateRequest	true	"Question and sampling parameters"
//	@Success	200		{object}	types.GenerateResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	415		{object}	types.ErrorResponse
//	@Failure	429		{object}	types.ErrorResponse
//	@Failure	500		{object}	types.ErrorResponse
//	@Failure	503		{object}	types.ErrorResponse
//	@Router		/generate [post]
func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Ready() {
		writeJSONErrorMessage(w, http.StatusServiceUnavailable, manager.ErrModelNotLoaded.Error(), notLoadedDetail)
		generateOutcome(outcomeUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		// oversized bodies land here as well; still 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "JSON data required")
		generateOutcome(outcomeInvalid)
		return
	}
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		generateOutcome(outcomeInvalid)
		return
	}
	req, ok := decodeGenerateRequest(body)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "JSON data required")
		generateOutcome(outcomeInvalid)
		return
	}

	l := requestLogger(r)
	start := time.Now()
	l.Info().Int("length", req.Length).Float64("temperature", req.Temperature).
		Str("prompt", truncate(req.Prompt, 50)).Msg("generate start")

	ctx, cancel := withShutdown(r.Context())
	defer cancel()
	if generateTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, generateTimeout)
		defer tcancel()
	}

	res, err := h.svc.Generate(ctx, req)
	if err != nil {
		// client went away or the server is shutting down
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		status := statusFor(err)
		switch {
		case manager.IsModelNotLoaded(err):
			writeJSONErrorMessage(w, status, err.Error(), notLoadedDetail)
		case errors.Is(err, context.DeadlineExceeded):
			writeJSONError(w, status, "generation timed out")
		default:
			if status == http.StatusTooManyRequests {
				IncrementBackpressure(reasonGenerationGate)
			}
			writeJSONError(w, status, err.Error())
		}
		ev := l.Warn()
		if status >= http.StatusInternalServerError {
			ev = l.Error()
		}
		ev.Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("generate end")
		if errors.Is(err, context.DeadlineExceeded) {
			generateOutcome(outcomeTimeout)
		} else {
			generateOutcome(outcomeFor(status))
		}
		return
	}
	logResponseLines(l, "generate", res.Response)
	l.Info().Int("status", http.StatusOK).Dur("dur", time.Since(start)).Msg("generate end")
	generateOutcome(outcomeOK)
	writeJSON(w, http.StatusOK, types.GenerateResponse{
		Success:  true,
		Prompt:   res.Prompt,
		Response: res.Response,
		Parameters: types.GenerationParameters{
			Length:      res.Length,
			Temperature: res.Temperature,
		},
		Timestamp: time.Now(),
	})
}

// decodeGenerateRequest rejects bodies that are not a non-empty JSON object
// and fills omitted parameters with the configured defaults.
func decodeGenerateRequest(body []byte) (generation.Request, bool) {
	if !gjson.ValidBytes(body) {
		return generation.Request{}, false
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() || len(doc.Map()) == 0 {
		return generation.Request{}, false
	}
	req := generation.Request{Length: defaultLength, Temperature: defaultTemperature}
	if v := doc.Get("prompt"); v.Exists() {
		if v.Type != gjson.String && v.Type != gjson.Null {
			return generation.Request{}, false
		}
		req.Prompt = v.String()
	}
	if v := doc.Get("length"); v.Exists() {
		if v.Type != gjson.Number || v.Num != float64(int(v.Num)) {
			return generation.Request{}, false
		}
		req.Length = int(v.Int())
	}
	if v := doc.Get("temperature"); v.Exists() {
		if v.Type != gjson.Number {
			return generation.Request{}, false
		}
		req.Temperature = v.Float()
	}
	return req, true
}

// reload godoc
//
//	@Summary	Reload the fine-tuned model from disk
//	@Produce	json
//	@Success	200	{object}	types.ReloadResponse
//	@Failure	500	{object}	types.ReloadResponse
//	@Router		/reload [post]
func (h *handlers) reload(w http.ResponseWriter, r *http.Request) {
	// a reload outlives the client connection; only shutdown cancels it
	if err := h.svc.Reload(serverBaseCtx); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("reload failed")
		writeJSON(w, http.StatusInternalServerError, types.ReloadResponse{
			Success: false,
			Message: "Failed to reload model",
			Error:   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, types.ReloadResponse{Success: true, Message: "Model reloaded successfully"})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
