package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `addr: ":9999"
run_name: sql_run
checkpoint_dir: /ckpt
engine:
  backend: exec
  command: ["python3", "trainer.py"]
generation:
  repetition: after
  default_length: 120
http:
  cors_enabled: false
log:
  level: debug
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.RunName != "sql_run" || cfg.CheckpointDir != "/ckpt" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if diff := cmp.Diff([]string{"python3", "trainer.py"}, cfg.Engine.Command); diff != "" {
		t.Fatalf("command mismatch (-want +got):\n%s", diff)
	}
	if cfg.Engine.Backend != "exec" || cfg.Generation.Repetition != "after" || cfg.Generation.DefaultLength != 120 || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected nested cfg: %+v", cfg)
	}
	if cfg.CORS() {
		t.Fatalf("cors_enabled: false must disable CORS")
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","model_name":"355M","engine":{"base_url":"http://llm:8080","request_timeout_seconds":9},"corpus":{"base_url":"http://ls/api"}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.ModelName != "355M" || cfg.Engine.BaseURL != "http://llm:8080" || cfg.Engine.RequestTimeoutSeconds != 9 || cfg.Corpus.BaseURL != "http://ls/api" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nmodels_dir=\"/x\"\ntraining_steps=50\n\n[generation]\ndefault_temperature=0.5\n\n[log]\nfile=\"/var/log/lsai.log\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelsDir != "/x" || cfg.TrainingSteps != 50 || cfg.Generation.DefaultTemperature != 0.5 || cfg.Log.File != "/var/log/lsai.log" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Addr != ":5050" || cfg.ModelName != "124M" || cfg.RunName != "librescript_code_model" {
		t.Fatalf("unexpected top-level defaults: %+v", cfg)
	}
	if cfg.CheckpointDir != "checkpoint" || cfg.ModelsDir != "models" || cfg.TrainingSteps != 1000 {
		t.Fatalf("unexpected path defaults: %+v", cfg)
	}
	if cfg.Generation.DefaultLength != 200 || cfg.Generation.DefaultTemperature != 0.7 || cfg.Generation.Repetition != "before" {
		t.Fatalf("unexpected generation defaults: %+v", cfg.Generation)
	}
	if !cfg.CORS() || len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected CORS defaults: %+v", cfg.HTTP)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{Addr: ":1", TrainingSteps: 7}
	cfg.Generation.MaxWaitSeconds = 3
	cfg.ApplyDefaults()
	if cfg.Addr != ":1" || cfg.TrainingSteps != 7 || cfg.Generation.MaxWaitSeconds != 3 {
		t.Fatalf("explicit values overwritten: %+v", cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{EnvAddr: ":6060", EnvLogLevel: "warn"}
	cfg := Config{Addr: ":1"}
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if cfg.Addr != ":6060" || cfg.Log.Level != "warn" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestEngineConfig(t *testing.T) {
	cfg := Default()
	cfg.Engine.RequestTimeoutSeconds = 5
	ec := cfg.EngineConfig()
	if ec.RequestTimeout != 5*time.Second || ec.CheckpointDir != "checkpoint" || ec.ModelsDir != "models" || ec.BaseURL == "" {
		t.Fatalf("unexpected engine config: %+v", ec)
	}
	lc := cfg.LoggingConfig()
	if lc.Level != "info" || lc.MaxSizeMB != 50 {
		t.Fatalf("unexpected logging config: %+v", lc)
	}
}
