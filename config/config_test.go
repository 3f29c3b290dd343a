package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.MaxIterations != 10 {
		t.Fatalf("expected 10 iterations, got %d", cfg.Agent.MaxIterations)
	}
	if cfg.Tool.MaxAttempts != 5 || cfg.Tool.MaxTokens != 4000 {
		t.Fatalf("unexpected tool defaults: %+v", cfg.Tool)
	}
	if cfg.Tool.GarbleThreshold != 0.2 {
		t.Fatalf("expected garble threshold 0.2, got %v", cfg.Tool.GarbleThreshold)
	}
	if cfg.Fetch.Timeout != 20*time.Second {
		t.Fatalf("expected 20s fetch timeout, got %v", cfg.Fetch.Timeout)
	}
	if cfg.Sources.WebSearch.Timeout != 0 || cfg.Fetch.MaxBodyBytes != 0 {
		t.Fatalf("search timeout and body cap should be off by default: %v, %d", cfg.Sources.WebSearch.Timeout, cfg.Fetch.MaxBodyBytes)
	}
	if cfg.Fetch.MinConfidence != 0.5 {
		t.Fatalf("expected min confidence 0.5, got %v", cfg.Fetch.MinConfidence)
	}
	if cfg.Storage.Feedback.Backend != "file" || cfg.Storage.Feedback.Path != "memory.json" {
		t.Fatalf("unexpected feedback defaults: %+v", cfg.Storage.Feedback)
	}
	if cfg.LLM.ToolModel != cfg.LLM.Model || cfg.LLM.QAModel != cfg.LLM.Model {
		t.Fatalf("expected tool/qa models to fall back to %s: %+v", cfg.LLM.Model, cfg.LLM)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SCOUT_AGENT_MAX_ITERATIONS", "3")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SERPER_API_KEY", "serper-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.MaxIterations != 3 {
		t.Fatalf("expected env override to 3, got %d", cfg.Agent.MaxIterations)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Fatalf("expected OPENAI_API_KEY binding, got %q", cfg.LLM.APIKey)
	}
	if cfg.Sources.WebSearch.APIKey() != "serper-test" {
		t.Fatalf("expected SERPER_API_KEY binding, got %q", cfg.Sources.WebSearch.APIKey())
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scout.yaml")
	body := []byte(`
llm:
  model: gpt-4o-mini
  qa_model: gpt-4o
tool:
  max_tokens: 1500
  fallback_ranking: true
agent:
  failed_sites_scope: session
fetch:
  timeout: 7s
`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.ToolModel != "gpt-4o-mini" || cfg.LLM.QAModel != "gpt-4o" {
		t.Fatalf("unexpected model routing: %+v", cfg.LLM)
	}
	if cfg.Tool.MaxTokens != 1500 || !cfg.Tool.FallbackRanking {
		t.Fatalf("unexpected tool config: %+v", cfg.Tool)
	}
	if cfg.Agent.FailedSitesScope != "session" {
		t.Fatalf("expected session scope, got %q", cfg.Agent.FailedSitesScope)
	}
	if cfg.Fetch.Timeout != 7*time.Second {
		t.Fatalf("expected 7s, got %v", cfg.Fetch.Timeout)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidateRejectsBadScope(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SCOUT_AGENT_FAILED_SITES_SCOPE", "forever")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for unknown failed sites scope")
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", User: "u", Password: "p", DBName: "scout"}
	want := "postgres://u:p@db:5432/scout?sslmode=disable"
	if got := p.DSN(); got != want {
		t.Fatalf("DSN = %q, want %q", got, want)
	}
	p.URL = "postgres://explicit"
	if got := p.DSN(); got != "postgres://explicit" {
		t.Fatalf("expected explicit url, got %q", got)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore Chdir: %v", err)
		}
	})
}
