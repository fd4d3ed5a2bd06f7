package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "SESSION_WINDOW", "SESSION_MAX", "SESSION_REDIS_TTL_SECONDS",
		"RETRIEVAL_TOP_K", "RETRIEVAL_CHUNK_SIZE", "RETRIEVAL_CHUNK_OVERLAP", "SPEECH_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Session.Window != 3 {
		t.Fatalf("expected window 3, got %d", cfg.Session.Window)
	}
	if cfg.Session.MaxSessions != 1024 {
		t.Fatalf("expected 1024 max sessions, got %d", cfg.Session.MaxSessions)
	}
	if cfg.Session.RedisTTL != 30*time.Minute {
		t.Fatalf("expected 30m redis ttl, got %s", cfg.Session.RedisTTL)
	}
	if cfg.Retrieval.TopK != 4 {
		t.Fatalf("expected top-k 4, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.ChunkSize != 500 || cfg.Retrieval.ChunkOverlap != 100 {
		t.Fatalf("expected chunk 500/100, got %d/%d", cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	}
	if cfg.Speech.Timeout != 30*time.Second {
		t.Fatalf("expected 30s speech timeout, got %s", cfg.Speech.Timeout)
	}
}

func TestLoadPortForms(t *testing.T) {
	t.Setenv("PORT", "9090")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("expected :9090, got %s", cfg.Server.Addr)
	}

	t.Setenv("PORT", "127.0.0.1:9090")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9090" {
		t.Fatalf("expected host:port form to pass through, got %s", cfg.Server.Addr)
	}
}

func TestLoadRejectsOverlapNotSmallerThanSize(t *testing.T) {
	t.Setenv("RETRIEVAL_CHUNK_SIZE", "100")
	t.Setenv("RETRIEVAL_CHUNK_OVERLAP", "100")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for overlap >= size")
	}
}

func TestLoadRejectsInvalidWindow(t *testing.T) {
	t.Setenv("SESSION_WINDOW", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for window below 1")
	}
}

func TestAIConfigEnabled(t *testing.T) {
	cases := []struct {
		name string
		cfg  AIConfig
		want bool
	}{
		{"empty", AIConfig{}, false},
		{"model only", AIConfig{Model: "m"}, false},
		{"api key", AIConfig{Model: "m", APIKey: "k"}, true},
		{"ak/sk pair", AIConfig{Model: "m", AccessKey: "ak", SecretKey: "sk"}, true},
		{"ak without sk", AIConfig{Model: "m", AccessKey: "ak"}, false},
	}

	for _, tc := range cases {
		if got := tc.cfg.Enabled(); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestParseBoolEnv(t *testing.T) {
	t.Setenv("PLANNER_LLM_ENABLED", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.AI.PlannerLLMEnabled {
		t.Fatalf("expected planner llm enabled")
	}

	t.Setenv("PLANNER_LLM_ENABLED", "not-a-bool")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid bool")
	}
}
