package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 8000 {
		t.Fatalf("expected default port 8000, got %d", cfg.HTTP.Port)
	}
	if cfg.STT.Mode != "cartesia" || cfg.STT.Model != "ink-whisper" {
		t.Fatalf("unexpected stt defaults %+v", cfg.STT)
	}
	if cfg.Scorer.TargetAnimals != 15 || cfg.Scorer.RepetitionPenalty != 5 {
		t.Fatalf("unexpected scorer defaults %+v", cfg.Scorer)
	}
	if cfg.Bus.Enabled {
		t.Fatal("expected bus disabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fluency.yaml")
	doc := `
runtime_name: clinic-demo
http:
  port: 9000
stt:
  mode: exec
  command: "whisper-cli --json"
scorer:
  target_animals: 20
  fuzzy_match: true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RuntimeName != "clinic-demo" || cfg.HTTP.Port != 9000 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.STT.Mode != "exec" || cfg.STT.Command != "whisper-cli --json" {
		t.Fatalf("unexpected stt config %+v", cfg.STT)
	}
	if cfg.Scorer.TargetAnimals != 20 || !cfg.Scorer.FuzzyMatch {
		t.Fatalf("unexpected scorer config %+v", cfg.Scorer)
	}
	if cfg.Scorer.RepetitionPenalty != 5 {
		t.Fatalf("expected unspecified fields to keep defaults, got %d", cfg.Scorer.RepetitionPenalty)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FLUENCY_HTTP_PORT", "8123")
	t.Setenv("FLUENCY_HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CARTESIA_API_KEY", "sk-provider")
	t.Setenv("FLUENCY_STT_MODE", "mock")
	t.Setenv("FLUENCY_SCORER_REPETITION_PENALTY", "10")
	t.Setenv("FLUENCY_SCORER_FUZZY_THRESHOLD", "0.9")
	t.Setenv("FLUENCY_BUS_ENABLED", "true")
	t.Setenv("FLUENCY_BUS_SERVERS", "nats://one:4222, nats://two:4222")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 8123 {
		t.Fatalf("expected port override, got %d", cfg.HTTP.Port)
	}
	if len(cfg.HTTP.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.HTTP.AllowedOrigins)
	}
	if cfg.STT.APIKey != "sk-provider" {
		t.Fatalf("expected api key from CARTESIA_API_KEY")
	}
	if cfg.STT.Mode != "mock" {
		t.Fatalf("expected stt mode override")
	}
	if cfg.Scorer.RepetitionPenalty != 10 || cfg.Scorer.FuzzyThreshold != 0.9 {
		t.Fatalf("unexpected scorer overrides %+v", cfg.Scorer)
	}
	if !cfg.Bus.Enabled || len(cfg.Bus.Servers) != 2 {
		t.Fatalf("unexpected bus overrides %+v", cfg.Bus)
	}

	t.Setenv("FLUENCY_STT_API_KEY", "sk-prefixed")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.STT.APIKey != "sk-prefixed" {
		t.Fatalf("expected prefixed key to win, got %q", cfg.STT.APIKey)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"bad port":          func(c *Config) { c.HTTP.Port = 0 },
		"bad upload limit":  func(c *Config) { c.HTTP.MaxUploadBytes = 0 },
		"bad log level":     func(c *Config) { c.Telemetry.LogLevel = "chatty" },
		"bad stt mode":      func(c *Config) { c.STT.Mode = "deepgram" },
		"exec no command":   func(c *Config) { c.STT.Mode = "exec" },
		"zero target":       func(c *Config) { c.Scorer.TargetAnimals = 0 },
		"negative penalty":  func(c *Config) { c.Scorer.RepetitionPenalty = -1 },
		"bad fuzzy":         func(c *Config) { c.Scorer.FuzzyMatch = true; c.Scorer.FuzzyThreshold = 1.5 },
		"bus without peers": func(c *Config) { c.Bus.Enabled = true; c.Bus.Servers = nil },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := validate(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := validate(Default()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
