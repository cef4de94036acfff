package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind           string   `yaml:"bind"`
	Port           int      `yaml:"port"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	RuntimeName string          `yaml:"runtime_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	STT         STTConfig       `yaml:"stt"`
	Scorer      ScorerConfig    `yaml:"scorer"`
	Bus         BusConfig       `yaml:"bus"`
}

type STTConfig struct {
	Mode       string        `yaml:"mode"` // mock, cartesia, exec
	Endpoint   string        `yaml:"endpoint"`
	APIKey     string        `yaml:"api_key"`
	APIVersion string        `yaml:"api_version"`
	Model      string        `yaml:"model"`
	Language   string        `yaml:"language"`
	Command    string        `yaml:"command"`
	TimeoutMS  int           `yaml:"timeout_ms"`
	Breaker    BreakerConfig `yaml:"breaker"`
}

type BreakerConfig struct {
	MaxFailures int `yaml:"max_failures"`
	ResetMS     int `yaml:"reset_ms"`
}

type ScorerConfig struct {
	VocabularyPath    string  `yaml:"vocabulary_path"`
	TargetAnimals     int     `yaml:"target_animals"`
	RepetitionPenalty int     `yaml:"repetition_penalty"`
	FuzzyMatch        bool    `yaml:"fuzzy_match"`
	FuzzyThreshold    float64 `yaml:"fuzzy_threshold"`
}

type BusConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Embedded         bool     `yaml:"embedded"`
	Port             int      `yaml:"port"`
	Servers          []string `yaml:"servers"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	Token            string   `yaml:"token"`
	TLSInsecure      bool     `yaml:"tls_insecure"`
	ConnectTimeout   int      `yaml:"connect_timeout_ms"`
	ScoreTranscripts bool     `yaml:"score_transcripts"`
}

func Default() Config {
	return Config{
		RuntimeName: "loqa-fluency",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind:           "0.0.0.0",
			Port:           8000,
			MaxUploadBytes: 25 << 20,
			AllowedOrigins: []string{"*"},
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		STT: STTConfig{
			Mode:       "cartesia",
			Endpoint:   "https://api.cartesia.ai/stt",
			APIVersion: "2025-04-16",
			Model:      "ink-whisper",
			Language:   "en",
			TimeoutMS:  30000,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				ResetMS:     30000,
			},
		},
		Scorer: ScorerConfig{
			TargetAnimals:     15,
			RepetitionPenalty: 5,
			FuzzyMatch:        false,
			FuzzyThreshold:    0.88,
		},
		Bus: BusConfig{
			Enabled:          false,
			Embedded:         false,
			Port:             4222,
			Servers:          []string{"nats://localhost:4222"},
			ConnectTimeout:   2000,
			ScoreTranscripts: true,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "FLUENCY_RUNTIME_NAME")
	overrideString(&cfg.Environment, "FLUENCY_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "FLUENCY_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "FLUENCY_HTTP_PORT")
	overrideInt64(&cfg.HTTP.MaxUploadBytes, "FLUENCY_HTTP_MAX_UPLOAD_BYTES")
	overrideStringSlice(&cfg.HTTP.AllowedOrigins, "FLUENCY_HTTP_ALLOWED_ORIGINS")
	overrideString(&cfg.Telemetry.LogLevel, "FLUENCY_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "FLUENCY_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "FLUENCY_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "FLUENCY_TELEMETRY_PROMETHEUS_BIND")
	overrideString(&cfg.STT.Mode, "FLUENCY_STT_MODE")
	overrideString(&cfg.STT.Endpoint, "FLUENCY_STT_ENDPOINT")
	// CARTESIA_* are the provider's conventional names; the prefixed
	// variables win when both are set.
	overrideString(&cfg.STT.APIKey, "CARTESIA_API_KEY")
	overrideString(&cfg.STT.APIKey, "FLUENCY_STT_API_KEY")
	overrideString(&cfg.STT.APIVersion, "CARTESIA_VERSION")
	overrideString(&cfg.STT.APIVersion, "FLUENCY_STT_API_VERSION")
	overrideString(&cfg.STT.Model, "FLUENCY_STT_MODEL")
	overrideString(&cfg.STT.Language, "FLUENCY_STT_LANGUAGE")
	overrideString(&cfg.STT.Command, "FLUENCY_STT_COMMAND")
	overrideInt(&cfg.STT.TimeoutMS, "FLUENCY_STT_TIMEOUT_MS")
	overrideInt(&cfg.STT.Breaker.MaxFailures, "FLUENCY_STT_BREAKER_MAX_FAILURES")
	overrideInt(&cfg.STT.Breaker.ResetMS, "FLUENCY_STT_BREAKER_RESET_MS")
	overrideString(&cfg.Scorer.VocabularyPath, "FLUENCY_SCORER_VOCABULARY_PATH")
	overrideInt(&cfg.Scorer.TargetAnimals, "FLUENCY_SCORER_TARGET_ANIMALS")
	overrideInt(&cfg.Scorer.RepetitionPenalty, "FLUENCY_SCORER_REPETITION_PENALTY")
	overrideBool(&cfg.Scorer.FuzzyMatch, "FLUENCY_SCORER_FUZZY_MATCH")
	overrideFloat(&cfg.Scorer.FuzzyThreshold, "FLUENCY_SCORER_FUZZY_THRESHOLD")
	overrideBool(&cfg.Bus.Enabled, "FLUENCY_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "FLUENCY_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "FLUENCY_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "FLUENCY_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "FLUENCY_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "FLUENCY_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "FLUENCY_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "FLUENCY_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "FLUENCY_BUS_CONNECT_TIMEOUT_MS")
	overrideBool(&cfg.Bus.ScoreTranscripts, "FLUENCY_BUS_SCORE_TRANSCRIPTS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideInt64(target *int64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.HTTP.MaxUploadBytes <= 0 {
		return errors.New("http.max_upload_bytes must be positive")
	}
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}
	switch cfg.STT.Mode {
	case "mock", "cartesia", "exec":
	default:
		return errors.New("stt.mode must be one of mock|cartesia|exec")
	}
	if cfg.STT.Mode == "cartesia" && cfg.STT.Endpoint == "" {
		return errors.New("stt.endpoint must be set when mode=cartesia")
	}
	if cfg.STT.Mode == "exec" && cfg.STT.Command == "" {
		return errors.New("stt.command must be set when mode=exec")
	}
	if cfg.STT.TimeoutMS <= 0 {
		return errors.New("stt.timeout_ms must be positive")
	}
	if cfg.STT.Breaker.MaxFailures < 0 {
		return errors.New("stt.breaker.max_failures must be >= 0")
	}
	if cfg.Scorer.TargetAnimals <= 0 {
		return errors.New("scorer.target_animals must be positive")
	}
	if cfg.Scorer.RepetitionPenalty < 0 || cfg.Scorer.RepetitionPenalty > 100 {
		return errors.New("scorer.repetition_penalty must be between 0 and 100")
	}
	if cfg.Scorer.FuzzyMatch && (cfg.Scorer.FuzzyThreshold <= 0 || cfg.Scorer.FuzzyThreshold > 1) {
		return errors.New("scorer.fuzzy_threshold must be in (0, 1] when fuzzy matching is enabled")
	}
	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	return nil
}
