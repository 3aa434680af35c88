package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server         ServerConfig         `koanf:"server"`
	IdentitySource IdentitySourceConfig `koanf:"identity_source"`
	TextModel      TextModelConfig      `koanf:"text_model"`
	Redis          RedisConfig          `koanf:"redis"`
	Audit          AuditConfig          `koanf:"audit"`
	Telemetry      TelemetryConfig      `koanf:"telemetry"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type IdentitySourceConfig struct {
	BaseURL        string        `koanf:"base_url" validate:"required,url"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
	// RequestsPerSecond bounds outbound query rate against the source.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int     `koanf:"burst" validate:"gt=0"`
}

type TextModelConfig struct {
	Enabled        bool          `koanf:"enabled"`
	BaseURL        string        `koanf:"base_url"`
	Model          string        `koanf:"model"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type RedisConfig struct {
	Enabled      bool          `koanf:"enabled"`
	URL          string        `koanf:"url"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	MaxRetries   int           `koanf:"max_retries"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	AnalysisTTL  time.Duration `koanf:"analysis_ttl"`
}

type AuditConfig struct {
	DefaultLimit    int `koanf:"default_limit" validate:"gt=0"`
	QuickLimit      int `koanf:"quick_limit" validate:"gt=0"`
	AnalysisWorkers int `koanf:"analysis_workers" validate:"gt=0"`
	StaleLoginDays  int `koanf:"stale_login_days" validate:"gt=0"`
}

type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	OTLPEndpoint string  `koanf:"otlp_endpoint"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"gte=0,lte=1"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8083,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		IdentitySource: IdentitySourceConfig{
			BaseURL:           "http://localhost:8082",
			RequestTimeout:    30 * time.Second,
			RequestsPerSecond: 20,
			Burst:             40,
		},
		TextModel: TextModelConfig{
			Enabled:        false,
			BaseURL:        "http://localhost:11434",
			Model:          "compliance-t5",
			RequestTimeout: 60 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:      false,
			URL:          "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			AnalysisTTL:  15 * time.Minute,
		},
		Audit: AuditConfig{
			DefaultLimit:    50,
			QuickLimit:      10,
			AnalysisWorkers: 8,
			StaleLoginDays:  90,
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			SamplingRate: 1.0,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional.
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	} else {
		_ = k.Load(file.Provider("configs/config.yaml"), yaml.Parser())
	}

	// Override with environment variables
	if err := k.Load(env.Provider("AUDIT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "AUDIT_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
