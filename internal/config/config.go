package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL    string `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	GeminiAPIKey          string  `mapstructure:"GEMINI_API_KEY"`
	PlannerModel          string  `mapstructure:"PLANNER_MODEL"`
	PlannerTemperature    float32 `mapstructure:"PLANNER_TEMPERATURE"`
	ExtractorModel        string  `mapstructure:"EXTRACTOR_MODEL"`
	LLMTimeoutSeconds     int     `mapstructure:"LLM_TIMEOUT_SECONDS"`
	LLMBreakerMaxFailures uint32  `mapstructure:"LLM_BREAKER_MAX_FAILURES"`

	TriageLimit int `mapstructure:"TRIAGE_LIMIT"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"GEMINI_API_KEY", "PLANNER_MODEL", "PLANNER_TEMPERATURE", "EXTRACTOR_MODEL",
	"LLM_TIMEOUT_SECONDS", "LLM_BREAKER_MAX_FAILURES",
	"TRIAGE_LIMIT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("PLANNER_MODEL", "gemini-2.5-pro")
	v.SetDefault("PLANNER_TEMPERATURE", 0.2)
	v.SetDefault("EXTRACTOR_MODEL", "gemini-2.5-flash")
	v.SetDefault("LLM_TIMEOUT_SECONDS", 60)
	v.SetDefault("LLM_BREAKER_MAX_FAILURES", 5)
	v.SetDefault("TRIAGE_LIMIT", 10)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// LLMTimeout is the per-call deadline for plan generation and extraction.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

// Validate checks that the configuration is safe to run. Outside development
// a token verification source and the Gemini credential are mandatory.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.AuthIssuer == "" && c.AuthJWKSURL == "" && c.AuthSigningKey == "" {
			return fmt.Errorf(
				"one of AUTH_ISSUER, AUTH_JWKS_URL or AUTH_SIGNING_KEY must be set when ENV=%q", c.Env)
		}
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when ENV=%q", c.Env)
		}
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS (%d), got %d", c.DBMaxConns, c.DBMinConns)
	}
	if c.TriageLimit < 1 {
		return fmt.Errorf("TRIAGE_LIMIT must be positive, got %d", c.TriageLimit)
	}
	if c.LLMTimeoutSeconds < 1 {
		return fmt.Errorf("LLM_TIMEOUT_SECONDS must be positive, got %d", c.LLMTimeoutSeconds)
	}
	if c.PlannerTemperature < 0 || c.PlannerTemperature > 2 {
		return fmt.Errorf("PLANNER_TEMPERATURE must be within [0, 2], got %v", c.PlannerTemperature)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}
