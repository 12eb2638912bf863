// Package config provides configuration loading and validation for the
// matching server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ScoringConfig holds settings for the batch scoring client.
type ScoringConfig struct {
	Provider string // "agent", "gemini" or "mock"
	AgentURL string // base URL of the comparison agent (agent provider)
	APIKey   string // Gemini API key (gemini provider)

	// Timeout budget for a batch call. ReadTimeout bounds the wait for
	// the agent's response headers and is the knob operators tune for
	// large batches; the others rarely need changing.
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PoolTimeout    time.Duration
}

// Config holds the full server configuration. It is loaded once at
// startup and injected into constructors; nothing reads the environment
// after Load returns.
type Config struct {
	Port        int
	DatabaseURL string

	JSONLog bool
	Debug   bool

	// BatchResumeLimit caps the resume set of a single batch match
	// request. DefaultResumeCap bounds the "all resumes" set used when
	// a batch request names no resumes.
	BatchResumeLimit int
	DefaultResumeCap int

	Scoring  ScoringConfig
	JWT      JWTConfig
	Password PasswordConfig
}

// Load reads configuration from an optional config file and the
// environment. Environment variables win over file values.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("log_json", false)
	v.SetDefault("debug", false)
	v.SetDefault("free_plan_resume_limit", 100)
	v.SetDefault("default_resume_cap", 1000)

	v.SetDefault("scoring.provider", "agent")
	v.SetDefault("scoring.agent_url", "http://localhost:9000")
	v.SetDefault("scoring.connect_timeout", "30s")
	v.SetDefault("scoring.read_timeout", "300s")
	v.SetDefault("scoring.write_timeout", "60s")
	v.SetDefault("scoring.pool_timeout", "30s")

	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("password.bcrypt_cost", 12)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Port:             v.GetInt("port"),
		DatabaseURL:      v.GetString("database_url"),
		JSONLog:          v.GetBool("log_json"),
		Debug:            v.GetBool("debug"),
		BatchResumeLimit: v.GetInt("free_plan_resume_limit"),
		DefaultResumeCap: v.GetInt("default_resume_cap"),
		Scoring: ScoringConfig{
			Provider:       v.GetString("scoring.provider"),
			AgentURL:       v.GetString("scoring.agent_url"),
			APIKey:         v.GetString("gemini_api_key"),
			ConnectTimeout: v.GetDuration("scoring.connect_timeout"),
			ReadTimeout:    v.GetDuration("scoring.read_timeout"),
			WriteTimeout:   v.GetDuration("scoring.write_timeout"),
			PoolTimeout:    v.GetDuration("scoring.pool_timeout"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("jwt.secret"),
			ExpirationHours: v.GetInt("jwt.expiration_hours"),
		},
		Password: PasswordConfig{
			BcryptCost: v.GetInt("password.bcrypt_cost"),
			Pepper:     v.GetString("password.pepper"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: port out of range: %d", c.Port)
	}
	if c.BatchResumeLimit < 1 {
		return fmt.Errorf("config error: free_plan_resume_limit must be positive")
	}

	switch c.Scoring.Provider {
	case "agent", "gemini", "mock":
	default:
		return fmt.Errorf("config error: unknown scoring provider: %q", c.Scoring.Provider)
	}
	if c.Scoring.Provider == "agent" && c.Scoring.AgentURL == "" {
		return fmt.Errorf("config error: scoring.agent_url is required for the agent provider")
	}
	if c.Scoring.Provider == "gemini" && c.Scoring.APIKey == "" {
		return fmt.Errorf("config error: GEMINI_API_KEY is required for the gemini provider")
	}

	if err := c.JWT.normalize(); err != nil {
		return err
	}
	return c.Password.normalize()
}
