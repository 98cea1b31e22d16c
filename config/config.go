// Package config holds application configuration loaded from YAML with
// environment variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration lets YAML carry values like "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML accepts either a duration string or integer nanoseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Config holds application configuration
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		ConnectionString string `yaml:"connection_string"`
	} `yaml:"database"`
	Ollama struct {
		BaseURL      string `yaml:"base_url"`
		DefaultModel string `yaml:"default_model"`
	} `yaml:"ollama"`
	Embeddings struct {
		TextModel     string `yaml:"text_model"`
		OllamaBaseURL string `yaml:"ollama_base_url"`
		VisualBaseURL string `yaml:"visual_base_url"`
		MaxInputBytes int    `yaml:"max_input_bytes"`
	} `yaml:"embeddings"`
	Agent struct {
		MaxIterations  int      `yaml:"max_iterations"`
		ToolTimeout    Duration `yaml:"tool_timeout"`
		OverallTimeout Duration `yaml:"overall_timeout"`
	} `yaml:"agent"`
	Thumbnails struct {
		Provider  string   `yaml:"provider"` // s3, static, or none
		Bucket    string   `yaml:"bucket"`
		Region    string   `yaml:"region"`
		Endpoint  string   `yaml:"endpoint"`
		AccessKey string   `yaml:"access_key"`
		SecretKey string   `yaml:"secret_key"`
		BaseURL   string   `yaml:"base_url"`
		Expiry    Duration `yaml:"expiry"`
	} `yaml:"thumbnails"`
	Conversations struct {
		Store string `yaml:"store"` // postgres or memory
	} `yaml:"conversations"`
	Auth struct {
		Tokens         map[string]string `yaml:"tokens"` // token -> user id
		AllowAnonymous bool              `yaml:"allow_anonymous"`
	} `yaml:"auth"`
}

// Load loads configuration from the given file, falling back to defaults
// when the file does not exist. Environment variables override the secrets.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.Server.Addr = ":8080"
	cfg.Database.ConnectionString = "postgres://postgres@localhost/cg_assist?sslmode=disable"
	cfg.Ollama.BaseURL = "http://localhost:11434"
	cfg.Ollama.DefaultModel = ""
	cfg.Embeddings.TextModel = "all-minilm"
	cfg.Embeddings.OllamaBaseURL = "http://localhost:11434"
	cfg.Embeddings.VisualBaseURL = "http://localhost:8090"
	cfg.Agent.MaxIterations = 5
	cfg.Agent.ToolTimeout = Duration(30 * time.Second)
	cfg.Agent.OverallTimeout = Duration(2 * time.Minute)
	cfg.Thumbnails.Provider = "none"
	cfg.Thumbnails.Region = "us-east-1"
	cfg.Thumbnails.Expiry = Duration(time.Hour)
	cfg.Conversations.Store = "postgres"
	cfg.Auth.AllowAnonymous = true

	return cfg
}

// applyEnv overrides file values with environment variables where set.
func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.ConnectionString = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		c.Ollama.BaseURL = v
		c.Embeddings.OllamaBaseURL = v
	}
	if v := os.Getenv("THUMBNAIL_BUCKET"); v != "" {
		c.Thumbnails.Bucket = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" && c.Thumbnails.AccessKey == "" {
		c.Thumbnails.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" && c.Thumbnails.SecretKey == "" {
		c.Thumbnails.SecretKey = v
	}
}
