// Package config assembles runtime settings from defaults, an optional YAML
// file and environment variables, in that order of precedence (last wins).
package config

import (
	"QuestionnaireBot/session"
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	SourceHTTP     = "http"
	SourceFile     = "file"
	SourceFirebase = "firebase"
)

type Config struct {
	LogLevel    string         `yaml:"log_level"`
	MetricsAddr string         `yaml:"metrics_addr"`
	Source      Source         `yaml:"source"`
	Telegram    Telegram       `yaml:"telegram"`
	Delays      session.Delays `yaml:"delays"`
}

type Source struct {
	Kind     string   `yaml:"kind"`
	BaseURL  string   `yaml:"base_url"`
	Dir      string   `yaml:"dir"`
	Firebase Firebase `yaml:"firebase"`
}

type Firebase struct {
	CredentialsFile string `yaml:"credentials_file"`
	DatabaseURL     string `yaml:"database_url"`
	QuestionsPath   string `yaml:"questions_path"`
	ResponsesPath   string `yaml:"responses_path"`
}

type Telegram struct {
	Token string `yaml:"token"`
	// ChatID pins the bot to one chat. Zero binds to the first chat that
	// writes to it.
	ChatID int64 `yaml:"chat_id"`
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Source: Source{
			Kind: SourceFile,
			Dir:  "data",
			Firebase: Firebase{
				QuestionsPath: "questions",
				ResponsesPath: "responses",
			},
		},
		Delays: session.DefaultDelays(),
	}
}

// Load reads path (if not empty) over the defaults, then applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("error reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.LogLevel = safeEnv("LOG_LEVEL", c.LogLevel)
	c.MetricsAddr = safeEnv("METRICS_ADDR", c.MetricsAddr)
	c.Source.Kind = safeEnv("QUESTIONNAIRE_SOURCE", c.Source.Kind)
	c.Source.BaseURL = safeEnv("QUESTIONNAIRE_BASE_URL", c.Source.BaseURL)
	c.Source.Dir = safeEnv("QUESTIONNAIRE_DIR", c.Source.Dir)
	c.Source.Firebase.CredentialsFile = safeEnv("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", c.Source.Firebase.CredentialsFile)
	c.Source.Firebase.DatabaseURL = safeEnv("FIREBASE_DATABASE_URL", c.Source.Firebase.DatabaseURL)
	c.Telegram.Token = safeEnv("TELEGRAM_BOT_TOKEN", c.Telegram.Token)

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	return nil
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	switch c.Source.Kind {
	case SourceHTTP:
		if c.Source.BaseURL == "" {
			return errors.New("http source needs QUESTIONNAIRE_BASE_URL")
		}
	case SourceFile:
		if c.Source.Dir == "" {
			return errors.New("file source needs QUESTIONNAIRE_DIR")
		}
	case SourceFirebase:
		if c.Source.Firebase.CredentialsFile == "" {
			return errors.New("FIREBASE_SERVICE_ACCOUNT_KEY_PATH environment variable not set")
		}
		if c.Source.Firebase.DatabaseURL == "" {
			return errors.New("FIREBASE_DATABASE_URL environment variable not set")
		}
	default:
		return fmt.Errorf("unknown questionnaire source %q", c.Source.Kind)
	}

	return c.Delays.Validate()
}

// Validate checks the settings the Telegram front end needs.
func (t Telegram) Validate() error {
	if t.Token == "" {
		return errors.New("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	return nil
}

// safeEnv returns the environment variable value for key, or fallback if empty.
func safeEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
