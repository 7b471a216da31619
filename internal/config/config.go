package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultJWTExpiresIn    = "24h"
	DefaultGraphAPIBaseURL = "https://graph.facebook.com"
	DefaultGraphAPIVersion = "v23.0"
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "mbot"
	DefaultPGSSLMode       = "disable"
	DefaultSQLitePath      = "data/mbot.db"
	DefaultPromptDir       = "prompts"
	DefaultStorageBackend  = "postgres"
)

// DefaultModels is the completion model priority used when none is configured.
var DefaultModels = []string{"gemini-2.5-flash", "gemini-2.5-flash-lite", "gemini-2.0-flash"}

type Config struct {
	Log        LogConfig        `toml:"log" yaml:"log"`
	Server     ServerConfig     `toml:"server" yaml:"server"`
	Admin      AdminConfig      `toml:"admin" yaml:"admin"`
	Auth       AuthConfig       `toml:"auth" yaml:"auth"`
	Messenger  MessengerConfig  `toml:"messenger" yaml:"messenger"`
	Completion CompletionConfig `toml:"completion" yaml:"completion"`
	Dedup      DedupConfig      `toml:"dedup" yaml:"dedup"`
	Session    SessionConfig    `toml:"session" yaml:"session"`
	Storage    StorageConfig    `toml:"storage" yaml:"storage"`
	Postgres   PostgresConfig   `toml:"postgres" yaml:"postgres"`
	SQLite     SQLiteConfig     `toml:"sqlite" yaml:"sqlite"`
	Retention  RetentionConfig  `toml:"retention" yaml:"retention"`
	Prompts    PromptsConfig    `toml:"prompts" yaml:"prompts"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `toml:"format" yaml:"format" validate:"omitempty,oneof=text json pretty"`
}

type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr" validate:"required"`
}

type AdminConfig struct {
	Username string `toml:"username" yaml:"username"`
	Password string `toml:"password" yaml:"password"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret" yaml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in" yaml:"jwt_expires_in"`
}

// MessengerConfig holds the page credentials. An empty AppSecret makes every
// signed webhook request fail verification.
type MessengerConfig struct {
	PageAccessToken    string `toml:"page_access_token" yaml:"page_access_token"`
	AppSecret          string `toml:"app_secret" yaml:"app_secret"`
	VerifyToken        string `toml:"verify_token" yaml:"verify_token"`
	GraphAPIBaseURL    string `toml:"graph_api_base_url" yaml:"graph_api_base_url" validate:"required,url"`
	GraphAPIVersion    string `toml:"graph_api_version" yaml:"graph_api_version" validate:"required"`
	SendTimeoutSeconds int    `toml:"send_timeout_seconds" yaml:"send_timeout_seconds" validate:"gte=0"`
}

type CompletionConfig struct {
	APIKey              string   `toml:"api_key" yaml:"api_key"`
	Models              []string `toml:"models" yaml:"models" validate:"min=1,dive,required"`
	Temperature         float32  `toml:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	TimeoutSeconds      int      `toml:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=0"`
	MediaModel          string   `toml:"media_model" yaml:"media_model"`
	MediaTimeoutSeconds int      `toml:"media_timeout_seconds" yaml:"media_timeout_seconds" validate:"gte=0"`
	MediaMaxBytes       int64    `toml:"media_max_bytes" yaml:"media_max_bytes" validate:"gte=0"`
	MediaInstruction    string   `toml:"media_instruction" yaml:"media_instruction"`
	ReplyPolicy         string   `toml:"reply_policy" yaml:"reply_policy" validate:"omitempty,oneof=marker marker_with_text"`
}

type DedupConfig struct {
	TTLSeconds int `toml:"ttl_seconds" yaml:"ttl_seconds" validate:"gte=0"`
	Capacity   int `toml:"capacity" yaml:"capacity" validate:"gte=0"`
}

type SessionConfig struct {
	MaxHistoryTurns int `toml:"max_history_turns" yaml:"max_history_turns" validate:"gte=0"`
}

type StorageConfig struct {
	Backend string `toml:"backend" yaml:"backend" validate:"oneof=postgres sqlite memory"`
}

type PostgresConfig struct {
	URL      string `toml:"url" yaml:"url"`
	Host     string `toml:"host" yaml:"host"`
	Port     int    `toml:"port" yaml:"port"`
	User     string `toml:"user" yaml:"user"`
	Password string `toml:"password" yaml:"password"`
	Database string `toml:"database" yaml:"database"`
	SSLMode  string `toml:"sslmode" yaml:"sslmode"`
}

// DSN returns URL when set, otherwise a connection string built from the parts.
func (c PostgresConfig) DSN() string {
	if strings.TrimSpace(c.URL) != "" {
		return strings.TrimSpace(c.URL)
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

type SQLiteConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// RetentionConfig drives the optional conversation sweeper. An empty
// Schedule disables it.
type RetentionConfig struct {
	Schedule   string `toml:"schedule" yaml:"schedule"`
	MaxAgeDays int    `toml:"max_age_days" yaml:"max_age_days" validate:"gte=0"`
}

type PromptsConfig struct {
	Dir string `toml:"dir" yaml:"dir"`
}

func (c MessengerConfig) SendTimeout() time.Duration {
	return secondsOr(c.SendTimeoutSeconds, 10*time.Second)
}

func (c CompletionConfig) Timeout() time.Duration {
	return secondsOr(c.TimeoutSeconds, 30*time.Second)
}

func (c CompletionConfig) MediaTimeout() time.Duration {
	return secondsOr(c.MediaTimeoutSeconds, 20*time.Second)
}

func (c DedupConfig) TTL() time.Duration {
	return secondsOr(c.TTLSeconds, 10*time.Minute)
}

func (c AuthConfig) ExpiresIn() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.JWTExpiresIn))
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "change-your-password-here",
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Messenger: MessengerConfig{
			GraphAPIBaseURL:    DefaultGraphAPIBaseURL,
			GraphAPIVersion:    DefaultGraphAPIVersion,
			SendTimeoutSeconds: 10,
		},
		Completion: CompletionConfig{
			Models:              append([]string(nil), DefaultModels...),
			Temperature:         0.7,
			TimeoutSeconds:      30,
			MediaModel:          "gemini-2.5-flash",
			MediaTimeoutSeconds: 20,
			MediaMaxBytes:       8 << 20,
			MediaInstruction:    "Describe what this contains in one or two short sentences.",
			ReplyPolicy:         "marker",
		},
		Dedup: DedupConfig{
			TTLSeconds: 600,
			Capacity:   10000,
		},
		Session: SessionConfig{
			MaxHistoryTurns: 20,
		},
		Storage: StorageConfig{
			Backend: DefaultStorageBackend,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		SQLite: SQLiteConfig{
			Path: DefaultSQLitePath,
		},
		Retention: RetentionConfig{
			MaxAgeDays: 180,
		},
		Prompts: PromptsConfig{
			Dir: DefaultPromptDir,
		},
	}
}

// Load reads path (TOML, or YAML for .yaml/.yml) over the defaults, applies
// environment overrides and validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
	} else if err := decodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg, os.Getenv)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return yaml.Unmarshal(raw, cfg)
	default:
		_, err := toml.DecodeFile(path, cfg)
		return err
	}
}

// applyEnv lets the deployment environment override secrets, using the
// variable names the page was originally deployed with.
func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.Messenger.PageAccessToken, "FB_PAGE_ACCESS_TOKEN")
	set(&cfg.Messenger.AppSecret, "FB_APP_SECRET")
	set(&cfg.Messenger.VerifyToken, "FB_VERIFY_TOKEN")
	set(&cfg.Completion.APIKey, "GEMINI_API_KEY")
	set(&cfg.Postgres.URL, "DATABASE_URL")
	set(&cfg.Auth.JWTSecret, "JWT_SECRET")
}

// Validate checks struct constraints.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
