package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
)

// Config holds the configuration for the resume ranking service
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Ranking RankingConfig `toml:"ranking"`
	Intake  IntakeConfig  `toml:"intake"`
	Fetcher FetcherConfig `toml:"fetcher"`
	Log     LogConfig     `toml:"log"`
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	MaxUploadBytes  int64    `toml:"max_upload_bytes"`
}

// RankingConfig holds ranking and result presentation settings
type RankingConfig struct {
	MinTokenLength int `toml:"min_token_length"`
	DefaultTopK    int `toml:"default_top_k"` // 0 returns every candidate
	SnippetLength  int `toml:"snippet_length"`
}

// IntakeConfig holds resume file intake limits
type IntakeConfig struct {
	MaxFileBytes int64 `toml:"max_file_bytes"`
}

// FetcherConfig holds job posting fetcher configuration
type FetcherConfig struct {
	Timeout             Duration `toml:"timeout"`
	UserAgent           string   `toml:"user_agent"`
	EnableRobotsCheck   bool     `toml:"enable_robots_check"`
	RobotsCacheDuration Duration `toml:"robots_cache_duration"`
	MinDelay            Duration `toml:"min_delay"` // between requests to one host, raised by robots.txt Crawl-delay
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text or json
}

// Duration is a time.Duration that reads from TOML strings such as "30s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(60 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
			MaxUploadBytes:  32 << 20,
		},
		Ranking: RankingConfig{
			MinTokenLength: 1,
			DefaultTopK:    0,
			SnippetLength:  200,
		},
		Intake: IntakeConfig{
			MaxFileBytes: 5 << 20,
		},
		Fetcher: FetcherConfig{
			Timeout:             Duration(30 * time.Second),
			UserAgent:           "ResumeRanker/1.0",
			EnableRobotsCheck:   true,
			RobotsCacheDuration: Duration(24 * time.Hour),
			MinDelay:            Duration(1 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// LoadFile reads a TOML file over the defaults, then applies environment
// overrides. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = GetStringEnv("SERVER_ADDR", c.Server.Addr)
	c.Server.ReadTimeout = Duration(GetDurationEnv("SERVER_READ_TIMEOUT", c.Server.ReadTimeout.Std()))
	c.Server.WriteTimeout = Duration(GetDurationEnv("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout.Std()))
	c.Server.ShutdownTimeout = Duration(GetDurationEnv("SERVER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout.Std()))
	c.Server.MaxUploadBytes = GetInt64Env("SERVER_MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)

	c.Ranking.MinTokenLength = GetIntEnv("RANKING_MIN_TOKEN_LENGTH", c.Ranking.MinTokenLength)
	c.Ranking.DefaultTopK = GetIntEnv("RANKING_DEFAULT_TOP_K", c.Ranking.DefaultTopK)
	c.Ranking.SnippetLength = GetIntEnv("RANKING_SNIPPET_LENGTH", c.Ranking.SnippetLength)

	c.Intake.MaxFileBytes = GetInt64Env("INTAKE_MAX_FILE_BYTES", c.Intake.MaxFileBytes)

	c.Fetcher.Timeout = Duration(GetDurationEnv("FETCHER_TIMEOUT", c.Fetcher.Timeout.Std()))
	c.Fetcher.UserAgent = GetStringEnv("FETCHER_USER_AGENT", c.Fetcher.UserAgent)
	c.Fetcher.EnableRobotsCheck = GetBoolEnv("FETCHER_ENABLE_ROBOTS_CHECK", c.Fetcher.EnableRobotsCheck)
	c.Fetcher.RobotsCacheDuration = Duration(GetDurationEnv("FETCHER_ROBOTS_CACHE_DURATION", c.Fetcher.RobotsCacheDuration.Std()))
	c.Fetcher.MinDelay = Duration(GetDurationEnv("FETCHER_MIN_DELAY", c.Fetcher.MinDelay.Std()))

	c.Log.Level = GetStringEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = GetStringEnv("LOG_FORMAT", c.Log.Format)
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must be set")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}
	if c.Ranking.MinTokenLength < 1 {
		return errors.New("ranking.min_token_length must be at least 1")
	}
	if c.Ranking.DefaultTopK < 0 {
		return errors.New("ranking.default_top_k must not be negative")
	}
	if c.Ranking.SnippetLength < 0 {
		return errors.New("ranking.snippet_length must not be negative")
	}
	if c.Intake.MaxFileBytes <= 0 {
		return errors.New("intake.max_file_bytes must be positive")
	}
	if c.Fetcher.Timeout <= 0 {
		return errors.New("fetcher.timeout must be positive")
	}
	if c.Fetcher.MinDelay < 0 {
		return errors.New("fetcher.min_delay must not be negative")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// NewLogger builds a logrus logger from the log section. Invalid levels fall
// back to info; call Validate first to reject them.
func (l LogConfig) NewLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	if l.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func GetStringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
