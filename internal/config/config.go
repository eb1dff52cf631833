// Package config loads service settings from defaults, an optional TOML
// file, an optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultSessionSecret is only suitable for local development
const DefaultSessionSecret = "dev-secret-key-change-in-production"

type Config struct {
	Server   Server
	Storage  Storage
	Limits   Limits
	Security Security
	Log      Log
}

type Server struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Storage struct {
	UploadDir           string
	ConvertedDir        string
	Retention           time.Duration // 0 keeps outputs until downloaded
	SweepInterval       time.Duration
	DeleteAfterDownload bool
}

type Limits struct {
	MaxUploadSize int64 // bytes
}

type Security struct {
	SessionSecret string
	CSRF          bool
	TokenTTL      time.Duration
}

type Log struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":5000",
			ReadTimeout:     2 * time.Minute,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage: Storage{
			UploadDir:           "uploads",
			ConvertedDir:        "converted",
			Retention:           time.Hour,
			SweepInterval:       5 * time.Minute,
			DeleteAfterDownload: true,
		},
		Limits: Limits{
			MaxUploadSize: 50 * 1024 * 1024,
		},
		Security: Security{
			SessionSecret: DefaultSessionSecret,
			CSRF:          true,
			TokenTTL:      2 * time.Hour,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to read .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString("SESSION_SECRET", &c.Security.SessionSecret)
	setString("PDFCONVERT_ADDR", &c.Server.Addr)
	setString("PDFCONVERT_UPLOAD_DIR", &c.Storage.UploadDir)
	setString("PDFCONVERT_CONVERTED_DIR", &c.Storage.ConvertedDir)
	setString("PDFCONVERT_LOG_LEVEL", &c.Log.Level)
	setString("PDFCONVERT_LOG_FORMAT", &c.Log.Format)

	if v := os.Getenv("PDFCONVERT_MAX_UPLOAD_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid PDFCONVERT_MAX_UPLOAD_SIZE %q: %w", v, err)
		}

		c.Limits.MaxUploadSize = n
	}

	if v := os.Getenv("PDFCONVERT_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PDFCONVERT_RETENTION %q: %w", v, err)
		}

		c.Storage.Retention = d
	}

	return nil
}

func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server address is required"))
	}

	if c.Limits.MaxUploadSize <= 0 {
		errs = append(errs, fmt.Errorf("max upload size must be positive, got %d", c.Limits.MaxUploadSize))
	}

	if c.Storage.UploadDir == "" || c.Storage.ConvertedDir == "" {
		errs = append(errs, errors.New("upload and converted directories are required"))
	} else if filepath.Clean(c.Storage.UploadDir) == filepath.Clean(c.Storage.ConvertedDir) {
		errs = append(errs, errors.New("upload and converted directories must differ"))
	}

	if c.Storage.Retention < 0 {
		errs = append(errs, errors.New("retention must not be negative"))
	}

	if c.Security.SessionSecret == "" {
		errs = append(errs, errors.New("session secret is required"))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// InsecureSecret reports whether the built-in development secret is in use
func (c Config) InsecureSecret() bool {
	return c.Security.SessionSecret == DefaultSessionSecret
}
