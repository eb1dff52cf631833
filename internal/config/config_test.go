package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into an empty directory so no stray .env is picked up
func chdir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	t.Chdir(dir)

	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, int64(50*1024*1024), cfg.Limits.MaxUploadSize)
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
	assert.Equal(t, "converted", cfg.Storage.ConvertedDir)
	assert.True(t, cfg.Storage.DeleteAfterDownload)
	assert.True(t, cfg.Security.CSRF)
	assert.True(t, cfg.InsecureSecret())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	dir := chdir(t)

	path := filepath.Join(dir, "pdfconvert.toml")
	content := `
[Server]
Addr = "127.0.0.1:9000"

[Storage]
UploadDir = "/tmp/in"
ConvertedDir = "/tmp/out"
Retention = "30m"
DeleteAfterDownload = false

[Limits]
MaxUploadSize = 1048576

[Security]
SessionSecret = "from-file"
CSRF = false

[Log]
Level = "debug"
Format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "/tmp/in", cfg.Storage.UploadDir)
	assert.Equal(t, "/tmp/out", cfg.Storage.ConvertedDir)
	assert.Equal(t, 30*time.Minute, cfg.Storage.Retention)
	assert.False(t, cfg.Storage.DeleteAfterDownload)
	assert.Equal(t, int64(1048576), cfg.Limits.MaxUploadSize)
	assert.Equal(t, "from-file", cfg.Security.SessionSecret)
	assert.False(t, cfg.Security.CSRF)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.InsecureSecret())

	// untouched keys keep their defaults
	assert.Equal(t, 5*time.Minute, cfg.Storage.SweepInterval)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t)

	t.Setenv("SESSION_SECRET", "from-env")
	t.Setenv("PDFCONVERT_ADDR", ":7000")
	t.Setenv("PDFCONVERT_MAX_UPLOAD_SIZE", "2048")
	t.Setenv("PDFCONVERT_RETENTION", "0s")
	t.Setenv("PDFCONVERT_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Security.SessionSecret)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, int64(2048), cfg.Limits.MaxUploadSize)
	assert.Zero(t, cfg.Storage.Retention)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdir(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PDFCONVERT_UPLOAD_DIR=dotenv-uploads\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("PDFCONVERT_UPLOAD_DIR") })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dotenv-uploads", cfg.Storage.UploadDir)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string) string
	}{
		{
			name: "missing file",
			setup: func(t *testing.T, dir string) string {
				return filepath.Join(dir, "nope.toml")
			},
		},
		{
			name: "malformed toml",
			setup: func(t *testing.T, dir string) string {
				path := filepath.Join(dir, "bad.toml")
				require.NoError(t, os.WriteFile(path, []byte("[Server\nAddr="), 0o600))
				return path
			},
		},
		{
			name: "bad size in env",
			setup: func(t *testing.T, _ string) string {
				t.Setenv("PDFCONVERT_MAX_UPLOAD_SIZE", "fifty")
				return ""
			},
		},
		{
			name: "bad retention in env",
			setup: func(t *testing.T, _ string) string {
				t.Setenv("PDFCONVERT_RETENTION", "forever")
				return ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := chdir(t)

			_, err := Load(tt.setup(t, dir))
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(c *Config)
		errorMatch string
	}{
		{"zero size", func(c *Config) { c.Limits.MaxUploadSize = 0 }, "max upload size"},
		{"no upload dir", func(c *Config) { c.Storage.UploadDir = "" }, "directories are required"},
		{"same dirs", func(c *Config) { c.Storage.ConvertedDir = "./uploads" }, "must differ"},
		{"negative retention", func(c *Config) { c.Storage.Retention = -time.Second }, "retention"},
		{"empty secret", func(c *Config) { c.Security.SessionSecret = "" }, "session secret"},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }, "log level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log format"},
		{"no addr", func(c *Config) { c.Server.Addr = "" }, "address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.errorMatch)
			}
		})
	}
}
