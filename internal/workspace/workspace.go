// Package workspace owns the two on-disk areas of the service: the uploads
// area holding inputs while they are converted, and the converted area
// holding outputs until they are downloaded or expire.
//
// File names in both areas are generated from random tokens. User supplied
// names are only ever used as display names.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for download tokens this process never issued
var ErrNotFound = errors.New("file not found or expired")

// Handle is the per-request pair of generated paths
type Handle struct {
	Token       string // public download identifier, the output file name
	InputPath   string
	OutputPath  string
	DisplayName string
}

// Download describes a retrievable output
type Download struct {
	Token       string
	Path        string
	DisplayName string
	CreatedAt   time.Time
}

type entry struct {
	displayName string
	createdAt   time.Time
}

type Manager struct {
	uploadDir    string
	convertedDir string
	log          *slog.Logger
	now          func() time.Time

	mu     sync.Mutex
	issued map[string]entry
}

// New creates both directories if they are missing
func New(uploadDir, convertedDir string) (*Manager, error) {
	if uploadDir == "" || convertedDir == "" {
		return nil, errors.New("upload and converted directories are required")
	}

	dirs := make([]string, 0, 2)

	for _, dir := range []string{uploadDir, convertedDir} {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve directory %s: %w", dir, err)
		}

		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", abs, err)
		}

		dirs = append(dirs, abs)
	}

	if dirs[0] == dirs[1] {
		return nil, errors.New("upload and converted directories must differ")
	}

	return &Manager{
		uploadDir:    dirs[0],
		convertedDir: dirs[1],
		log:          slog.Default().With("component", "workspace"),
		now:          time.Now,
		issued:       make(map[string]entry),
	}, nil
}

func (m *Manager) UploadDir() string {
	return m.uploadDir
}

func (m *Manager) ConvertedDir() string {
	return m.convertedDir
}

// Allocate reserves fresh input and output paths for one request. ext is the
// output extension including the dot.
func (m *Manager) Allocate(originalName, ext string) *Handle {
	token := uuid.NewString()

	return &Handle{
		Token:       token + ext,
		InputPath:   filepath.Join(m.uploadDir, token+".pdf"),
		OutputPath:  filepath.Join(m.convertedDir, token+ext),
		DisplayName: DisplayName(originalName, ext),
	}
}

// WriteInput stores the uploaded bytes. It refuses to overwrite an existing file.
func (m *Manager) WriteInput(h *Handle, data []byte) error {
	f, err := os.OpenFile(h.InputPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create input file: %w", err)
	}

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write input file: %w", err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close input file: %w", err)
	}

	return nil
}

// Commit makes the output of h retrievable through Resolve
func (m *Manager) Commit(h *Handle) error {
	info, err := os.Stat(h.OutputPath)
	if err != nil {
		return fmt.Errorf("output file missing after conversion: %w", err)
	}

	if !info.Mode().IsRegular() || info.Size() == 0 {
		return fmt.Errorf("output file is not a regular non-empty file")
	}

	m.mu.Lock()
	m.issued[h.Token] = entry{displayName: h.DisplayName, createdAt: m.now()}
	m.mu.Unlock()

	return nil
}

// Release removes the input file, and the output file unless the
// conversion succeeded.
func (m *Manager) Release(h *Handle, succeeded bool) {
	m.remove(h.InputPath)

	if !succeeded {
		m.mu.Lock()
		delete(m.issued, h.Token)
		m.mu.Unlock()

		m.remove(h.OutputPath)
	}
}

// Resolve maps a download token to a committed output inside the converted
// directory. Anything else yields ErrNotFound.
func (m *Manager) Resolve(token string) (Download, error) {
	if !wellFormedToken(token) {
		return Download{}, ErrNotFound
	}

	m.mu.Lock()
	e, ok := m.issued[token]
	m.mu.Unlock()

	if !ok {
		return Download{}, ErrNotFound
	}

	path := filepath.Join(m.convertedDir, token)

	rel, err := filepath.Rel(m.convertedDir, path)
	if err != nil || rel != token {
		return Download{}, ErrNotFound
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		m.forget(token)
		return Download{}, ErrNotFound
	}

	return Download{
		Token:       token,
		Path:        path,
		DisplayName: e.displayName,
		CreatedAt:   e.createdAt,
	}, nil
}

// Consume removes a download once it has been served
func (m *Manager) Consume(token string) {
	if !wellFormedToken(token) {
		return
	}

	m.forget(token)
	m.remove(filepath.Join(m.convertedDir, token))
}

// Sweep deletes outputs older than maxAge together with stale inputs and
// unregistered leftovers in the converted directory. It returns the number of
// files removed.
func (m *Manager) Sweep(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)
	removed := 0

	m.mu.Lock()
	for token, e := range m.issued {
		if e.createdAt.Before(cutoff) {
			delete(m.issued, token)
		}
	}
	m.mu.Unlock()

	removed += m.sweepDir(m.uploadDir, cutoff, func(string) bool { return false })
	removed += m.sweepDir(m.convertedDir, cutoff, m.isIssued)

	return removed
}

// RunSweeper calls Sweep every interval until ctx is done
func (m *Manager) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 || maxAge <= 0 {
		m.log.Info("Retention sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(maxAge); n > 0 {
				m.log.Info("Expired files removed", "count", n)
			}
		}
	}
}

func (m *Manager) sweepDir(dir string, cutoff time.Time, keep func(string) bool) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		m.log.Warn("Failed to list directory", "dir", dir, "error", err)
		return 0
	}

	removed := 0

	for _, de := range entries {
		if !de.Type().IsRegular() || keep(de.Name()) {
			continue
		}

		info, err := de.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(dir, de.Name())); err == nil {
			removed++
		}
	}

	return removed
}

func (m *Manager) isIssued(token string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.issued[token]

	return ok
}

func (m *Manager) forget(token string) {
	m.mu.Lock()
	delete(m.issued, token)
	m.mu.Unlock()
}

func (m *Manager) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.log.Warn("Failed to remove file", "path", path, "error", err)
	}
}

func wellFormedToken(token string) bool {
	if token == "" || token == "." || strings.Contains(token, "..") {
		return false
	}

	return !strings.ContainsAny(token, `/\`+"\x00") && filepath.Base(token) == token
}
