package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Sentinel errors for the staging cache. Callers match with errors.Is.
var (
	ErrSetup     = errors.New("cache: session setup failed")
	ErrStaging   = errors.New("cache: staging failed")
	ErrPromotion = errors.New("cache: promotion failed")
	ErrCleanup   = errors.New("cache: cleanup failed")
)

const cacheRetention = 24 * time.Hour

// Manager owns the shared cache root. Each logical batch operation gets its
// own Session with a private staging subtree, so sessions never contend on
// the filesystem.
type Manager struct {
	root string
}

func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// tempRoot is where session staging trees live.
func (m *Manager) tempRoot() string {
	return filepath.Join(m.root, "temp")
}

// CreateSession allocates a uniquely named staging tree with input/,
// processing/ and output/ subdirectories. A session id collision means two
// sessions would share staging paths, which must never happen, so the
// create fails rather than reusing the directory.
func (m *Manager) CreateSession() (*Session, error) {
	id := fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())
	root := filepath.Join(m.tempRoot(), id)

	if err := os.MkdirAll(m.tempRoot(), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache root: %v", ErrSetup, err)
	}
	if err := os.Mkdir(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create session dir %s: %v", ErrSetup, root, err)
	}
	for _, sub := range []string{inputDir, processingDir, outputDir} {
		if err := os.Mkdir(filepath.Join(root, sub), 0o755); err != nil {
			_ = os.RemoveAll(root)
			return nil, fmt.Errorf("%w: create %s dir: %v", ErrSetup, sub, err)
		}
	}
	slog.Debug("processing session created", "session_id", id, "root", root)
	return &Session{id: id, root: root}, nil
}

// CleanupOldCache sweeps the shared cache root and removes entries whose
// modification time is older than the retention window. Unreadable entries
// are skipped; a sweep never fails the caller.
func (m *Manager) CleanupOldCache() error {
	cutoff := time.Now().Add(-cacheRetention)
	entries, err := os.ReadDir(m.tempRoot())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache root: %w", err)
	}
	removed := 0
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(m.tempRoot(), entry.Name())
		if err := os.RemoveAll(path); err != nil {
			slog.Warn("failed to remove stale cache entry", "path", path, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("stale cache entries removed", "count", removed)
	}
	return nil
}
