package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	inputDir      = "input"
	processingDir = "processing"
	outputDir     = "output"
)

type disposition int

const (
	dispositionTemporary disposition = iota
	dispositionDurable
)

// trackedPath is one registry entry. Keeping temporary and durable entries
// in a single list keeps the classification from drifting apart as paths
// are added.
type trackedPath struct {
	path string
	key  string
	disp disposition
}

// CacheFile describes a staged input. The hash is a pure function of the
// file's byte content.
type CacheFile struct {
	OriginalPath string
	StagedPath   string
	Hash         string
	Size         int64
	ModTime      time.Time
}

// Session is an isolated staging tree for one batch operation. The caller
// must call Cleanup on every exit path; promoted outputs survive it,
// everything else is removed.
type Session struct {
	id   string
	root string

	mu        sync.Mutex
	tracked   []trackedPath
	outputSeq int
}

func (s *Session) ID() string { return s.id }

func (s *Session) Root() string { return s.root }

func (s *Session) register(path, key string, disp disposition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked = append(s.tracked, trackedPath{path: path, key: key, disp: disp})
}

// StageInput copies the source file into input/ under a hash-qualified name
// that keeps the original extension. The source is never moved.
func (s *Session) StageInput(path string) (*CacheFile, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStaging, path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrStaging, path, err)
	}

	h := sha256.New()
	if _, err := io.Copy(h, src); err != nil {
		return nil, fmt.Errorf("%w: hash %s: %v", ErrStaging, path, err)
	}
	sum := hex.EncodeToString(h.Sum(nil))

	staged := filepath.Join(s.root, inputDir, sum+filepath.Ext(path))
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: rewind %s: %v", ErrStaging, path, err)
	}
	if err := copyToFile(staged, src); err != nil {
		return nil, fmt.Errorf("%w: copy %s: %v", ErrStaging, path, err)
	}
	s.register(staged, "", dispositionTemporary)

	slog.Debug("input staged", "session_id", s.id, "source", path, "staged", staged, "hash", sum)
	return &CacheFile{
		OriginalPath: path,
		StagedPath:   staged,
		Hash:         sum,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
	}, nil
}

// AllocateWorkFile reserves a path under processing/ and registers it for
// cleanup. The file itself is not created.
func (s *Session) AllocateWorkFile(name, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	path := filepath.Join(s.root, processingDir, name+ext)
	s.register(path, "", dispositionTemporary)
	return path
}

// SaveOutput writes an artifact under output/ keyed for later promotion.
// Repeated saves under the same key get a monotonically increasing suffix;
// ResolveOutput returns the latest one.
func (s *Session) SaveOutput(key string, content []byte) (string, error) {
	s.mu.Lock()
	s.outputSeq++
	seq := s.outputSeq
	s.mu.Unlock()

	path := filepath.Join(s.root, outputDir, fmt.Sprintf("%s-%04d.txt", key, seq))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write output %s: %w", key, err)
	}
	s.register(path, key, dispositionDurable)
	return path, nil
}

// ResolveOutput returns the most recently saved artifact for key.
func (s *Session) ResolveOutput(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.tracked) - 1; i >= 0; i-- {
		e := s.tracked[i]
		if e.disp == dispositionDurable && e.key == key {
			return e.path, nil
		}
	}
	return "", fmt.Errorf("%w: no artifact for key %q", ErrPromotion, key)
}

// Promote moves the latest artifact for each requested key into destDir
// under the requested final name. Keys are handled in sorted order; an
// unresolvable key aborts the call and artifacts moved before it stay at
// the destination. That non-rollback behavior is deliberate.
func (s *Session) Promote(destDir string, names map[string]string) (map[string]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create destination %s: %v", ErrPromotion, destDir, err)
	}

	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	promoted := make(map[string]string, len(names))
	for _, key := range keys {
		src, err := s.ResolveOutput(key)
		if err != nil {
			return promoted, err
		}
		dest := filepath.Join(destDir, names[key])
		if err := moveFile(src, dest); err != nil {
			return promoted, fmt.Errorf("%w: move %s to %s: %v", ErrPromotion, src, dest, err)
		}
		s.untrack(src)
		promoted[key] = dest
		slog.Debug("artifact promoted", "session_id", s.id, "key", key, "dest", dest)
	}
	return promoted, nil
}

func (s *Session) untrack(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.tracked {
		if e.path == path {
			s.tracked = append(s.tracked[:i], s.tracked[i+1:]...)
			return
		}
	}
}

// Cleanup removes every temporary path and then the session root. Removal
// failures are collected and reported together; the caller treats the
// result as best-effort since only temporary data is at stake.
func (s *Session) Cleanup() error {
	s.mu.Lock()
	tracked := s.tracked
	s.tracked = nil
	s.mu.Unlock()

	var errs []error
	for _, e := range tracked {
		if e.disp != dispositionTemporary {
			continue
		}
		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove %s: %w", e.path, err))
		}
	}
	if err := os.RemoveAll(s.root); err != nil {
		errs = append(errs, fmt.Errorf("remove session root %s: %w", s.root, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrCleanup, errors.Join(errs...))
	}
	return nil
}

func copyToFile(dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// moveFile renames src to dest, falling back to copy-then-delete when the
// rename crosses filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := copyToFile(dest, in); err != nil {
		return err
	}
	return os.Remove(src)
}
