package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(t.TempDir())
}

func writeSourceFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}
	return path
}

func TestCreateSession_Layout(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer sess.Cleanup()

	for _, sub := range []string{"input", "processing", "output"} {
		if _, err := os.Stat(filepath.Join(sess.Root(), sub)); err != nil {
			t.Errorf("expected %s subtree to exist: %v", sub, err)
		}
	}
}

func TestCreateSession_UniqueRoots(t *testing.T) {
	m := newTestManager(t)
	a, err := m.CreateSession()
	if err != nil {
		t.Fatalf("create first session: %v", err)
	}
	defer a.Cleanup()
	b, err := m.CreateSession()
	if err != nil {
		t.Fatalf("create second session: %v", err)
	}
	defer b.Cleanup()

	if a.Root() == b.Root() {
		t.Fatalf("sessions share a staging root: %s", a.Root())
	}
}

func TestStageInput_RoundTrip(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer sess.Cleanup()

	content := []byte("raw audio bytes")
	src := writeSourceFile(t, t.TempDir(), "note.wav", content)

	cf, err := sess.StageInput(src)
	if err != nil {
		t.Fatalf("stage input: %v", err)
	}
	if filepath.Ext(cf.StagedPath) != ".wav" {
		t.Errorf("staged path lost original extension: %s", cf.StagedPath)
	}
	staged, err := os.ReadFile(cf.StagedPath)
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if !bytes.Equal(staged, content) {
		t.Error("staged bytes differ from source bytes")
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source file must not be moved: %v", err)
	}
	if cf.Size != int64(len(content)) {
		t.Errorf("expected size %d, got %d", len(content), cf.Size)
	}
}

func TestStageInput_HashDeterministicAndContentSensitive(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer sess.Cleanup()

	dir := t.TempDir()
	a := writeSourceFile(t, dir, "a.wav", []byte("identical content"))
	b := writeSourceFile(t, dir, "b.wav", []byte("identical content"))
	c := writeSourceFile(t, dir, "c.wav", []byte("identical content!"))

	cfA, err := sess.StageInput(a)
	if err != nil {
		t.Fatalf("stage a: %v", err)
	}
	cfB, err := sess.StageInput(b)
	if err != nil {
		t.Fatalf("stage b: %v", err)
	}
	cfC, err := sess.StageInput(c)
	if err != nil {
		t.Fatalf("stage c: %v", err)
	}

	if cfA.Hash != cfB.Hash {
		t.Errorf("identical content produced different hashes: %s vs %s", cfA.Hash, cfB.Hash)
	}
	if cfA.Hash == cfC.Hash {
		t.Error("different content produced the same hash")
	}
}

func TestStageInput_MissingSource(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer sess.Cleanup()

	if _, err := sess.StageInput(filepath.Join(t.TempDir(), "missing.wav")); !errors.Is(err, ErrStaging) {
		t.Fatalf("expected ErrStaging, got %v", err)
	}
}

func TestAllocateWorkFile_NotCreated(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer sess.Cleanup()

	path := sess.AllocateWorkFile("segment-0", "wav")
	if filepath.Dir(path) != filepath.Join(sess.Root(), "processing") {
		t.Errorf("work file allocated outside processing/: %s", path)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("work file must not be created eagerly: %v", err)
	}
}

func TestResolveOutput_LatestWins(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer sess.Cleanup()

	if _, err := sess.SaveOutput("transcript", []byte("first")); err != nil {
		t.Fatalf("save first output: %v", err)
	}
	latest, err := sess.SaveOutput("transcript", []byte("second"))
	if err != nil {
		t.Fatalf("save second output: %v", err)
	}

	resolved, err := sess.ResolveOutput("transcript")
	if err != nil {
		t.Fatalf("resolve output: %v", err)
	}
	if resolved != latest {
		t.Errorf("expected latest artifact %s, got %s", latest, resolved)
	}
}

func TestPromote_AllKeysResolvable(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer sess.Cleanup()

	if _, err := sess.SaveOutput("transcript", []byte("full text")); err != nil {
		t.Fatalf("save transcript: %v", err)
	}
	if _, err := sess.SaveOutput("summary", []byte("short text")); err != nil {
		t.Fatalf("save summary: %v", err)
	}

	dest := t.TempDir()
	promoted, err := sess.Promote(dest, map[string]string{
		"transcript": "note.txt",
		"summary":    "note-summary.txt",
	})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}

	for key, name := range map[string]string{"transcript": "note.txt", "summary": "note-summary.txt"} {
		want := filepath.Join(dest, name)
		if promoted[key] != want {
			t.Errorf("key %s promoted to %s, want %s", key, promoted[key], want)
		}
		if _, err := os.Stat(want); err != nil {
			t.Errorf("promoted file missing: %v", err)
		}
	}
}

func TestPromote_MissingKeyKeepsEarlierMoves(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer sess.Cleanup()

	// Keys are promoted in sorted order, so "aaa" moves before "zzz" fails.
	if _, err := sess.SaveOutput("aaa", []byte("moved first")); err != nil {
		t.Fatalf("save output: %v", err)
	}

	dest := t.TempDir()
	_, err = sess.Promote(dest, map[string]string{
		"aaa": "first.txt",
		"zzz": "never.txt",
	})
	if !errors.Is(err, ErrPromotion) {
		t.Fatalf("expected ErrPromotion, got %v", err)
	}

	// Earlier moves are not rolled back.
	if _, err := os.Stat(filepath.Join(dest, "first.txt")); err != nil {
		t.Errorf("previously promoted file must remain at destination: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "never.txt")); !os.IsNotExist(err) {
		t.Errorf("unresolved key must not produce a file: %v", err)
	}
}

func TestCleanup_RemovesTemporaryAndRoot(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	src := writeSourceFile(t, t.TempDir(), "note.wav", []byte("audio"))
	cf, err := sess.StageInput(src)
	if err != nil {
		t.Fatalf("stage input: %v", err)
	}
	work := sess.AllocateWorkFile("chunk", "wav")
	if err := os.WriteFile(work, []byte("chunk"), 0o644); err != nil {
		t.Fatalf("write work file: %v", err)
	}

	if err := sess.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	for _, path := range []string{cf.StagedPath, work, sess.Root()} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("expected %s to be removed, got %v", path, err)
		}
	}
}

func TestCleanup_Idempotent(t *testing.T) {
	m := newTestManager(t)
	sess, err := m.CreateSession()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := sess.Cleanup(); err != nil {
		t.Fatalf("first cleanup: %v", err)
	}
	if err := sess.Cleanup(); err != nil {
		t.Fatalf("second cleanup: %v", err)
	}
}

func TestCleanupOldCache_RemovesStaleOnly(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root)

	stale := filepath.Join(root, "temp", "stale-session")
	fresh := filepath.Join(root, "temp", "fresh-session")
	for _, dir := range []string{stale, fresh} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	old := time.Now().Add(-25 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if err := m.CleanupOldCache(); err != nil {
		t.Fatalf("cleanup old cache: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale entry should be removed, got %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh entry should survive: %v", err)
	}
}

func TestCleanupOldCache_MissingRoot(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := m.CleanupOldCache(); err != nil {
		t.Fatalf("expected nil for missing cache root, got %v", err)
	}
}
