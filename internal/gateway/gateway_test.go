package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minutelab/minute/internal/audio"
	"github.com/minutelab/minute/internal/cache"
	"github.com/minutelab/minute/internal/repository"
	"github.com/minutelab/minute/internal/transcriber"
	"github.com/minutelab/minute/internal/webhook"
)

// echoTranscriber returns each segment's bytes as its transcript, which
// makes segment ordering observable in the joined result.
type echoTranscriber struct {
	calls int
	err   error
}

func (e *echoTranscriber) TranscribeAudio(_ context.Context, data []byte) (string, error) {
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	return string(data), nil
}

type fixedSummarizer struct {
	summary string
	err     error
}

func (f *fixedSummarizer) Summarize(_ context.Context, _ string) (string, error) {
	return f.summary, f.err
}

// wholeFileSegmenter passes the staged file through as a single segment.
type wholeFileSegmenter struct{}

func (wholeFileSegmenter) Split(_ context.Context, stagedPath string, _ audio.WorkFileAllocator) ([]string, error) {
	return []string{stagedPath}, nil
}

// fixedSegmenter writes a predefined set of segment files through the
// allocator, ignoring the staged content.
type fixedSegmenter struct {
	contents []string
}

func (f *fixedSegmenter) Split(_ context.Context, _ string, alloc audio.WorkFileAllocator) ([]string, error) {
	paths := make([]string, len(f.contents))
	for i, content := range f.contents {
		path := alloc.AllocateWorkFile(fmt.Sprintf("segment-%03d", i), "wav")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, err
		}
		paths[i] = path
	}
	return paths, nil
}

type recordingRepo struct {
	created   []repository.CreateJobInput
	completed []repository.CompleteJobInput
	failed    []repository.FailJobInput
	segments  []repository.InsertSegmentInput
}

func (r *recordingRepo) CreateJob(_ context.Context, input repository.CreateJobInput) (*repository.Job, error) {
	r.created = append(r.created, input)
	return &repository.Job{ID: fmt.Sprintf("job-%d", len(r.created)), SessionID: input.SessionID, Status: repository.JobStatusRunning}, nil
}

func (r *recordingRepo) CompleteJob(_ context.Context, input repository.CompleteJobInput) error {
	r.completed = append(r.completed, input)
	return nil
}

func (r *recordingRepo) FailJob(_ context.Context, input repository.FailJobInput) error {
	r.failed = append(r.failed, input)
	return nil
}

func (r *recordingRepo) InsertSegment(_ context.Context, input repository.InsertSegmentInput) error {
	r.segments = append(r.segments, input)
	return nil
}

func (r *recordingRepo) ListSegmentsByJobID(_ context.Context, _ string) ([]repository.TranscriptSegment, error) {
	return nil, nil
}

type recordingWebhook struct {
	payloads []webhook.TranscriptPayload
}

func (r *recordingWebhook) SendTranscript(_ context.Context, payload webhook.TranscriptPayload) error {
	r.payloads = append(r.payloads, payload)
	return nil
}

func writeRecording(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meeting.wav")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
	return path
}

// assertNoStagingLeft fails if any session staging tree survived.
func assertNoStagingLeft(t *testing.T, cacheRoot string) {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(cacheRoot, "temp"))
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		t.Fatalf("read temp root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no leftover sessions, found %d", len(entries))
	}
}

func TestTranscribeFile_SingleSegment(t *testing.T) {
	cacheRoot := t.TempDir()
	stt := &echoTranscriber{}
	g := New(stt, nil, wholeFileSegmenter{}, nil, cache.NewManager(cacheRoot), nil, nil)

	src := writeRecording(t, "hello from the recording")
	full, segmentPaths, err := g.TranscribeFile(context.Background(), src, "")
	if err != nil {
		t.Fatalf("transcribe file: %v", err)
	}
	if full != "hello from the recording" {
		t.Fatalf("unexpected transcript: %q", full)
	}
	if len(segmentPaths) != 1 {
		t.Fatalf("expected one segment reference, got %d", len(segmentPaths))
	}
	if stt.calls != 1 {
		t.Fatalf("expected one provider call, got %d", stt.calls)
	}
	assertNoStagingLeft(t, cacheRoot)
}

func TestTranscribeFile_SegmentOrderPreserved(t *testing.T) {
	cacheRoot := t.TempDir()
	g := New(&echoTranscriber{}, nil, &fixedSegmenter{contents: []string{"first", "second", "third"}}, nil, cache.NewManager(cacheRoot), nil, nil)

	full, segmentPaths, err := g.TranscribeFile(context.Background(), writeRecording(t, "ignored"), "")
	if err != nil {
		t.Fatalf("transcribe file: %v", err)
	}
	if full != "first\nsecond\nthird" {
		t.Fatalf("segment order not preserved: %q", full)
	}
	if len(segmentPaths) != 3 {
		t.Fatalf("expected three segment references, got %d", len(segmentPaths))
	}
	assertNoStagingLeft(t, cacheRoot)
}

func TestTranscribeFile_PromotesToOutputDir(t *testing.T) {
	cacheRoot := t.TempDir()
	outputDir := t.TempDir()
	g := New(&echoTranscriber{}, &fixedSummarizer{summary: "short version"}, &fixedSegmenter{contents: []string{"first", "second"}}, nil, cache.NewManager(cacheRoot), nil, nil)

	full, segmentPaths, err := g.TranscribeFile(context.Background(), writeRecording(t, "ignored"), outputDir)
	if err != nil {
		t.Fatalf("transcribe file: %v", err)
	}
	if full != "first\nsecond" {
		t.Fatalf("unexpected transcript: %q", full)
	}

	transcript, err := os.ReadFile(filepath.Join(outputDir, "meeting.txt"))
	if err != nil {
		t.Fatalf("promoted transcript missing: %v", err)
	}
	if string(transcript) != "first\nsecond" {
		t.Fatalf("unexpected promoted transcript: %q", transcript)
	}
	summary, err := os.ReadFile(filepath.Join(outputDir, "meeting-summary.txt"))
	if err != nil {
		t.Fatalf("promoted summary missing: %v", err)
	}
	if string(summary) != "short version" {
		t.Fatalf("unexpected promoted summary: %q", summary)
	}

	// Segment references must point at the destination after promotion.
	for i, segPath := range segmentPaths {
		if !strings.HasPrefix(segPath, outputDir) {
			t.Errorf("segment reference %d not rewritten to destination: %s", i, segPath)
		}
		if _, err := os.Stat(segPath); err != nil {
			t.Errorf("promoted segment %d missing: %v", i, err)
		}
	}
	assertNoStagingLeft(t, cacheRoot)
}

func TestTranscribeFile_SummaryFailureIsNotFatal(t *testing.T) {
	cacheRoot := t.TempDir()
	outputDir := t.TempDir()
	g := New(&echoTranscriber{}, &fixedSummarizer{err: errors.New("summarizer down")}, wholeFileSegmenter{}, nil, cache.NewManager(cacheRoot), nil, nil)

	if _, _, err := g.TranscribeFile(context.Background(), writeRecording(t, "content"), outputDir); err != nil {
		t.Fatalf("summary failure must not abort the batch: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "meeting-summary.txt")); !os.IsNotExist(err) {
		t.Fatalf("no summary artifact expected, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(outputDir, "meeting.txt")); err != nil {
		t.Fatalf("transcript should still be promoted: %v", err)
	}
}

func TestTranscribeFile_ProviderErrorAbortsAndCleansUp(t *testing.T) {
	cacheRoot := t.TempDir()
	repo := &recordingRepo{}
	g := New(&echoTranscriber{err: errors.New("quota exceeded")}, nil, wholeFileSegmenter{}, nil, cache.NewManager(cacheRoot), repo, nil)

	_, _, err := g.TranscribeFile(context.Background(), writeRecording(t, "content"), "")
	if !errors.Is(err, transcriber.ErrProvider) {
		t.Fatalf("expected ErrProvider, got %v", err)
	}
	if len(repo.failed) != 1 {
		t.Fatalf("expected one failed job record, got %d", len(repo.failed))
	}
	assertNoStagingLeft(t, cacheRoot)
}

func TestTranscribeFile_MissingInput(t *testing.T) {
	cacheRoot := t.TempDir()
	g := New(&echoTranscriber{}, nil, wholeFileSegmenter{}, nil, cache.NewManager(cacheRoot), nil, nil)

	_, _, err := g.TranscribeFile(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), "")
	if !errors.Is(err, cache.ErrStaging) {
		t.Fatalf("expected ErrStaging, got %v", err)
	}
	assertNoStagingLeft(t, cacheRoot)
}

func TestTranscribeFile_RecordsJobAndSegments(t *testing.T) {
	repo := &recordingRepo{}
	wh := &recordingWebhook{}
	g := New(&echoTranscriber{}, nil, &fixedSegmenter{contents: []string{"first", "second"}}, nil, cache.NewManager(t.TempDir()), repo, wh)

	src := writeRecording(t, "ignored")
	if _, _, err := g.TranscribeFile(context.Background(), src, ""); err != nil {
		t.Fatalf("transcribe file: %v", err)
	}

	if len(repo.created) != 1 || repo.created[0].SourcePath != src {
		t.Fatalf("expected one job record for %s, got %+v", src, repo.created)
	}
	if len(repo.completed) != 1 || repo.completed[0].SegmentCount != 2 {
		t.Fatalf("expected completion with two segments, got %+v", repo.completed)
	}
	if len(repo.segments) != 2 || repo.segments[0].SegmentIndex != 0 || repo.segments[1].SegmentIndex != 1 {
		t.Fatalf("expected two ordered segment records, got %+v", repo.segments)
	}
	if len(wh.payloads) != 1 || wh.payloads[0].SourceFile != "meeting.wav" {
		t.Fatalf("expected one webhook delivery, got %+v", wh.payloads)
	}
}

func TestStreamChunk_PartialThenFinal(t *testing.T) {
	g := New(&echoTranscriber{}, nil, nil, nil, nil, nil, nil)

	var events []ResultEvent
	g.StreamChunk(context.Background(), 7, []byte("chunk audio"), func(evt ResultEvent) {
		events = append(events, evt)
	})

	if len(events) != 2 {
		t.Fatalf("expected two events, got %d", len(events))
	}
	if events[0].Type != EventPartial || events[0].Seq != 7 {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].Type != EventFinal || events[1].Text != "chunk audio" || events[1].Seq != 7 {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
}

func TestStreamChunk_ProviderError(t *testing.T) {
	g := New(&echoTranscriber{err: errors.New("provider down")}, nil, nil, nil, nil, nil, nil)

	var events []ResultEvent
	g.StreamChunk(context.Background(), 0, []byte("chunk"), func(evt ResultEvent) {
		events = append(events, evt)
	})

	if len(events) != 2 {
		t.Fatalf("expected two events, got %d", len(events))
	}
	if events[0].Type != EventPartial {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].Type != EventError {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
}

func TestStreamChunk_DecoderError(t *testing.T) {
	g := New(&echoTranscriber{}, nil, nil, failingDecoder{}, nil, nil, nil)

	var events []ResultEvent
	g.StreamChunk(context.Background(), 3, []byte("junk"), func(evt ResultEvent) {
		events = append(events, evt)
	})

	if len(events) != 2 || events[1].Type != EventError {
		t.Fatalf("expected partial then decode error, got %+v", events)
	}
}

type failingDecoder struct{}

func (failingDecoder) Decode(_ []byte) ([]byte, error) {
	return nil, errors.New("bad frame")
}
