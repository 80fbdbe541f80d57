package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minutelab/minute/internal/audio"
	"github.com/minutelab/minute/internal/cache"
	"github.com/minutelab/minute/internal/repository"
	"github.com/minutelab/minute/internal/transcriber"
	"github.com/minutelab/minute/internal/webhook"
)

const (
	// chunkTimeout bounds one streaming chunk's trip through the provider.
	chunkTimeout = 30 * time.Second
	// segmentTimeout bounds one batch segment's trip through the provider.
	segmentTimeout = 5 * time.Minute

	transcriptKey = "transcript"
	summaryKey    = "summary"
)

// Gateway orchestrates batch and streaming transcription. Batch operations
// stage their input through a processing session; streaming chunks go
// straight to the provider.
type Gateway struct {
	transcriber transcriber.Transcriber
	summarizer  transcriber.Summarizer
	segmenter   audio.Segmenter
	decoder     audio.Decoder
	cache       *cache.Manager
	repo        repository.Repository
	webhook     webhook.Sender
}

func New(stt transcriber.Transcriber, sum transcriber.Summarizer, seg audio.Segmenter, dec audio.Decoder, cm *cache.Manager, repo repository.Repository, wh webhook.Sender) *Gateway {
	return &Gateway{
		transcriber: stt,
		summarizer:  sum,
		segmenter:   seg,
		decoder:     dec,
		cache:       cm,
		repo:        repo,
		webhook:     wh,
	}
}

// TranscribeFile transcribes a recording from disk. The input is staged into
// a fresh session, split into segments, transcribed segment by segment in
// order and persisted under the session's output tree. When outputDir is
// non-empty the transcript artifacts are promoted there and the returned
// segment references point at the destination. The session is cleaned up on
// every exit path.
func (g *Gateway) TranscribeFile(ctx context.Context, path, outputDir string) (string, []string, error) {
	sess, err := g.cache.CreateSession()
	if err != nil {
		return "", nil, err
	}
	defer func() {
		if err := sess.Cleanup(); err != nil {
			slog.Warn("session cleanup incomplete", "session_id", sess.ID(), "error", err)
		}
	}()

	jobID := g.recordJobStarted(ctx, sess.ID(), path)

	full, segmentPaths, err := g.transcribeStaged(ctx, sess, jobID, path, outputDir)
	if err != nil {
		g.recordJobFailed(ctx, jobID, err)
		return "", nil, err
	}

	g.recordJobCompleted(ctx, jobID, full, len(segmentPaths))
	g.sendTranscriptWebhook(ctx, sess.ID(), path, full)
	return full, segmentPaths, nil
}

func (g *Gateway) transcribeStaged(ctx context.Context, sess *cache.Session, jobID, path, outputDir string) (string, []string, error) {
	cf, err := sess.StageInput(path)
	if err != nil {
		return "", nil, err
	}
	slog.Info("input staged for batch transcription", "session_id", sess.ID(), "source", path, "hash", cf.Hash, "bytes", cf.Size)

	segments, err := g.segmenter.Split(ctx, cf.StagedPath, sess)
	if err != nil {
		return "", nil, fmt.Errorf("split staged input: %w", err)
	}

	texts := make([]string, len(segments))
	segmentKeys := make([]string, len(segments))
	for i, segPath := range segments {
		data, err := os.ReadFile(segPath)
		if err != nil {
			return "", nil, fmt.Errorf("read segment %d: %w", i, err)
		}
		text, err := g.transcribeSegment(ctx, data)
		if err != nil {
			return "", nil, fmt.Errorf("segment %d: %w", i, err)
		}
		texts[i] = text
		segmentKeys[i] = fmt.Sprintf("segment-%03d", i)
		if _, err := sess.SaveOutput(segmentKeys[i], []byte(text)); err != nil {
			return "", nil, err
		}
		g.recordSegment(ctx, jobID, i, text)
	}

	full := strings.TrimSpace(strings.Join(texts, "\n"))
	if _, err := sess.SaveOutput(transcriptKey, []byte(full)); err != nil {
		return "", nil, err
	}

	summarySaved := g.saveSummary(ctx, sess, full)

	if outputDir == "" {
		paths := make([]string, len(segmentKeys))
		for i, key := range segmentKeys {
			p, err := sess.ResolveOutput(key)
			if err != nil {
				return "", nil, err
			}
			paths[i] = p
		}
		return full, paths, nil
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	names := map[string]string{transcriptKey: base + ".txt"}
	if summarySaved {
		names[summaryKey] = base + "-summary.txt"
	}
	for _, key := range segmentKeys {
		names[key] = fmt.Sprintf("%s-%s.txt", base, key)
	}

	promoted, err := sess.Promote(outputDir, names)
	if err != nil {
		return "", nil, err
	}
	slog.Info("artifacts promoted", "session_id", sess.ID(), "destination", outputDir, "count", len(promoted))

	paths := make([]string, len(segmentKeys))
	for i, key := range segmentKeys {
		paths[i] = promoted[key]
	}
	return full, paths, nil
}

func (g *Gateway) transcribeSegment(ctx context.Context, data []byte) (string, error) {
	segCtx, cancel := context.WithTimeout(ctx, segmentTimeout)
	defer cancel()
	text, err := g.transcriber.TranscribeAudio(segCtx, data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", transcriber.ErrProvider, err)
	}
	return text, nil
}

// saveSummary produces and stores a summary when a summarizer is configured.
// Summarization is supplemental, so provider failures are logged and the
// batch continues without a summary artifact.
func (g *Gateway) saveSummary(ctx context.Context, sess *cache.Session, transcript string) bool {
	if g.summarizer == nil || transcript == "" {
		return false
	}
	summary, err := g.summarizer.Summarize(ctx, transcript)
	if err != nil {
		slog.Warn("summarization failed", "session_id", sess.ID(), "error", err)
		return false
	}
	if _, err := sess.SaveOutput(summaryKey, []byte(summary)); err != nil {
		slog.Warn("failed to save summary artifact", "session_id", sess.ID(), "error", err)
		return false
	}
	return true
}

// StreamChunk transcribes one inbound audio chunk. No staging happens on
// this path. A synthetic partial is emitted immediately; the provider call
// runs under a bounded timeout and resolves to a final or an error event.
// Provider failures never escalate beyond the error event.
func (g *Gateway) StreamChunk(ctx context.Context, seq int, chunk []byte, emit func(ResultEvent)) {
	emit(ResultEvent{Type: EventPartial, Seq: seq})

	if g.decoder != nil {
		decoded, err := g.decoder.Decode(chunk)
		if err != nil {
			slog.Warn("chunk decode failed", "seq", seq, "error", err)
			emit(ResultEvent{Type: EventError, Text: "audio decode failed", Seq: seq})
			return
		}
		chunk = decoded
	}

	chunkCtx, cancel := context.WithTimeout(ctx, chunkTimeout)
	defer cancel()

	text, err := g.transcriber.TranscribeAudio(chunkCtx, chunk)
	if err != nil {
		slog.Warn("streaming transcription failed", "seq", seq, "error", err)
		emit(ResultEvent{Type: EventError, Text: "transcription failed", Seq: seq})
		return
	}
	emit(ResultEvent{Type: EventFinal, Text: text, Seq: seq})
}

// Job recording is a collaborator concern; failures are logged and never
// abort the transcription itself.

func (g *Gateway) recordJobStarted(ctx context.Context, sessionID, sourcePath string) string {
	if g.repo == nil {
		return ""
	}
	job, err := g.repo.CreateJob(ctx, repository.CreateJobInput{
		SessionID:  sessionID,
		SourcePath: sourcePath,
		StartedAt:  time.Now(),
	})
	if err != nil {
		slog.Warn("failed to record transcription job", "session_id", sessionID, "error", err)
		return ""
	}
	return job.ID
}

func (g *Gateway) recordJobCompleted(ctx context.Context, jobID, transcript string, segmentCount int) {
	if g.repo == nil || jobID == "" {
		return
	}
	if err := g.repo.CompleteJob(ctx, repository.CompleteJobInput{
		JobID:        jobID,
		FinishedAt:   time.Now(),
		Transcript:   transcript,
		SegmentCount: segmentCount,
	}); err != nil {
		slog.Warn("failed to record job completion", "job_id", jobID, "error", err)
	}
}

func (g *Gateway) recordSegment(ctx context.Context, jobID string, index int, text string) {
	if g.repo == nil || jobID == "" {
		return
	}
	if err := g.repo.InsertSegment(ctx, repository.InsertSegmentInput{
		JobID:        jobID,
		Content:      text,
		SegmentIndex: index,
	}); err != nil {
		slog.Warn("failed to record transcript segment", "job_id", jobID, "segment_index", index, "error", err)
	}
}

func (g *Gateway) recordJobFailed(ctx context.Context, jobID string, cause error) {
	if g.repo == nil || jobID == "" {
		return
	}
	if err := g.repo.FailJob(ctx, repository.FailJobInput{
		JobID:      jobID,
		FinishedAt: time.Now(),
		Reason:     cause.Error(),
	}); err != nil {
		slog.Warn("failed to record job failure", "job_id", jobID, "error", err)
	}
}

func (g *Gateway) sendTranscriptWebhook(ctx context.Context, sessionID, sourcePath, transcript string) {
	if g.webhook == nil {
		return
	}
	err := g.webhook.SendTranscript(ctx, webhook.TranscriptPayload{
		SessionID:  sessionID,
		SourceFile: filepath.Base(sourcePath),
		Transcript: transcript,
		FinishedAt: time.Now(),
	})
	if err != nil {
		slog.Warn("failed to deliver transcript webhook", "session_id", sessionID, "error", err)
	}
}
