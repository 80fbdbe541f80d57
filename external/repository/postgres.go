package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minutelab/minute/internal/repository"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateJob(ctx context.Context, input repository.CreateJobInput) (*repository.Job, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO transcription_jobs (session_id, source_path, started_at, status)
		 VALUES ($1, $2, $3, 'running')
		 RETURNING id, session_id, source_path, started_at, finished_at, status`,
		input.SessionID, input.SourcePath, input.StartedAt)
	var j repository.Job
	var finishedAt *time.Time
	err := row.Scan(&j.ID, &j.SessionID, &j.SourcePath, &j.StartedAt, &finishedAt, &j.Status)
	if err != nil {
		return nil, err
	}
	j.FinishedAt = finishedAt
	return &j, nil
}

func (r *PostgresRepository) CompleteJob(ctx context.Context, input repository.CompleteJobInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE transcription_jobs
		 SET status = 'completed', finished_at = $2, transcript = $3, segment_count = $4
		 WHERE id = $1`,
		input.JobID, input.FinishedAt, input.Transcript, input.SegmentCount)
	return err
}

func (r *PostgresRepository) FailJob(ctx context.Context, input repository.FailJobInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE transcription_jobs
		 SET status = 'failed', finished_at = $2, fail_reason = $3
		 WHERE id = $1`,
		input.JobID, input.FinishedAt, input.Reason)
	return err
}

func (r *PostgresRepository) InsertSegment(ctx context.Context, input repository.InsertSegmentInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO transcript_segments (job_id, content, segment_index)
		 VALUES ($1, $2, $3)`,
		input.JobID, input.Content, input.SegmentIndex)
	return err
}

func (r *PostgresRepository) ListSegmentsByJobID(ctx context.Context, jobID string) ([]repository.TranscriptSegment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, job_id, content, segment_index, created_at
		 FROM transcript_segments WHERE job_id = $1 ORDER BY segment_index ASC`,
		jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.TranscriptSegment
	for rows.Next() {
		var seg repository.TranscriptSegment
		if err := rows.Scan(&seg.ID, &seg.JobID, &seg.Content, &seg.SegmentIndex, &seg.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, seg)
	}
	return list, rows.Err()
}
