package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const jobColumns = "id, input_path, output_path, region_kind, quality, user_name, state, frames_done, frames_total, error_kind, error_message, created_at, updated_at, finished_at"

// ErrAmbiguousID is returned when an id prefix matches more than one job.
var ErrAmbiguousID = errors.New("ambiguous job id")

// CreateJob inserts job, stamping its creation and update times.
func (s *Store) CreateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if strings.TrimSpace(job.ID) == "" {
		return errors.New("job id is required")
	}
	if job.State == "" {
		job.State = StateValidating
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	timestamp := now.Format(timeLayout)

	_, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.InputPath,
		nullableString(job.OutputPath),
		nullableString(job.RegionKind),
		nullableString(job.Quality),
		nullableString(job.User),
		string(job.State),
		job.FramesDone,
		job.FramesTotal,
		nullableString(job.ErrorKind),
		nullableString(job.ErrorMessage),
		timestamp,
		timestamp,
		nullableTime(job.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJob persists the mutable fields of an existing job. Reaching a
// terminal state stamps FinishedAt when unset.
func (s *Store) UpdateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	if job.State.Terminal() && job.FinishedAt == nil {
		finished := job.UpdatedAt
		job.FinishedAt = &finished
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs
         SET output_path = ?, region_kind = ?, quality = ?, state = ?,
             frames_done = ?, frames_total = ?, error_kind = ?, error_message = ?,
             updated_at = ?, finished_at = ?
         WHERE id = ?`,
		nullableString(job.OutputPath),
		nullableString(job.RegionKind),
		nullableString(job.Quality),
		string(job.State),
		job.FramesDone,
		job.FramesTotal,
		nullableString(job.ErrorKind),
		nullableString(job.ErrorMessage),
		job.UpdatedAt.Format(timeLayout),
		nullableTime(job.FinishedAt),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update job: %s not found", job.ID)
	}
	return nil
}

// GetJob fetches a job by id. A missing job returns nil without error.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindJob resolves a full id or a unique id prefix.
func (s *Store) FindJob(ctx context.Context, prefix string) (*Job, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}
	if job, err := s.GetJob(ctx, prefix); job != nil || err != nil {
		return job, err
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE id LIKE ? ESCAPE '\' ORDER BY created_at DESC, rowid DESC LIMIT 2`,
		escaped+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	defer rows.Close()
	jobs, err := collectJobs(rows)
	if err != nil {
		return nil, err
	}
	switch len(jobs) {
	case 0:
		return nil, nil
	case 1:
		return jobs[0], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousID, prefix)
	}
}

// ListJobs returns the most recent jobs first, optionally filtered by state.
// A non-positive limit returns every match.
func (s *Store) ListJobs(ctx context.Context, limit int, states ...State) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(states)+1)
	if len(states) > 0 {
		placeholders := make([]string, len(states))
		for i, state := range states {
			placeholders[i] = "?"
			args = append(args, string(state))
		}
		query += ` WHERE state IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// Stats returns job counts keyed by state.
func (s *Store) Stats(ctx context.Context) (map[State]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT state, COUNT(1) FROM jobs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()
	stats := make(map[State]int)
	for rows.Next() {
		var (
			state string
			count int
		)
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan job stats: %w", err)
		}
		stats[State(state)] = count
	}
	return stats, rows.Err()
}

func collectJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		inputPath    string
		outputPath   sql.NullString
		regionKind   sql.NullString
		quality      sql.NullString
		userName     sql.NullString
		state        string
		framesDone   int
		framesTotal  int
		errorKind    sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&inputPath,
		&outputPath,
		&regionKind,
		&quality,
		&userName,
		&state,
		&framesDone,
		&framesTotal,
		&errorKind,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		InputPath:    inputPath,
		OutputPath:   outputPath.String,
		RegionKind:   regionKind.String,
		Quality:      quality.String,
		User:         userName.String,
		State:        State(state),
		FramesDone:   framesDone,
		FramesTotal:  framesTotal,
		ErrorKind:    errorKind.String,
		ErrorMessage: errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &finished
		}
	}
	return job, nil
}
