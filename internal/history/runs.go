package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Create inserts a new run in the idle status.
func (s *Store) Create(ctx context.Context, key string, source Source, locale, mode string) (*Run, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("run key is required")
	}
	ctx = ensureContext(ctx)
	now := s.now()
	run := &Run{
		Key:       key,
		Source:    source,
		Status:    StatusIdle,
		Locale:    locale,
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO runs (run_key, source, status, locale, mode, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.Key,
			string(run.Source),
			string(run.Status),
			nullableString(run.Locale),
			nullableString(run.Mode),
			formatTime(now),
			formatTime(now),
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		run.ID = id
		return insertEvent(ctx, tx, id, StatusIdle, "run created", now)
	})
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Get fetches a run by id.
func (s *Store) Get(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListOptions filters List results.
type ListOptions struct {
	Limit    int
	Statuses []Status
	Episode  string
}

// List returns runs newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Run, error) {
	var (
		clauses []string
		args    []any
	)
	if len(opts.Statuses) > 0 {
		placeholders := make([]string, 0, len(opts.Statuses))
		for _, status := range opts.Statuses {
			placeholders = append(placeholders, "?")
			args = append(args, string(status))
		}
		clauses = append(clauses, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if episode := strings.TrimSpace(opts.Episode); episode != "" {
		clauses = append(clauses, "episode_number = ?")
		args = append(args, episode)
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Transition moves run to next, persisting the run's current fields and an
// event row in the same transaction. The stored status must allow the move.
func (s *Store) Transition(ctx context.Context, run *Run, next Status, message string) error {
	if run == nil {
		return errors.New("run is nil")
	}
	ctx = ensureContext(ctx)
	now := s.now()
	var finished *time.Time
	if next.IsTerminal() {
		finished = &now
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var current string
		if err := tx.QueryRowContext(ctx, `SELECT status FROM runs WHERE id = ?`, run.ID).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %d", ErrRunNotFound, run.ID)
			}
			return err
		}
		if !Status(current).CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE runs SET status = ?, episode_number = ?, episode_title = ?, audio_url = ?,
                audio_path = ?, wav_path = ?, transcript_path = ?, locale = ?, mode = ?,
                lines_written = ?, error_message = ?, updated_at = ?, finished_at = ?
             WHERE id = ?`,
			string(next),
			nullableString(run.EpisodeNumber),
			nullableString(run.EpisodeTitle),
			nullableString(run.AudioURL),
			nullableString(run.AudioPath),
			nullableString(run.WAVPath),
			nullableString(run.TranscriptPath),
			nullableString(run.Locale),
			nullableString(run.Mode),
			run.LinesWritten,
			nullableString(run.ErrorMessage),
			formatTime(now),
			nullableTime(finished),
			run.ID,
		); err != nil {
			return err
		}
		return insertEvent(ctx, tx, run.ID, next, message, now)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrRunNotFound) {
			return err
		}
		return fmt.Errorf("transition run %d: %w", run.ID, err)
	}

	run.Status = next
	run.UpdatedAt = now
	run.FinishedAt = finished
	return nil
}

// Fail records a terminal failure. status is normally StatusFailed or
// StatusCancelled; anything else is treated as StatusFailed.
func (s *Store) Fail(ctx context.Context, run *Run, status Status, message string) error {
	if status != StatusCancelled {
		status = StatusFailed
	}
	if run != nil {
		run.ErrorMessage = message
	}
	return s.Transition(ctx, run, status, message)
}

// Events returns the status history of a run, oldest first.
func (s *Store) Events(ctx context.Context, runID int64) ([]Event, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id, run_id, status, message, created_at FROM run_events WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event   Event
			status  string
			message sql.NullString
			created string
		)
		if err := rows.Scan(&event.ID, &event.RunID, &status, &message, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.Status = Status(status)
		event.Message = message.String
		if ts, err := parseTime(created); err == nil {
			event.CreatedAt = ts
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Prune deletes finished runs older than cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM runs WHERE finished_at IS NOT NULL AND finished_at < ?`,
			formatTime(cutoff),
		)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}

func insertEvent(ctx context.Context, tx *sql.Tx, runID int64, status Status, message string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO run_events (run_id, status, message, created_at) VALUES (?, ?, ?, ?)`,
		runID,
		string(status),
		nullableString(message),
		formatTime(at),
	)
	return err
}
