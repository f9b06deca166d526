package history

import (
	"database/sql"
	"errors"
	"time"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = "id, run_key, source, status, episode_number, episode_title, audio_url, audio_path, wav_path, transcript_path, locale, mode, lines_written, error_message, created_at, updated_at, finished_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run            Run
		source         string
		status         string
		episodeNumber  sql.NullString
		episodeTitle   sql.NullString
		audioURL       sql.NullString
		audioPath      sql.NullString
		wavPath        sql.NullString
		transcriptPath sql.NullString
		locale         sql.NullString
		mode           sql.NullString
		errorMessage   sql.NullString
		createdRaw     string
		updatedRaw     string
		finishedRaw    sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Key,
		&source,
		&status,
		&episodeNumber,
		&episodeTitle,
		&audioURL,
		&audioPath,
		&wavPath,
		&transcriptPath,
		&locale,
		&mode,
		&run.LinesWritten,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	run.Source = Source(source)
	run.Status = Status(status)
	run.EpisodeNumber = episodeNumber.String
	run.EpisodeTitle = episodeTitle.String
	run.AudioURL = audioURL.String
	run.AudioPath = audioPath.String
	run.WAVPath = wavPath.String
	run.TranscriptPath = transcriptPath.String
	run.Locale = locale.String
	run.Mode = mode.String
	run.ErrorMessage = errorMessage.String
	if created, err := parseTime(createdRaw); err == nil {
		run.CreatedAt = created
	}
	if updated, err := parseTime(updatedRaw); err == nil {
		run.UpdatedAt = updated
	}
	if finishedRaw.Valid {
		if finished, err := parseTime(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
