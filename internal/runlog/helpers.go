package runlog

import (
	"database/sql"
	"errors"
	"time"
)

const runColumns = "id, kind, status, collection, output_path, started_at, finished_at, tracks_seen, tracks_processed, tracks_skipped, tracks_failed, proposals, error_message"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id           string
		kind         string
		status       string
		collection   sql.NullString
		outputPath   sql.NullString
		startedRaw   string
		finishedRaw  sql.NullString
		seen         int
		processed    int
		skipped      int
		failed       int
		proposals    int
		errorMessage sql.NullString
	)
	if err := scanner.Scan(
		&id,
		&kind,
		&status,
		&collection,
		&outputPath,
		&startedRaw,
		&finishedRaw,
		&seen,
		&processed,
		&skipped,
		&failed,
		&proposals,
		&errorMessage,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:              id,
		Kind:            Kind(kind),
		Status:          Status(status),
		Collection:      collection.String,
		OutputPath:      outputPath.String,
		TracksSeen:      seen,
		TracksProcessed: processed,
		TracksSkipped:   skipped,
		TracksFailed:    failed,
		Proposals:       proposals,
		ErrorMessage:    errorMessage.String,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout keeps a fixed fraction width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
