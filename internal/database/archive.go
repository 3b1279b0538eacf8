// Package database archives finished dialog sessions and ended image-quiz
// runs in SQLite so the teacher dashboard keeps a history view after the
// live state is gone. Live session state never lives here.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/WIlski54/dialoglab-english-coach/internal/quiz"
	"github.com/WIlski54/dialoglab-english-coach/internal/scenario"
	"github.com/WIlski54/dialoglab-english-coach/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS finished_sessions (
	id              TEXT PRIMARY KEY,
	scenario        TEXT NOT NULL,
	level           TEXT NOT NULL,
	transcript      TEXT NOT NULL,
	last_utterance  TEXT NOT NULL,
	vocabulary_hits TEXT NOT NULL,
	error_flags     TEXT NOT NULL,
	started_at      TIMESTAMP NOT NULL,
	ended_at        TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS quiz_runs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	image_ref  TEXT NOT NULL,
	targets    TEXT NOT NULL,
	found      TEXT NOT NULL,
	questions  TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	ended_at   TIMESTAMP NOT NULL
);
`

// Archive wraps the SQLite database behind a single-writer goroutine; SQLite
// tolerates concurrent reads but serialized writes perform far better.
type Archive struct {
	db           *sql.DB
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewArchive opens (or creates) the archive database and starts the writer.
func NewArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create archive schema: %w", err)
	}

	a := &Archive{
		db:           db,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	a.wg.Add(1)
	go a.writeLoop()

	return a, nil
}

func (a *Archive) writeLoop() {
	defer a.wg.Done()

	for {
		select {
		case op := <-a.writeChannel:
			op.result <- op.operation(a.db)
		case <-a.shutdown:
			return
		}
	}
}

func (a *Archive) executeWrite(operation func(*sql.DB) error) error {
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return ErrArchiveClosed
	}
	a.mu.RUnlock()

	result := make(chan error, 1)
	select {
	case a.writeChannel <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-time.After(30 * time.Second):
		return fmt.Errorf("archive write timeout")
	case <-a.shutdown:
		return ErrArchiveClosed
	}
}

// SaveSession records a finished session's terminal snapshot.
func (a *Archive) SaveSession(ctx context.Context, s *session.Session) error {
	transcript, err := json.Marshal(s.History)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	hits, err := json.Marshal(s.VocabularyHits)
	if err != nil {
		return fmt.Errorf("failed to marshal vocabulary hits: %w", err)
	}
	flags, err := json.Marshal(s.ErrorFlags)
	if err != nil {
		return fmt.Errorf("failed to marshal error flags: %w", err)
	}

	endedAt := time.Now()
	if s.EndedAt != nil {
		endedAt = *s.EndedAt
	}

	return a.executeWrite(func(db *sql.DB) error {
		query := `
			INSERT OR REPLACE INTO finished_sessions
				(id, scenario, level, transcript, last_utterance, vocabulary_hits, error_flags, started_at, ended_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := db.ExecContext(ctx, query,
			s.ID,
			string(s.Scenario),
			string(s.Level),
			string(transcript),
			s.LastUtterance,
			string(hits),
			string(flags),
			s.StartedAt,
			endedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert finished session: %w", err)
		}
		return nil
	})
}

// SaveQuizRun records an ended image-quiz run.
func (a *Archive) SaveQuizRun(ctx context.Context, run *quiz.RunSummary) error {
	targets, err := json.Marshal(run.Targets)
	if err != nil {
		return fmt.Errorf("failed to marshal targets: %w", err)
	}
	found, err := json.Marshal(run.Found)
	if err != nil {
		return fmt.Errorf("failed to marshal found objects: %w", err)
	}
	questions, err := json.Marshal(run.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	return a.executeWrite(func(db *sql.DB) error {
		query := `
			INSERT INTO quiz_runs (image_ref, targets, found, questions, started_at, ended_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		_, err := db.ExecContext(ctx, query,
			run.ImageRef, string(targets), string(found), string(questions), run.StartedAt, run.EndedAt)
		if err != nil {
			return fmt.Errorf("failed to insert quiz run: %w", err)
		}
		return nil
	})
}

// ListQuizRuns returns archived quiz-run summaries, newest first.
func (a *Archive) ListQuizRuns(ctx context.Context, limit int) ([]*quiz.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT image_ref, targets, found, questions, started_at, ended_at
		FROM quiz_runs
		ORDER BY ended_at DESC
		LIMIT ?
	`
	rows, err := a.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query archived quiz runs: %w", err)
	}
	defer rows.Close()

	var runs []*quiz.RunSummary
	for rows.Next() {
		run, err := scanQuizRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetSession retrieves one archived session by id.
func (a *Archive) GetSession(ctx context.Context, id string) (*session.Session, error) {
	query := `
		SELECT id, scenario, level, transcript, last_utterance, vocabulary_hits, error_flags, started_at, ended_at
		FROM finished_sessions
		WHERE id = ?
	`
	return scanSession(a.db.QueryRowContext(ctx, query, id))
}

// ListSessions returns archived sessions, newest first.
func (a *Archive) ListSessions(ctx context.Context, limit int) ([]*session.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, scenario, level, transcript, last_utterance, vocabulary_hits, error_flags, started_at, ended_at
		FROM finished_sessions
		ORDER BY ended_at DESC
		LIMIT ?
	`
	rows, err := a.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query archived sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*session.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// HealthCheck verifies database connectivity.
func (a *Archive) HealthCheck(ctx context.Context) error {
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return ErrArchiveClosed
	}
	a.mu.RUnlock()

	return a.db.PingContext(ctx)
}

// Close stops the writer and closes the database.
func (a *Archive) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	close(a.shutdown)
	a.wg.Wait()

	if err := a.db.Close(); err != nil {
		return fmt.Errorf("failed to close archive database: %w", err)
	}
	log.Println("Archive database closed")
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*session.Session, error) {
	var s session.Session
	var scenarioName, levelName string
	var transcript, hits, flags string
	var endedAt time.Time

	err := row.Scan(&s.ID, &scenarioName, &levelName, &transcript, &s.LastUtterance, &hits, &flags, &s.StartedAt, &endedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotArchived
		}
		return nil, fmt.Errorf("failed to scan archived session: %w", err)
	}

	if err := json.Unmarshal([]byte(transcript), &s.History); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	if err := json.Unmarshal([]byte(hits), &s.VocabularyHits); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vocabulary hits: %w", err)
	}
	if err := json.Unmarshal([]byte(flags), &s.ErrorFlags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal error flags: %w", err)
	}

	s.Scenario = scenario.Scenario(scenarioName)
	s.Level = scenario.Level(levelName)
	s.Status = session.StatusFinished
	s.EndedAt = &endedAt
	return &s, nil
}

func scanQuizRun(row rowScanner) (*quiz.RunSummary, error) {
	var run quiz.RunSummary
	var targets, found, questions string

	err := row.Scan(&run.ImageRef, &targets, &found, &questions, &run.StartedAt, &run.EndedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan archived quiz run: %w", err)
	}

	if err := json.Unmarshal([]byte(targets), &run.Targets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal targets: %w", err)
	}
	if err := json.Unmarshal([]byte(found), &run.Found); err != nil {
		return nil, fmt.Errorf("failed to unmarshal found objects: %w", err)
	}
	if err := json.Unmarshal([]byte(questions), &run.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}
	return &run, nil
}
