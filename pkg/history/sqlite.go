package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/linedesk/callcore/pkg/contracts"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the durable call archive for deployments that must retain
// calls beyond process lifetime.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore ensures the schema exists.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS archived_calls (
		call_id     TEXT PRIMARY KEY,
		agent_id    TEXT NOT NULL,
		direction   TEXT NOT NULL,
		start_time  DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL,
		session     JSON NOT NULL,
		metric      JSON NOT NULL,
		summary     JSON NOT NULL
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// Archive stores a completed session. Archived rows are never updated.
func (s *SQLiteStore) Archive(sess *contracts.CallSession, metric contracts.QualityMetric, summary contracts.CallSummary) error {
	ctx := context.Background()

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM archived_calls WHERE call_id = ?`, sess.ID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check archive: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyArchived, sess.ID)
	}

	sessJSON, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	metricJSON, _ := json.Marshal(metric)
	summaryJSON, _ := json.Marshal(summary)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO archived_calls (call_id, agent_id, direction, start_time, duration_ms, session, metric, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.AgentID, string(sess.Direction),
		sess.StartTime.UTC().Format(time.RFC3339Nano), sess.Duration.Milliseconds(),
		string(sessJSON), string(metricJSON), string(summaryJSON),
	)
	if err != nil {
		return fmt.Errorf("insert archived call: %w", err)
	}
	return nil
}

// GetForReview loads an archived call and assembles its review package.
func (s *SQLiteStore) GetForReview(callID string) (*contracts.ReviewPackage, error) {
	var sessJSON, metricJSON, summaryJSON string
	err := s.db.QueryRowContext(context.Background(),
		`SELECT session, metric, summary FROM archived_calls WHERE call_id = ?`, callID,
	).Scan(&sessJSON, &metricJSON, &summaryJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCallNotFound, callID)
	}
	if err != nil {
		return nil, fmt.Errorf("load archived call: %w", err)
	}

	var sess contracts.CallSession
	if err := json.Unmarshal([]byte(sessJSON), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	var metric contracts.QualityMetric
	if err := json.Unmarshal([]byte(metricJSON), &metric); err != nil {
		return nil, fmt.Errorf("decode metric: %w", err)
	}
	var summary contracts.CallSummary
	if err := json.Unmarshal([]byte(summaryJSON), &summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}

	return Review(&sess, metric, summary), nil
}
