// Package issuestore persists deduplicated CI issues and caches
// high-confidence solutions in SQLite, keyed by normalized error
// signatures. The store is shared between pipeline instances; writes use
// upsert-with-increment semantics so concurrent signature hits are never
// lost.
package issuestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/detective/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// CacheThreshold is the confidence a result must exceed to be cached.
const CacheThreshold = 7

// logsExcerptLimit bounds the log excerpt stored per issue.
const logsExcerptLimit = 1000

// Solution is a cached fix for a recurring error signature.
type Solution struct {
	Signature        string
	PrimaryError     string
	ErrorType        string
	Confidence       int
	SuggestedActions []string
	SuccessRate      float64
	UsageCount       int
}

// AnalysisResult converts a cached solution back into pipeline shape.
func (s Solution) AnalysisResult(failureID string) models.AnalysisResult {
	return models.AnalysisResult{
		FailureID:        failureID,
		Status:           models.StatusCached,
		PrimaryError:     s.PrimaryError,
		ErrorType:        s.ErrorType,
		Confidence:       s.Confidence,
		Blocking:         s.Confidence >= models.BlockingConfidence,
		SuggestedActions: s.SuggestedActions,
		Source:           models.SourceCache,
	}
}

// Stats summarizes the store's contents.
type Stats struct {
	TotalIssues     int
	CachedSolutions int
	TopErrorTypes   []ErrorTypeCount
	RecentIssues    int
}

// ErrorTypeCount pairs an error type with its total occurrence count.
type ErrorTypeCount struct {
	ErrorType string
	Count     int
}

// Store manages the SQLite issue database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the issue database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout first so subsequent statements wait on locks rather
	// than failing during concurrent initialization.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a SQL statement with exponential backoff on lock
// errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordIssue inserts a new issue for the failure's signature or, if one
// already exists, increments its occurrence count and refreshes last_seen.
// The increment happens inside the upsert so concurrent hits on the same
// signature cannot lose updates. Returns the issue's row id.
func (s *Store) RecordIssue(ctx context.Context, failure models.Failure, analysis models.AnalysisResult) (int64, error) {
	signature := Signature(failure)

	excerpt := failure.CompressedLogs
	if excerpt == "" {
		excerpt = failure.RawLogs
	}
	if len(excerpt) > logsExcerptLimit {
		excerpt = excerpt[:logsExcerptLimit]
	}

	query := `INSERT INTO issues (repo, error_signature, job_name, workflow_name, error_type, primary_error, logs_excerpt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(error_signature) DO UPDATE SET
			occurrence_count = occurrence_count + 1,
			last_seen = CURRENT_TIMESTAMP,
			logs_excerpt = excluded.logs_excerpt`

	if _, err := s.db.ExecContext(ctx, query,
		failure.Repository,
		signature,
		failure.JobName,
		failure.WorkflowName,
		analysis.ErrorType,
		analysis.PrimaryError,
		excerpt,
	); err != nil {
		return 0, fmt.Errorf("record issue: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM issues WHERE error_signature = ?`, signature).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup issue id: %w", err)
	}
	return id, nil
}

// CacheSolution upserts a solution for the analysis, keyed by signature.
// No-op when the confidence does not clear the caching threshold. Upserts
// refresh the solution fields but preserve the accumulated usage count.
func (s *Store) CacheSolution(ctx context.Context, failure models.Failure, analysis models.AnalysisResult) error {
	if analysis.Confidence <= CacheThreshold {
		return nil
	}

	actionsJSON := "[]"
	if len(analysis.SuggestedActions) > 0 {
		data, err := json.Marshal(analysis.SuggestedActions)
		if err != nil {
			return fmt.Errorf("marshal suggested actions: %w", err)
		}
		actionsJSON = string(data)
	}

	query := `INSERT INTO solutions (error_signature, solution_text, confidence, suggested_actions, error_type)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(error_signature) DO UPDATE SET
			solution_text = excluded.solution_text,
			confidence = excluded.confidence,
			suggested_actions = excluded.suggested_actions,
			error_type = excluded.error_type,
			last_used = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query,
		Signature(failure),
		analysis.PrimaryError,
		analysis.Confidence,
		actionsJSON,
		analysis.ErrorType,
	); err != nil {
		return fmt.Errorf("cache solution: %w", err)
	}
	return nil
}

// GetCachedSolution returns the cached solution for the failure's
// signature, or nil when none qualifies. A hit bumps the solution's usage
// count and last_used timestamp.
func (s *Store) GetCachedSolution(ctx context.Context, failure models.Failure) (*Solution, error) {
	signature := Signature(failure)

	row := s.db.QueryRowContext(ctx, `
		SELECT solution_text, confidence, suggested_actions, error_type, success_rate, usage_count
		FROM solutions
		WHERE error_signature = ? AND confidence > ?`,
		signature, CacheThreshold)

	var sol Solution
	var actionsJSON sql.NullString
	var errorType sql.NullString
	if err := row.Scan(&sol.PrimaryError, &sol.Confidence, &actionsJSON, &errorType, &sol.SuccessRate, &sol.UsageCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query cached solution: %w", err)
	}
	sol.Signature = signature
	sol.ErrorType = errorType.String
	if actionsJSON.Valid && actionsJSON.String != "" {
		if err := json.Unmarshal([]byte(actionsJSON.String), &sol.SuggestedActions); err != nil {
			return nil, fmt.Errorf("unmarshal suggested actions: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE solutions
		SET usage_count = usage_count + 1, last_used = CURRENT_TIMESTAMP
		WHERE error_signature = ?`, signature); err != nil {
		return nil, fmt.Errorf("bump solution usage: %w", err)
	}
	sol.UsageCount++

	return &sol, nil
}

// HasRecentHighConfidenceSolution reports whether a solution above the
// caching threshold was used within the given window.
func (s *Store) HasRecentHighConfidenceSolution(ctx context.Context, failure models.Failure, within time.Duration) (bool, error) {
	modifier := fmt.Sprintf("-%d seconds", int64(within.Seconds()))

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM solutions
		WHERE error_signature = ?
		AND confidence > ?
		AND last_used > datetime('now', ?)`,
		Signature(failure), CacheThreshold, modifier).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query recent solutions: %w", err)
	}
	return count > 0, nil
}

// Statistics summarizes the store for reporting: issue and solution
// counts, the five most frequent error types, and activity in the last
// day.
func (s *Store) Statistics(ctx context.Context) (Stats, error) {
	var stats Stats

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues`).Scan(&stats.TotalIssues); err != nil {
		return stats, fmt.Errorf("count issues: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM solutions`).Scan(&stats.CachedSolutions); err != nil {
		return stats, fmt.Errorf("count solutions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT error_type, SUM(occurrence_count) AS total
		FROM issues
		WHERE error_type IS NOT NULL AND error_type != ''
		GROUP BY error_type
		ORDER BY total DESC
		LIMIT 5`)
	if err != nil {
		return stats, fmt.Errorf("query top error types: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var entry ErrorTypeCount
		if err := rows.Scan(&entry.ErrorType, &entry.Count); err != nil {
			return stats, fmt.Errorf("scan error type: %w", err)
		}
		stats.TopErrorTypes = append(stats.TopErrorTypes, entry)
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate error types: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM issues
		WHERE last_seen > datetime('now', '-1 day')`).Scan(&stats.RecentIssues); err != nil {
		return stats, fmt.Errorf("count recent issues: %w", err)
	}

	return stats, nil
}
