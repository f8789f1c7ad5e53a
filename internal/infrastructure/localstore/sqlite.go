// Package localstore keeps analysis history in a single SQLite file so the
// CLI can persist results without a PostgreSQL server.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/internal/infrastructure/database/repository"
	"privacyguard-lab/pkg/logger"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS app_analyses (
		id               TEXT PRIMARY KEY,
		identifier       TEXT NOT NULL,
		display_name     TEXT NOT NULL,
		device_id        TEXT,
		is_system_app    INTEGER NOT NULL DEFAULT 0,
		version_name     TEXT,
		fingerprint      TEXT NOT NULL,
		security_score   INTEGER NOT NULL CHECK (security_score BETWEEN 0 AND 100),
		risk_tier        TEXT NOT NULL,
		dangerous_count  INTEGER NOT NULL,
		normal_count     INTEGER NOT NULL,
		result           TEXT NOT NULL,
		report           TEXT,
		analysis_version TEXT NOT NULL,
		analyzed_at      INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_app_analyses_identifier ON app_analyses (identifier)`,
	`CREATE INDEX IF NOT EXISTS idx_app_analyses_tier ON app_analyses (risk_tier)`,
	`CREATE INDEX IF NOT EXISTS idx_app_analyses_analyzed_at ON app_analyses (analyzed_at DESC)`,
}

const analysisColumns = `
	id, identifier, display_name, device_id, is_system_app, version_name,
	fingerprint, security_score, risk_tier, dangerous_count, normal_count,
	result, report, analysis_version, analyzed_at`

// SQLiteStore persists analyses to a local SQLite database
type SQLiteStore struct {
	db     *sql.DB
	logger *logger.Logger
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(ctx context.Context, path string, log *logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// One writer at a time; batch workers share the connection
	db.SetMaxOpenConns(1)

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	log = log.WithComponent("localstore")
	log.Debug().Str("path", path).Msg("local analysis store ready")

	return &SQLiteStore{db: db, logger: log}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts a new analysis
func (s *SQLiteStore) Create(ctx context.Context, a *models.AppAnalysis) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	result, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis result: %w", err)
	}

	query := `INSERT INTO app_analyses (` + analysisColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		a.ID.String(), a.Identifier, a.DisplayName, nullString(a.DeviceID), a.IsSystemApp, nullString(a.VersionName),
		a.Fingerprint, a.Result.SecurityScore, string(a.Result.RiskTier), a.DangerousCount, a.NormalCount,
		string(result), nullString(a.Report), a.AnalysisVersion, a.AnalyzedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

// GetByID retrieves an analysis by ID
func (s *SQLiteStore) GetByID(ctx context.Context, id uuid.UUID) (*models.AppAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM app_analyses WHERE id = ?`

	a, err := scanAnalysis(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("analysis %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return a, nil
}

// List returns analyses matching the filter, newest first, with the total match count.
// A non-positive limit returns every match.
func (s *SQLiteStore) List(ctx context.Context, filter models.AnalysisListFilter) ([]*models.AppAnalysis, int64, error) {
	where, args := buildWhere(filter)

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM app_analyses`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count analyses: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + analysisColumns + ` FROM app_analyses` + where +
		` ORDER BY analyzed_at DESC, identifier ASC LIMIT ? OFFSET ?`
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var analyses []*models.AppAnalysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate analyses: %w", err)
	}

	return analyses, total, nil
}

func buildWhere(filter models.AnalysisListFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.Tier != "" {
		conds = append(conds, "risk_tier = ?")
		args = append(args, string(filter.Tier))
	}
	if filter.Identifier != "" {
		conds = append(conds, "identifier = ?")
		args = append(args, filter.Identifier)
	}
	if filter.DeviceID != "" {
		conds = append(conds, "device_id = ?")
		args = append(args, filter.DeviceID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (*models.AppAnalysis, error) {
	var (
		a           models.AppAnalysis
		id          string
		deviceID    sql.NullString
		versionName sql.NullString
		report      sql.NullString
		score       int
		tier        string
		result      string
		analyzedAt  int64
	)

	err := row.Scan(
		&id, &a.Identifier, &a.DisplayName, &deviceID, &a.IsSystemApp, &versionName,
		&a.Fingerprint, &score, &tier, &a.DangerousCount, &a.NormalCount,
		&result, &report, &a.AnalysisVersion, &analyzedAt,
	)
	if err != nil {
		return nil, err
	}

	if a.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid analysis id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(result), &a.Result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	a.Result.SecurityScore = score
	a.Result.RiskTier = models.RiskTier(tier)
	a.DeviceID = deviceID.String
	a.VersionName = versionName.String
	a.Report = report.String
	a.AnalyzedAt = time.Unix(0, analyzedAt).UTC()

	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
