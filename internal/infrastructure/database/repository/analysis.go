package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/internal/infrastructure/database"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// AnalysisRepository handles app analysis persistence
type AnalysisRepository struct {
	db database.DBTX
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db database.DBTX) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

const analysisColumns = `
	id, identifier, display_name, device_id, is_system_app, version_name,
	fingerprint, security_score, risk_tier, dangerous_count, normal_count,
	result, report, analysis_version, analyzed_at`

// Create inserts a new analysis
func (r *AnalysisRepository) Create(ctx context.Context, a *models.AppAnalysis) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	result, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis result: %w", err)
	}

	query := `INSERT INTO app_analyses (` + analysisColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.db.Exec(ctx, query,
		a.ID, a.Identifier, a.DisplayName, textOrNull(a.DeviceID), a.IsSystemApp, textOrNull(a.VersionName),
		a.Fingerprint, a.Result.SecurityScore, string(a.Result.RiskTier), a.DangerousCount, a.NormalCount,
		result, textOrNull(a.Report), a.AnalysisVersion, timeToTimestamptz(a.AnalyzedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

// GetByID retrieves an analysis by ID
func (r *AnalysisRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AppAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM app_analyses WHERE id = $1`

	a, err := scanAnalysis(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return a, nil
}

// List returns analyses matching the filter, newest first, with the total match count
func (r *AnalysisRepository) List(ctx context.Context, filter models.AnalysisListFilter) ([]*models.AppAnalysis, int64, error) {
	where, args := buildAnalysisWhere(filter)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM app_analyses`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count analyses: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM app_analyses%s ORDER BY analyzed_at DESC LIMIT $%d OFFSET $%d`,
		analysisColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	analyses := make([]*models.AppAnalysis, 0, filter.Limit)
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

// buildAnalysisWhere renders the WHERE clause and positional args for a filter
func buildAnalysisWhere(filter models.AnalysisListFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Tier != "" {
		add("risk_tier = $%d", string(filter.Tier))
	}
	if filter.Identifier != "" {
		add("identifier = $%d", filter.Identifier)
	}
	if filter.DeviceID != "" {
		add("device_id = $%d", filter.DeviceID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanAnalysis(row pgx.Row) (*models.AppAnalysis, error) {
	var (
		a           models.AppAnalysis
		deviceID    pgtype.Text
		versionName pgtype.Text
		report      pgtype.Text
		score       int
		tier        string
		result      []byte
		analyzedAt  pgtype.Timestamptz
	)

	err := row.Scan(
		&a.ID, &a.Identifier, &a.DisplayName, &deviceID, &a.IsSystemApp, &versionName,
		&a.Fingerprint, &score, &tier, &a.DangerousCount, &a.NormalCount,
		&result, &report, &a.AnalysisVersion, &analyzedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(result, &a.Result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	a.Result.SecurityScore = score
	a.Result.RiskTier = models.RiskTier(tier)
	a.DeviceID = nullTextToString(deviceID)
	a.VersionName = nullTextToString(versionName)
	a.Report = nullTextToString(report)
	a.AnalyzedAt = timestamptzToTime(analyzedAt)

	return &a, nil
}
