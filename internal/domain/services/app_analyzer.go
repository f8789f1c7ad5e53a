package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/pkg/logger"
)

// AnalysisVersion identifies the scoring rules applied to stored analyses
const AnalysisVersion = "1.0.0"

var (
	// ErrInvalidSnapshot is returned for snapshots the analyzer cannot score
	ErrInvalidSnapshot = errors.New("invalid app snapshot")
	// ErrBatchTooLarge is returned when a batch exceeds the configured maximum
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
	// ErrStoreUnavailable is returned for lookups when persistence is disabled
	ErrStoreUnavailable = errors.New("analysis store not configured")
)

// ResultCache caches analyses by snapshot fingerprint. A miss returns nil, nil.
type ResultCache interface {
	GetAnalysis(ctx context.Context, fingerprint string) (*models.AppAnalysis, error)
	SetAnalysis(ctx context.Context, fingerprint string, analysis *models.AppAnalysis, ttl time.Duration) error
}

// AnalysisStore persists analyses
type AnalysisStore interface {
	Create(ctx context.Context, analysis *models.AppAnalysis) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AppAnalysis, error)
	List(ctx context.Context, filter models.AnalysisListFilter) ([]*models.AppAnalysis, int64, error)
}

// SDKGraph records which apps embed which SDKs
type SDKGraph interface {
	RecordAppSDKs(ctx context.Context, identifier string, sdks []models.SdkDescriptor) error
	TopSDKs(ctx context.Context, limit int) ([]models.SDKPrevalence, error)
	AppsEmbedding(ctx context.Context, sdkName string) ([]string, error)
}

// EventPublisher publishes completed analyses
type EventPublisher interface {
	PublishAnalysis(ctx context.Context, analysis *models.AppAnalysis) error
}

// AnalyzerConfig tunes the analyzer
type AnalyzerConfig struct {
	BatchMax int
	Workers  int
	CacheTTL time.Duration
}

// AnalyzerDeps holds the optional collaborators; nil fields are skipped
type AnalyzerDeps struct {
	Cache  ResultCache
	Store  AnalysisStore
	Graph  SDKGraph
	Events EventPublisher
}

// AppAnalyzer runs the scoring core and fans results out to infrastructure
type AppAnalyzer struct {
	cfg    AnalyzerConfig
	deps   AnalyzerDeps
	logger *logger.Logger
	now    func() time.Time
}

// NewAppAnalyzer creates a new app analyzer
func NewAppAnalyzer(cfg AnalyzerConfig, deps AnalyzerDeps, log *logger.Logger) *AppAnalyzer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchMax <= 0 {
		cfg.BatchMax = 500
	}
	return &AppAnalyzer{
		cfg:    cfg,
		deps:   deps,
		logger: log.WithComponent("app-analyzer"),
		now:    time.Now,
	}
}

// ValidateSnapshot checks the fields the scoring core relies on
func ValidateSnapshot(s models.AppSnapshot) error {
	if strings.TrimSpace(s.Identifier) == "" {
		return fmt.Errorf("%w: identifier is required", ErrInvalidSnapshot)
	}
	for i, p := range s.RequestedPermissions {
		if strings.TrimSpace(p.Identifier) == "" {
			return fmt.Errorf("%w: permission %d has an empty identifier", ErrInvalidSnapshot, i)
		}
	}
	return nil
}

// Fingerprint returns a stable digest of the snapshot fields that affect the analysis
func Fingerprint(s models.AppSnapshot) string {
	key := struct {
		Identifier  string                   `json:"i"`
		DisplayName string                   `json:"d"`
		Permissions []models.PermissionGrant `json:"p"`
		System      bool                     `json:"s"`
		Embedded    []string                 `json:"e"`
		Version     string                   `json:"v"`
	}{s.Identifier, s.DisplayName, s.RequestedPermissions, s.IsSystemApp, s.EmbeddedNames, AnalysisVersion}

	// Marshalling plain strings, bools and slices cannot fail.
	raw, _ := json.Marshal(key)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// cacheKey scopes a snapshot fingerprint to the submitting device
func cacheKey(fingerprint, deviceID string) string {
	if deviceID == "" {
		return fingerprint
	}
	return deviceID + ":" + fingerprint
}

// AnalyzeApp performs a complete privacy analysis of an app
func (a *AppAnalyzer) AnalyzeApp(ctx context.Context, req *models.AppAnalysisRequest) (*models.AppAnalysis, error) {
	if err := ValidateSnapshot(req.App); err != nil {
		return nil, err
	}

	fingerprint := Fingerprint(req.App)
	log := a.logger.WithPackage(req.App.Identifier)

	if a.deps.Cache != nil && !req.SkipCache {
		cached, err := a.deps.Cache.GetAnalysis(ctx, cacheKey(fingerprint, req.DeviceID))
		if err != nil {
			log.Warn().Err(err).Msg("cache lookup failed")
		} else if cached != nil {
			cached.Cached = true
			return responseView(cached, req.IncludeReport), nil
		}
	}

	result := Analyze(req.App)
	analysis := &models.AppAnalysis{
		ID:              uuid.New(),
		Identifier:      req.App.Identifier,
		DisplayName:     req.App.Label(),
		DeviceID:        req.DeviceID,
		IsSystemApp:     req.App.IsSystemApp,
		VersionName:     req.App.VersionName,
		Fingerprint:     fingerprint,
		Result:          result,
		DangerousCount:  result.DangerousCount(),
		NormalCount:     result.NormalCount(),
		Report:          RenderReport(req.App.Label(), result),
		AnalyzedAt:      a.now(),
		AnalysisVersion: AnalysisVersion,
	}

	a.fanOut(ctx, analysis)

	log.Info().
		Str("risk_tier", string(result.RiskTier)).
		Int("security_score", result.SecurityScore).
		Int("dangerous", analysis.DangerousCount).
		Int("sdks", len(result.DetectedSDKs)).
		Msg("app analysis completed")

	return responseView(analysis, req.IncludeReport), nil
}

// fanOut hands the analysis to each configured collaborator. Failures are
// logged; the analysis itself has already succeeded.
func (a *AppAnalyzer) fanOut(ctx context.Context, analysis *models.AppAnalysis) {
	log := a.logger.WithPackage(analysis.Identifier)

	if a.deps.Store != nil {
		if err := a.deps.Store.Create(ctx, analysis); err != nil {
			log.Warn().Err(err).Msg("failed to persist analysis")
		}
	}
	if a.deps.Graph != nil {
		if err := a.deps.Graph.RecordAppSDKs(ctx, analysis.Identifier, analysis.Result.DetectedSDKs); err != nil {
			log.Warn().Err(err).Msg("failed to record sdk graph")
		}
	}
	if a.deps.Events != nil {
		if err := a.deps.Events.PublishAnalysis(ctx, analysis); err != nil {
			log.Warn().Err(err).Msg("failed to publish analysis event")
		}
	}
	if a.deps.Cache != nil {
		if err := a.deps.Cache.SetAnalysis(ctx, cacheKey(analysis.Fingerprint, analysis.DeviceID), analysis, a.cfg.CacheTTL); err != nil {
			log.Warn().Err(err).Msg("failed to cache analysis")
		}
	}
}

func responseView(analysis *models.AppAnalysis, includeReport bool) *models.AppAnalysis {
	if includeReport {
		return analysis
	}
	view := *analysis
	view.Report = ""
	return &view
}

// AnalyzeBatch analyzes apps in parallel. Invalid snapshots are skipped and
// counted; results are ordered safest first.
func (a *AppAnalyzer) AnalyzeBatch(ctx context.Context, req *models.AppBatchAnalysisRequest) (*models.AppBatchAnalysisResult, error) {
	if len(req.Apps) > a.cfg.BatchMax {
		return nil, fmt.Errorf("%w: %d apps, max %d", ErrBatchTooLarge, len(req.Apps), a.cfg.BatchMax)
	}

	analyses := make([]*models.AppAnalysis, len(req.Apps))

	var g errgroup.Group
	g.SetLimit(a.cfg.Workers)

	for i := range req.Apps {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := a.AnalyzeApp(ctx, &models.AppAnalysisRequest{
				App:           req.Apps[i],
				DeviceID:      req.DeviceID,
				IncludeReport: req.IncludeReport,
			})
			if err != nil {
				a.logger.Warn().Err(err).Int("index", i).Str("package", req.Apps[i].Identifier).Msg("failed to analyze app")
				return nil
			}
			analyses[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &models.AppBatchAnalysisResult{
		Results:    make([]models.AppAnalysis, 0, len(req.Apps)),
		TotalCount: len(req.Apps),
		ByTier:     make(map[models.RiskTier]int),
		AnalyzedAt: a.now(),
	}
	for _, res := range analyses {
		if res == nil {
			result.SkippedCount++
			continue
		}
		result.Results = append(result.Results, *res)
		result.ByTier[res.Result.RiskTier]++
	}

	SortSafestFirst(result.Results)

	a.logger.Info().
		Int("total", result.TotalCount).
		Int("skipped", result.SkippedCount).
		Msg("batch analysis completed")

	return result, nil
}

// SortSafestFirst orders analyses by descending score, then by identifier
func SortSafestFirst(results []models.AppAnalysis) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Result.SecurityScore != results[j].Result.SecurityScore {
			return results[i].Result.SecurityScore > results[j].Result.SecurityScore
		}
		return results[i].Identifier < results[j].Identifier
	})
}

// FilterApps keeps analyses matching the tier (if set) whose display name or
// identifier contains the query, case-insensitively
func FilterApps(results []models.AppAnalysis, filter models.AppFilter) []models.AppAnalysis {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	out := make([]models.AppAnalysis, 0, len(results))
	for _, r := range results {
		if filter.Tier != "" && r.Result.RiskTier != filter.Tier {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(r.DisplayName), query) &&
			!strings.Contains(strings.ToLower(r.Identifier), query) {
			continue
		}
		out = append(out, r)
	}
	return out
}

const summaryTopSDKs = 10

// Summarize aggregates analyses into an inventory overview
func Summarize(results []models.AppAnalysis) models.InventorySummary {
	summary := models.InventorySummary{
		TotalApps: len(results),
		ByTier:    make(map[models.RiskTier]int, len(models.RiskTiers)),
		TopSDKs:   []models.SDKPrevalence{},
	}
	for _, t := range models.RiskTiers {
		summary.ByTier[t] = 0
	}

	prevalence := make(map[string]*models.SDKPrevalence)
	totalScore := 0

	for _, r := range results {
		summary.ByTier[r.Result.RiskTier]++
		totalScore += r.Result.SecurityScore

		if r.IsSystemApp {
			summary.SystemApps++
		}
		for _, p := range r.Result.Permissions {
			if p.IsDangerous && p.IsGranted {
				summary.DangerousGranted++
			}
		}
		if r.Result.HasSDKCategory(models.SdkCategoryAdvertising) {
			summary.AppsWithAdvertising++
		}
		if r.Result.HasSDKCategory(models.SdkCategoryTracking) {
			summary.AppsWithTracking++
		}
		for _, s := range r.Result.DetectedSDKs {
			p, ok := prevalence[s.Name]
			if !ok {
				p = &models.SDKPrevalence{Name: s.Name, Category: s.Category}
				prevalence[s.Name] = p
			}
			p.AppCount++
		}
	}

	summary.HighRiskApps = summary.ByTier[models.RiskTierHigh]
	summary.MediumRiskApps = summary.ByTier[models.RiskTierMedium]
	if len(results) > 0 {
		summary.AverageScore = float64(totalScore) / float64(len(results))
	}

	for _, p := range prevalence {
		summary.TopSDKs = append(summary.TopSDKs, *p)
	}
	sortPrevalence(summary.TopSDKs)
	if len(summary.TopSDKs) > summaryTopSDKs {
		summary.TopSDKs = summary.TopSDKs[:summaryTopSDKs]
	}

	return summary
}

func sortPrevalence(p []models.SDKPrevalence) {
	sort.Slice(p, func(i, j int) bool {
		if p[i].AppCount != p[j].AppCount {
			return p[i].AppCount > p[j].AppCount
		}
		return p[i].Name < p[j].Name
	})
}

// GetAnalysis loads a stored analysis
func (a *AppAnalyzer) GetAnalysis(ctx context.Context, id uuid.UUID) (*models.AppAnalysis, error) {
	if a.deps.Store == nil {
		return nil, ErrStoreUnavailable
	}
	return a.deps.Store.GetByID(ctx, id)
}

// ListAnalyses lists stored analyses, newest first
func (a *AppAnalyzer) ListAnalyses(ctx context.Context, filter models.AnalysisListFilter) ([]*models.AppAnalysis, int64, error) {
	if a.deps.Store == nil {
		return nil, 0, ErrStoreUnavailable
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return a.deps.Store.List(ctx, filter)
}

// TopSDKs returns the most embedded SDKs across all recorded apps. It returns
// nil when no graph is configured.
func (a *AppAnalyzer) TopSDKs(ctx context.Context, limit int) ([]models.SDKPrevalence, error) {
	if a.deps.Graph == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = summaryTopSDKs
	}
	return a.deps.Graph.TopSDKs(ctx, limit)
}

// AppsEmbedding lists apps known to embed the named SDK. It returns nil when
// no graph is configured.
func (a *AppAnalyzer) AppsEmbedding(ctx context.Context, sdkName string) ([]string, error) {
	if a.deps.Graph == nil {
		return nil, nil
	}
	return a.deps.Graph.AppsEmbedding(ctx, sdkName)
}
