package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/internal/domain/services"
	"privacyguard-lab/internal/infrastructure/database/repository"
	"privacyguard-lab/internal/inventory"
	"privacyguard-lab/pkg/logger"
)

const maxBodyBytes = 4 << 20

// AppSecurityHandler handles app privacy analysis requests
type AppSecurityHandler struct {
	analyzer *services.AppAnalyzer
	counters TierCounter
	logger   *logger.Logger
}

// NewAppSecurityHandler creates a new app security handler
func NewAppSecurityHandler(analyzer *services.AppAnalyzer, counters TierCounter, log *logger.Logger) *AppSecurityHandler {
	return &AppSecurityHandler{
		analyzer: analyzer,
		counters: counters,
		logger:   log.WithComponent("app-security-handler"),
	}
}

// decodeAnalysisRequest decodes a single-app request and validates the
// snapshot against the inventory schema
func decodeAnalysisRequest(w http.ResponseWriter, r *http.Request) (*models.AppAnalysisRequest, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.New("failed to read request body")
	}

	var envelope struct {
		App json.RawMessage `json:"app"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.New("invalid request body")
	}
	if len(envelope.App) == 0 {
		return nil, errors.New("app is required")
	}
	if err := inventory.ValidateSnapshotJSON(envelope.App); err != nil {
		return nil, err
	}

	var req models.AppAnalysisRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.New("invalid request body")
	}
	return &req, nil
}

// AnalyzeApp handles POST /api/v1/apps/analyze
func (h *AppSecurityHandler) AnalyzeApp(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAnalysisRequest(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.analyzer.AnalyzeApp(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "failed to analyze app")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// AnalyzeBatch handles POST /api/v1/apps/analyze/batch
func (h *AppSecurityHandler) AnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req models.AppBatchAnalysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Apps) == 0 {
		respondError(w, http.StatusBadRequest, "apps array is required")
		return
	}

	result, err := h.analyzer.AnalyzeBatch(r.Context(), &req)
	if err != nil {
		h.logger.Error().Err(err).Int("count", len(req.Apps)).Msg("failed to analyze apps batch")
		h.writeServiceError(w, err, "failed to analyze apps")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Report handles POST /api/v1/apps/report and returns the plain-text report
func (h *AppSecurityHandler) Report(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAnalysisRequest(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.IncludeReport = true

	result, err := h.analyzer.AnalyzeApp(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, result.Report)
}

// SummaryResponse is the body of POST /api/v1/apps/summary
type SummaryResponse struct {
	Summary models.InventorySummary `json:"summary"`
	Apps    []models.AppAnalysis    `json:"apps"`
	Skipped int                     `json:"skipped"`
}

// Summary handles POST /api/v1/apps/summary?tier=&q=
func (h *AppSecurityHandler) Summary(w http.ResponseWriter, r *http.Request) {
	var req models.AppBatchAnalysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	filter := models.AppFilter{Query: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("tier"); raw != "" {
		tier, ok := models.ParseRiskTier(raw)
		if !ok {
			respondError(w, http.StatusBadRequest, "unknown tier: "+raw)
			return
		}
		filter.Tier = tier
	}

	batch, err := h.analyzer.AnalyzeBatch(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, err, "failed to summarize apps")
		return
	}

	respondJSON(w, http.StatusOK, SummaryResponse{
		Summary: services.Summarize(batch.Results),
		Apps:    services.FilterApps(batch.Results, filter),
		Skipped: batch.SkippedCount,
	})
}

// ListAnalyses handles GET /api/v1/apps/analyses
func (h *AppSecurityHandler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.AnalysisListFilter{
		Identifier: q.Get("identifier"),
		DeviceID:   q.Get("device_id"),
	}
	if raw := q.Get("tier"); raw != "" {
		tier, ok := models.ParseRiskTier(raw)
		if !ok {
			respondError(w, http.StatusBadRequest, "unknown tier: "+raw)
			return
		}
		filter.Tier = tier
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	analyses, total, err := h.analyzer.ListAnalyses(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err, "failed to list analyses")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"analyses": analyses,
		"total":    total,
		"count":    len(analyses),
	})
}

// GetAnalysis handles GET /api/v1/apps/analyses/{id}
func (h *AppSecurityHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid analysis id")
		return
	}

	analysis, err := h.analyzer.GetAnalysis(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to get analysis")
		return
	}

	respondJSON(w, http.StatusOK, analysis)
}

// TopSDKs handles GET /api/v1/apps/sdks/top
func (h *AppSecurityHandler) TopSDKs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sdks, err := h.analyzer.TopSDKs(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, err, "failed to get top sdks")
		return
	}
	if sdks == nil {
		sdks = []models.SDKPrevalence{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"sdks":  sdks,
		"count": len(sdks),
	})
}

// AppsEmbedding handles GET /api/v1/apps/sdks/{name}/apps
func (h *AppSecurityHandler) AppsEmbedding(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	apps, err := h.analyzer.AppsEmbedding(r.Context(), name)
	if err != nil {
		h.writeServiceError(w, err, "failed to get apps embedding sdk")
		return
	}
	if apps == nil {
		apps = []string{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"sdk":   name,
		"apps":  apps,
		"count": len(apps),
	})
}

// GetStats handles GET /api/v1/apps/stats
func (h *AppSecurityHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	byTier := make(map[models.RiskTier]int64, len(models.RiskTiers))
	for _, t := range models.RiskTiers {
		byTier[t] = 0
	}

	if h.counters != nil {
		counters, err := h.counters.TierCounters(r.Context())
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to get tier counters")
			respondError(w, http.StatusInternalServerError, "failed to get stats")
			return
		}
		for t, n := range counters {
			byTier[t] = n
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{"by_tier": byTier})
}

func (h *AppSecurityHandler) writeServiceError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, services.ErrInvalidSnapshot), errors.Is(err, services.ErrBatchTooLarge):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, "analysis not found")
	case errors.Is(err, services.ErrStoreUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error().Err(err).Msg(message)
		respondError(w, http.StatusInternalServerError, message)
	}
}
