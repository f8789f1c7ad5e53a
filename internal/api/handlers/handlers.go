package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/internal/domain/services"
	"privacyguard-lab/internal/streaming"
	"privacyguard-lab/pkg/logger"
)

// HealthCheck reports whether one backing service is reachable
type HealthCheck func(ctx context.Context) error

// TierCounter exposes running per-tier totals
type TierCounter interface {
	TierCounters(ctx context.Context) (map[models.RiskTier]int64, error)
}

// Handlers holds all API handlers
type Handlers struct {
	Health      *HealthHandler
	AppSecurity *AppSecurityHandler
	Catalog     *CatalogHandler
	Streaming   *StreamingHandler
}

// Dependencies holds dependencies for handlers
type Dependencies struct {
	Analyzer *services.AppAnalyzer
	Counters TierCounter
	Checks   map[string]HealthCheck
	WSHub    *streaming.WebSocketHub
	EventBus *streaming.EventBus
	Version  string
	Logger   *logger.Logger
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health:      NewHealthHandler(deps.Checks, deps.Version, deps.Logger),
		AppSecurity: NewAppSecurityHandler(deps.Analyzer, deps.Counters, deps.Logger),
		Catalog:     NewCatalogHandler(deps.Logger),
		Streaming:   NewStreamingHandler(deps.WSHub, deps.EventBus, deps.Logger),
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
