package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"

	"privacyguard-lab/internal/api/middleware"
	"privacyguard-lab/internal/config"
	"privacyguard-lab/internal/domain/catalog"
	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/internal/domain/services"
	"privacyguard-lab/internal/inventory"
	"privacyguard-lab/pkg/logger"
)

const liteMaxBody = 4 << 20

// APIResponse is the envelope for every JSON response of the lite server
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// liteServer serves stateless analysis: nothing is cached, stored or published
type liteServer struct {
	analyzer *services.AppAnalyzer
	version  string
	logger   *logger.Logger
}

func newLiteRouter(cfg *config.Config, analyzer *services.AppAnalyzer, log *logger.Logger) http.Handler {
	s := &liteServer{analyzer: analyzer, version: cfg.App.Version, logger: log}

	r := mux.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(chimw.Recoverer)

	// Public endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// Protected endpoints
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	api.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	api.HandleFunc("/analyze/batch", s.handleAnalyzeBatch).Methods(http.MethodPost)
	api.HandleFunc("/report", s.handleReport).Methods(http.MethodPost)
	api.HandleFunc("/permissions/{identifier}", s.handleClassifyPermission).Methods(http.MethodGet)
	api.HandleFunc("/sdks", s.handleListSDKs).Methods(http.MethodGet)
	api.HandleFunc("/sdks/detect", s.handleDetectSDKs).Methods(http.MethodGet)

	return corsMiddleware(cfg.CORS.AllowedOrigins, r)
}

// corsMiddleware answers preflight requests and sets CORS headers for allowed origins
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := allowedOrigin(origins, r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowedOrigin returns the Access-Control-Allow-Origin value for origin, or "" if it is not allowed
func allowedOrigin(origins []string, origin string) string {
	if len(origins) == 0 {
		return "*"
	}
	for _, o := range origins {
		if o == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

func (s *liteServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":  "healthy",
			"version": s.version,
			"mode":    "lite",
		},
	})
}

// decodeSnapshotRequest reads an AppAnalysisRequest after validating its app envelope
func decodeSnapshotRequest(w http.ResponseWriter, r *http.Request) (*models.AppAnalysisRequest, bool) {
	var raw struct {
		App           json.RawMessage `json:"app"`
		DeviceID      string          `json:"device_id"`
		IncludeReport bool            `json:"include_report"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, liteMaxBody)).Decode(&raw); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := inventory.ValidateSnapshotJSON(raw.App); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	req := &models.AppAnalysisRequest{DeviceID: raw.DeviceID, IncludeReport: raw.IncludeReport}
	if err := json.Unmarshal(raw.App, &req.App); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid app snapshot")
		return nil, false
	}
	return req, true
}

func (s *liteServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSnapshotRequest(w, r)
	if !ok {
		return
	}

	analysis, err := s.analyzer.AnalyzeApp(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, APIResponse{Success: true, Data: analysis})
}

func (s *liteServer) handleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	var req models.AppBatchAnalysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, liteMaxBody)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.analyzer.AnalyzeBatch(r.Context(), &req)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"batch":   result,
			"summary": services.Summarize(result.Results),
		},
	})
}

func (s *liteServer) handleReport(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSnapshotRequest(w, r)
	if !ok {
		return
	}

	result := services.Analyze(req.App)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(services.RenderReport(req.App.Label(), result)))
}

func (s *liteServer) handleClassifyPermission(w http.ResponseWriter, r *http.Request) {
	identifier := mux.Vars(r)["identifier"]
	_, known := catalog.LookupPermission(identifier)

	respondWithJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"permission": catalog.Classify(identifier, r.URL.Query().Get("granted") == "true"),
			"known":      known,
		},
	})
}

func (s *liteServer) handleListSDKs(w http.ResponseWriter, r *http.Request) {
	sdks := catalog.SdkCatalog()
	if category := r.URL.Query().Get("category"); category != "" {
		filtered := make([]models.SdkDescriptor, 0, len(sdks))
		for _, sdk := range sdks {
			if strings.EqualFold(string(sdk.Category), category) {
				filtered = append(filtered, sdk)
			}
		}
		sdks = filtered
	}
	respondWithJSON(w, http.StatusOK, APIResponse{Success: true, Data: sdks})
}

func (s *liteServer) handleDetectSDKs(w http.ResponseWriter, r *http.Request) {
	app := r.URL.Query().Get("app")
	var names []string
	if raw := r.URL.Query().Get("names"); raw != "" {
		names = strings.Split(raw, ",")
	}
	if app == "" && len(names) == 0 {
		respondWithError(w, http.StatusBadRequest, "app or names is required")
		return
	}
	respondWithJSON(w, http.StatusOK, APIResponse{Success: true, Data: services.DetectSDKs(app, names)})
}

func (s *liteServer) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidSnapshot), errors.Is(err, services.ErrBatchTooLarge):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("analysis failed")
		respondWithError(w, http.StatusInternalServerError, "analysis failed")
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, APIResponse{Success: false, Error: message})
}
