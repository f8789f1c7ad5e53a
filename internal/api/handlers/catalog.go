package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"privacyguard-lab/internal/domain/catalog"
	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/internal/domain/services"
	"privacyguard-lab/pkg/logger"
)

// CatalogHandler serves the permission and SDK catalogs
type CatalogHandler struct {
	logger *logger.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{logger: log.WithComponent("catalog-handler")}
}

// ListPermissions handles GET /api/v1/catalog/permissions
func (h *CatalogHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms := catalog.Permissions()
	respondJSON(w, http.StatusOK, map[string]any{
		"permissions": perms,
		"count":       len(perms),
	})
}

// ListDangerousPermissions handles GET /api/v1/catalog/permissions/dangerous
func (h *CatalogHandler) ListDangerousPermissions(w http.ResponseWriter, r *http.Request) {
	perms := catalog.DangerousPermissions()
	respondJSON(w, http.StatusOK, map[string]any{
		"permissions": perms,
		"count":       len(perms),
	})
}

// GetPermission handles GET /api/v1/catalog/permissions/{identifier}.
// Unknown identifiers are classified with the fallback rules.
func (h *CatalogHandler) GetPermission(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	_, known := catalog.LookupPermission(identifier)

	respondJSON(w, http.StatusOK, map[string]any{
		"permission": catalog.Classify(identifier, false),
		"known":      known,
	})
}

// ListSDKs handles GET /api/v1/catalog/sdks?category=
func (h *CatalogHandler) ListSDKs(w http.ResponseWriter, r *http.Request) {
	sdks := catalog.SdkCatalog()

	if raw := r.URL.Query().Get("category"); raw != "" {
		category := models.SdkCategory(strings.ToLower(raw))
		filtered := sdks[:0]
		for _, s := range sdks {
			if s.Category == category {
				filtered = append(filtered, s)
			}
		}
		sdks = filtered
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"sdks":  sdks,
		"count": len(sdks),
	})
}

// DetectSDKs handles GET /api/v1/catalog/sdks/detect?app=&names=a,b
func (h *CatalogHandler) DetectSDKs(w http.ResponseWriter, r *http.Request) {
	app := r.URL.Query().Get("app")
	var names []string
	if raw := r.URL.Query().Get("names"); raw != "" {
		names = strings.Split(raw, ",")
	}
	if app == "" && len(names) == 0 {
		respondError(w, http.StatusBadRequest, "app or names is required")
		return
	}

	sdks := services.DetectSDKs(app, names)
	respondJSON(w, http.StatusOK, map[string]any{
		"sdks":  sdks,
		"count": len(sdks),
	})
}
