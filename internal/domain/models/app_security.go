package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RiskTier represents the privacy risk tier of an app
type RiskTier string

const (
	RiskTierSafe   RiskTier = "safe"
	RiskTierLow    RiskTier = "low"
	RiskTierMedium RiskTier = "medium"
	RiskTierHigh   RiskTier = "high"
)

// RiskTiers lists every tier from safest to riskiest
var RiskTiers = []RiskTier{RiskTierSafe, RiskTierLow, RiskTierMedium, RiskTierHigh}

// IsValid reports whether t is a known tier
func (t RiskTier) IsValid() bool {
	switch t {
	case RiskTierSafe, RiskTierLow, RiskTierMedium, RiskTierHigh:
		return true
	}
	return false
}

// ParseRiskTier parses a tier name case-insensitively
func ParseRiskTier(s string) (RiskTier, bool) {
	t := RiskTier(strings.ToLower(strings.TrimSpace(s)))
	return t, t.IsValid()
}

// SdkCategory classifies a third-party SDK
type SdkCategory string

const (
	SdkCategoryAnalytics   SdkCategory = "analytics"
	SdkCategoryAdvertising SdkCategory = "advertising"
	SdkCategorySocial      SdkCategory = "social"
	SdkCategoryPayment     SdkCategory = "payment"
	SdkCategoryTracking    SdkCategory = "tracking"
	SdkCategoryOther       SdkCategory = "other"
)

// SdkCategories lists categories in their declared order
var SdkCategories = []SdkCategory{
	SdkCategoryAnalytics,
	SdkCategoryAdvertising,
	SdkCategorySocial,
	SdkCategoryPayment,
	SdkCategoryTracking,
	SdkCategoryOther,
}

// Ordinal returns the position of c in SdkCategories; unknown categories sort last
func (c SdkCategory) Ordinal() int {
	for i, cat := range SdkCategories {
		if cat == c {
			return i
		}
	}
	return len(SdkCategories)
}

// PermissionGrant is a raw (identifier, granted) pair supplied by the package inventory
type PermissionGrant struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Granted    bool   `json:"granted" yaml:"granted"`
}

// PermissionRecord is a permission classified against the permission catalog
type PermissionRecord struct {
	Identifier  string `json:"identifier"`
	IsDangerous bool   `json:"is_dangerous"`
	IsGranted   bool   `json:"is_granted"`
	RiskWeight  int    `json:"risk_weight"` // 0-100
	DisplayName string `json:"display_name"`
	Explanation string `json:"explanation"`
}

// SdkDescriptor describes a third-party SDK; Name is its identity
type SdkDescriptor struct {
	Name        string      `json:"name"`
	Category    SdkCategory `json:"category"`
	Description string      `json:"description"`
}

// AppSnapshot is the inventory record for one installed app.
// Version, install time, size and icon are carried for presentation only.
type AppSnapshot struct {
	Identifier           string            `json:"identifier" yaml:"identifier"`
	DisplayName          string            `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	RequestedPermissions []PermissionGrant `json:"requested_permissions" yaml:"requested_permissions"`
	IsSystemApp          bool              `json:"is_system_app" yaml:"is_system_app"`
	EmbeddedNames        []string          `json:"embedded_names,omitempty" yaml:"embedded_names,omitempty"`
	VersionName          string            `json:"version_name,omitempty" yaml:"version_name,omitempty"`
	VersionCode          int64             `json:"version_code,omitempty" yaml:"version_code,omitempty"`
	InstalledAt          time.Time         `json:"installed_at,omitempty" yaml:"installed_at,omitempty"`
	SizeBytes            int64             `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
	IconRef              string            `json:"icon_ref,omitempty" yaml:"icon_ref,omitempty"`
}

// PermissionCount returns the number of requested permissions
func (s AppSnapshot) PermissionCount() int {
	return len(s.RequestedPermissions)
}

// Label returns the display name, falling back to the identifier
func (s AppSnapshot) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Identifier
}

// AnalysisResult is the outcome of scoring one snapshot
type AnalysisResult struct {
	Permissions   []PermissionRecord `json:"permissions"`
	DetectedSDKs  []SdkDescriptor    `json:"detected_sdks"`
	SecurityScore int                `json:"security_score"` // 0-100, higher is safer
	RiskTier      RiskTier           `json:"risk_tier"`
}

// DangerousCount returns the number of dangerous permissions
func (r AnalysisResult) DangerousCount() int {
	n := 0
	for _, p := range r.Permissions {
		if p.IsDangerous {
			n++
		}
	}
	return n
}

// NormalCount returns the number of non-dangerous permissions
func (r AnalysisResult) NormalCount() int {
	return len(r.Permissions) - r.DangerousCount()
}

// HasSDKCategory reports whether any detected SDK is in category c
func (r AnalysisResult) HasSDKCategory(c SdkCategory) bool {
	for _, sdk := range r.DetectedSDKs {
		if sdk.Category == c {
			return true
		}
	}
	return false
}

// AppAnalysisRequest represents a request to analyze an app
type AppAnalysisRequest struct {
	App           AppSnapshot `json:"app"`
	DeviceID      string      `json:"device_id,omitempty"`
	IncludeReport bool        `json:"include_report,omitempty"`
	SkipCache     bool        `json:"skip_cache,omitempty"`
}

// AppAnalysis wraps an AnalysisResult with the identity of the run
type AppAnalysis struct {
	ID              uuid.UUID      `json:"id"`
	Identifier      string         `json:"identifier"`
	DisplayName     string         `json:"display_name"`
	DeviceID        string         `json:"device_id,omitempty"`
	IsSystemApp     bool           `json:"is_system_app"`
	VersionName     string         `json:"version_name,omitempty"`
	Fingerprint     string         `json:"fingerprint"`
	Result          AnalysisResult `json:"result"`
	DangerousCount  int            `json:"dangerous_count"`
	NormalCount     int            `json:"normal_count"`
	Report          string         `json:"report,omitempty"`
	AnalyzedAt      time.Time      `json:"analyzed_at"`
	AnalysisVersion string         `json:"analysis_version"`
	Cached          bool           `json:"cached,omitempty"`
}

// AppBatchAnalysisRequest represents a batch analysis request
type AppBatchAnalysisRequest struct {
	Apps          []AppSnapshot `json:"apps"`
	DeviceID      string        `json:"device_id,omitempty"`
	IncludeReport bool          `json:"include_report,omitempty"`
}

// AppBatchAnalysisResult contains results for batch analysis, safest first
type AppBatchAnalysisResult struct {
	Results      []AppAnalysis    `json:"results"`
	TotalCount   int              `json:"total_count"`
	SkippedCount int              `json:"skipped_count"`
	ByTier       map[RiskTier]int `json:"by_tier"`
	AnalyzedAt   time.Time        `json:"analyzed_at"`
}

// AppFilter selects analyses by tier and free-text query
type AppFilter struct {
	Tier  RiskTier `json:"tier,omitempty"`
	Query string   `json:"query,omitempty"`
}

// InventorySummary aggregates the analyses of a device inventory
type InventorySummary struct {
	TotalApps           int              `json:"total_apps"`
	ByTier              map[RiskTier]int `json:"by_tier"`
	HighRiskApps        int              `json:"high_risk_apps"`
	MediumRiskApps      int              `json:"medium_risk_apps"`
	SystemApps          int              `json:"system_apps"`
	DangerousGranted    int              `json:"dangerous_granted"`
	AppsWithAdvertising int              `json:"apps_with_advertising"`
	AppsWithTracking    int              `json:"apps_with_tracking"`
	AverageScore        float64          `json:"average_score"`
	TopSDKs             []SDKPrevalence  `json:"top_sdks"`
}

// SDKPrevalence counts how many apps embed an SDK
type SDKPrevalence struct {
	Name     string      `json:"name"`
	Category SdkCategory `json:"category"`
	AppCount int         `json:"app_count"`
}

// AnalysisListFilter narrows stored analyses
type AnalysisListFilter struct {
	Tier       RiskTier `json:"tier,omitempty"`
	Identifier string   `json:"identifier,omitempty"`
	DeviceID   string   `json:"device_id,omitempty"`
	Limit      int      `json:"limit,omitempty"`
	Offset     int      `json:"offset,omitempty"`
}
