package streaming

import (
	"time"

	"github.com/google/uuid"

	"privacyguard-lab/internal/domain/models"
)

// EventType represents the type of analysis event
type EventType string

const (
	EventTypeAnalysisCompleted EventType = "analysis_completed"
	EventTypeHighRiskDetected  EventType = "high_risk_detected"
)

// AnalysisEvent is a real-time notification about a finished app analysis
type AnalysisEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	AnalysisID     string          `json:"analysis_id"`
	Identifier     string          `json:"identifier"`
	DisplayName    string          `json:"display_name"`
	DeviceID       string          `json:"device_id,omitempty"`
	IsSystemApp    bool            `json:"is_system_app"`
	SecurityScore  int             `json:"security_score"`
	RiskTier       models.RiskTier `json:"risk_tier"`
	DangerousCount int             `json:"dangerous_count"`
	SDKs           []string        `json:"sdks,omitempty"`
	SDKCategories  []string        `json:"sdk_categories,omitempty"`
}

// NewAnalysisEvent creates an event from a completed analysis
func NewAnalysisEvent(eventType EventType, a *models.AppAnalysis) *AnalysisEvent {
	sdks := make([]string, 0, len(a.Result.DetectedSDKs))
	categories := make([]string, 0, len(a.Result.DetectedSDKs))
	seen := make(map[models.SdkCategory]bool)
	for _, s := range a.Result.DetectedSDKs {
		sdks = append(sdks, s.Name)
		if !seen[s.Category] {
			seen[s.Category] = true
			categories = append(categories, string(s.Category))
		}
	}

	return &AnalysisEvent{
		ID:             uuid.New().String(),
		Type:           eventType,
		Timestamp:      time.Now(),
		AnalysisID:     a.ID.String(),
		Identifier:     a.Identifier,
		DisplayName:    a.DisplayName,
		DeviceID:       a.DeviceID,
		IsSystemApp:    a.IsSystemApp,
		SecurityScore:  a.Result.SecurityScore,
		RiskTier:       a.Result.RiskTier,
		DangerousCount: a.DangerousCount,
		SDKs:           sdks,
		SDKCategories:  categories,
	}
}

// Subscription represents a client's subscription preferences
type Subscription struct {
	// Filter by tier (empty = all)
	Tiers []models.RiskTier `json:"tiers,omitempty"`

	// Only events at or below this score (nil = no limit)
	MaxScore *int `json:"max_score,omitempty"`

	// Filter by device (empty = all)
	DeviceID string `json:"device_id,omitempty"`

	// Filter by embedded SDK category (empty = all)
	SDKCategories []string `json:"sdk_categories,omitempty"`

	// Include only high_risk_detected events
	HighRiskOnly bool `json:"high_risk_only,omitempty"`
}

// Matches checks if an event matches the subscription filters
func (s *Subscription) Matches(event *AnalysisEvent) bool {
	if s.HighRiskOnly && event.Type != EventTypeHighRiskDetected {
		return false
	}

	if len(s.Tiers) > 0 {
		found := false
		for _, t := range s.Tiers {
			if t == event.RiskTier {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if s.MaxScore != nil && event.SecurityScore > *s.MaxScore {
		return false
	}

	if s.DeviceID != "" && s.DeviceID != event.DeviceID {
		return false
	}

	if len(s.SDKCategories) > 0 {
		found := false
		for _, c := range s.SDKCategories {
			for _, ec := range event.SDKCategories {
				if c == ec {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}

	return true
}
