package streaming

import (
	"context"

	"privacyguard-lab/internal/domain/models"
)

// EventBusPublisher implements services.EventPublisher using the EventBus
type EventBusPublisher struct {
	eventBus *EventBus
}

// NewEventBusPublisher creates a new publisher adapter
func NewEventBusPublisher(eventBus *EventBus) *EventBusPublisher {
	return &EventBusPublisher{eventBus: eventBus}
}

// PublishAnalysis emits analysis_completed for every analysis and an
// additional high_risk_detected event for HIGH tier apps.
func (p *EventBusPublisher) PublishAnalysis(ctx context.Context, analysis *models.AppAnalysis) error {
	events := []*AnalysisEvent{NewAnalysisEvent(EventTypeAnalysisCompleted, analysis)}
	if analysis.Result.RiskTier == models.RiskTierHigh {
		events = append(events, NewAnalysisEvent(EventTypeHighRiskDetected, analysis))
	}

	for _, event := range events {
		if err := p.eventBus.Publish(ctx, event); err != nil {
			return err
		}
	}

	return nil
}
