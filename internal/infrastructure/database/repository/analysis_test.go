package repository

import (
	"reflect"
	"testing"
	"time"

	"privacyguard-lab/internal/domain/models"
)

func TestBuildAnalysisWhere(t *testing.T) {
	tests := []struct {
		name   string
		filter models.AnalysisListFilter
		where  string
		args   []any
	}{
		{"empty", models.AnalysisListFilter{Limit: 10}, "", nil},
		{"tier", models.AnalysisListFilter{Tier: models.RiskTierHigh}, " WHERE risk_tier = $1", []any{"high"}},
		{
			"all",
			models.AnalysisListFilter{Tier: models.RiskTierLow, Identifier: "com.example", DeviceID: "pixel-7"},
			" WHERE risk_tier = $1 AND identifier = $2 AND device_id = $3",
			[]any{"low", "com.example", "pixel-7"},
		},
		{"device only", models.AnalysisListFilter{DeviceID: "d1"}, " WHERE device_id = $1", []any{"d1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildAnalysisWhere(tt.filter)
			if where != tt.where {
				t.Errorf("where = %q, want %q", where, tt.where)
			}
			if !reflect.DeepEqual(args, tt.args) {
				t.Errorf("args = %v, want %v", args, tt.args)
			}
		})
	}
}

func TestNullableConversions(t *testing.T) {
	if textOrNull("").Valid {
		t.Error("empty string should be NULL")
	}
	if got := nullTextToString(textOrNull("x")); got != "x" {
		t.Errorf("round trip = %q", got)
	}
	if timeToTimestamptz(time.Time{}).Valid {
		t.Error("zero time should be NULL")
	}
	now := time.Now().UTC()
	if got := timestamptzToTime(timeToTimestamptz(now)); !got.Equal(now) {
		t.Errorf("time round trip = %v", got)
	}
}
