package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/internal/streaming"
)

const testInventory = `
device_id: pixel-7
apps:
  - identifier: com.example.notes
    display_name: Notes
    requested_permissions: []
  - identifier: com.example.camera
    display_name: Camera Plus
    requested_permissions:
      - identifier: android.permission.CAMERA
        granted: true
      - identifier: android.permission.RECORD_AUDIO
        granted: true
      - identifier: android.permission.ACCESS_FINE_LOCATION
        granted: true
      - identifier: android.permission.READ_CONTACTS
        granted: false
      - identifier: android.permission.INTERNET
        granted: true
    embedded_names:
      - com.google.android.gms.ads
      - com.facebook.ads
`

func writeInventory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	if err := os.WriteFile(path, []byte(testInventory), 0o600); err != nil {
		t.Fatalf("write inventory: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func analyzeJSON(t *testing.T, args ...string) analyzeOutput {
	t.Helper()
	out, err := execute(t, append([]string{"analyze", "-o", "json"}, args...)...)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var doc analyzeOutput
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	return doc
}

func TestAnalyzeJSON(t *testing.T) {
	doc := analyzeJSON(t, writeInventory(t))

	if doc.DeviceID != "pixel-7" {
		t.Errorf("DeviceID = %q", doc.DeviceID)
	}
	if doc.Summary.TotalApps != 2 {
		t.Errorf("TotalApps = %d, want 2", doc.Summary.TotalApps)
	}
	if len(doc.Apps) != 2 {
		t.Fatalf("got %d apps, want 2", len(doc.Apps))
	}
	notes := doc.Apps[0]
	if notes.Identifier != "com.example.notes" {
		t.Errorf("safest app = %s, want com.example.notes", notes.Identifier)
	}
	if notes.Result.SecurityScore != 100 || notes.Result.RiskTier != models.RiskTierSafe {
		t.Errorf("notes scored %d/%s, want 100/safe", notes.Result.SecurityScore, notes.Result.RiskTier)
	}
}

func TestAnalyzeFilters(t *testing.T) {
	path := writeInventory(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"tier", []string{"--filter-tier", "safe"}, "com.example.notes"},
		{"query", []string{"-q", "camera"}, "com.example.camera"},
		{"query matches display name", []string{"-q", "PLUS"}, "com.example.camera"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := analyzeJSON(t, append([]string{path}, tt.args...)...)
			if len(doc.Apps) != 1 || doc.Apps[0].Identifier != tt.want {
				t.Fatalf("got %+v, want only %s", doc.Apps, tt.want)
			}
			if doc.Summary.TotalApps != 2 {
				t.Errorf("summary should cover the whole inventory, got %d", doc.Summary.TotalApps)
			}
		})
	}
}

func TestAnalyzeTable(t *testing.T) {
	out, err := execute(t, "analyze", writeInventory(t))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, want := range []string{"Notes", "com.example.camera", "Summary", "With advertising:  1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyzeReportOutput(t *testing.T) {
	out, err := execute(t, "analyze", writeInventory(t), "-o", "report")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for _, want := range []string{"Privacy analysis: Notes", "Privacy analysis: Camera Plus"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestAnalyzeFailOn(t *testing.T) {
	path := writeInventory(t)

	_, err := execute(t, "analyze", path, "-o", "json", "--fail-on", "safe")
	if !errors.Is(err, errThresholdExceeded) {
		t.Errorf("err = %v, want errThresholdExceeded", err)
	}

	// The threshold applies to the whole inventory, not the filtered view
	_, err = execute(t, "analyze", path, "-o", "json", "--fail-on", "safe", "-q", "notes")
	if !errors.Is(err, errThresholdExceeded) {
		t.Errorf("filtered run: err = %v, want errThresholdExceeded", err)
	}
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	path := writeInventory(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown tier", []string{"analyze", path, "--filter-tier", "critical"}},
		{"unknown fail-on", []string{"analyze", path, "--fail-on", "severe"}},
		{"unknown output", []string{"analyze", path, "-o", "xml"}},
		{"missing file", []string{"analyze", filepath.Join(t.TempDir(), "missing.yaml")}},
		{"no args", []string{"analyze"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReport(t *testing.T) {
	path := writeInventory(t)

	out, err := execute(t, "report", "com.example.camera", "-i", path)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.HasPrefix(out, "Privacy analysis: Camera Plus") {
		t.Errorf("unexpected report header:\n%s", out)
	}
	if !strings.Contains(out, "Dangerous permissions") {
		t.Errorf("report missing dangerous permissions:\n%s", out)
	}

	if _, err := execute(t, "report", "com.example.unknown", "-i", path); err == nil {
		t.Error("expected error for unknown app")
	}
	if _, err := execute(t, "report", "com.example.camera"); err == nil {
		t.Error("expected error without --inventory")
	}
}

func TestPermissions(t *testing.T) {
	out, err := execute(t, "permissions", "--dangerous", "-o", "json")
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}

	var perms []struct {
		Identifier  string `json:"identifier"`
		IsDangerous bool   `json:"is_dangerous"`
	}
	if err := json.Unmarshal([]byte(out), &perms); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(perms) == 0 {
		t.Fatal("expected dangerous permissions")
	}
	for _, p := range perms {
		if !p.IsDangerous {
			t.Errorf("%s is not dangerous", p.Identifier)
		}
	}

	out, err = execute(t, "permissions", "android.permission.CAMERA")
	if err != nil {
		t.Fatalf("permissions CAMERA: %v", err)
	}
	if !strings.Contains(out, "Risk weight: 85") || !strings.Contains(out, "Known:       true") {
		t.Errorf("unexpected classification:\n%s", out)
	}
}

func TestSDKs(t *testing.T) {
	out, err := execute(t, "sdks", "--category", "payment", "-o", "json")
	if err != nil {
		t.Fatalf("sdks: %v", err)
	}
	var sdks []models.SdkDescriptor
	if err := json.Unmarshal([]byte(out), &sdks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sdks) == 0 {
		t.Fatal("expected payment sdks")
	}
	for _, s := range sdks {
		if s.Category != models.SdkCategoryPayment {
			t.Errorf("%s has category %s", s.Name, s.Category)
		}
	}

	out, err = execute(t, "sdks", "detect", "com.example.app", "com.facebook.ads", "-o", "json")
	if err != nil {
		t.Fatalf("sdks detect: %v", err)
	}
	sdks = nil
	if err := json.Unmarshal([]byte(out), &sdks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sdks) != 1 || sdks[0].Name != "Facebook Audience Network" {
		t.Errorf("detected %+v, want Facebook Audience Network", sdks)
	}
}

func TestWatchSubscription(t *testing.T) {
	sub, err := (&watchOptions{maxScore: -1}).subscription()
	if err != nil || sub != nil {
		t.Errorf("no flags: got %+v, %v; want nil subscription", sub, err)
	}

	sub, err = (&watchOptions{tiers: []string{"HIGH", "medium"}, maxScore: -1, deviceID: "pixel-7", highRiskOnly: true}).subscription()
	if err != nil {
		t.Fatalf("subscription: %v", err)
	}
	if len(sub.Tiers) != 2 || sub.Tiers[0] != models.RiskTierHigh || sub.DeviceID != "pixel-7" || !sub.HighRiskOnly {
		t.Errorf("unexpected subscription %+v", sub)
	}
	if sub.MaxScore != nil {
		t.Errorf("max score = %d, want no limit", *sub.MaxScore)
	}

	sub, err = (&watchOptions{maxScore: 0}).subscription()
	if err != nil {
		t.Fatalf("subscription: %v", err)
	}
	if sub == nil || sub.MaxScore == nil || *sub.MaxScore != 0 {
		t.Errorf("max-score 0 should filter to zero scores, got %+v", sub)
	}

	if _, err := (&watchOptions{tiers: []string{"critical"}, maxScore: -1}).subscription(); err == nil {
		t.Error("expected error for unknown tier")
	}
	if _, err := (&watchOptions{maxScore: 101}).subscription(); err == nil {
		t.Error("expected error for max-score above 100")
	}
}

func TestWriteEvent(t *testing.T) {
	event := &streaming.AnalysisEvent{
		ID:            "evt-1",
		Type:          streaming.EventTypeHighRiskDetected,
		Timestamp:     time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		Identifier:    "com.example.flashlight",
		DisplayName:   "Flashlight",
		SecurityScore: 12,
		RiskTier:      models.RiskTierHigh,
	}

	var line bytes.Buffer
	if err := writeEvent(&line, outputTable, event); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"09:30:00", "Flashlight (com.example.flashlight)", " 12 ", "high_risk_detected"} {
		if !strings.Contains(line.String(), want) {
			t.Errorf("line %q missing %q", line.String(), want)
		}
	}

	var js bytes.Buffer
	if err := writeEvent(&js, outputJSON, event); err != nil {
		t.Fatal(err)
	}
	var decoded streaming.AnalysisEvent
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != "evt-1" || decoded.RiskTier != models.RiskTierHigh {
		t.Errorf("decoded %+v", decoded)
	}
}

func TestAnalyzeSaveAndHistory(t *testing.T) {
	path := writeInventory(t)
	db := filepath.Join(t.TempDir(), "history.db")

	if _, err := execute(t, "analyze", path, "-o", "json", "--save", db); err != nil {
		t.Fatalf("analyze --save: %v", err)
	}

	out, err := execute(t, "history", db, "-o", "json")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var doc struct {
		Analyses []models.AppAnalysis `json:"analyses"`
		Total    int64                `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if doc.Total != 2 || len(doc.Analyses) != 2 {
		t.Fatalf("total/len = %d/%d, want 2/2", doc.Total, len(doc.Analyses))
	}
	for _, a := range doc.Analyses {
		if a.DeviceID != "pixel-7" {
			t.Errorf("%s: DeviceID = %q", a.Identifier, a.DeviceID)
		}
	}

	out, err = execute(t, "history", db, "--app", "com.example.notes")
	if err != nil {
		t.Fatalf("history --app: %v", err)
	}
	if !strings.Contains(out, "com.example.notes") || strings.Contains(out, "com.example.camera") {
		t.Errorf("unexpected filtered history:\n%s", out)
	}
	if !strings.Contains(out, "1 of 1 analyses") {
		t.Errorf("missing footer:\n%s", out)
	}

	if _, err := execute(t, "history", db, "--tier", "critical"); err == nil {
		t.Error("expected error for unknown tier")
	}
}
