package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"privacyguard-lab/internal/config"
	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/internal/domain/services"
	"privacyguard-lab/pkg/logger"
)

const liteCameraApp = `{"app":{"identifier":"com.example.cam","display_name":"Cam",
  "requested_permissions":[
    {"identifier":"android.permission.CAMERA","granted":true},
    {"identifier":"android.permission.INTERNET","granted":true}],
  "embedded_names":["com.google.android.gms.ads"]}}`

func newLiteTestServer(t *testing.T, keys ...string) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.APIKeys = keys
	cfg.CORS.AllowedOrigins = []string{"https://dashboard.example.com"}

	log := logger.NewNop()
	analyzer := services.NewAppAnalyzer(services.AnalyzerConfig{BatchMax: 3, Workers: 2}, services.AnalyzerDeps{}, log)

	srv := httptest.NewServer(newLiteRouter(cfg, analyzer, log))
	t.Cleanup(srv.Close)
	return srv
}

func liteDo(t *testing.T, srv *httptest.Server, method, path, body string, header map[string]string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response, data any) APIResponse {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return APIResponse{Success: raw.Success, Error: raw.Error}
}

func TestLiteHealth(t *testing.T) {
	srv := newLiteTestServer(t, "secret")

	resp := liteDo(t, srv, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var data map[string]any
	env := decodeEnvelope(t, resp, &data)
	if !env.Success || data["mode"] != "lite" {
		t.Errorf("unexpected health payload %+v %+v", env, data)
	}
}

func TestLiteAuth(t *testing.T) {
	srv := newLiteTestServer(t, "secret")

	resp := liteDo(t, srv, http.MethodPost, "/api/v1/analyze", liteCameraApp, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no key: status = %d, want 401", resp.StatusCode)
	}

	resp = liteDo(t, srv, http.MethodPost, "/api/v1/analyze", liteCameraApp, map[string]string{"Authorization": "Bearer wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", resp.StatusCode)
	}

	resp = liteDo(t, srv, http.MethodPost, "/api/v1/analyze", liteCameraApp, map[string]string{"Authorization": "Bearer secret"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("valid key: status = %d, want 200", resp.StatusCode)
	}
}

func TestLiteAnalyze(t *testing.T) {
	srv := newLiteTestServer(t)

	resp := liteDo(t, srv, http.MethodPost, "/api/v1/analyze", liteCameraApp, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var a models.AppAnalysis
	decodeEnvelope(t, resp, &a)
	if a.Result.SecurityScore != 68 || a.Result.RiskTier != models.RiskTierLow {
		t.Errorf("score/tier = %d/%s, want 68/low", a.Result.SecurityScore, a.Result.RiskTier)
	}
	if a.Cached {
		t.Error("lite server never serves cached analyses")
	}
}

func TestLiteAnalyzeRejectsInvalid(t *testing.T) {
	srv := newLiteTestServer(t)

	for _, body := range []string{
		`not json`,
		`{"app":{"display_name":"no identifier","requested_permissions":[]}}`,
		`{"app":{"identifier":"com.example","requested_permissions":[{"granted":true}]}}`,
	} {
		resp := liteDo(t, srv, http.MethodPost, "/api/v1/analyze", body, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, resp.StatusCode)
		}
		if env := decodeEnvelope(t, resp, nil); env.Success || env.Error == "" {
			t.Errorf("%s: expected error envelope, got %+v", body, env)
		}
	}
}

func TestLiteAnalyzeBatch(t *testing.T) {
	srv := newLiteTestServer(t)

	body := `{"apps":[
	  {"identifier":"com.example.cam","requested_permissions":[{"identifier":"android.permission.CAMERA","granted":true}]},
	  {"identifier":"com.example.notes","requested_permissions":[]}]}`

	resp := liteDo(t, srv, http.MethodPost, "/api/v1/analyze/batch", body, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var data struct {
		Batch   models.AppBatchAnalysisResult `json:"batch"`
		Summary models.InventorySummary       `json:"summary"`
	}
	decodeEnvelope(t, resp, &data)
	if len(data.Batch.Results) != 2 || data.Summary.TotalApps != 2 {
		t.Fatalf("unexpected batch %+v", data)
	}
	if data.Batch.Results[0].Identifier != "com.example.notes" {
		t.Errorf("safest app first, got %s", data.Batch.Results[0].Identifier)
	}

	oversized := `{"apps":[{"identifier":"a"},{"identifier":"b"},{"identifier":"c"},{"identifier":"d"}]}`
	resp = liteDo(t, srv, http.MethodPost, "/api/v1/analyze/batch", oversized, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("oversized batch: status = %d, want 400", resp.StatusCode)
	}
}

func TestLiteReport(t *testing.T) {
	srv := newLiteTestServer(t)

	resp := liteDo(t, srv, http.MethodPost, "/api/v1/report", liteCameraApp, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.HasPrefix(string(body), "Privacy analysis: Cam") {
		t.Errorf("unexpected report:\n%s", body)
	}
}

func TestLiteCatalog(t *testing.T) {
	srv := newLiteTestServer(t)

	resp := liteDo(t, srv, http.MethodGet, "/api/v1/permissions/android.permission.CAMERA?granted=true", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var perm struct {
		Permission models.PermissionRecord `json:"permission"`
		Known      bool                    `json:"known"`
	}
	decodeEnvelope(t, resp, &perm)
	if !perm.Known || !perm.Permission.IsDangerous || !perm.Permission.IsGranted || perm.Permission.RiskWeight != 85 {
		t.Errorf("unexpected classification %+v", perm)
	}

	resp = liteDo(t, srv, http.MethodGet, "/api/v1/sdks?category=payment", "", nil)
	var sdks []models.SdkDescriptor
	decodeEnvelope(t, resp, &sdks)
	if len(sdks) == 0 {
		t.Fatal("expected payment sdks")
	}
	for _, s := range sdks {
		if s.Category != models.SdkCategoryPayment {
			t.Errorf("%s has category %s", s.Name, s.Category)
		}
	}

	resp = liteDo(t, srv, http.MethodGet, "/api/v1/sdks/detect?names=com.facebook.ads", "", nil)
	sdks = nil
	decodeEnvelope(t, resp, &sdks)
	if len(sdks) != 1 || sdks[0].Name != "Facebook Audience Network" {
		t.Errorf("detected %+v", sdks)
	}

	resp = liteDo(t, srv, http.MethodGet, "/api/v1/sdks/detect", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty detect: status = %d, want 400", resp.StatusCode)
	}
}

func TestLiteCORS(t *testing.T) {
	srv := newLiteTestServer(t, "secret")

	resp := liteDo(t, srv, http.MethodOptions, "/api/v1/analyze", "", map[string]string{"Origin": "https://dashboard.example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("preflight status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://dashboard.example.com" {
		t.Errorf("allowed origin = %q", got)
	}

	resp = liteDo(t, srv, http.MethodGet, "/health", "", map[string]string{"Origin": "https://evil.example.com"})
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allowed origin %q", got)
	}
}
