package riskanalysis

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"privacyguard-lab/internal/domain/services"
	"privacyguard-lab/pkg/logger"
)

func newTestClient(t *testing.T, checks map[string]Check) (RiskAnalysisServiceClient, *grpc.ClientConn) {
	t.Helper()

	log := logger.NewNop()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()

	analyzer := services.NewAppAnalyzer(services.AnalyzerConfig{Workers: 1}, services.AnalyzerDeps{}, log)
	NewServer(analyzer, log).Register(srv)

	ctx, cancel := context.WithCancel(context.Background())
	RegisterHealthServer(ctx, srv, checks, log)

	go srv.Serve(lis)
	t.Cleanup(func() {
		cancel()
		srv.Stop()
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewRiskAnalysisServiceClient(conn), conn
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAnalyzeApp(t *testing.T) {
	client, _ := newTestClient(t, nil)

	req := mustStruct(t, map[string]any{
		"app": map[string]any{
			"identifier":   "com.example.recorder",
			"display_name": "Recorder",
			"requested_permissions": []any{
				map[string]any{"identifier": "android.permission.RECORD_AUDIO", "granted": true},
			},
		},
		"include_report": true,
	})

	resp, err := client.AnalyzeApp(context.Background(), req)
	if err != nil {
		t.Fatalf("AnalyzeApp: %v", err)
	}

	fields := resp.AsMap()
	result := fields["result"].(map[string]any)
	// 100 - 90*3/10 + 10
	if got := result["security_score"].(float64); got != 83 {
		t.Errorf("security_score = %v, want 83", got)
	}
	if result["risk_tier"] != "safe" {
		t.Errorf("risk_tier = %v", result["risk_tier"])
	}
	if !strings.Contains(fields["report"].(string), "Privacy analysis: Recorder") {
		t.Errorf("report = %q", fields["report"])
	}
}

func TestAnalyzeAppInvalidArgument(t *testing.T) {
	client, _ := newTestClient(t, nil)

	_, err := client.AnalyzeApp(context.Background(), mustStruct(t, map[string]any{
		"app": map[string]any{"identifier": ""},
	}))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestRenderReport(t *testing.T) {
	client, _ := newTestClient(t, nil)

	resp, err := client.RenderReport(context.Background(), mustStruct(t, map[string]any{
		"app": map[string]any{"identifier": "com.example.empty"},
	}))
	if err != nil {
		t.Fatalf("RenderReport: %v", err)
	}

	fields := resp.AsMap()
	if fields["risk_tier"] != "safe" || fields["security_score"].(float64) != 100 {
		t.Errorf("unexpected response %v", fields)
	}
	report := fields["report"].(string)
	if !strings.Contains(report, services.EmptyPermissionsLine) {
		t.Errorf("report missing empty-permissions line:\n%s", report)
	}

	if _, err := client.RenderReport(context.Background(), mustStruct(t, map[string]any{})); status.Code(err) != codes.InvalidArgument {
		t.Errorf("missing app code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestHealthReflectsChecks(t *testing.T) {
	_, conn := newTestClient(t, map[string]Check{
		"postgres": func(context.Context) error { return errors.New("down") },
	})

	hc := grpc_health_v1.NewHealthClient(conn)

	// Checks run in the background; poll until the first pass lands.
	var last grpc_health_v1.HealthCheckResponse_ServingStatus
	for i := 0; i < 100; i++ {
		resp, err := hc.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
		if err != nil {
			t.Fatalf("health check: %v", err)
		}
		last = resp.Status
		if last == grpc_health_v1.HealthCheckResponse_NOT_SERVING {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("status = %v, want NOT_SERVING", last)
}
