package riskanalysis

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"privacyguard-lab/pkg/logger"
)

// Check reports whether one backing service is reachable
type Check func(ctx context.Context) error

const healthInterval = 10 * time.Second

// RegisterHealthServer registers the gRPC health service and keeps its status
// in sync with checks until ctx is cancelled
func RegisterHealthServer(ctx context.Context, grpcServer *grpc.Server, checks map[string]Check, log *logger.Logger) *health.Server {
	healthServer := health.NewServer()
	setServing(healthServer, true)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	if len(checks) == 0 {
		return healthServer
	}

	log = log.WithComponent("grpc-health")
	go func() {
		ticker := time.NewTicker(healthInterval)
		defer ticker.Stop()

		for {
			setServing(healthServer, runChecks(ctx, checks, log))

			select {
			case <-ctx.Done():
				healthServer.Shutdown()
				return
			case <-ticker.C:
			}
		}
	}()

	return healthServer
}

func runChecks(ctx context.Context, checks map[string]Check, log *logger.Logger) bool {
	healthy := true
	for name, check := range checks {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := check(cctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("check", name).Msg("health check failed")
			healthy = false
		}
	}
	return healthy
}

func setServing(s *health.Server, serving bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.SetServingStatus("", st)
	s.SetServingStatus(ServiceName, st)
}
