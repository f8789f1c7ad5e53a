package riskanalysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"privacyguard-lab/internal/domain/models"
	"privacyguard-lab/internal/domain/services"
	"privacyguard-lab/pkg/logger"
)

// Server implements the RiskAnalysisService gRPC server
type Server struct {
	UnimplementedRiskAnalysisServiceServer

	analyzer *services.AppAnalyzer
	logger   *logger.Logger
}

// NewServer creates a new gRPC server
func NewServer(analyzer *services.AppAnalyzer, log *logger.Logger) *Server {
	return &Server{
		analyzer: analyzer,
		logger:   log.WithComponent("grpc-server"),
	}
}

// Register registers the server with a gRPC server
func (s *Server) Register(grpcServer *grpc.Server) {
	RegisterRiskAnalysisServiceServer(grpcServer, s)
}

// AnalyzeApp runs a full analysis. The request mirrors the HTTP body:
// {"app": {...}, "device_id": "...", "include_report": true}
func (s *Server) AnalyzeApp(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in models.AppAnalysisRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	analysis, err := s.analyzer.AnalyzeApp(ctx, &in)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSnapshot) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		s.logger.Error().Err(err).Str("package", in.App.Identifier).Msg("analysis failed")
		return nil, status.Error(codes.Internal, "failed to analyze app")
	}

	out, err := toStruct(analysis)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// RenderReport scores the snapshot and returns the report without storing it.
// The request is {"app": {...}}.
func (s *Server) RenderReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in models.AppAnalysisRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := services.ValidateSnapshot(in.App); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result := services.Analyze(in.App)

	s.logger.Debug().
		Str("package", in.App.Identifier).
		Str("risk_tier", string(result.RiskTier)).
		Msg("report rendered")

	out, err := structpb.NewStruct(map[string]any{
		"identifier":     in.App.Identifier,
		"security_score": result.SecurityScore,
		"risk_tier":      string(result.RiskTier),
		"report":         services.RenderReport(in.App.Label(), result),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// fromStruct decodes a Struct into v through its JSON form
func fromStruct(in *structpb.Struct, v any) error {
	if in == nil {
		return errors.New("empty request")
	}
	raw, err := in.MarshalJSON()
	if err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// toStruct encodes v as a Struct through its JSON form
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return out, nil
}
