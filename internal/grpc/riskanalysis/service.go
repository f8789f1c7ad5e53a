package riskanalysis

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name
const ServiceName = "privacyguard.v1.RiskAnalysisService"

const (
	methodAnalyzeApp   = "/" + ServiceName + "/AnalyzeApp"
	methodRenderReport = "/" + ServiceName + "/RenderReport"
)

// RiskAnalysisServiceServer is the server API for RiskAnalysisService.
// Payloads are google.protobuf.Struct documents mirroring the HTTP JSON bodies.
type RiskAnalysisServiceServer interface {
	AnalyzeApp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RenderReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedRiskAnalysisServiceServer returns Unimplemented for every method
type UnimplementedRiskAnalysisServiceServer struct{}

func (UnimplementedRiskAnalysisServiceServer) AnalyzeApp(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method AnalyzeApp not implemented")
}
func (UnimplementedRiskAnalysisServiceServer) RenderReport(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RenderReport not implemented")
}

// RegisterRiskAnalysisServiceServer registers srv with s
func RegisterRiskAnalysisServiceServer(s grpc.ServiceRegistrar, srv RiskAnalysisServiceServer) {
	s.RegisterService(&RiskAnalysisService_ServiceDesc, srv)
}

func _RiskAnalysisService_AnalyzeApp_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RiskAnalysisServiceServer).AnalyzeApp(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodAnalyzeApp}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RiskAnalysisServiceServer).AnalyzeApp(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _RiskAnalysisService_RenderReport_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RiskAnalysisServiceServer).RenderReport(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodRenderReport}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RiskAnalysisServiceServer).RenderReport(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RiskAnalysisService_ServiceDesc is the grpc.ServiceDesc for RiskAnalysisService
var RiskAnalysisService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RiskAnalysisServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AnalyzeApp", Handler: _RiskAnalysisService_AnalyzeApp_Handler},
		{MethodName: "RenderReport", Handler: _RiskAnalysisService_RenderReport_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "privacyguard/v1/risk_analysis.proto",
}

// RiskAnalysisServiceClient is the client API for RiskAnalysisService
type RiskAnalysisServiceClient interface {
	AnalyzeApp(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RenderReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type riskAnalysisServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewRiskAnalysisServiceClient creates a client on cc
func NewRiskAnalysisServiceClient(cc grpc.ClientConnInterface) RiskAnalysisServiceClient {
	return &riskAnalysisServiceClient{cc}
}

func (c *riskAnalysisServiceClient) AnalyzeApp(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodAnalyzeApp, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *riskAnalysisServiceClient) RenderReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodRenderReport, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
