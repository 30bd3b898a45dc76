// Package planserver exposes the planner over gRPC and an admin HTTP mux
// with metrics, the run log and per-run reports.
package planserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/riskplan/internal/monitoring"
	"github.com/banshee-data/riskplan/internal/planner"
	"github.com/banshee-data/riskplan/internal/runlog"
	"github.com/banshee-data/riskplan/internal/scenario"
	"github.com/banshee-data/riskplan/internal/timeutil"
)

var logf = monitoring.Prefixed("planserver")

// ErrBadRequest marks request errors that are the caller's fault.
var ErrBadRequest = errors.New("bad request")

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName    = "riskplan.v1.Planner"
	evaluateMethod = "/" + ServiceName + "/Evaluate"

	// Scenes with many agents and long horizons exceed the 4 MB default.
	maxMsgSize = 16 * 1024 * 1024
)

// PlannerServer is the server API for the riskplan.v1.Planner service.
// Messages are JSON-shaped Structs (see EvaluateRequest and
// EvaluateResponse).
type PlannerServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes riskplan.v1.Planner for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PlannerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "riskplan/v1/planner.proto",
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PlannerServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evaluateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PlannerServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Ensure Server implements the gRPC interface.
var _ PlannerServer = (*Server)(nil)

// Server evaluates requests with a base configuration, optionally recording
// every successful evaluation in a run log.
type Server struct {
	settings planner.Settings
	store    *runlog.Store
	clock    timeutil.Clock
}

// NewServer returns a server using settings as the base for every request.
// store may be nil to disable persistence.
func NewServer(settings planner.Settings, store *runlog.Store) (*Server, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Server{settings: settings, store: store, clock: timeutil.RealClock{}}, nil
}

// Register adds the Planner service to g.
func (s *Server) Register(g *grpc.Server) {
	g.RegisterService(&ServiceDesc, s)
}

// Store returns the run log, or nil.
func (s *Server) Store() *runlog.Store { return s.store }

// Evaluate implements PlannerServer.
func (s *Server) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req EvaluateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	resp, err := s.Handle(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := toStruct(resp)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// Handle runs one request. It is shared by the gRPC and HTTP front ends.
func (s *Server) Handle(ctx context.Context, req EvaluateRequest) (*EvaluateResponse, error) {
	settings := s.settings
	if req.Seed != "" {
		seed, err := strconv.ParseUint(req.Seed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: seed %q: %v", ErrBadRequest, req.Seed, err)
		}
		settings.Seed = seed
	}
	if req.Samples != 0 {
		settings.Samples = req.Samples
	}

	var scene scenario.Scene
	switch {
	case req.Scene != nil:
		scene = *req.Scene
	case req.Scenario != "":
		var err error
		scene, err = scenario.ByName(req.Scenario, settings.Seed)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
	default:
		return nil, fmt.Errorf("%w: one of scene or scenario is required", ErrBadRequest)
	}

	start := s.clock.Now()
	res, err := planner.Evaluate(ctx, settings, scene.Ego, scene.Agents)
	Observe(res, err, s.clock.Since(start))
	if err != nil {
		return nil, err
	}

	resp := &EvaluateResponse{Scene: scene, Result: res}
	if s.store != nil {
		run, err := s.store.Record(scene, res, req.Notes)
		if err != nil {
			// The evaluation itself succeeded; a failed write is logged.
			logf("failed to record run: %v", err)
		} else {
			resp.RunID = run.RunID
		}
	}
	return resp, nil
}

// toStatus maps evaluation errors onto gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, planner.ErrInvalidConfig):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// ServeGRPC listens on addr and serves the Planner service until ctx is
// done, then stops gracefully.
func ServeGRPC(ctx context.Context, addr string, srv *Server) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return serveGRPC(ctx, lis, srv)
}

func serveGRPC(ctx context.Context, lis net.Listener, srv *Server) error {
	g := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
	)
	srv.Register(g)

	go func() {
		<-ctx.Done()
		g.GracefulStop()
	}()

	logf("gRPC server listening on %s", lis.Addr())
	if err := g.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
