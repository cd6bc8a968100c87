// Package grpc serves the standard grpc.health.v1 service so orchestrators
// can probe the server and its database.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gims/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported next to the overall ("") status.
const ServiceName = "gims"

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthServer struct {
	address  string
	interval time.Duration
	db       Pinger
	health   *health.Server
	logger   logging.Logger
}

func NewHealthServer(a string, interval time.Duration, db Pinger, l logging.Logger) *HealthServer {
	return &HealthServer{
		address:  a,
		interval: interval,
		db:       db,
		health:   health.NewServer(),
		logger:   l.With("module", "grpc_health"),
	}
}

func (s *HealthServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	s.check(ctx)
	go s.watch(ctx)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC health server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC health server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
