// Package server exposes the evidence daemon's gRPC surface: standard health
// checking backed by a store probe, plus reflection for grpcurl.
package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// EvidenceService is the health service name reported for the pipeline.
const EvidenceService = "nabh.evidence.v1.EvidencePipeline"

// Pinger is the store probe; *repository.DB satisfies it.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration, logger *slog.Logger) error
}

// HealthMonitor keeps the health server's statuses in step with the store.
type HealthMonitor struct {
	hs       *health.Server
	db       Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	last     healthpb.HealthCheckResponse_ServingStatus
}

// NewHealthMonitor creates a monitor; every status starts NOT_SERVING until
// the first probe.
func NewHealthMonitor(hs *health.Server, db Pinger, interval, timeout time.Duration, logger *slog.Logger) *HealthMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	m := &HealthMonitor{hs: hs, db: db, interval: interval, timeout: timeout, logger: logger}
	m.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return m
}

// Probe pings the store once and publishes the result.
func (m *HealthMonitor) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if err := m.db.HealthCheck(ctx, m.timeout, m.logger); err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	if st != m.last {
		m.logger.Info("health.status.changed", "from", m.last.String(), "to", st.String())
	}
	m.set(st)
	return st
}

// Run probes on every interval until ctx is done, then marks everything
// NOT_SERVING.
func (m *HealthMonitor) Run(ctx context.Context) {
	m.Probe(ctx)
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.hs.Shutdown()
			return
		case <-t.C:
			m.Probe(ctx)
		}
	}
}

func (m *HealthMonitor) set(st healthpb.HealthCheckResponse_ServingStatus) {
	m.last = st
	m.hs.SetServingStatus("", st)
	m.hs.SetServingStatus(EvidenceService, st)
}

// NewGRPCServer registers the health service and reflection.
func NewGRPCServer(hs *health.Server, opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)
	return s
}
