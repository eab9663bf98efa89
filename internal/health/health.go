// Package health probes the service dependencies and exposes the result over
// HTTP and the standard gRPC health protocol.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"invoicing-system/internal/logger"
)

const (
	StatusHealthy     = "healthy"
	StatusUnavailable = "unavailable"
	StatusDegraded    = "degraded"

	// ServiceName is the name reported on the gRPC health service.
	ServiceName = "invoicing"
)

type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type ServiceStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Latency string `json:"latency"`
}

type Report struct {
	OverallStatus string                   `json:"overall_status"`
	Services      map[string]ServiceStatus `json:"services"`
	Timestamp     time.Time                `json:"timestamp"`
}

func (r Report) Healthy() bool {
	return r.OverallStatus == StatusHealthy
}

// Checker runs every registered probe and mirrors the outcome on a gRPC health server.
type Checker struct {
	checks []Check
	grpc   *health.Server
	log    zerolog.Logger
}

func NewChecker(checks ...Check) *Checker {
	return &Checker{
		checks: checks,
		grpc:   health.NewServer(),
		log:    logger.WithComponent("health"),
	}
}

// Run probes all dependencies concurrently.
func (c *Checker) Run(ctx context.Context) Report {
	report := Report{
		OverallStatus: StatusHealthy,
		Services:      make(map[string]ServiceStatus, len(c.checks)),
		Timestamp:     time.Now(),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, check := range c.checks {
		wg.Add(1)
		go func(check Check) {
			defer wg.Done()
			start := time.Now()
			err := check.Probe(ctx)

			s := ServiceStatus{Status: StatusHealthy, Message: "Service is responding", Latency: time.Since(start).String()}
			if err != nil {
				s.Status = StatusUnavailable
				s.Message = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			report.Services[check.Name] = s
			if err != nil {
				report.OverallStatus = StatusDegraded
			}
		}(check)
	}
	wg.Wait()

	serving := healthpb.HealthCheckResponse_SERVING
	if !report.Healthy() {
		serving = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.grpc.SetServingStatus("", serving)
	c.grpc.SetServingStatus(ServiceName, serving)

	return report
}

// Watch re-runs the probes every interval until ctx is done.
func (c *Checker) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		report := c.Run(probeCtx)
		cancel()
		if !report.Healthy() {
			c.log.Warn().Interface("services", report.Services).Msg("dependency check failed")
		}

		select {
		case <-ctx.Done():
			c.grpc.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

// NewGRPCServer returns a server exposing the health service and reflection.
func (c *Checker) NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, c.grpc)
	reflection.Register(s)
	return s
}
