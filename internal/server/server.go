// Package server exposes the decoder's status surface: a health check
// endpoint reporting per-subsystem state and a Prometheus metrics endpoint.
package server

import (
	"context"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Check probes one subsystem. Probe returns whether the subsystem is
// healthy plus a short human-readable detail.
type Check struct {
	Name  string
	Probe func() (bool, string)
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Timestamp     string            `json:"timestamp"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Services      map[string]string `json:"services"`
}

// Server is the HTTP status server. It never carries alert traffic.
type Server struct {
	app     *fiber.App
	addr    string
	log     *zap.Logger
	started time.Time
	checks  []Check
}

func New(addr string, log *zap.Logger, checks ...Check) *Server {
	s := &Server{
		addr:    addr,
		log:     log,
		started: time.Now(),
		checks:  checks,
	}

	app := fiber.New(fiber.Config{
		AppName:               "wbor-endec",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	app.Get("/health", s.healthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	s.app = app
	return s
}

// healthCheck handles the health check endpoint
func (s *Server) healthCheck(c *fiber.Ctx) error {
	services := make(map[string]string)
	status := "healthy"

	for _, check := range s.checks {
		ok, detail := check.Probe()
		if ok {
			services[check.Name] = "healthy"
			continue
		}
		status = "unhealthy"
		if detail == "" {
			detail = "unhealthy"
		} else {
			detail = "unhealthy: " + detail
		}
		services[check.Name] = detail
	}

	response := HealthResponse{
		Status:        status,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Services:      services,
	}

	if status == "unhealthy" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(response)
	}

	return c.JSON(response)
}

// Run serves until ctx ends, then shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Status server starting", zap.String("address", s.addr))
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down status server")
		if err := s.app.Shutdown(); err != nil {
			s.log.Error("Error during server shutdown", zap.Error(err))
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
