package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/catalog-resolver/internal/domain"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Mode       string                     `json:"validation_mode" doc:"Entity validation mode"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"database": s.checkDatabase(ctx),
		"analysis": s.checkAnalysisWorker(),
	}

	overall := "healthy"
	for _, c := range components {
		switch {
		case c.Status == "unhealthy":
			overall = "unhealthy"
		case c.Status == "degraded" && overall == "healthy":
			overall = "degraded"
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Mode:       string(s.services.Entities.Mode()),
			Components: components,
		},
	}, nil
}

// checkDatabase pings SQLite and counts entities so a broken schema shows up.
func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := s.services.Store.Ping(ctx); err != nil {
		return ComponentHealth{Status: "unhealthy", Message: err.Error()}
	}

	counts := make([]string, 0, 3)
	for _, t := range domain.EntityTypes() {
		n, err := s.services.Store.CountEntities(ctx, t)
		if err != nil {
			return ComponentHealth{Status: "degraded", Message: err.Error()}
		}
		counts = append(counts, fmt.Sprintf("%d %ss", n, t))
	}

	return ComponentHealth{
		Status:  "healthy",
		Latency: time.Since(start).String(),
		Message: fmt.Sprintf("%s, %s, %s", counts[0], counts[1], counts[2]),
	}
}

func (s *Server) checkAnalysisWorker() ComponentHealth {
	if s.services.Analysis == nil {
		return ComponentHealth{Status: "healthy", Message: "disabled"}
	}

	stats := s.services.Analysis.Stats()
	msg := fmt.Sprintf("%d queued, %d completed, %d blocked, %d failed",
		stats.Queued, stats.Completed, stats.Blocked, stats.Failed)
	if stats.Failed > 0 && stats.Failed >= stats.Completed {
		return ComponentHealth{Status: "degraded", Message: msg}
	}
	return ComponentHealth{Status: "healthy", Message: msg}
}
