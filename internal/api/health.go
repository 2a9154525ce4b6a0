// Copyright (c) 2026 Essenzia. All rights reserved.

// Package api contains the health probes and the HTTP server composition root.
package api

import (
	"log/slog"
	"net/http"

	"github.com/essenzia/essenzia/internal/platform/respond"
)

// DependencyCheck pings one backing service. A nil error means healthy.
type DependencyCheck func() error

// HealthDependencies names the backing services probed by /ready.
type HealthDependencies struct {
	// Database pings the PostgreSQL pool.
	Database DependencyCheck

	// Cache pings the Redis client.
	Cache DependencyCheck
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health. It only proves the process is serving.
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]string{"status": "ok"})
}

// checkStatus is one row of the /ready report.
type checkStatus struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// readiness handles GET /ready. It answers 503 while any dependency is down
// so the orchestrator holds traffic until the service is actually usable.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	checks := []struct {
		name  string
		probe DependencyCheck
	}{
		{"postgres", handler.dependencies.Database},
		{"redis", handler.dependencies.Cache},
	}

	results := make([]checkStatus, 0, len(checks))
	ready := true

	for _, check := range checks {
		if check.probe == nil {
			continue
		}
		status := checkStatus{Name: check.name, IsOK: true}
		if err := check.probe(); err != nil {
			status.IsOK = false
			status.Error = err.Error()
			ready = false
			handler.logger.Error("readiness_check_failed",
				slog.String("dependency", check.name),
				slog.Any("error", err),
			)
		}
		results = append(results, status)
	}

	status := "ready"
	if !ready {
		status = "degraded"
		// respond.OK always writes 200, so set the 503 header first.
		writer.Header().Set("Content-Type", "application/json; charset=utf-8")
		writer.WriteHeader(http.StatusServiceUnavailable)
	}

	respond.OK(writer, map[string]any{
		"status": status,
		"checks": results,
	})
}
