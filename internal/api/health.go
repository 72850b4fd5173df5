// Copyright (c) 2026 Mulita. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/mulita/internal/platform/constants"
	"github.com/taibuivan/mulita/internal/platform/respond"
)

// probeTimeout bounds each readiness check.
const probeTimeout = 2 * time.Second

// Probe reports whether one backing dependency is reachable.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type probeResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type healthHandler struct {
	probes []Probe
	logger *slog.Logger
}

// NewHealthHandlers creates the /health and /ready handlers.
//
// /health answers 200 while the process runs. /ready runs every probe and
// answers 503 when any of them fails.
func NewHealthHandlers(logger *slog.Logger, probes ...Probe) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{probes: probes, logger: logger}
	return handler.liveness, handler.readiness
}

func (handler *healthHandler) liveness(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, map[string]string{
		constants.FieldStatus:  "ok",
		constants.FieldApp:     constants.AppName,
		constants.FieldVersion: constants.AppVersion,
	})
}

func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	results := make([]probeResult, 0, len(handler.probes))
	isReady := true

	for _, probe := range handler.probes {
		result := probeResult{Name: probe.Name, IsOK: true}

		ctx, cancel := context.WithTimeout(request.Context(), probeTimeout)
		err := probe.Check(ctx)
		cancel()

		if err != nil {
			result.IsOK = false
			result.Error = err.Error()
			isReady = false
			handler.logger.ErrorContext(request.Context(), "readiness_check_failed",
				slog.String("dependency", probe.Name),
				slog.Any("error", err),
			)
		}
		results = append(results, result)
	}

	body := map[string]any{
		constants.FieldStatus: "ready",
		constants.FieldChecks: results,
	}

	if !isReady {
		body[constants.FieldStatus] = "degraded"
		respond.JSON(writer, http.StatusServiceUnavailable, map[string]any{
			constants.FieldSuccess: false,
			constants.FieldData:    body,
		})
		return
	}

	respond.OK(writer, body)
}
