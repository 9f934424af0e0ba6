// Package health serves liveness and readiness probes for the metrics
// listener.
//
//   - /healthz always returns 200; a process that can serve HTTP is alive.
//   - /readyz returns 200 only while every registered check passes, e.g. the
//     recognizer model is loaded and the pipeline is running.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Check probes one dependency. It returns nil while the dependency is usable
// and must respect context cancellation.
type Check func(ctx context.Context) error

// Handler evaluates named checks on each /readyz request. The check set is
// fixed at construction time, so Handler is safe for concurrent use.
type Handler struct {
	checks map[string]Check
}

// New creates a Handler over the given named checks. The name keys the
// check's result in the /readyz JSON body.
func New(checks map[string]Check) *Handler {
	h := &Handler{checks: make(map[string]Check, len(checks))}
	for name, c := range checks {
		h.checks[name] = c
	}
	return h
}

// Register mounts /healthz and /readyz on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /readyz", h.readyz)
}

type probeResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, probeResult{Status: "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	res := probeResult{
		Status: "ok",
		Checks: make(map[string]string, len(h.checks)),
	}
	status := http.StatusOK

	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := check(ctx)
		cancel()

		if err != nil {
			res.Checks[name] = "fail: " + err.Error()
			res.Status = "fail"
			status = http.StatusServiceUnavailable
		} else {
			res.Checks[name] = "ok"
		}
	}

	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
