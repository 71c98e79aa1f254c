package graceful

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/guild-ledger/pkg/logger"
)

// Probes answers the liveness and readiness endpoints.
type Probes interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Reporter lists per-component health for the readiness body.
type Reporter interface {
	Check(ctx context.Context) map[string]string
}

// NewOpsRouter serves /metrics, /healthz and /readyz. Every request gets a
// correlation id.
func NewOpsRouter(probes Probes, reporter Reporter, middlewares ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.Use(logger.Middleware)
	r.Use(middlewares...)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := probes.Liveness(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, req *http.Request) {
		body := map[string]interface{}{"status": "ready"}
		if reporter != nil {
			body["components"] = reporter.Check(req.Context())
		}

		if err := probes.Readiness(req.Context()); err != nil {
			body["status"] = "not_ready"
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		writeJSON(w, http.StatusOK, body)
	}).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
