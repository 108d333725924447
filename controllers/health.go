package controllers

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/originrp/sentryn/logger"
	"go.uber.org/zap"
)

// HealthController reports process and storage liveness.
type HealthController struct {
	db  *sql.DB
	log *zap.Logger
}

func NewHealthController(db *sql.DB) *HealthController {
	return &HealthController{db: db, log: logger.Named("health")}
}

// Health pings the database and reports readiness.
func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := hc.db.PingContext(r.Context()); err != nil {
		hc.log.Error("database ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "database": "unreachable"})
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "database": "ok"})
}

// Ping is a bare liveness probe.
func (hc *HealthController) Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("pong"))
}
