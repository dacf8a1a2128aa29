package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"BarterLedger/internal/engine"
	"BarterLedger/internal/ledger"
	"BarterLedger/internal/observability"
	"BarterLedger/internal/policy"
	"BarterLedger/internal/query"
)

// AdminServer is the HTTP surface: health probes, Prometheus metrics,
// live pending-trade and history queries from the engine, archive
// queries from Postgres, and the currency alias listing.
type AdminServer struct {
	engine  *engine.Engine
	ledger  *ledger.Ledger
	archive *query.ArchiveService
	gate    policy.Gate
	health  *observability.HealthChecker
	metrics *observability.Metrics
	log     zerolog.Logger

	srv *http.Server
}

// Config carries the server's collaborators. Archive may be nil when no
// database is configured.
type Config struct {
	Addr    string
	Engine  *engine.Engine
	Ledger  *ledger.Ledger
	Archive *query.ArchiveService
	Gate    policy.Gate
	Health  *observability.HealthChecker
	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// New builds the admin server and its route table.
func New(cfg Config) *AdminServer {
	s := &AdminServer{
		engine:  cfg.Engine,
		ledger:  cfg.Ledger,
		archive: cfg.Archive,
		gate:    cfg.Gate,
		health:  cfg.Health,
		metrics: cfg.Metrics,
		log:     cfg.Logger.With().Str("component", "server").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", cfg.Health.LivenessHandler)
	mux.HandleFunc("/readyz", cfg.Health.ReadinessHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/trades/pending", s.handlePending)
	mux.HandleFunc("/v1/trades/history", s.handleHistory)
	mux.HandleFunc("/v1/archive", s.handleArchive)
	mux.HandleFunc("/v1/archive/stats", s.handleArchiveStats)
	mux.HandleFunc("/v1/policy/aliases", s.handleAliases)

	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving HTTP until Shutdown.
func (s *AdminServer) ListenAndServe() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("admin server listening")
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *AdminServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *AdminServer) handlePending(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actorID, ok := s.actorParam(w, r)
	if !ok {
		s.observe("pending", "400", start)
		return
	}
	trades := s.engine.PendingFor(actorID)
	s.writeJSON(w, map[string]interface{}{"trades": trades})
	s.observe("pending", "200", start)
}

func (s *AdminServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actorID, ok := s.actorParam(w, r)
	if !ok {
		s.observe("history", "400", start)
		return
	}
	entries := s.ledger.Query(actorID)
	s.writeJSON(w, map[string]interface{}{"entries": entries})
	s.observe("history", "200", start)
}

func (s *AdminServer) handleArchive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if s.archive == nil {
		http.Error(w, "archive not configured", http.StatusNotImplemented)
		s.observe("archive", "501", start)
		return
	}
	actorID, ok := s.actorParam(w, r)
	if !ok {
		s.observe("archive", "400", start)
		return
	}

	var status *string
	if v := r.URL.Query().Get("status"); v != "" {
		status = &v
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	var before *int64
	if v := r.URL.Query().Get("before"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid before cursor", http.StatusBadRequest)
			s.observe("archive", "400", start)
			return
		}
		before = &n
	}

	outcomes, err := s.archive.OutcomesForActor(r.Context(), actorID, status, limit, before)
	if err != nil {
		s.log.Error().Err(err).Msg("archive query failed")
		http.Error(w, "archive query failed", http.StatusInternalServerError)
		s.observe("archive", "500", start)
		return
	}
	s.writeJSON(w, map[string]interface{}{"outcomes": outcomes})
	s.observe("archive", "200", start)
}

func (s *AdminServer) handleArchiveStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if s.archive == nil {
		http.Error(w, "archive not configured", http.StatusNotImplemented)
		s.observe("archive_stats", "501", start)
		return
	}
	stats, err := s.archive.Stats(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("archive stats failed")
		http.Error(w, "archive query failed", http.StatusInternalServerError)
		s.observe("archive_stats", "500", start)
		return
	}
	s.writeJSON(w, map[string]interface{}{"stats": stats})
	s.observe("archive_stats", "200", start)
}

func (s *AdminServer) handleAliases(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	table := s.gate.Aliases()
	s.writeJSON(w, map[string]interface{}{
		"version": table.Version(),
		"aliases": table.Codes(),
	})
	s.observe("aliases", "200", start)
}

func (s *AdminServer) actorParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("actor_id")
	if raw == "" {
		http.Error(w, "actor_id is required", http.StatusBadRequest)
		return uuid.Nil, false
	}
	actorID, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "invalid actor_id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return actorID, true
}

func (s *AdminServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("response encode failed")
	}
}

func (s *AdminServer) observe(endpoint, status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.QueryRequests.WithLabelValues(endpoint, status).Inc()
	s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
