package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"socwatch/internal/assistant"
	"socwatch/internal/logger"
	"socwatch/internal/metrics"
	"socwatch/internal/storage"
	"socwatch/internal/transform/securitylog"
	"socwatch/pkg/models"
)

const (
	defaultAlertLimit = 100
	defaultDebugLimit = 50
	maxBodyBytes      = 1 << 20
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": ServiceName,
		"status":  "running",
		"endpoints": []string{
			"POST /logs", "GET /alerts", "GET /alerts/{id}", "GET /metrics",
			"GET /metrics/realtime", "GET /health", "POST /chat",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.Health{
		Status:    "healthy",
		Service:   ServiceName,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	res, err := s.ingestor.IngestPayload(body)
	if err != nil {
		if errors.Is(err, securitylog.ErrInvalidLog) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		logger.Errorf("Ingest failed: %v", err)
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultAlertLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	var alerts []models.Alert
	if raw := q.Get("severity"); raw != "" {
		sev, ok := models.ParseSeverity(raw)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid severity level")
			return
		}
		alerts = s.store.AlertsBySeverity(sev)
	} else {
		alerts = s.store.Alerts()
	}

	// limit=0 returns everything.
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[len(alerts)-limit:]
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := s.store.Alert(chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Alert not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load alert")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Metrics())
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	activity := metrics.ActivityFrom(
		s.store.LogCount(),
		len(s.store.Alerts()),
		len(s.store.PendingSignals()),
	)
	writeJSON(w, http.StatusOK, s.realtime.Realtime(activity))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat request")
		return
	}
	ctx := assistant.BuildContext(s.store.Alerts())
	writeJSON(w, http.StatusOK, models.ChatResponse{Response: assistant.Reply(req, ctx)})
}

func (s *Server) handleDebugLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaultDebugLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	var logs []models.SecurityLog
	if user := strings.TrimSpace(r.URL.Query().Get("user")); user != "" {
		logs = s.store.LogsForUser(user, limit)
	} else {
		logs = s.store.RecentLogs(limit)
	}
	if logs == nil {
		logs = []models.SecurityLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleDebugSignals(w http.ResponseWriter, r *http.Request) {
	pending := s.store.PendingSignals()
	if pending == nil {
		pending = []models.DetectionSignal{}
	}
	resp := map[string]any{
		"pending": pending,
		"total":   s.store.SignalCount(),
	}
	if s.queueDepth != nil {
		if n, err := s.queueDepth(r.Context()); err == nil {
			resp["queue_depth"] = n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDebugClear(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		logger.Errorf("Clear failed: %v", err)
		writeError(w, http.StatusInternalServerError, "clear failed")
		return
	}
	if s.onClear != nil {
		s.onClear()
	}
	s.metrics.SetPendingSignals(0)
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
