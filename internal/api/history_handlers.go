package api

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/JakeFAU/availmon/internal/monitor"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

type historyResponse struct {
	Total        int                   `json:"total"`
	Observations []monitor.Observation `json:"observations"`
}

// listHistory handles GET /v1/history?limit=n and returns the newest n
// observations in chronological order.
func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history store unavailable")
		return
	}
	limit, err := parseLimit(r, defaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := s.history.List(r.Context())
	if err != nil {
		s.logger.Error("list history failed", zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, monitor.ErrHistoryRead) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, "failed to read history")
		return
	}

	total := len(entries)
	if total > limit {
		entries = entries[total-limit:]
	}
	if entries == nil {
		entries = []monitor.Observation{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Total: total, Observations: entries})
}

func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return 0, errors.New("invalid limit")
	}
	return min(val, maxLimit), nil
}
