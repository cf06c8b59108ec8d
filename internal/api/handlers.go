package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"odds-picks/internal/storage"
)

const (
	defaultPickLimit = 20
	maxPickLimit     = 200
)

var feedbackTypes = map[string]struct{}{
	"like":    {},
	"dislike": {},
	"tail":    {},
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PickResponse is one pick as served by /api/picks.
type PickResponse struct {
	ID         int64     `json:"id"`
	SportKey   string    `json:"sport_key"`
	MarketKey  string    `json:"market_key"`
	Pick       string    `json:"pick"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// FeedbackRequest is the body accepted by /api/feedback.
type FeedbackRequest struct {
	PickID       int64  `json:"pick_id"`
	FeedbackType string `json:"feedback_type"`
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("odds-picks API is running"))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.respondError(w, http.StatusServiceUnavailable, "database unhealthy", err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "odds-picks",
	})
}

// listPicks serves picks by descending confidence.
// Query params: limit, sport
func (s *Server) listPicks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	limit := parseIntParam(r, "limit", defaultPickLimit)
	if limit <= 0 {
		limit = defaultPickLimit
	}
	if limit > maxPickLimit {
		limit = maxPickLimit
	}

	records, err := s.store.TopPicks(ctx, storage.PickFilter{
		SportKey: r.URL.Query().Get("sport"),
		Limit:    limit,
	})
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to fetch picks", err)
		return
	}

	out := make([]PickResponse, len(records))
	for i, rec := range records {
		out[i] = PickResponse{
			ID:         rec.ID,
			SportKey:   rec.SportKey,
			MarketKey:  rec.MarketKey,
			Pick:       rec.Pick,
			Confidence: rec.Confidence,
			Timestamp:  rec.Timestamp.UTC(),
		}
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) createFeedback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req FeedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}
	if req.PickID <= 0 || req.FeedbackType == "" {
		s.respondError(w, http.StatusBadRequest, "pick_id and feedback_type are required", nil)
		return
	}
	if _, ok := feedbackTypes[req.FeedbackType]; !ok {
		s.respondError(w, http.StatusBadRequest, "feedback_type must be one of like, dislike, tail", nil)
		return
	}

	rec, err := s.store.InsertFeedback(ctx, storage.FeedbackRecord{
		PickID:       req.PickID,
		FeedbackType: req.FeedbackType,
	})
	if errors.Is(err, storage.ErrPickNotFound) {
		s.respondError(w, http.StatusNotFound, "pick not found", nil)
		return
	}
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to record feedback", err)
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Feedback recorded",
		"id":      rec.ID,
	})
}

func parseIntParam(r *http.Request, param string, defaultValue int) int {
	valueStr := r.URL.Query().Get(param)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		s.logger.Error().Err(err).Int("status", status).Msg(message)
	}
	s.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
