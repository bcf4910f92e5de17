package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mentora-hub/mentora-progression/config"
	"github.com/mentora-hub/mentora-progression/internal/application/command"
	"github.com/mentora-hub/mentora-progression/internal/application/query"
	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
	"github.com/mentora-hub/mentora-progression/pkg/logger"
	"github.com/mentora-hub/mentora-progression/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":    "Mentora Progression API",
		"version": "v1",
		"endpoints": map[string]string{
			"health":      "/health",
			"leaderboard": "/api/v1/tenants/{tenantID}/leaderboard",
			"progress":    "/api/v1/tenants/{tenantID}/users/{userID}/progress",
			"rank":        "/api/v1/tenants/{tenantID}/users/{userID}/rank",
			"challenge":   "/api/v1/tenants/{tenantID}/users/{userID}/challenge",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// TRADE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// registerTradeRequest is the body of POST .../users/{userID}/trades.
type registerTradeRequest struct {
	Outcome     string    `json:"outcome"`
	TradeAt     time.Time `json:"trade_at,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
}

// handleRegisterTrade handles POST /api/v1/tenants/{tenantID}/users/{userID}/trades
func (s *Server) handleRegisterTrade(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := s.userScope(w, r)
	if !ok {
		return
	}

	var req registerTradeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	// Time-of-day and weekend badge rules read wall-clock fields, so the
	// trade timestamp is localized before it enters the command.
	tradeAt := req.TradeAt
	if tradeAt.IsZero() {
		tradeAt = timeutil.Now()
	} else {
		tradeAt = timeutil.ToLocal(tradeAt)
	}

	cmd := command.RegisterTradeCommand{
		TenantID:      tenantID,
		UserID:        userID,
		DisplayName:   req.DisplayName,
		Outcome:       progression.TradeOutcome(req.Outcome),
		TradeAt:       tradeAt,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.RegisterTradeHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeCommandError(w, r, "register trade", err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// XP GRANT HANDLER (admin)
// ══════════════════════════════════════════════════════════════════════════════

// grantXPRequest is the body of POST .../users/{userID}/xp.
type grantXPRequest struct {
	Amount    int    `json:"amount"`
	Reason    string `json:"reason,omitempty"`
	GrantedBy string `json:"granted_by"`
}

// handleGrantXP handles POST /api/v1/tenants/{tenantID}/users/{userID}/xp
func (s *Server) handleGrantXP(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := s.userScope(w, r)
	if !ok {
		return
	}
	if !s.requireFeature(w, config.FeatureProgressionGrants, tenantID, userID) {
		return
	}

	var req grantXPRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.GrantXPCommand{
		TenantID:      tenantID,
		UserID:        userID,
		Amount:        req.Amount,
		Reason:        req.Reason,
		GrantedBy:     req.GrantedBy,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.GrantXPHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeCommandError(w, r, "grant xp", err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// completeChallengeDayRequest is the body of POST .../challenge/days/{day}.
type completeChallengeDayRequest struct {
	Notes       string `json:"notes,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// handleCompleteChallengeDay handles POST .../users/{userID}/challenge/days/{day}
func (s *Server) handleCompleteChallengeDay(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := s.userScope(w, r)
	if !ok {
		return
	}
	if !s.requireFeature(w, config.FeatureChallengeEnabled, tenantID, userID) {
		return
	}

	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Day must be a number")
		return
	}

	var req completeChallengeDayRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.CompleteChallengeDayCommand{
		TenantID:      tenantID,
		UserID:        userID,
		Day:           day,
		Notes:         req.Notes,
		DisplayName:   req.DisplayName,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.CompleteChallengeDayHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeCommandError(w, r, "complete challenge day", err)
		return
	}

	// Repeat completion returns the existing record, not a new resource.
	status := http.StatusCreated
	if result.AlreadyCompleted {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// updateChallengeNotesRequest is the body of PUT .../challenge/days/{day}/notes.
type updateChallengeNotesRequest struct {
	Notes string `json:"notes"`
}

// handleUpdateChallengeNotes handles PUT .../users/{userID}/challenge/days/{day}/notes
func (s *Server) handleUpdateChallengeNotes(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := s.userScope(w, r)
	if !ok {
		return
	}
	if !s.requireFeature(w, config.FeatureChallengeEnabled, tenantID, userID) ||
		!s.requireFeature(w, config.FeatureChallengeNotes, tenantID, userID) {
		return
	}

	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Day must be a number")
		return
	}

	var req updateChallengeNotesRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.UpdateChallengeNotesCommand{
		TenantID: tenantID,
		UserID:   userID,
		Day:      day,
		Notes:    req.Notes,
	}

	if err := s.deps.UpdateChallengeNotesHandler.Handle(r.Context(), cmd); err != nil {
		s.writeCommandError(w, r, "update challenge notes", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"day": day, "notes": req.Notes})
}

// handleGetChallengeOverview handles GET .../users/{userID}/challenge
func (s *Server) handleGetChallengeOverview(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := s.userScope(w, r)
	if !ok {
		return
	}
	if !s.requireFeature(w, config.FeatureChallengeEnabled, tenantID, userID) {
		return
	}

	q := query.GetChallengeOverviewQuery{
		TenantID:    tenantID,
		UserID:      userID,
		ChallengeID: r.URL.Query().Get("challenge_id"),
	}

	result, err := s.deps.GetChallengeOverviewHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, r, "get challenge overview", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// RESET HANDLER (admin)
// ══════════════════════════════════════════════════════════════════════════════

// resetProgressRequest is the body of POST .../users/{userID}/reset.
type resetProgressRequest struct {
	ResetBy string `json:"reset_by"`
}

// handleResetProgress handles POST .../users/{userID}/reset
func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := s.userScope(w, r)
	if !ok {
		return
	}

	var req resetProgressRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.ResetProgressCommand{
		TenantID:      tenantID,
		UserID:        userID,
		ResetBy:       req.ResetBy,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.ResetProgressHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeCommandError(w, r, "reset progress", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS & RANK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress handles GET .../users/{userID}/progress
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := s.userScope(w, r)
	if !ok {
		return
	}

	q := query.GetProgressQuery{
		TenantID:         tenantID,
		UserID:           userID,
		TransactionLimit: getQueryParamInt(r, "transactions", 10),
	}

	result, err := s.deps.GetProgressHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, r, "get progress", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetUserRank handles GET .../users/{userID}/rank
func (s *Server) handleGetUserRank(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := s.userScope(w, r)
	if !ok {
		return
	}
	if !s.requireFeature(w, config.FeatureLeaderboardUserRank, tenantID, userID) {
		return
	}

	q := query.GetUserRankQuery{
		TenantID: tenantID,
		UserID:   userID,
	}

	result, err := s.deps.GetUserRankHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, r, "get user rank", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/tenants/{tenantID}/leaderboard
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	if tenantID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Tenant ID is required")
		return
	}

	q := query.GetLeaderboardQuery{
		TenantID: tenantID,
		Limit:    getQueryParamInt(r, "limit", 20),
	}

	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, r, "get leaderboard", err)
		return
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{FromCache: result.FromCache})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST & ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// featureEnabled evaluates a feature flag for the request's tenant and user.
// A server without flags configured runs everything.
func (s *Server) featureEnabled(name, tenantID, userID string) bool {
	if s.deps.Features == nil {
		return true
	}
	return s.deps.Features.IsEnabled(name, &config.FeatureContext{
		TenantID: tenantID,
		UserID:   userID,
	})
}

// requireFeature writes a 404 when the flag is off for this tenant/user.
// Disabled features look nonexistent rather than forbidden.
func (s *Server) requireFeature(w http.ResponseWriter, name, tenantID, userID string) bool {
	if s.featureEnabled(name, tenantID, userID) {
		return true
	}
	writeJSONError(w, http.StatusNotFound, "not_found", "Not available")
	return false
}

// userScope extracts the tenant and user path parameters.
func (s *Server) userScope(w http.ResponseWriter, r *http.Request) (tenantID, userID string, ok bool) {
	tenantID = chi.URLParam(r, "tenantID")
	userID = chi.URLParam(r, "userID")
	if tenantID == "" || userID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Tenant ID and user ID are required")
		return "", "", false
	}
	return tenantID, userID, true
}

// decodeBody decodes a JSON request body. An empty body decodes to the
// zero value so endpoints with all-optional fields accept bare POSTs.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}
	return true
}

// writeCommandError maps a command error to an HTTP status.
func (s *Server) writeCommandError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("command failed",
			logger.String("op", op),
			logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, status, code, "Internal error")
		return
	}
	writeJSONError(w, status, code, err.Error())
}

// writeQueryError maps a query error to an HTTP status.
func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("query failed",
			logger.String("op", op),
			logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, status, code, "Internal error")
		return
	}
	writeJSONError(w, status, code, err.Error())
}

// statusForError maps domain and validation errors to HTTP statuses.
func statusForError(err error) (int, string) {
	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, shared.ErrAlreadyExists):
		return http.StatusConflict, "conflict"
	case shared.IsValidation(err) || isValidationMessage(err):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// isValidationMessage catches command Validate() errors, which are plain
// errors rather than DomainError values.
func isValidationMessage(err error) bool {
	return strings.Contains(err.Error(), "validation failed") ||
		strings.Contains(err.Error(), "is required") ||
		strings.Contains(err.Error(), "cannot be negative")
}
