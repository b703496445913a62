package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/voxquiz/voxquiz-backend/internal/middleware"
	"github.com/voxquiz/voxquiz-backend/internal/repository"
	"github.com/voxquiz/voxquiz-backend/internal/response"
	"github.com/voxquiz/voxquiz-backend/internal/service"
)

// SessionHandler exposes the REST companions of the voice stream: session
// detail, reconnect evaluation, and the public leaderboard.
type SessionHandler struct {
	orch     *service.SessionOrchestrator
	sessions *repository.SessionRepository
	turns    *repository.SessionQuestionRepository
	log      zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(orch *service.SessionOrchestrator, sessions *repository.SessionRepository, turns *repository.SessionQuestionRepository, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		orch:     orch,
		sessions: sessions,
		turns:    turns,
		log:      log.With().Str("component", "session_handler").Logger(),
	}
}

// GetSession godoc
// GET /api/v1/player/sessions/:session_id
// Returns the session with its full turn history.
func (h *SessionHandler) GetSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.sessions.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("load session failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if session.PlayerID != claims.UserID {
		// Same shape as a missing session; ids are not probeable.
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	turns, err := h.turns.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error().Err(err).Msg("list turns failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session": session,
		"turns":   turns,
	})
}

// ResumeSession godoc
// POST /api/v1/player/sessions/:session_id/resume
// REST twin of the WebSocket resume action, for clients that want the
// verdict before opening the stream.
func (h *SessionHandler) ResumeSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, ph, err := h.orch.ResumeSession(c.Request.Context(), claims.UserID, sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("resume evaluation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"can_resume":       result.CanResume,
		"suggested_action": result.SuggestedAction,
		"session_state":    result.SessionState,
		"phase":            ph,
	})
}

// HostGetSession godoc
// GET /api/v1/host/sessions/:session_id
// Host-side session inspection; not restricted to the owning player.
func (h *SessionHandler) HostGetSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.sessions.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("load session failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	turns, err := h.turns.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error().Err(err).Msg("list turns failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session": session,
		"turns":   turns,
	})
}

// Leaderboard godoc
// GET /api/v1/leaderboard
// Public career-points leaderboard.
func (h *SessionHandler) Leaderboard(c *gin.Context) {
	entries, err := h.orch.GetLeaderboard(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("leaderboard read failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, entries)
}
