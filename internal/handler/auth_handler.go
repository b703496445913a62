package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/voxquiz/voxquiz-backend/internal/middleware"
	"github.com/voxquiz/voxquiz-backend/internal/model"
	"github.com/voxquiz/voxquiz-backend/internal/repository"
	"github.com/voxquiz/voxquiz-backend/internal/response"
	"github.com/voxquiz/voxquiz-backend/internal/service"
	"github.com/voxquiz/voxquiz-backend/internal/validator"
)

// AuthHandler handles player and host authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	players     *repository.PlayerRepository
	hosts       *repository.HostRepository
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, players *repository.PlayerRepository, hosts *repository.HostRepository, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		players:     players,
		hosts:       hosts,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPlayer godoc
// POST /api/v1/auth/player/register
func (h *AuthHandler) RegisterPlayer(c *gin.Context) {
	var req model.RegisterPlayerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if _, err := h.players.GetByHandle(c.Request.Context(), req.Handle); err == nil {
		response.Fail(c, http.StatusConflict, response.ErrConflict)
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		h.log.Error().Err(err).Msg("check handle failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		h.log.Error().Err(err).Msg("hash password failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	player := &model.Player{
		Handle:       req.Handle,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
	}
	if err := h.players.Create(c.Request.Context(), player); err != nil {
		h.log.Error().Err(err).Msg("create player failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	token, err := h.authService.GeneratePlayerToken(c.Request.Context(), player.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("token generation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"token":  token,
		"player": player,
	})
}

// PlayerLogin godoc
// POST /api/v1/auth/player/login
func (h *AuthHandler) PlayerLogin(c *gin.Context) {
	var req model.PlayerLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	player, err := h.players.GetByHandle(c.Request.Context(), req.Handle)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		h.log.Error().Err(err).Msg("load player failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if err := h.authService.CheckPassword(player.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GeneratePlayerToken(c.Request.Context(), player.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("token generation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":  token,
		"player": player,
	})
}

// PlayerLogout godoc
// POST /api/v1/player/logout
func (h *AuthHandler) PlayerLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims.UserID); err != nil {
		h.log.Error().Err(err).Msg("logout failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"logged_out": true})
}

// PlayerMe godoc
// GET /api/v1/player/me
func (h *AuthHandler) PlayerMe(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	player, err := h.players.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("load player failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, player)
}

// HostLogin godoc
// POST /api/v1/auth/host/login
func (h *AuthHandler) HostLogin(c *gin.Context) {
	var req model.HostLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	host, err := h.hosts.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		h.log.Error().Err(err).Msg("load host failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if err := h.authService.CheckPassword(host.PasswordHash, req.Password); err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}

	token, err := h.authService.GenerateHostToken(host.ID, host.Permissions)
	if err != nil {
		h.log.Error().Err(err).Msg("token generation failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"host":  host,
	})
}

// HostMe godoc
// GET /api/v1/host/me
func (h *AuthHandler) HostMe(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	host, err := h.hosts.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("load host failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, host)
}
