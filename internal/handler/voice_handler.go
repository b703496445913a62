package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/voxquiz/voxquiz-backend/internal/middleware"
	"github.com/voxquiz/voxquiz-backend/internal/model"
	"github.com/voxquiz/voxquiz-backend/internal/phase"
	"github.com/voxquiz/voxquiz-backend/internal/response"
	"github.com/voxquiz/voxquiz-backend/internal/service"
	ws "github.com/voxquiz/voxquiz-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// VoiceHandler runs the WebSocket voice stream: the assistant's tool calls,
// timing signals, and resume requests all arrive on this connection.
type VoiceHandler struct {
	orch     *service.SessionOrchestrator
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewVoiceHandler creates a new VoiceHandler.
func NewVoiceHandler(orch *service.SessionOrchestrator, log zerolog.Logger, allowedOrigins []string) *VoiceHandler {
	return &VoiceHandler{
		orch:     orch,
		log:      log.With().Str("component", "voice_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// toolArgs covers the per-tool argument shapes; only the field the named
// tool uses is read.
type toolArgs struct {
	Answer string `json:"answer"`
	Intent string `json:"intent"`
	Query  string `json:"query"`
}

// VoiceStream godoc
// WS /ws/v1/player/sessions/stream?token=...
// Upgrades to WebSocket for the quiz conversation.
func (h *VoiceHandler) VoiceStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	playerID := claims.UserID
	wsLog := h.log.With().Int("player_id", playerID).Logger()
	wsLog.Info().Msg("player connected")

	for {
		var raw json.RawMessage
		if err := ws.ReadJSON(conn, &raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("unexpected close")
			} else {
				wsLog.Debug().Msg("connection closed")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			ws.WriteFailure(conn, string(response.ErrInvalidPayload), "malformed message", nil, time.Now())
			continue
		}

		switch envelope.Action {
		case ws.ActionToolCall:
			h.handleToolCall(conn, wsLog, playerID, raw)
		case ws.ActionTiming:
			h.handleTiming(conn, playerID, raw)
		case ws.ActionResume:
			h.handleResume(conn, playerID, raw)
		case ws.ActionPing:
			ws.WriteResult(conn, gin.H{"pong": true}, time.Now())
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("unknown action")
			ws.WriteFailure(conn, string(response.ErrInvalidPayload), "unknown action: "+string(envelope.Action), nil, time.Now())
		}
	}
}

func (h *VoiceHandler) handleToolCall(conn *websocket.Conn, wsLog zerolog.Logger, playerID int, raw json.RawMessage) {
	started := time.Now()
	ctx := context.Background()

	var req ws.ToolCallRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ws.WriteFailure(conn, string(response.ErrInvalidPayload), "malformed tool call", nil, started)
		return
	}

	var args toolArgs
	if len(req.Args) > 0 {
		if err := json.Unmarshal(req.Args, &args); err != nil {
			ws.WriteFailure(conn, string(response.ErrInvalidPayload), "malformed tool args", nil, started)
			return
		}
	}

	tool := phase.Tool(req.Tool)

	// startSession and getLeaderboard work without a session id; everything
	// else requires one.
	var sessionID uuid.UUID
	switch tool {
	case phase.ToolStartSession, phase.ToolGetLeaderboard:
	default:
		var err error
		sessionID, err = uuid.Parse(req.SessionID)
		if err != nil {
			ws.WriteFailure(conn, string(response.ErrInvalidID), "invalid session_id", nil, started)
			return
		}
	}

	var (
		data any
		err  error
	)
	switch tool {
	case phase.ToolStartSession:
		data, err = h.orch.StartSession(ctx, playerID)
	case phase.ToolNextQuestion:
		data, err = h.orch.NextQuestion(ctx, playerID, sessionID)
	case phase.ToolReportIntent:
		var ph phase.Phase
		ph, err = h.orch.ReportIntent(ctx, playerID, sessionID, args.Intent)
		data = gin.H{"acknowledged": true, "phase": ph}
	case phase.ToolSubmitAnswer:
		data, err = h.orch.SubmitAnswer(ctx, playerID, sessionID, args.Answer)
	case phase.ToolInfoLookup:
		data, err = h.orch.InfoLookup(ctx, playerID, sessionID, args.Query)
	case phase.ToolFinishSession:
		data, err = h.orch.FinishSession(ctx, playerID, sessionID)
	case phase.ToolGetLeaderboard:
		data, err = h.orch.GetLeaderboard(ctx)
	default:
		ws.WriteFailure(conn, string(response.ErrInvalidPayload), "unknown tool: "+req.Tool, nil, started)
		return
	}

	if err != nil {
		h.writeServiceError(conn, wsLog, err, started)
		return
	}
	ws.WriteResult(conn, data, started)
}

func (h *VoiceHandler) handleTiming(conn *websocket.Conn, playerID int, raw json.RawMessage) {
	started := time.Now()
	ctx := context.Background()

	var req ws.TimingRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ws.WriteFailure(conn, string(response.ErrInvalidPayload), "malformed timing message", nil, started)
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		ws.WriteFailure(conn, string(response.ErrInvalidID), "invalid session_id", nil, started)
		return
	}

	event, ph, err := h.orch.HandleTimingSignal(ctx, playerID, sessionID,
		model.TimingEventType(req.EventType), req.ClientTimestampMs, req.Metadata)
	if err != nil {
		h.writeServiceError(conn, h.log, err, started)
		return
	}

	ws.WriteResult(conn, gin.H{
		"event_type":       event.EventType,
		"server_timestamp": event.ServerTimestamp,
		"latency_ms":       event.LatencyMs,
		"phase":            ph,
	}, started)
}

func (h *VoiceHandler) handleResume(conn *websocket.Conn, playerID int, raw json.RawMessage) {
	started := time.Now()
	ctx := context.Background()

	var req ws.ResumeRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ws.WriteFailure(conn, string(response.ErrInvalidPayload), "malformed resume message", nil, started)
		return
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		ws.WriteFailure(conn, string(response.ErrInvalidID), "invalid session_id", nil, started)
		return
	}

	result, ph, err := h.orch.ResumeSession(ctx, playerID, sessionID)
	if err != nil {
		h.writeServiceError(conn, h.log, err, started)
		return
	}

	ws.WriteResult(conn, gin.H{
		"can_resume":       result.CanResume,
		"suggested_action": result.SuggestedAction,
		"session_state":    result.SessionState,
		"phase":            ph,
	}, started)
}

// writeServiceError maps domain errors onto wire error codes.
func (h *VoiceHandler) writeServiceError(conn *websocket.Conn, wsLog zerolog.Logger, err error, started time.Time) {
	var denied *service.ToolDeniedError
	switch {
	case errors.As(err, &denied):
		ws.WriteFailure(conn, string(response.ErrToolNotAllowed), denied.Reason, gin.H{
			"phase":         denied.Phase,
			"allowed_tools": denied.AllowedNames(),
		}, started)
	case errors.Is(err, service.ErrSessionNotFound):
		ws.WriteFailure(conn, string(response.ErrNotFound), response.GetMessage(response.ErrNotFound), nil, started)
	case errors.Is(err, service.ErrSessionNotActive):
		ws.WriteFailure(conn, string(response.ErrSessionNotActive), response.GetMessage(response.ErrSessionNotActive), nil, started)
	case errors.Is(err, service.ErrNoQuestionsLeft):
		ws.WriteFailure(conn, string(response.ErrNoQuestionsLeft), response.GetMessage(response.ErrNoQuestionsLeft), nil, started)
	case errors.Is(err, service.ErrNoCurrentTurn):
		ws.WriteFailure(conn, string(response.ErrNoCurrentTurn), response.GetMessage(response.ErrNoCurrentTurn), nil, started)
	case errors.Is(err, service.ErrInvalidEventType):
		ws.WriteFailure(conn, string(response.ErrInvalidPayload), err.Error(), nil, started)
	default:
		wsLog.Error().Err(err).Msg("voice stream action failed")
		ws.WriteFailure(conn, string(response.ErrInternal), response.GetMessage(response.ErrInternal), nil, started)
	}
}
