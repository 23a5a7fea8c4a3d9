package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/physqgen-backend/internal/logger"
	"github.com/stemsi/physqgen-backend/internal/middleware"
	"github.com/stemsi/physqgen-backend/internal/model"
	"github.com/stemsi/physqgen-backend/internal/response"
	"github.com/stemsi/physqgen-backend/internal/service"
	ws "github.com/stemsi/physqgen-backend/internal/websocket"
)

const wsRequestTimeout = 10 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
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

// WSHandler serves the student session over a WebSocket.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            logger.Component(log, "ws_handler"),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/student/session/stream?token=...
// Accepts submit, state and ping actions for the session bound to the token.
func (h *WSHandler) SessionStream(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)

	// Reject unknown sessions before upgrading so the client sees a 404.
	snap, err := h.sessionService.GetSnapshot(c.Request.Context(), sessionID)
	if err != nil {
		failSession(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", sessionID.String()).Logger()
	wsLog.Info().Msg("Student connected")

	ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventState, Session: *snap})

	for {
		var msg ws.Request
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), wsRequestTimeout)
		switch msg.Action {
		case ws.ActionSubmit:
			h.handleSubmit(ctx, conn, wsLog, sessionID, msg.Answer)
		case ws.ActionState:
			h.handleState(ctx, conn, wsLog, sessionID)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}
		cancel()
	}
}

func (h *WSHandler) handleSubmit(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, answer string) {
	if strings.TrimSpace(answer) == "" || len(answer) > 64 {
		writeSessionError(conn, model.ErrInvalidSubmission)
		return
	}

	attempt, snap, err := h.sessionService.Submit(ctx, sessionID, answer)
	if err != nil {
		if status, _ := sessionError(err); status >= http.StatusInternalServerError {
			wsLog.Error().Err(err).Msg("Submit failed")
		}
		writeSessionError(conn, err)
		return
	}

	ws.WriteTyped(conn, ws.ResultResponse{Event: ws.EventResult, Correct: attempt.Correct, Session: snap})
}

func (h *WSHandler) handleState(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID) {
	snap, err := h.sessionService.GetSnapshot(ctx, sessionID)
	if err != nil {
		if status, _ := sessionError(err); status >= http.StatusInternalServerError {
			wsLog.Error().Err(err).Msg("State read failed")
		}
		writeSessionError(conn, err)
		return
	}
	ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventState, Session: *snap})
}

func writeSessionError(conn *websocket.Conn, err error) {
	_, code := sessionError(err)
	ws.WriteError(conn, string(code), response.GetMessage(code))
}
