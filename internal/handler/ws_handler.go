package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/middleware"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/model"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/session"
	ws "github.com/Rakesh-koneti/cetstrom.web-sub000/internal/websocket"
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

// WSHandler streams one live attempt over a WebSocket: countdown ticks go
// out, answer/navigation actions come in, and the terminal auto-submit
// event closes the stream.
type WSHandler struct {
	registry *session.Registry
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(registry *session.Registry, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		registry: registry,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:session_id/stream
// Upgrades to WebSocket for a live attempt.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	eng, err := h.registry.Get(sessionID)
	if err != nil || eng.Session().UserID != claims.UserID {
		c.JSON(http.StatusNotFound, gin.H{"error": "attempt not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("session_id", sessionID.String()).
		Str("user_id", claims.UserID.String()).
		Logger()
	wsLog.Info().Msg("Attempt stream connected")

	ticks, cancel := eng.Subscribe()
	defer cancel()

	// Countdown ticks are pushed independently of the reader loop. The
	// writer goroutine owns all outbound tick frames and exits when the
	// engine closes the subscription.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for tick := range ticks {
			resp := ws.TickResponse{
				Event:            ws.EventTick,
				RemainingSeconds: tick.RemainingSeconds,
				AutoSubmitted:    tick.AutoSubmitted,
			}
			if err := ws.WriteTyped(conn, resp); err != nil {
				return
			}
			if tick.AutoSubmitted {
				if res := eng.Result(); res != nil {
					ws.WriteTyped(conn, ws.SubmittedResponse{
						Event:      ws.EventSubmitted,
						Obtained:   res.ObtainedMarks,
						Percentage: res.Percentage,
						IsPassed:   res.IsPassed,
					})
				}
				return
			}
		}
	}()

	h.readLoop(conn, eng, wsLog)
	<-done
	wsLog.Info().Msg("Attempt stream closed")
}

func (h *WSHandler) readLoop(conn *websocket.Conn, eng *session.Engine, wsLog zerolog.Logger) {
	for {
		raw, err := ws.ReadRaw(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			ws.WriteError(conn, "malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, eng, raw)
		case ws.ActionNavigate:
			h.handleNavigate(conn, eng, raw)
		case ws.ActionGoto:
			h.handleGoto(conn, eng, raw)
		case ws.ActionEvent:
			h.handleEvent(conn, eng, raw)
		case ws.ActionSubmit:
			h.handleSubmit(conn, eng, wsLog)
			return
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			ws.WriteError(conn, "unknown action: "+string(envelope.Action))
		}
	}
}

func (h *WSHandler) handleAnswer(conn *websocket.Conn, eng *session.Engine, raw []byte) {
	var req ws.AnswerRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ws.WriteError(conn, "malformed answer")
		return
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		ws.WriteError(conn, "invalid question_id format")
		return
	}
	if err := eng.RecordAnswer(questionID, req.SelectedOption, req.TimeSpentSeconds); err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved})
}

func (h *WSHandler) handleNavigate(conn *websocket.Conn, eng *session.Engine, raw []byte) {
	var req ws.NavigateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ws.WriteError(conn, "malformed navigate")
		return
	}
	pos, err := eng.Navigate(req.Delta)
	if err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	ws.WriteTyped(conn, ws.PositionResponse{Event: ws.EventPosition, Section: pos.Section, Question: pos.Question})
}

func (h *WSHandler) handleGoto(conn *websocket.Conn, eng *session.Engine, raw []byte) {
	var req ws.GotoRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ws.WriteError(conn, "malformed goto")
		return
	}
	pos, err := eng.Goto(session.Position{Section: req.Section, Question: req.Question})
	if err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	ws.WriteTyped(conn, ws.PositionResponse{Event: ws.EventPosition, Section: pos.Section, Question: pos.Question})
}

func (h *WSHandler) handleEvent(conn *websocket.Conn, eng *session.Engine, raw []byte) {
	var req ws.EventRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		ws.WriteError(conn, "malformed event")
		return
	}
	var questionID *uuid.UUID
	if req.QuestionID != nil {
		id, err := uuid.Parse(*req.QuestionID)
		if err != nil {
			ws.WriteError(conn, "invalid question_id format")
			return
		}
		questionID = &id
	}
	if err := eng.RecordEvent(model.EventKind(req.Kind), questionID); err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved})
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, eng *session.Engine, wsLog zerolog.Logger) {
	res, err := eng.Submit(context.Background(), session.SubmitManual)
	if err != nil {
		ws.WriteError(conn, err.Error())
		return
	}

	wsLog.Info().
		Float64("obtained", res.ObtainedMarks).
		Float64("percentage", res.Percentage).
		Msg("Attempt submitted over stream")

	ws.WriteTyped(conn, ws.SubmittedResponse{
		Event:      ws.EventSubmitted,
		Obtained:   res.ObtainedMarks,
		Percentage: res.Percentage,
		IsPassed:   res.IsPassed,
	})
}
