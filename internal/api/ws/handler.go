package ws

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ptyhost/internal/api/middleware"
	"github.com/GriffinCanCode/ptyhost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ptyhost/internal/shared/types"
	"github.com/GriffinCanCode/ptyhost/internal/terminal"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

// Frame types.
const (
	FrameSystem = "system"
	FrameOutput = "output"
	FrameExit   = "exit"
	FrameInput  = "input"
	FrameResize = "resize"
	FramePing   = "ping"
	FramePong   = "pong"
	FrameError  = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || middleware.IsLocalOrigin(origin)
	},
}

// Handler manages WebSocket connections
type Handler struct {
	hub     *terminal.Hub
	manager *terminal.Manager
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *terminal.Hub, manager *terminal.Manager, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:     hub,
		manager: manager,
		metrics: metrics,
		logger:  logger,
	}
}

// HandleConnection upgrades the request and streams events for the
// session_id query parameter, or for every session when it is absent.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sessionID := c.Query("session_id")
	log := h.logger.With(zap.String("session_id", sessionID))
	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	events, dropped, cancel := h.hub.Subscribe(sessionID)
	defer cancel()

	ctx, stop := context.WithCancel(c.Request.Context())
	defer stop()

	replies := make(chan types.StreamFrame, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, events, dropped, replies, log)
		stop()
	}()

	replies <- types.StreamFrame{Type: FrameSystem, SessionID: sessionID, Message: "connected"}
	h.readLoop(ctx, conn, replies, log)

	stop()
	<-writerDone
	log.Debug("websocket closed")
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, replies chan<- types.StreamFrame, log *zap.Logger) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var frame types.StreamFrame
		if err := sonic.Unmarshal(raw, &frame); err != nil {
			h.reply(ctx, replies, errorFrame("", "malformed frame"))
			continue
		}
		h.metrics.RecordWSMessage("in", frame.Type)

		if reply, ok := h.handleFrame(ctx, frame); ok {
			h.reply(ctx, replies, reply)
		}
	}
}

// handleFrame applies one client frame. It returns a reply when one is due.
func (h *Handler) handleFrame(ctx context.Context, frame types.StreamFrame) (types.StreamFrame, bool) {
	switch frame.Type {
	case FramePing:
		return types.StreamFrame{Type: FramePong}, true
	case FrameInput:
		data, err := frameInput(frame)
		if err != nil {
			return errorFrame(frame.SessionID, err.Error()), true
		}
		if err := h.manager.Write(frame.SessionID, data); err != nil {
			return errorFrame(frame.SessionID, err.Error()), true
		}
	case FrameResize:
		if err := h.manager.Resize(ctx, frame.SessionID, frame.Cols, frame.Rows); err != nil {
			return errorFrame(frame.SessionID, err.Error()), true
		}
	default:
		return errorFrame(frame.SessionID, "unknown message type"), true
	}
	return types.StreamFrame{}, false
}

func (h *Handler) reply(ctx context.Context, replies chan<- types.StreamFrame, frame types.StreamFrame) {
	select {
	case replies <- frame:
	case <-ctx.Done():
	}
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan terminal.Event, dropped <-chan struct{}, replies <-chan types.StreamFrame, log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var frame types.StreamFrame
		select {
		case <-ctx.Done():
			return
		case <-dropped:
			h.send(conn, errorFrame("", "event stream fell behind"))
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "slow consumer"),
				time.Now().Add(writeWait))
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case e := <-events:
			frame = eventFrame(e)
		case frame = <-replies:
		}

		if err := h.send(conn, frame); err != nil {
			log.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, frame types.StreamFrame) error {
	payload, err := sonic.Marshal(frame)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}
	h.metrics.RecordWSMessage("out", frame.Type)
	return nil
}

func eventFrame(e terminal.Event) types.StreamFrame {
	if e.Kind == terminal.EventExit {
		return types.StreamFrame{Type: FrameExit, SessionID: e.SessionID, ExitCode: e.ExitCode}
	}
	return types.StreamFrame{
		Type:      FrameOutput,
		SessionID: e.SessionID,
		Data:      base64.StdEncoding.EncodeToString(e.Data),
	}
}

func frameInput(frame types.StreamFrame) ([]byte, error) {
	if frame.Data != "" {
		data, err := base64.StdEncoding.DecodeString(frame.Data)
		if err != nil {
			return nil, errors.New("data is not valid base64")
		}
		return data, nil
	}
	if frame.Text != "" {
		return []byte(frame.Text), nil
	}
	return nil, errors.New("data or text is required")
}

func errorFrame(sessionID, message string) types.StreamFrame {
	return types.StreamFrame{Type: FrameError, SessionID: sessionID, Message: message}
}
