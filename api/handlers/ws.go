package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/api"
	"github.com/BaSui01/imageflow/session"
	"github.com/BaSui01/imageflow/types"
	"github.com/BaSui01/imageflow/workflow"
)

// WSExecuteHandler streams workflow execution snapshots over a WebSocket.
// The client opens the socket with a session_id query parameter, sends one
// JSON frame carrying the input image, and receives one JSON frame per
// snapshot.
type WSExecuteHandler struct {
	sessions *session.Manager
	executor *workflow.Executor
	origins  []string
	logger   *zap.Logger

	// WebSocket writes are not concurrency safe.
	mu sync.Mutex
}

// NewWSExecuteHandler creates a WebSocket execution handler. origins lists
// the allowed origin patterns.
func NewWSExecuteHandler(sessions *session.Manager, executor *workflow.Executor, origins []string, logger *zap.Logger) *WSExecuteHandler {
	return &WSExecuteHandler{
		sessions: sessions,
		executor: executor,
		origins:  origins,
		logger:   logger,
	}
}

// executeFrame is the opening frame the client sends.
type executeFrame struct {
	Image api.ImagePayload `json:"image"`
}

// HandleExecuteWS upgrades the connection and streams snapshots.
// @Summary Execute workflow over WebSocket
// @Description Run the session's workflow against an image sent on the socket
// @Tags Workflows
// @Param session_id query string true "Session ID"
// @Success 101 {string} string "Switching protocols"
// @Failure 400 {object} Response "Missing session_id"
// @Failure 404 {object} Response "Unknown session"
// @Security ApiKeyAuth
// @Router /v1/workflows/execute/ws [get]
func (h *WSExecuteHandler) HandleExecuteWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "session_id is required"), h.logger)
		return
	}

	wf, err := h.sessions.Workflow(sessionID)
	if err != nil {
		handleDomainError(w, err, h.logger)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "server error")

	ctx := r.Context()

	image, ok := h.readImage(ctx, conn)
	if !ok {
		return
	}

	h.logger.Info("websocket execution started",
		zap.String("session_id", sessionID),
		zap.String("workflow", wf.Name),
		zap.Int("steps", wf.StepCount()),
	)

	run := h.executor.Execute(ctx, image, wf)

	for snap := range run.Snapshots() {
		if err := h.writeFrame(ctx, conn, snapshotFrame(snap)); err != nil {
			h.logger.Warn("websocket write failed", zap.Error(err))
			return
		}
	}

	if err := run.Err(); err != nil {
		h.logger.Error("websocket execution failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		if werr := h.writeFrame(ctx, conn, streamError(err)); werr != nil {
			return
		}
		reason := "execution failed"
		if typed, ok := types.AsError(err); ok && typed.Title != "" {
			reason = typed.Title
		}
		conn.Close(websocket.StatusInternalError, reason)
		return
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}

// readImage reads and decodes the opening image frame. On failure the
// connection has been closed with a status describing the problem.
func (h *WSExecuteHandler) readImage(ctx context.Context, conn *websocket.Conn) (types.Image, bool) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		h.logger.Warn("websocket read failed", zap.Error(err))
		return types.Image{}, false
	}

	var frame executeFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		conn.Close(websocket.StatusUnsupportedData, "invalid execute frame")
		return types.Image{}, false
	}
	if frame.Image.Data == "" {
		conn.Close(websocket.StatusUnsupportedData, "image data is required")
		return types.Image{}, false
	}

	image, err := types.ImageFromBase64(frame.Image.MIMEType, frame.Image.Data)
	if err != nil {
		conn.Close(websocket.StatusUnsupportedData, "invalid image payload")
		return types.Image{}, false
	}

	return image, true
}

// writeFrame marshals payload and sends it as one text frame.
func (h *WSExecuteHandler) writeFrame(ctx context.Context, conn *websocket.Conn, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return conn.Write(ctx, websocket.MessageText, data)
}
