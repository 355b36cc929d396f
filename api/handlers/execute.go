package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/api"
	"github.com/BaSui01/imageflow/session"
	"github.com/BaSui01/imageflow/types"
	"github.com/BaSui01/imageflow/workflow"
)

// ExecuteHandler streams workflow execution snapshots over SSE.
type ExecuteHandler struct {
	sessions *session.Manager
	executor *workflow.Executor
	logger   *zap.Logger
	metrics  WorkflowMetrics
}

// NewExecuteHandler creates an execution handler.
func NewExecuteHandler(sessions *session.Manager, executor *workflow.Executor, logger *zap.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		sessions: sessions,
		executor: executor,
		logger:   logger,
	}
}

// SetMetricsRecorder attaches a metrics recorder.
func (h *ExecuteHandler) SetMetricsRecorder(m WorkflowMetrics) {
	h.metrics = m
}

// HandleExecute runs the session's workflow against the posted image and
// streams one snapshot frame per emission.
// @Summary Execute workflow
// @Description Run the session's workflow against an image, streaming snapshots
// @Tags Workflows
// @Accept json
// @Produce text/event-stream
// @Param request body api.ExecuteRequest true "Execution request"
// @Success 200 {string} string "SSE stream"
// @Failure 400 {object} Response "Invalid request"
// @Failure 404 {object} Response "Unknown session"
// @Security ApiKeyAuth
// @Router /v1/workflows/execute [post]
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.ExecuteRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if req.SessionID == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "session_id is required"), h.logger)
		return
	}
	if req.Image.Data == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "image data is required"), h.logger)
		return
	}

	image, err := types.ImageFromBase64(req.Image.MIMEType, req.Image.Data)
	if err != nil {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "invalid image payload").WithCause(err), h.logger)
		return
	}

	wf, err := h.sessions.Workflow(req.SessionID)
	if err != nil {
		handleDomainError(w, err, h.logger)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, types.NewError(types.ErrInternalError, "streaming not supported"), h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	h.logger.Info("workflow execution started",
		zap.String("session_id", req.SessionID),
		zap.String("workflow", wf.Name),
		zap.Int("steps", wf.StepCount()),
		zap.Int("image_bytes", image.Size()),
	)

	start := time.Now()
	run := h.executor.Execute(r.Context(), image, wf)

	produced := 0
	for snap := range run.Snapshots() {
		produced = len(snap.Gallery)

		w.Write([]byte("data: "))
		if err := json.NewEncoder(w).Encode(snapshotFrame(snap)); err != nil {
			h.logger.Error("failed to write snapshot", zap.Error(err))
			return
		}
		w.Write([]byte("\n\n"))
		flusher.Flush()
	}

	duration := time.Since(start)

	if err := run.Err(); err != nil {
		h.logger.Error("workflow execution failed",
			zap.String("session_id", req.SessionID),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		errPayload, _ := json.Marshal(streamError(err))
		w.Write([]byte("event: error\n"))
		w.Write([]byte("data: "))
		w.Write(errPayload)
		w.Write([]byte("\n\n"))
		flusher.Flush()
		h.recordExecution("error", wf.StepCount(), produced, duration)
		return
	}

	w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()

	h.recordExecution("success", wf.StepCount(), produced, duration)
	h.logger.Info("workflow execution finished",
		zap.String("session_id", req.SessionID),
		zap.Int("images_produced", produced),
		zap.Duration("duration", duration),
	)
}

func (h *ExecuteHandler) recordExecution(status string, steps, produced int, duration time.Duration) {
	if h.metrics != nil {
		h.metrics.RecordExecution(status, steps, produced, duration)
	}
}

// snapshotFrame converts an executor snapshot to its wire form.
func snapshotFrame(s workflow.Snapshot) api.SnapshotFrame {
	gallery := make([]api.ImagePayload, len(s.Gallery))
	for i, img := range s.Gallery {
		gallery[i] = api.ImagePayload{
			MIMEType: img.MIMEType,
			Data:     img.Base64(),
		}
	}
	return api.SnapshotFrame{
		Transcript: s.Transcript,
		Gallery:    gallery,
	}
}

// streamError converts a run error to its wire form.
func streamError(err error) api.StreamError {
	if typed, ok := types.AsError(err); ok {
		return api.StreamError{
			Error: typed.Message,
			Title: typed.Title,
			Code:  string(typed.Code),
		}
	}
	return api.StreamError{Error: err.Error()}
}
