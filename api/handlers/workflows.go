package handlers

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/api"
	"github.com/BaSui01/imageflow/session"
	"github.com/BaSui01/imageflow/types"
	"github.com/BaSui01/imageflow/workflow"
)

// WorkflowHandler serves workflow definition and update endpoints.
type WorkflowHandler struct {
	sessions *session.Manager
	compiler *workflow.Compiler
	maxSteps int
	logger   *zap.Logger
	metrics  WorkflowMetrics
}

// NewWorkflowHandler creates a workflow handler. maxSteps bounds hand-edited
// workflows; zero disables the check.
func NewWorkflowHandler(sessions *session.Manager, compiler *workflow.Compiler, maxSteps int, logger *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		sessions: sessions,
		compiler: compiler,
		maxSteps: maxSteps,
		logger:   logger,
	}
}

// SetMetricsRecorder attaches a metrics recorder.
func (h *WorkflowHandler) SetMetricsRecorder(m WorkflowMetrics) {
	h.metrics = m
}

// HandleDefine compiles a natural language request into the session's
// workflow.
// @Summary Define workflow
// @Description Compile a natural language request into a workflow
// @Tags Workflows
// @Accept json
// @Produce json
// @Param request body api.DefineRequest true "Definition request"
// @Success 200 {object} Response "Compiled workflow"
// @Failure 400 {object} Response "Invalid request"
// @Failure 404 {object} Response "Unknown session"
// @Failure 502 {object} Response "Definition failed"
// @Security ApiKeyAuth
// @Router /v1/workflows/define [post]
func (h *WorkflowHandler) HandleDefine(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.DefineRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if req.SessionID == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "session_id is required"), h.logger)
		return
	}
	if req.Request == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "request is required"), h.logger)
		return
	}

	current, err := h.sessions.Workflow(req.SessionID)
	if err != nil {
		handleDomainError(w, err, h.logger)
		return
	}

	start := time.Now()
	cleared, serialized, next, err := h.compiler.Define(r.Context(), req.Request, current)
	duration := time.Since(start)

	if err != nil {
		h.recordCompile("error", 0, duration)
		handleDomainError(w, err, h.logger)
		return
	}

	if err := h.sessions.SetWorkflow(req.SessionID, next); err != nil {
		handleDomainError(w, err, h.logger)
		return
	}

	h.recordCompile("success", next.StepCount(), duration)
	h.logger.Info("workflow defined",
		zap.String("session_id", req.SessionID),
		zap.String("workflow", next.Name),
		zap.Int("steps", next.StepCount()),
		zap.Duration("duration", duration),
	)

	WriteSuccess(w, api.DefineResponse{
		Exchange:     api.Exchange{User: cleared, Assistant: serialized},
		WorkflowJSON: serialized,
		Workflow:     next,
	})
}

// HandleUpdate validates hand-edited workflow JSON and stores it.
// @Summary Update workflow
// @Description Validate hand-edited workflow JSON and store it in the session
// @Tags Workflows
// @Accept json
// @Produce json
// @Param request body api.UpdateRequest true "Update request"
// @Success 200 {object} Response "Accepted workflow"
// @Failure 400 {object} Response "Validation failed"
// @Failure 404 {object} Response "Unknown session"
// @Security ApiKeyAuth
// @Router /v1/workflows/update [post]
func (h *WorkflowHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.UpdateRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if req.SessionID == "" {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "session_id is required"), h.logger)
		return
	}

	if _, err := h.sessions.Workflow(req.SessionID); err != nil {
		handleDomainError(w, err, h.logger)
		return
	}

	next, err := workflow.Update(req.WorkflowJSON)
	if err != nil {
		handleDomainError(w, err, h.logger)
		return
	}

	if h.maxSteps > 0 && next.StepCount() > h.maxSteps {
		err := types.NewUpdateError(fmt.Errorf("workflow has %d steps, the limit is %d", next.StepCount(), h.maxSteps))
		WriteError(w, err, h.logger)
		return
	}

	if err := h.sessions.SetWorkflow(req.SessionID, next); err != nil {
		handleDomainError(w, err, h.logger)
		return
	}

	h.logger.Info("workflow updated",
		zap.String("session_id", req.SessionID),
		zap.String("workflow", next.Name),
		zap.Int("steps", next.StepCount()),
	)

	WriteSuccess(w, api.UpdateResponse{
		WorkflowJSON: next.MarshalIndent(),
		Workflow:     next,
	})
}

func (h *WorkflowHandler) recordCompile(status string, steps int, duration time.Duration) {
	if h.metrics != nil {
		h.metrics.RecordCompile(status, steps, duration)
	}
}
