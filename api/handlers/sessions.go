package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/api"
	"github.com/BaSui01/imageflow/session"
)

// SessionHandler serves session lifecycle endpoints.
type SessionHandler struct {
	sessions *session.Manager
	logger   *zap.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(sessions *session.Manager, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// HandleCreate creates a session seeded with the empty workflow.
// @Summary Create session
// @Description Create a new editing session
// @Tags Sessions
// @Produce json
// @Success 201 {object} Response "Session created"
// @Security ApiKeyAuth
// @Router /v1/sessions [post]
func (h *SessionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()

	h.logger.Info("session created", zap.String("session_id", s.ID))

	WriteSuccessStatus(w, http.StatusCreated, api.SessionResponse{
		SessionID:    s.ID,
		Workflow:     s.Workflow,
		WorkflowJSON: s.Workflow.MarshalIndent(),
	})
}

// HandleGetWorkflow returns a session's current workflow.
// @Summary Get session workflow
// @Description Return the session's current workflow and its canonical JSON
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} Response "Current workflow"
// @Failure 404 {object} Response "Unknown session"
// @Security ApiKeyAuth
// @Router /v1/sessions/{id}/workflow [get]
func (h *SessionHandler) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	wf, err := h.sessions.Workflow(id)
	if err != nil {
		handleDomainError(w, err, h.logger)
		return
	}

	WriteSuccess(w, api.WorkflowStateResponse{
		Workflow:     wf,
		WorkflowJSON: wf.MarshalIndent(),
	})
}
