package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/api"
	"github.com/BaSui01/imageflow/workflow"
)

// ExamplesHandler serves the stock example request library.
type ExamplesHandler struct {
	logger *zap.Logger
}

// NewExamplesHandler creates an examples handler.
func NewExamplesHandler(logger *zap.Logger) *ExamplesHandler {
	return &ExamplesHandler{logger: logger}
}

// HandleList returns the example requests.
// @Summary List examples
// @Description Return the stock example requests for workflow definition
// @Tags Examples
// @Produce json
// @Success 200 {object} Response "Example requests"
// @Router /v1/examples [get]
func (h *ExamplesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, api.ExamplesResponse{Examples: workflow.Examples})
}
