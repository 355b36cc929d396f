package api

import (
	"github.com/BaSui01/imageflow/workflow"
)

// =============================================================================
// Session types
// =============================================================================

// SessionResponse carries a session and its current workflow.
// @Description Session state response
type SessionResponse struct {
	// Session identifier
	SessionID string `json:"session_id" example:"7b9a2f0e-8f2d-4f0a-9c3b-1c2d3e4f5a6b"`
	// Current workflow
	Workflow workflow.Workflow `json:"workflow"`
	// Canonical JSON rendering of the workflow
	WorkflowJSON string `json:"workflow_json"`
}

// WorkflowStateResponse carries a session's current workflow.
// @Description Workflow state response
type WorkflowStateResponse struct {
	// Current workflow
	Workflow workflow.Workflow `json:"workflow"`
	// Canonical JSON rendering of the workflow
	WorkflowJSON string `json:"workflow_json"`
}

// =============================================================================
// Define types
// =============================================================================

// DefineRequest asks the compiler to turn a natural language request into a
// workflow, starting from the session's current one.
// @Description Workflow definition request
type DefineRequest struct {
	// Session identifier
	SessionID string `json:"session_id" example:"7b9a2f0e-8f2d-4f0a-9c3b-1c2d3e4f5a6b" binding:"required"`
	// Natural language pipeline description
	Request string `json:"request" example:"Upscale the image, then add pop-art style" binding:"required"`
}

// Exchange is one (user, assistant) chat-history pair. The definition
// endpoint always returns it with an empty user slot: the request was
// consumed, the assistant slot holds the compiled workflow JSON.
// @Description Chat exchange pair
type Exchange struct {
	// User message (always empty on definition responses)
	User string `json:"user"`
	// Assistant message
	Assistant string `json:"assistant"`
}

// DefineResponse carries the compiled workflow.
// @Description Workflow definition response
type DefineResponse struct {
	// History pair produced by this definition call
	Exchange Exchange `json:"exchange"`
	// Canonical JSON rendering of the workflow
	WorkflowJSON string `json:"workflow_json"`
	// The compiled workflow
	Workflow workflow.Workflow `json:"workflow"`
}

// =============================================================================
// Update types
// =============================================================================

// UpdateRequest replaces a session's workflow with hand-edited JSON.
// @Description Workflow update request
type UpdateRequest struct {
	// Session identifier
	SessionID string `json:"session_id" example:"7b9a2f0e-8f2d-4f0a-9c3b-1c2d3e4f5a6b" binding:"required"`
	// Serialized workflow to validate and store
	WorkflowJSON string `json:"workflow_json" binding:"required"`
}

// UpdateResponse carries the accepted workflow.
// @Description Workflow update response
type UpdateResponse struct {
	// Canonical JSON rendering of the workflow
	WorkflowJSON string `json:"workflow_json"`
	// The accepted workflow
	Workflow workflow.Workflow `json:"workflow"`
}

// =============================================================================
// Execute types
// =============================================================================

// ImagePayload is the wire form of an image: MIME type plus base64 data.
// @Description Image payload
type ImagePayload struct {
	// Image MIME type
	MIMEType string `json:"mime_type" example:"image/png"`
	// Base64-encoded image bytes
	Data string `json:"data_b64"`
}

// ExecuteRequest starts a workflow run against an input image.
// @Description Workflow execution request
type ExecuteRequest struct {
	// Session identifier
	SessionID string `json:"session_id" example:"7b9a2f0e-8f2d-4f0a-9c3b-1c2d3e4f5a6b" binding:"required"`
	// Input image
	Image ImagePayload `json:"image" binding:"required"`
}

// SnapshotFrame is one streamed execution snapshot: the transcript so far
// and every image produced so far.
// @Description Execution snapshot frame
type SnapshotFrame struct {
	// Transcript accumulated so far
	Transcript string `json:"transcript"`
	// Images produced so far, oldest first
	Gallery []ImagePayload `json:"gallery"`
}

// StreamError is the payload of an error event on an execution stream.
// @Description Execution stream error
type StreamError struct {
	// Human-readable error message
	Error string `json:"error"`
	// Fixed banner title, e.g. "Workflow Execution Error"
	Title string `json:"title,omitempty"`
	// Error code
	Code string `json:"code,omitempty"`
}

// =============================================================================
// Examples types
// =============================================================================

// ExamplesResponse lists the stock example requests.
// @Description Example prompt library
type ExamplesResponse struct {
	// Example natural language requests
	Examples []string `json:"examples"`
}
