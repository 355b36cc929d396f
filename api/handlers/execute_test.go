package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/api"
	"github.com/BaSui01/imageflow/session"
	"github.com/BaSui01/imageflow/testutil/fixtures"
	"github.com/BaSui01/imageflow/testutil/mocks"
	"github.com/BaSui01/imageflow/types"
	"github.com/BaSui01/imageflow/workflow"
)

func portraitSession(t *testing.T, sessions *session.Manager) string {
	t.Helper()

	s := sessions.Create()
	require.NoError(t, sessions.SetWorkflow(s.ID, fixtures.PortraitWorkflow()))
	return s.ID
}

func executePayload(sessionID string) api.ExecuteRequest {
	return api.ExecuteRequest{
		SessionID: sessionID,
		Image: api.ImagePayload{
			MIMEType: types.MIMETypePNG,
			Data:     base64.StdEncoding.EncodeToString([]byte("input-bytes")),
		},
	}
}

// parseSSE splits an SSE body into snapshot frames, an optional error
// payload, and the terminal [DONE] marker.
func parseSSE(t *testing.T, body string) ([]api.SnapshotFrame, *api.StreamError, bool) {
	t.Helper()

	var (
		frames    []api.SnapshotFrame
		streamErr *api.StreamError
		done      bool
		errorNext bool
	)

	for _, line := range strings.Split(body, "\n") {
		if line == "event: error" {
			errorNext = true
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			done = true
			continue
		}
		if errorNext {
			var e api.StreamError
			require.NoError(t, json.Unmarshal([]byte(payload), &e))
			streamErr = &e
			errorNext = false
			continue
		}
		var frame api.SnapshotFrame
		require.NoError(t, json.Unmarshal([]byte(payload), &frame))
		frames = append(frames, frame)
	}

	return frames, streamErr, done
}

func TestExecuteHandler_HandleExecute(t *testing.T) {
	sessions := newTestSessions(t)
	editor := mocks.NewMockImageEditor().
		WithFragments(
			mocks.TextFragment("Upscaled."),
			mocks.ImageFragment(mocks.PNG([]byte("upscaled-bytes"))),
		)
	executor := workflow.NewExecutor(editor, workflow.ExecutorConfig{Model: "gemini-2.5-flash-image-preview"}, zap.NewNop())
	handler := NewExecuteHandler(sessions, executor, zap.NewNop())

	id := portraitSession(t, sessions)

	w := postJSON(t, handler.HandleExecute, "/v1/workflows/execute", executePayload(id))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "no", w.Header().Get("X-Accel-Buffering"))

	frames, streamErr, done := parseSSE(t, w.Body.String())
	require.Nil(t, streamErr)
	assert.True(t, done)

	// Header, step line, text fragment, image fragment, terminal DONE.
	require.Len(t, frames, 5)

	final := frames[len(frames)-1]
	assert.Equal(t,
		"# Executing Workflow: Creative Portrait\n"+
			"- Step: Upscale Image ...\n"+
			"> Model: Upscaled.\n"+
			"DONE.",
		final.Transcript)

	require.Len(t, final.Gallery, 1)
	assert.Equal(t, types.MIMETypePNG, final.Gallery[0].MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("upscaled-bytes")), final.Gallery[0].Data)

	// The editor received the posted image.
	require.Equal(t, 1, editor.GetCallCount())
	assert.Equal(t, []byte("input-bytes"), editor.GetLastCall().Request.Image.Data)
}

func TestExecuteHandler_HandleExecute_StreamError(t *testing.T) {
	sessions := newTestSessions(t)
	editor := mocks.NewErrorImageEditor(errors.New("model exploded"))
	executor := workflow.NewExecutor(editor, workflow.ExecutorConfig{}, zap.NewNop())
	handler := NewExecuteHandler(sessions, executor, zap.NewNop())

	id := portraitSession(t, sessions)

	w := postJSON(t, handler.HandleExecute, "/v1/workflows/execute", executePayload(id))

	assert.Equal(t, http.StatusOK, w.Code)

	frames, streamErr, done := parseSSE(t, w.Body.String())
	assert.False(t, done)

	// Header and step line were streamed before the failure.
	require.Len(t, frames, 2)
	assert.Contains(t, frames[1].Transcript, "- Step: Upscale Image ...")

	require.NotNil(t, streamErr)
	assert.Equal(t, types.TitleExecutionError, streamErr.Title)
	assert.Equal(t, string(types.ErrExecution), streamErr.Code)
	assert.Contains(t, streamErr.Error, "model exploded")
}

func TestExecuteHandler_HandleExecute_InvalidRequests(t *testing.T) {
	sessions := newTestSessions(t)
	executor := workflow.NewExecutor(mocks.NewMockImageEditor(), workflow.ExecutorConfig{}, zap.NewNop())
	handler := NewExecuteHandler(sessions, executor, zap.NewNop())

	id := portraitSession(t, sessions)

	validImage := api.ImagePayload{
		MIMEType: types.MIMETypePNG,
		Data:     base64.StdEncoding.EncodeToString([]byte("input-bytes")),
	}

	tests := []struct {
		name       string
		payload    api.ExecuteRequest
		wantStatus int
		wantCode   types.ErrorCode
	}{
		{
			name:       "missing session_id",
			payload:    api.ExecuteRequest{Image: validImage},
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrInvalidRequest,
		},
		{
			name:       "missing image data",
			payload:    api.ExecuteRequest{SessionID: id},
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrInvalidRequest,
		},
		{
			name: "invalid base64",
			payload: api.ExecuteRequest{
				SessionID: id,
				Image:     api.ImagePayload{MIMEType: types.MIMETypePNG, Data: "%%%not-base64%%%"},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrInvalidRequest,
		},
		{
			name:       "unknown session",
			payload:    api.ExecuteRequest{SessionID: "no-such-id", Image: validImage},
			wantStatus: http.StatusNotFound,
			wantCode:   types.ErrSessionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, handler.HandleExecute, "/v1/workflows/execute", tt.payload)
			assert.Equal(t, tt.wantStatus, w.Code)
			errInfo := decodeError(t, w)
			assert.Equal(t, string(tt.wantCode), errInfo.Code)
		})
	}
}

type recordingWorkflowMetrics struct {
	compiles   []string
	executions []string
	steps      int
	produced   int
}

func (r *recordingWorkflowMetrics) RecordCompile(status string, steps int, _ time.Duration) {
	r.compiles = append(r.compiles, status)
}

func (r *recordingWorkflowMetrics) RecordExecution(status string, steps, produced int, _ time.Duration) {
	r.executions = append(r.executions, status)
	r.steps = steps
	r.produced = produced
}

func TestExecuteHandler_RecordsMetrics(t *testing.T) {
	sessions := newTestSessions(t)
	editor := mocks.NewMockImageEditor().
		WithFragments(mocks.ImageFragment(mocks.PNG([]byte("out"))))
	executor := workflow.NewExecutor(editor, workflow.ExecutorConfig{}, zap.NewNop())
	handler := NewExecuteHandler(sessions, executor, zap.NewNop())

	rec := &recordingWorkflowMetrics{}
	handler.SetMetricsRecorder(rec)

	id := portraitSession(t, sessions)

	w := postJSON(t, handler.HandleExecute, "/v1/workflows/execute", executePayload(id))
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, []string{"success"}, rec.executions)
	assert.Equal(t, 1, rec.steps)
	assert.Equal(t, 1, rec.produced)
}

func TestSnapshotFrame(t *testing.T) {
	snap := workflow.Snapshot{
		Transcript: "# Executing Workflow: Demo\n",
		Gallery:    []types.Image{types.NewImage(types.MIMETypeJPEG, []byte{0xFF, 0xD8})},
	}

	frame := snapshotFrame(snap)

	assert.Equal(t, snap.Transcript, frame.Transcript)
	require.Len(t, frame.Gallery, 1)
	assert.Equal(t, types.MIMETypeJPEG, frame.Gallery[0].MIMEType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8}), frame.Gallery[0].Data)
}
