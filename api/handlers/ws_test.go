package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/api"
	"github.com/BaSui01/imageflow/testutil/mocks"
	"github.com/BaSui01/imageflow/types"
	"github.com/BaSui01/imageflow/workflow"
)

func wsURL(srv *httptest.Server, sessionID string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "?session_id=" + sessionID
}

// readFrames drains text frames until the server closes the socket,
// returning the frames and the close error.
func readFrames(ctx context.Context, t *testing.T, conn *websocket.Conn) ([][]byte, error) {
	t.Helper()

	var frames [][]byte
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return frames, err
		}
		frames = append(frames, data)
	}
}

func TestWSExecuteHandler_StreamsSnapshots(t *testing.T) {
	sessions := newTestSessions(t)
	editor := mocks.NewMockImageEditor().
		WithFragments(
			mocks.TextFragment("Upscaled."),
			mocks.ImageFragment(mocks.PNG([]byte("upscaled-bytes"))),
		)
	executor := workflow.NewExecutor(editor, workflow.ExecutorConfig{}, zap.NewNop())
	handler := NewWSExecuteHandler(sessions, executor, nil, zap.NewNop())

	id := portraitSession(t, sessions)

	srv := httptest.NewServer(http.HandlerFunc(handler.HandleExecuteWS))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv, id), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	payload, err := json.Marshal(executeFrame{Image: api.ImagePayload{
		MIMEType: types.MIMETypePNG,
		Data:     base64.StdEncoding.EncodeToString([]byte("input-bytes")),
	}})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))

	frames, closeErr := readFrames(ctx, t, conn)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(closeErr))

	// Header, step line, text fragment, image fragment, terminal DONE.
	require.Len(t, frames, 5)

	var final api.SnapshotFrame
	require.NoError(t, json.Unmarshal(frames[len(frames)-1], &final))
	assert.Equal(t,
		"# Executing Workflow: Creative Portrait\n"+
			"- Step: Upscale Image ...\n"+
			"> Model: Upscaled.\n"+
			"DONE.",
		final.Transcript)
	require.Len(t, final.Gallery, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("upscaled-bytes")), final.Gallery[0].Data)
}

func TestWSExecuteHandler_StreamError(t *testing.T) {
	sessions := newTestSessions(t)
	editor := mocks.NewErrorImageEditor(errors.New("model exploded"))
	executor := workflow.NewExecutor(editor, workflow.ExecutorConfig{}, zap.NewNop())
	handler := NewWSExecuteHandler(sessions, executor, nil, zap.NewNop())

	id := portraitSession(t, sessions)

	srv := httptest.NewServer(http.HandlerFunc(handler.HandleExecuteWS))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv, id), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	payload, err := json.Marshal(executeFrame{Image: api.ImagePayload{
		MIMEType: types.MIMETypePNG,
		Data:     base64.StdEncoding.EncodeToString([]byte("input-bytes")),
	}})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))

	frames, closeErr := readFrames(ctx, t, conn)
	assert.Equal(t, websocket.StatusInternalError, websocket.CloseStatus(closeErr))

	// Two snapshots before the failure, then the error frame.
	require.Len(t, frames, 3)

	var streamErr api.StreamError
	require.NoError(t, json.Unmarshal(frames[2], &streamErr))
	assert.Equal(t, types.TitleExecutionError, streamErr.Title)
	assert.Equal(t, string(types.ErrExecution), streamErr.Code)
	assert.Contains(t, streamErr.Error, "model exploded")
}

func TestWSExecuteHandler_RejectsBadOpeningFrame(t *testing.T) {
	sessions := newTestSessions(t)
	executor := workflow.NewExecutor(mocks.NewMockImageEditor(), workflow.ExecutorConfig{}, zap.NewNop())
	handler := NewWSExecuteHandler(sessions, executor, nil, zap.NewNop())

	id := portraitSession(t, sessions)

	srv := httptest.NewServer(http.HandlerFunc(handler.HandleExecuteWS))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv, id), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	payload, err := json.Marshal(executeFrame{})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))

	_, closeErr := readFrames(ctx, t, conn)
	assert.Equal(t, websocket.StatusUnsupportedData, websocket.CloseStatus(closeErr))
}

func TestWSExecuteHandler_RejectsBeforeUpgrade(t *testing.T) {
	sessions := newTestSessions(t)
	executor := workflow.NewExecutor(mocks.NewMockImageEditor(), workflow.ExecutorConfig{}, zap.NewNop())
	handler := NewWSExecuteHandler(sessions, executor, nil, zap.NewNop())

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCode   types.ErrorCode
	}{
		{
			name:       "missing session_id",
			target:     "/v1/workflows/execute/ws",
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrInvalidRequest,
		},
		{
			name:       "unknown session",
			target:     "/v1/workflows/execute/ws?session_id=no-such-id",
			wantStatus: http.StatusNotFound,
			wantCode:   types.ErrSessionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			w := httptest.NewRecorder()
			handler.HandleExecuteWS(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			errInfo := decodeError(t, w)
			assert.Equal(t, string(tt.wantCode), errInfo.Code)
		})
	}
}
