package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/imageflow/schema"
	"github.com/BaSui01/imageflow/types"
)

func testSchema() *schema.JSONSchema {
	return schema.NewObjectSchema().
		AddProperty("name", schema.NewStringSchema()).
		AddRequired("name")
}

func textResponse(text string) string {
	resp := geminiResponse{
		Candidates: []geminiCandidate{{
			Content: geminiContent{
				Role:  "model",
				Parts: []geminiPart{{Text: text}},
			},
		}},
		UsageMetadata: &geminiUsageMetadata{
			PromptTokenCount:     12,
			CandidatesTokenCount: 34,
			TotalTokenCount:      46,
		},
	}
	out, _ := json.Marshal(resp)
	return string(out)
}

func TestClient_GenerateStructured(t *testing.T) {
	var (
		gotPath   string
		gotAPIKey string
		gotBody   geminiRequest
		rawBody   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("x-goog-api-key")
		rawBody, _ = io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(rawBody, &gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(textResponse(`{"name":"Creative Portrait","steps":[]}`)))
	}))
	defer srv.Close()

	client := NewClient(Config{
		APIKey:        "test-key",
		BaseURL:       srv.URL,
		LanguageModel: "gemini-2.5-flash",
	}, nil)

	out, err := client.GenerateStructured(context.Background(), &StructuredRequest{
		SystemInstruction: "Generate a structured workflow.",
		Input:             "Upscale the image, then add a signature",
		Temperature:       0,
		MaxOutputTokens:   2000,
		ResponseSchema:    testSchema(),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Creative Portrait","steps":[]}`, out)

	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", gotPath)
	assert.Equal(t, "test-key", gotAPIKey)

	require.Len(t, gotBody.Contents, 1)
	assert.Equal(t, "user", gotBody.Contents[0].Role)
	require.Len(t, gotBody.Contents[0].Parts, 1)
	assert.Equal(t, "Upscale the image, then add a signature", gotBody.Contents[0].Parts[0].Text)

	require.NotNil(t, gotBody.SystemInstruction)
	assert.Equal(t, "Generate a structured workflow.", gotBody.SystemInstruction.Parts[0].Text)

	cfg := gotBody.GenerationConfig
	require.NotNil(t, cfg)
	assert.Equal(t, 2000, cfg.MaxOutputTokens)
	assert.Equal(t, "application/json", cfg.ResponseMimeType)
	require.NotNil(t, cfg.ResponseSchema)
	assert.True(t, cfg.ResponseSchema.IsRequired("name"))

	// Zero temperature must be on the wire, not dropped by omitempty.
	require.NotNil(t, cfg.Temperature)
	assert.Equal(t, float32(0), *cfg.Temperature)
	assert.Contains(t, string(rawBody), `"temperature":0`)
}

func TestClient_EditImage(t *testing.T) {
	editedPNG := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	var gotBody geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		resp := geminiResponse{
			Candidates: []geminiCandidate{{
				Content: geminiContent{
					Role: "model",
					Parts: []geminiPart{
						{Text: "Applied the pop-art filter."},
						{InlineData: &geminiInlineData{
							MimeType: types.MIMETypePNG,
							Data:     base64.StdEncoding.EncodeToString(editedPNG),
						}},
					},
				},
			}},
		}
		out, _ := json.Marshal(resp)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(out)
	}))
	defer srv.Close()

	client := NewClient(Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		ImageModel: "gemini-2.5-flash-image-preview",
	}, nil)

	source := types.NewImage(types.MIMETypeJPEG, []byte("source-bytes"))
	fragments, err := client.EditImage(context.Background(), &EditRequest{
		Image:           source,
		Prompt:          "Apply a vibrant pop-art filter",
		MaxOutputTokens: 5000,
	})
	require.NoError(t, err)

	// Image part leads, prompt follows.
	require.Len(t, gotBody.Contents, 1)
	parts := gotBody.Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, types.MIMETypeJPEG, parts[0].InlineData.MimeType)
	assert.Equal(t, source.Base64(), parts[0].InlineData.Data)
	assert.Equal(t, "Apply a vibrant pop-art filter", parts[1].Text)

	require.NotNil(t, gotBody.GenerationConfig)
	assert.Equal(t, []string{"TEXT", "IMAGE"}, gotBody.GenerationConfig.ResponseModalities)

	// Fragments come back in model order: text first, then the image.
	require.Len(t, fragments, 2)
	assert.False(t, fragments[0].IsImage())
	assert.Equal(t, "Applied the pop-art filter.", fragments[0].Text)
	require.True(t, fragments[1].IsImage())
	assert.Equal(t, types.MIMETypePNG, fragments[1].Image.MIMEType)
	assert.Equal(t, editedPNG, fragments[1].Image.Data)
}

func TestClient_EditImage_EmptyImage(t *testing.T) {
	client := NewClient(Config{APIKey: "k", BaseURL: "http://127.0.0.1:0"}, nil)
	_, err := client.EditImage(context.Background(), &EditRequest{Prompt: "edit"})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantCode   types.ErrorCode
		retryable  bool
		wantMsg    string
	}{
		{
			name:       "unauthorized",
			statusCode: http.StatusUnauthorized,
			body:       `{"error":{"code":401,"message":"API key not valid","status":"UNAUTHENTICATED"}}`,
			wantCode:   types.ErrAuthentication,
			wantMsg:    "API key not valid (status: UNAUTHENTICATED)",
		},
		{
			name:       "forbidden",
			statusCode: http.StatusForbidden,
			body:       `{"error":{"code":403,"message":"permission denied","status":"PERMISSION_DENIED"}}`,
			wantCode:   types.ErrAuthentication,
		},
		{
			name:       "model not found",
			statusCode: http.StatusNotFound,
			body:       `{"error":{"code":404,"message":"model not found","status":"NOT_FOUND"}}`,
			wantCode:   types.ErrModelNotFound,
		},
		{
			name:       "rate limited",
			statusCode: http.StatusTooManyRequests,
			body:       `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`,
			wantCode:   types.ErrRateLimited,
			retryable:  true,
		},
		{
			name:       "bad request",
			statusCode: http.StatusBadRequest,
			body:       `{"error":{"code":400,"message":"invalid schema","status":"INVALID_ARGUMENT"}}`,
			wantCode:   types.ErrInvalidRequest,
		},
		{
			name:       "server error",
			statusCode: http.StatusServiceUnavailable,
			body:       `not json`,
			wantCode:   types.ErrUpstreamError,
			retryable:  true,
			wantMsg:    "request failed with status 503",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, LanguageModel: "m"}, nil)
			_, err := client.GenerateStructured(context.Background(), &StructuredRequest{Input: "x"})
			require.Error(t, err)

			e, ok := types.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.statusCode, e.HTTPStatus)
			assert.Equal(t, tt.retryable, e.Retryable)
			assert.Equal(t, ProviderName, e.Provider)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, e.Message)
			}
		})
	}
}

func TestClient_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, LanguageModel: "m"}, nil)
	_, err := client.GenerateStructured(context.Background(), &StructuredRequest{Input: "x"})
	require.Error(t, err)
	assert.Equal(t, types.ErrUpstreamError, types.GetErrorCode(err))
}

func TestClient_PromptBlocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, LanguageModel: "m"}, nil)
	_, err := client.GenerateStructured(context.Background(), &StructuredRequest{Input: "x"})
	require.Error(t, err)

	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrContentFiltered, e.Code)
	assert.Contains(t, e.Message, "SAFETY")
}

func TestClient_ContextCancellation(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, LanguageModel: "m"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.GenerateStructured(ctx, &StructuredRequest{Input: "x"})
	require.Error(t, err)
	assert.Equal(t, types.ErrTimeout, types.GetErrorCode(err))
}

func TestClient_MetricsRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(textResponse(`{}`)))
	}))
	defer srv.Close()

	rec := &recordingMetrics{}
	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, LanguageModel: "m"}, nil)
	client.SetMetricsRecorder(rec)

	_, err := client.GenerateStructured(context.Background(), &StructuredRequest{Input: "x"})
	require.NoError(t, err)

	require.Len(t, rec.requests, 1)
	assert.Equal(t, "m", rec.requests[0].model)
	assert.Equal(t, opStructured, rec.requests[0].operation)
	assert.Equal(t, "success", rec.requests[0].status)
	require.Len(t, rec.tokens, 1)
	assert.Equal(t, 12, rec.tokens[0].prompt)
	assert.Equal(t, 34, rec.tokens[0].completion)
}

func TestClient_Endpoint(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "default base",
			cfg:  Config{},
			want: "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent",
		},
		{
			name: "trailing slash trimmed",
			cfg:  Config{BaseURL: "https://example.com/"},
			want: "https://example.com/v1beta/models/gemini-2.5-flash:generateContent",
		},
		{
			name: "vertex global",
			cfg:  Config{UseVertex: true, Project: "proj"},
			want: "https://aiplatform.googleapis.com/v1/projects/proj/locations/global/publishers/google/models/gemini-2.5-flash:generateContent",
		},
		{
			name: "vertex regional",
			cfg:  Config{UseVertex: true, Project: "proj", Location: "us-central1"},
			want: "https://us-central1-aiplatform.googleapis.com/v1/projects/proj/locations/us-central1/publishers/google/models/gemini-2.5-flash:generateContent",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.cfg, nil)
			assert.Equal(t, tt.want, client.endpoint("gemini-2.5-flash"))
		})
	}
}

type recordedRequest struct {
	model, operation, status string
	duration                 time.Duration
}

type recordedTokens struct {
	model, operation   string
	prompt, completion int
}

type recordingMetrics struct {
	requests []recordedRequest
	tokens   []recordedTokens
}

func (r *recordingMetrics) RecordGenAIRequest(model, operation, status string, duration time.Duration) {
	r.requests = append(r.requests, recordedRequest{model, operation, status, duration})
}

func (r *recordingMetrics) RecordGenAITokens(model, operation string, prompt, completion int) {
	r.tokens = append(r.tokens, recordedTokens{model, operation, prompt, completion})
}
