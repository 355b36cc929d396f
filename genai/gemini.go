package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/schema"
	"github.com/BaSui01/imageflow/types"
)

const (
	// ProviderName identifies the upstream in errors and metrics.
	ProviderName = "gemini"

	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout = 120 * time.Second

	opStructured = "generate_structured"
	opEditImage  = "edit_image"
)

// Config carries the connection settings for the Gemini generateContent API.
// Leave BaseURL empty to target the public endpoint; set UseVertex together
// with Project and Location to route through Vertex AI instead.
type Config struct {
	APIKey        string
	BaseURL       string
	Project       string
	Location      string
	UseVertex     bool
	LanguageModel string
	ImageModel    string
	Timeout       time.Duration
}

// Client is a REST client for the Gemini generateContent API. It implements
// both TextGenerator and ImageEditor and is safe for concurrent use.
type Client struct {
	cfg     Config
	client  *http.Client
	logger  *zap.Logger
	metrics MetricsRecorder
}

// NewClient creates a Gemini client from the given configuration.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" && !cfg.UseVertex {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// SetMetricsRecorder attaches a recorder for request and token accounting.
func (c *Client) SetMetricsRecorder(m MetricsRecorder) {
	c.metrics = m
}

// Gemini wire format.

type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// geminiGenConfig mirrors generationConfig. Temperature is a pointer so an
// explicit zero survives serialization.
type geminiGenConfig struct {
	Temperature        *float32           `json:"temperature,omitempty"`
	MaxOutputTokens    int                `json:"maxOutputTokens,omitempty"`
	ResponseMimeType   string             `json:"responseMimeType,omitempty"`
	ResponseSchema     *schema.JSONSchema `json:"responseSchema,omitempty"`
	ResponseModalities []string           `json:"responseModalities,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *geminiUsageMetadata  `json:"usageMetadata,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// GenerateStructured sends one schema-constrained generation request and
// returns the raw JSON text the model produced.
func (c *Client) GenerateStructured(ctx context.Context, req *StructuredRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.LanguageModel
	}

	temperature := req.Temperature
	body := &geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Input}},
		}},
		GenerationConfig: &geminiGenConfig{
			Temperature:      &temperature,
			MaxOutputTokens:  req.MaxOutputTokens,
			ResponseMimeType: "application/json",
			ResponseSchema:   req.ResponseSchema,
		},
	}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.SystemInstruction}},
		}
	}

	resp, err := c.generateContent(ctx, model, opStructured, body)
	if err != nil {
		return "", err
	}

	text := candidateText(resp)
	if text == "" {
		return "", types.NewError(types.ErrUpstreamError, "model returned no text content").
			WithHTTPStatus(http.StatusBadGateway).
			WithProvider(ProviderName)
	}
	return text, nil
}

// EditImage sends the image and the edit instruction in a single turn and
// returns the response fragments in model order.
func (c *Client) EditImage(ctx context.Context, req *EditRequest) ([]Fragment, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.ImageModel
	}
	if req.Image.IsZero() {
		return nil, types.NewError(types.ErrInvalidRequest, "edit request carries no image data").
			WithHTTPStatus(http.StatusBadRequest)
	}

	temperature := req.Temperature
	body := &geminiRequest{
		Contents: []geminiContent{{
			Role: "user",
			// Image part first, edit instruction second.
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{
					MimeType: req.Image.MIMEType,
					Data:     req.Image.Base64(),
				}},
				{Text: req.Prompt},
			},
		}},
		GenerationConfig: &geminiGenConfig{
			Temperature:        &temperature,
			MaxOutputTokens:    req.MaxOutputTokens,
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	resp, err := c.generateContent(ctx, model, opEditImage, body)
	if err != nil {
		return nil, err
	}

	fragments, err := decodeFragments(resp)
	if err != nil {
		return nil, err
	}
	if len(fragments) == 0 {
		return nil, types.NewError(types.ErrUpstreamError, "model returned no content parts").
			WithHTTPStatus(http.StatusBadGateway).
			WithProvider(ProviderName)
	}
	return fragments, nil
}

// generateContent posts one request and decodes the response envelope,
// recording duration and token usage on the way out.
func (c *Client) generateContent(ctx context.Context, model, operation string, body *geminiRequest) (*geminiResponse, error) {
	start := time.Now()
	resp, err := c.doRequest(ctx, model, body)
	status := "success"
	if err != nil {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.RecordGenAIRequest(model, operation, status, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, types.NewError(types.ErrContentFiltered,
			fmt.Sprintf("prompt blocked: %s", resp.PromptFeedback.BlockReason)).
			WithHTTPStatus(http.StatusBadRequest).
			WithProvider(ProviderName)
	}
	if len(resp.Candidates) == 0 {
		return nil, types.NewError(types.ErrUpstreamError, "no candidates in response").
			WithHTTPStatus(http.StatusBadGateway).
			WithProvider(ProviderName)
	}

	if c.metrics != nil && resp.UsageMetadata != nil {
		c.metrics.RecordGenAITokens(model, operation,
			resp.UsageMetadata.PromptTokenCount,
			resp.UsageMetadata.CandidatesTokenCount)
	}
	c.logger.Debug("gemini request complete",
		zap.String("model", model),
		zap.String("operation", operation),
		zap.Duration("duration", time.Since(start)))
	return resp, nil
}

func (c *Client) doRequest(ctx context.Context, model string, body *geminiRequest) (*geminiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "marshal request").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(model), bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "create request").WithCause(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, wrapTransportError(ctx, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "read response body").
			WithCause(err).
			WithHTTPStatus(http.StatusBadGateway).
			WithProvider(ProviderName).
			WithRetryable(true)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, mapHTTPError(httpResp.StatusCode, respBody)
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "decode response").
			WithCause(err).
			WithHTTPStatus(http.StatusBadGateway).
			WithProvider(ProviderName)
	}
	return &resp, nil
}

// endpoint resolves the generateContent URL for a model. An explicit BaseURL
// always wins, which is also what the tests point at.
func (c *Client) endpoint(model string) string {
	if c.cfg.BaseURL != "" {
		return fmt.Sprintf("%s/v1beta/models/%s:generateContent",
			strings.TrimRight(c.cfg.BaseURL, "/"), model)
	}
	location := c.cfg.Location
	if location == "" {
		location = "global"
	}
	host := "aiplatform.googleapis.com"
	if location != "global" {
		host = location + "-aiplatform.googleapis.com"
	}
	return fmt.Sprintf("https://%s/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		host, c.cfg.Project, location, model)
}

// candidateText concatenates the text parts of the first candidate.
func candidateText(resp *geminiResponse) string {
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// decodeFragments converts the first candidate's parts into Fragments,
// preserving the order the model produced them in.
func decodeFragments(resp *geminiResponse) ([]Fragment, error) {
	parts := resp.Candidates[0].Content.Parts
	fragments := make([]Fragment, 0, len(parts))
	for _, part := range parts {
		switch {
		case part.InlineData != nil:
			img, err := types.ImageFromBase64(part.InlineData.MimeType, part.InlineData.Data)
			if err != nil {
				return nil, types.NewError(types.ErrUpstreamError, "decode inline image").
					WithCause(err).
					WithHTTPStatus(http.StatusBadGateway).
					WithProvider(ProviderName)
			}
			fragments = append(fragments, Fragment{Image: &img})
		case part.Text != "":
			fragments = append(fragments, Fragment{Text: part.Text})
		}
	}
	return fragments, nil
}
