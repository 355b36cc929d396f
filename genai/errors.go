package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/BaSui01/imageflow/types"
)

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// readErrorMessage extracts the upstream error message from an error body,
// falling back to a generic message when the body is not the documented shape.
func readErrorMessage(body []byte, statusCode int) string {
	var errResp geminiErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		if errResp.Error.Status != "" {
			return fmt.Sprintf("%s (status: %s)", errResp.Error.Message, errResp.Error.Status)
		}
		return errResp.Error.Message
	}
	return fmt.Sprintf("request failed with status %d", statusCode)
}

// wrapTransportError classifies a failure that happened before any HTTP
// status arrived: cancellation, deadline, or a network-level error.
func wrapTransportError(ctx context.Context, err error) *types.Error {
	switch {
	case errors.Is(err, context.Canceled):
		return types.NewError(types.ErrTimeout, "request canceled").WithCause(err).WithProvider(ProviderName)
	case errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		return types.NewError(types.ErrTimeout, "request timed out").
			WithCause(err).
			WithProvider(ProviderName).
			WithRetryable(true)
	default:
		return types.NewError(types.ErrUpstreamError, "request failed").
			WithCause(err).
			WithHTTPStatus(http.StatusBadGateway).
			WithProvider(ProviderName).
			WithRetryable(true)
	}
}

// mapHTTPError converts a non-200 response into a structured error.
func mapHTTPError(statusCode int, body []byte) *types.Error {
	msg := readErrorMessage(body, statusCode)
	e := types.NewError(codeForStatus(statusCode), msg).
		WithHTTPStatus(statusCode).
		WithProvider(ProviderName)
	if statusCode == http.StatusTooManyRequests || statusCode >= 500 {
		e = e.WithRetryable(true)
	}
	return e
}

func codeForStatus(statusCode int) types.ErrorCode {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return types.ErrAuthentication
	case http.StatusNotFound:
		return types.ErrModelNotFound
	case http.StatusTooManyRequests:
		return types.ErrRateLimited
	case http.StatusBadRequest:
		return types.ErrInvalidRequest
	default:
		return types.ErrUpstreamError
	}
}
