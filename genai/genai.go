package genai

import (
	"context"
	"time"

	"github.com/BaSui01/imageflow/schema"
	"github.com/BaSui01/imageflow/types"
)

// StructuredRequest describes one schema-constrained text generation call.
type StructuredRequest struct {
	Model             string
	SystemInstruction string
	Input             string
	Temperature       float32
	MaxOutputTokens   int
	ResponseSchema    *schema.JSONSchema
}

// EditRequest describes one image-editing call. The image travels inline with
// the prompt; the model may answer with any mix of text and image fragments.
type EditRequest struct {
	Model           string
	Image           types.Image
	Prompt          string
	Temperature     float32
	MaxOutputTokens int
}

// Fragment is one ordered piece of an image-model response: either a text
// commentary or an inline image, never both.
type Fragment struct {
	Text  string
	Image *types.Image
}

// IsImage reports whether the fragment carries an image payload.
func (f Fragment) IsImage() bool {
	return f.Image != nil
}

// TextGenerator produces schema-constrained JSON from a natural-language
// instruction. Implementations are stateless, safe for concurrent use.
type TextGenerator interface {
	GenerateStructured(ctx context.Context, req *StructuredRequest) (string, error)
}

// ImageEditor applies a natural-language edit to an image and returns the
// response fragments in the order the model produced them. Implementations
// are stateless, safe for concurrent use.
type ImageEditor interface {
	EditImage(ctx context.Context, req *EditRequest) ([]Fragment, error)
}

// MetricsRecorder receives per-call accounting from a client. A nil recorder
// disables recording.
type MetricsRecorder interface {
	RecordGenAIRequest(model, operation, status string, duration time.Duration)
	RecordGenAITokens(model, operation string, promptTokens, completionTokens int)
}
