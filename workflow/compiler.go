package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/genai"
	"github.com/BaSui01/imageflow/types"
)

// defineTemplate is the system instruction sent on every define call. The
// current workflow's canonical JSON form is substituted at the end so the
// model treats the request as an edit of the existing pipeline rather than
// a definition from scratch.
const defineTemplate = `
Generate a structured multi-step JSON workflow for an image designer from a user request.

The JSON object must contain:
- "name": A string for the workflow's title.
- "steps": A list of objects, where each object has:
  - "title": A brief, descriptive string for the step's title.
  - "prompt": A detailed string for the step's instruction.

Example User Request:
"Upscale the image, then add pop-art style, then add a designer signature"

Example JSON Output:
{
    "name": "Creative Portrait",
    "steps": [
        {
            "title": "Upscale Image",
            "prompt": "Increase the image resolution and clarity for printing."
        },
        {
            "title": "Add Pop-Art Style",
            "prompt": "Apply a vibrant pop-art filter with bold colors and sharp lines."
        },
        {
            "title": "Add Designer Signature",
            "prompt": "Overlay a designer signature in the bottom-right corner."
        }
    ]
}

The steps should be concise and accurately capture all details from the user's request.

User workflow:
%s
`

// CompilerConfig bounds the compile call. Zero values fall back to the
// defaults below; a zero MaxSteps disables the ceiling.
type CompilerConfig struct {
	Model           string
	MaxOutputTokens int
	MaxSteps        int
}

const defaultCompileTokens = 2000

// Compiler turns natural-language requests into validated workflows through
// one structured-output call to the language model.
type Compiler struct {
	generator genai.TextGenerator
	cfg       CompilerConfig
	logger    *zap.Logger
}

// NewCompiler creates a compiler backed by the given text generator.
func NewCompiler(generator genai.TextGenerator, cfg CompilerConfig, logger *zap.Logger) *Compiler {
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = defaultCompileTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{generator: generator, cfg: cfg, logger: logger}
}

// Define compiles a natural-language request into a new workflow, using the
// current workflow as conversational context. The model samples at
// temperature zero with the workflow schema constraining its output.
//
// The first return value is always the empty string, letting callers clear
// their input field; the second is the canonical serialized form of the new
// workflow; the third is the workflow itself. Any collaborator failure or
// schema-invalid response surfaces as a definition error with no partial
// result.
func (c *Compiler) Define(ctx context.Context, input string, current Workflow) (string, string, Workflow, error) {
	raw, err := c.generator.GenerateStructured(ctx, &genai.StructuredRequest{
		Model:             c.cfg.Model,
		SystemInstruction: fmt.Sprintf(defineTemplate, current.MarshalIndent()),
		Input:             input,
		Temperature:       0,
		MaxOutputTokens:   c.cfg.MaxOutputTokens,
		ResponseSchema:    Schema(),
	})
	if err != nil {
		return "", "", Workflow{}, types.NewDefinitionError(err)
	}

	next, err := Parse(raw)
	if err != nil {
		return "", "", Workflow{}, types.NewDefinitionError(err)
	}
	if c.cfg.MaxSteps > 0 && len(next.Steps) > c.cfg.MaxSteps {
		return "", "", Workflow{}, types.NewDefinitionError(
			fmt.Errorf("workflow has %d steps, the limit is %d", len(next.Steps), c.cfg.MaxSteps))
	}

	c.logger.Info("workflow defined",
		zap.String("name", next.Name),
		zap.Int("steps", len(next.Steps)))
	return "", next.MarshalIndent(), next, nil
}
