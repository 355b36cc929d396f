// Package imageflow provides a top-level convenience entry point for
// compiling and executing image-editing workflows with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/imageflow"
//
//	client, err := imageflow.New() // API key from GEMINI_API_KEY env
//	wf, err := client.Define(ctx, "Upscale the image, then add a pop-art style", imageflow.EmptyWorkflow())
//	run := client.Execute(ctx, img, wf)
//
// The HTTP service under cmd/imageflow wires the same components behind a
// REST and streaming API; this package is for embedding the pipeline
// directly in Go programs.
package imageflow

import (
	"context"
	"fmt"
	"os"

	"github.com/BaSui01/imageflow/genai"
	"github.com/BaSui01/imageflow/types"
	"github.com/BaSui01/imageflow/workflow"

	"go.uber.org/zap"
)

// Re-exported domain types so callers never need to import subpackages.

// Workflow is a named, ordered list of editing steps.
type Workflow = workflow.Workflow

// Step is a single editing instruction within a workflow.
type Step = workflow.Step

// Snapshot is one frame of an execution stream.
type Snapshot = workflow.Snapshot

// Run is a handle on an in-flight execution.
type Run = workflow.Run

// Image is an in-memory image with its MIME type.
type Image = types.Image

// EmptyWorkflow returns the zero-step seed workflow.
func EmptyWorkflow() Workflow {
	return workflow.Empty()
}

// ParseWorkflow validates and deserializes a workflow document.
func ParseWorkflow(serialized string) (Workflow, error) {
	return workflow.Parse(serialized)
}

// Option configures the client created by [New].
type Option func(*options)

type options struct {
	apiKey        string
	baseURL       string
	project       string
	location      string
	useVertex     bool
	languageModel string
	imageModel    string
	maxSteps      int
	logger        *zap.Logger

	// Collaborator overrides — used instead of the Gemini client when set.
	generator genai.TextGenerator
	editor    genai.ImageEditor
}

// WithAPIKey overrides the API key read from GEMINI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL points the client at an alternate Gemini-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithVertex routes requests through Vertex AI for the given project and
// location instead of the public Gemini API.
func WithVertex(project, location string) Option {
	return func(o *options) {
		o.useVertex = true
		o.project = project
		o.location = location
	}
}

// WithLanguageModel overrides the model used to compile workflows.
func WithLanguageModel(model string) Option {
	return func(o *options) { o.languageModel = model }
}

// WithImageModel overrides the model used to edit images.
func WithImageModel(model string) Option {
	return func(o *options) { o.imageModel = model }
}

// WithMaxSteps caps the number of steps a compiled workflow may have.
// Zero means no cap.
func WithMaxSteps(n int) Option {
	return func(o *options) { o.maxSteps = n }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithGenerator substitutes the structured-output collaborator. Intended
// for tests and custom backends.
func WithGenerator(g genai.TextGenerator) Option {
	return func(o *options) { o.generator = g }
}

// WithEditor substitutes the image-editing collaborator. Intended for
// tests and custom backends.
func WithEditor(e genai.ImageEditor) Option {
	return func(o *options) { o.editor = e }
}

// Client compiles natural-language instructions into workflows and
// executes them against images.
type Client struct {
	compiler *workflow.Compiler
	executor *workflow.Executor
}

// New creates a Client with minimal configuration. Without options the
// API key comes from GEMINI_API_KEY and the default Gemini models are
// used.
func New(opts ...Option) (*Client, error) {
	o := &options{
		languageModel: "gemini-2.5-flash",
		imageModel:    "gemini-2.5-flash-image-preview",
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	generator := o.generator
	editor := o.editor
	if generator == nil || editor == nil {
		if o.apiKey == "" {
			o.apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if o.useVertex && o.project == "" {
			return nil, fmt.Errorf("project is required for Vertex AI: use WithVertex")
		}
		if !o.useVertex && o.apiKey == "" {
			return nil, fmt.Errorf("API key is required: set GEMINI_API_KEY or use WithAPIKey")
		}

		client := genai.NewClient(genai.Config{
			APIKey:        o.apiKey,
			BaseURL:       o.baseURL,
			Project:       o.project,
			Location:      o.location,
			UseVertex:     o.useVertex,
			LanguageModel: o.languageModel,
			ImageModel:    o.imageModel,
		}, o.logger)
		if generator == nil {
			generator = client
		}
		if editor == nil {
			editor = client
		}
	}

	return &Client{
		compiler: workflow.NewCompiler(generator, workflow.CompilerConfig{
			Model:    o.languageModel,
			MaxSteps: o.maxSteps,
		}, o.logger),
		executor: workflow.NewExecutor(editor, workflow.ExecutorConfig{
			Model: o.imageModel,
		}, o.logger),
	}, nil
}

// Define compiles an instruction into the next revision of current.
func (c *Client) Define(ctx context.Context, instruction string, current Workflow) (Workflow, error) {
	_, _, next, err := c.compiler.Define(ctx, instruction, current)
	return next, err
}

// Execute runs wf against img. The returned Run streams transcript and
// gallery snapshots as the execution advances; consume Snapshots() until
// it closes, then check Err().
func (c *Client) Execute(ctx context.Context, img Image, wf Workflow) *Run {
	return c.executor.Execute(ctx, img, wf)
}
