package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/imageflow/genai"
	"github.com/BaSui01/imageflow/types"
)

// Snapshot is one observed execution state: the full transcript so far and
// the full gallery so far. Snapshots are complete values, not deltas, so a
// consumer may hold any of them after the run has moved on.
type Snapshot struct {
	Transcript string
	Gallery    []types.Image
}

// Run is a handle on one execution. Snapshots arrive on an unbuffered
// channel: the producer suspends after each emission and resumes only when
// the consumer receives, so execution never outpaces its observer. Once the
// channel closes, Err reports how the run ended.
type Run struct {
	snapshots chan Snapshot
	err       error
}

// Snapshots returns the stream of execution states. The channel closes when
// the run finishes, fails, or its context is canceled.
func (r *Run) Snapshots() <-chan Snapshot {
	return r.snapshots
}

// Err returns the failure that ended the run, or nil. Only valid after the
// snapshot channel has closed.
func (r *Run) Err() error {
	return r.err
}

// ExecutorConfig bounds each image-model call. A zero MaxOutputTokens falls
// back to the default below.
type ExecutorConfig struct {
	Model           string
	MaxOutputTokens int
}

const defaultExecuteTokens = 5000

// Executor applies a workflow to an image step by step, invoking the image
// model once per step and streaming progress snapshots as they happen.
type Executor struct {
	editor genai.ImageEditor
	cfg    ExecutorConfig
	logger *zap.Logger
}

// NewExecutor creates an executor backed by the given image editor.
func NewExecutor(editor genai.ImageEditor, cfg ExecutorConfig, logger *zap.Logger) *Executor {
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = defaultExecuteTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{editor: editor, cfg: cfg, logger: logger}
}

// Execute starts the workflow against the input image and returns a handle
// on the running execution. Steps run strictly in order, one model call per
// step at temperature zero. Each step receives the most recently produced
// image, or the original input while no step has produced one. Any failure
// aborts the run with an execution error; snapshots already delivered stay
// valid.
func (e *Executor) Execute(ctx context.Context, image types.Image, wf Workflow) *Run {
	run := &Run{snapshots: make(chan Snapshot)}
	go e.run(ctx, image, wf, run)
	return run
}

func (e *Executor) run(ctx context.Context, image types.Image, wf Workflow, run *Run) {
	defer close(run.snapshots)

	var transcript strings.Builder
	var gallery []types.Image

	// emit blocks until the consumer takes the snapshot. The gallery is
	// copied per snapshot so later appends cannot reach into one already
	// handed out.
	emit := func() bool {
		snapshot := Snapshot{
			Transcript: transcript.String(),
			Gallery:    append([]types.Image(nil), gallery...),
		}
		select {
		case run.snapshots <- snapshot:
			return true
		case <-ctx.Done():
			run.err = types.NewExecutionError(ctx.Err())
			return false
		}
	}

	fmt.Fprintf(&transcript, "# Executing Workflow: %s\n", wf.Name)
	if !emit() {
		return
	}

	for _, step := range wf.Steps {
		fmt.Fprintf(&transcript, "- Step: %s ...\n", step.Title)
		if !emit() {
			return
		}

		fragments, err := e.editor.EditImage(ctx, &genai.EditRequest{
			Model:           e.cfg.Model,
			Image:           image,
			Prompt:          step.Prompt,
			Temperature:     0,
			MaxOutputTokens: e.cfg.MaxOutputTokens,
		})
		if err != nil {
			e.logger.Warn("workflow step failed",
				zap.String("workflow", wf.Name),
				zap.String("step", step.Title),
				zap.Error(err))
			run.err = types.NewExecutionError(err)
			return
		}

		for _, fragment := range fragments {
			if fragment.IsImage() {
				// The produced image becomes the input of every
				// subsequent step.
				image = *fragment.Image
				gallery = append(gallery, image)
				if !emit() {
					return
				}
				continue
			}
			fmt.Fprintf(&transcript, "> Model: %s\n", fragment.Text)
			if !emit() {
				return
			}
		}
	}

	transcript.WriteString("DONE.")
	emit()

	e.logger.Info("workflow executed",
		zap.String("workflow", wf.Name),
		zap.Int("steps", len(wf.Steps)),
		zap.Int("images", len(gallery)))
}
