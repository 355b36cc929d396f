package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/BaSui01/imageflow/schema"
	"github.com/BaSui01/imageflow/types"
)

// Step is one unit of work in a workflow: a short title and the
// natural-language instruction applied to the image. Steps carry no identity
// beyond their position in the workflow.
type Step struct {
	Title  string `json:"title" jsonschema:"required,minLength=1,description=The concise title of the step, e.g. 'Remove Background'."`
	Prompt string `json:"prompt" jsonschema:"required,minLength=1,description=A clear, concise prompt describing the action to perform on the image."`
}

// Workflow is a named ordered sequence of steps describing an image-editing
// pipeline. A Workflow in memory is always fully valid: Parse rejects any
// serialized form that violates the schema, so no partially-valid value
// escapes the package.
type Workflow struct {
	Name  string `json:"name" jsonschema:"required,description=The name of the workflow"`
	Steps []Step `json:"steps" jsonschema:"required,description=A list of steps in the image processing pipeline."`
}

// Empty returns the seed workflow a fresh session starts from.
func Empty() Workflow {
	return Workflow{Name: "Empty Workflow", Steps: []Step{}}
}

var (
	workflowSchema = func() *schema.JSONSchema {
		s, err := schema.NewGenerator().GenerateFor(Workflow{})
		if err != nil {
			panic(fmt.Sprintf("workflow: generate schema: %v", err))
		}
		return s
	}()
	workflowValidator = schema.NewValidator()
)

// Schema returns the JSON Schema every serialized workflow must satisfy.
// The same schema constrains the language model's structured output.
func Schema() *schema.JSONSchema {
	return workflowSchema
}

// Parse validates and decodes a serialized workflow. Validation collects
// every violation found, not just the first; on failure the returned error
// is a *schema.ValidationErrors enumerating all of them.
func Parse(serialized string) (Workflow, error) {
	raw := []byte(serialized)
	if err := workflowValidator.Validate(raw, workflowSchema); err != nil {
		return Workflow{}, err
	}
	var w Workflow
	if err := json.Unmarshal(raw, &w); err != nil {
		return Workflow{}, err
	}
	return w, nil
}

// Update parses a user-edited serialized workflow. This is the manual edit
// path: failures surface under the fixed update error title with every
// violation enumerated in the message.
func Update(serialized string) (Workflow, error) {
	w, err := Parse(serialized)
	if err != nil {
		return Workflow{}, types.NewUpdateError(err)
	}
	return w, nil
}

// Validate checks the in-memory value against the workflow schema,
// collecting every violation. A nil step slice counts as empty.
func (w Workflow) Validate() error {
	if w.Steps == nil {
		w.Steps = []Step{}
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return workflowValidator.Validate(raw, workflowSchema)
}

// MarshalIndent renders the canonical display form: name before steps,
// 4-space indentation, a nil step slice rendered as []. Parse accepts any
// field order and indentation; only this producing side is pinned down.
func (w Workflow) MarshalIndent() string {
	if w.Steps == nil {
		w.Steps = []Step{}
	}
	out, _ := json.MarshalIndent(w, "", "    ")
	return string(out)
}

// Clone returns a deep copy whose steps may be mutated freely.
func (w Workflow) Clone() Workflow {
	steps := make([]Step, len(w.Steps))
	copy(steps, w.Steps)
	return Workflow{Name: w.Name, Steps: steps}
}

// StepCount returns the number of steps.
func (w Workflow) StepCount() int {
	return len(w.Steps)
}
