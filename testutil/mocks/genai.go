// Scripted doubles for the genai collaborator interfaces.
//
// Supports canned responses, per-call scripts, and error injection.
package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/BaSui01/imageflow/genai"
	"github.com/BaSui01/imageflow/types"
)

// --- MockTextGenerator ---

// MockTextGenerator implements genai.TextGenerator with scripted responses.
type MockTextGenerator struct {
	mu sync.RWMutex

	responses []string
	err       error
	failAfter int

	calls     []TextGeneratorCall
	callCount int
}

// TextGeneratorCall records a single GenerateStructured invocation.
type TextGeneratorCall struct {
	Request  *genai.StructuredRequest
	Response string
	Error    error
}

// NewMockTextGenerator creates an unscripted generator; calling it without
// a scripted response is an error.
func NewMockTextGenerator() *MockTextGenerator {
	return &MockTextGenerator{}
}

// WithResponse appends a scripted response. Calls consume responses in
// order; the last one repeats once the script runs out.
func (m *MockTextGenerator) WithResponse(raw string) *MockTextGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, raw)
	return m
}

// WithError makes every call fail with err.
func (m *MockTextGenerator) WithError(err error) *MockTextGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFailAfter makes calls fail after the first n succeeded.
func (m *MockTextGenerator) WithFailAfter(n int) *MockTextGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// GenerateStructured implements genai.TextGenerator.
func (m *MockTextGenerator) GenerateStructured(_ context.Context, req *genai.StructuredRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++

	if m.failAfter > 0 && m.callCount > m.failAfter {
		err := errors.New("mock text generator: configured to fail after N calls")
		m.calls = append(m.calls, TextGeneratorCall{Request: req, Error: err})
		return "", err
	}
	if m.err != nil {
		m.calls = append(m.calls, TextGeneratorCall{Request: req, Error: m.err})
		return "", m.err
	}
	if len(m.responses) == 0 {
		err := errors.New("mock text generator: no scripted response")
		m.calls = append(m.calls, TextGeneratorCall{Request: req, Error: err})
		return "", err
	}

	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	m.calls = append(m.calls, TextGeneratorCall{Request: req, Response: resp})
	return resp, nil
}

// GetCalls returns every recorded invocation.
func (m *MockTextGenerator) GetCalls() []TextGeneratorCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]TextGeneratorCall{}, m.calls...)
}

// GetCallCount returns the number of invocations.
func (m *MockTextGenerator) GetCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount
}

// GetLastCall returns the most recent invocation, or nil.
func (m *MockTextGenerator) GetLastCall() *TextGeneratorCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears recorded calls and the error state.
func (m *MockTextGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.callCount = 0
	m.err = nil
}

// --- MockImageEditor ---

type editResult struct {
	fragments []genai.Fragment
	err       error
}

// MockImageEditor implements genai.ImageEditor with a per-call script.
type MockImageEditor struct {
	mu sync.RWMutex

	script    []editResult
	err       error
	failAfter int

	calls     []ImageEditorCall
	callCount int
}

// ImageEditorCall records a single EditImage invocation.
type ImageEditorCall struct {
	Request   *genai.EditRequest
	Fragments []genai.Fragment
	Error     error
}

// NewMockImageEditor creates an unscripted editor; calling it without a
// scripted result is an error.
func NewMockImageEditor() *MockImageEditor {
	return &MockImageEditor{}
}

// WithFragments appends one scripted call returning the given fragments in
// order. Calls consume script entries in order; the last entry repeats once
// the script runs out.
func (m *MockImageEditor) WithFragments(fragments ...genai.Fragment) *MockImageEditor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, editResult{fragments: fragments})
	return m
}

// WithStepError appends one scripted call failing with err, so failures can
// be placed at an exact position in the script.
func (m *MockImageEditor) WithStepError(err error) *MockImageEditor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, editResult{err: err})
	return m
}

// WithError makes every call fail with err, ignoring the script.
func (m *MockImageEditor) WithError(err error) *MockImageEditor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFailAfter makes calls fail after the first n succeeded.
func (m *MockImageEditor) WithFailAfter(n int) *MockImageEditor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// EditImage implements genai.ImageEditor.
func (m *MockImageEditor) EditImage(_ context.Context, req *genai.EditRequest) ([]genai.Fragment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++

	if m.failAfter > 0 && m.callCount > m.failAfter {
		err := errors.New("mock image editor: configured to fail after N calls")
		m.calls = append(m.calls, ImageEditorCall{Request: req, Error: err})
		return nil, err
	}
	if m.err != nil {
		m.calls = append(m.calls, ImageEditorCall{Request: req, Error: m.err})
		return nil, m.err
	}
	if len(m.script) == 0 {
		err := errors.New("mock image editor: no scripted result")
		m.calls = append(m.calls, ImageEditorCall{Request: req, Error: err})
		return nil, err
	}

	result := m.script[0]
	if len(m.script) > 1 {
		m.script = m.script[1:]
	}
	if result.err != nil {
		m.calls = append(m.calls, ImageEditorCall{Request: req, Error: result.err})
		return nil, result.err
	}
	m.calls = append(m.calls, ImageEditorCall{Request: req, Fragments: result.fragments})
	return result.fragments, nil
}

// GetCalls returns every recorded invocation.
func (m *MockImageEditor) GetCalls() []ImageEditorCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ImageEditorCall{}, m.calls...)
}

// GetCallCount returns the number of invocations.
func (m *MockImageEditor) GetCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount
}

// GetLastCall returns the most recent invocation, or nil.
func (m *MockImageEditor) GetLastCall() *ImageEditorCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset clears the script, recorded calls, and the error state.
func (m *MockImageEditor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = nil
	m.calls = nil
	m.callCount = 0
	m.err = nil
}

// --- Fragment helpers ---

// TextFragment builds a text response fragment.
func TextFragment(text string) genai.Fragment {
	return genai.Fragment{Text: text}
}

// ImageFragment builds an image response fragment.
func ImageFragment(img types.Image) genai.Fragment {
	return genai.Fragment{Image: &img}
}

// PNG builds a PNG image from raw bytes, for use with ImageFragment.
func PNG(data []byte) types.Image {
	return types.NewImage(types.MIMETypePNG, data)
}

// --- Preset factories ---

// NewSuccessTextGenerator always returns raw.
func NewSuccessTextGenerator(raw string) *MockTextGenerator {
	return NewMockTextGenerator().WithResponse(raw)
}

// NewErrorTextGenerator always fails with err.
func NewErrorTextGenerator(err error) *MockTextGenerator {
	return NewMockTextGenerator().WithError(err)
}

// NewSuccessImageEditor returns the given fragments on every call.
func NewSuccessImageEditor(fragments ...genai.Fragment) *MockImageEditor {
	return NewMockImageEditor().WithFragments(fragments...)
}

// NewErrorImageEditor always fails with err.
func NewErrorImageEditor(err error) *MockImageEditor {
	return NewMockImageEditor().WithError(err)
}
