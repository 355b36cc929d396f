// Package genai defines the narrow model-facing interfaces the workflow
// engine depends on (TextGenerator, ImageEditor) and ships a Gemini REST
// client implementing both.
//
// The interfaces are deliberately small so callers can be tested against
// scripted fakes; see testutil/mocks for the canned implementations.
package genai
