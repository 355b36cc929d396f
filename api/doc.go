// Package api defines the wire types of the ImageFlow HTTP API.
//
// # API Overview
//
// ImageFlow provides a RESTful API for:
//   - Creating image-editing sessions
//   - Compiling natural language requests into workflows
//   - Hand-editing workflow JSON with full validation
//   - Executing workflows step by step with streamed snapshots (SSE and
//     WebSocket)
//   - Health monitoring and metrics
//
// # Authentication
//
// When the server is configured with an API key, /v1 endpoints require the
// X-API-Key header:
//
//	X-API-Key: your-api-key
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
//
// Streaming endpoints speak Server-Sent Events: one data frame per
// execution snapshot, an error event on failure, and a terminal
// "data: [DONE]" frame.
package api
