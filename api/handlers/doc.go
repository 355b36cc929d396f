// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package handlers implements the request handlers of the ImageFlow HTTP API.

# Overview

The handlers package carries the request handling logic for every ImageFlow
HTTP endpoint: session lifecycle, workflow definition and update, streamed
workflow execution, the example library, health checks, and the shared
response and error plumbing. Every handler follows the standard net/http
interface; Swagger annotations document the API surface.

# Core types

  - SessionHandler   — session creation and workflow retrieval
  - WorkflowHandler  — natural language definition and hand-edited updates
  - ExecuteHandler   — step-by-step execution streamed over SSE
  - WSExecuteHandler — the same execution stream over a WebSocket
  - ExamplesHandler  — the stock example request library
  - HealthHandler    — liveness and readiness (/health, /ready)
  - Response         — uniform JSON envelope (success + data + error + timestamp)
  - ErrorInfo        — structured error with code, title, and retryable flag
  - ResponseWriter   — http.ResponseWriter wrapper capturing the status code

# Capabilities

  - Uniform responses: WriteSuccess / WriteError / WriteJSON helpers
  - Request validation: DecodeJSONBody (32 MB cap + strict mode),
    ValidateContentType
  - ErrorCode to HTTP status mapping (4xx/5xx)
  - SSE streaming: ExecuteHandler.HandleExecute emits one data frame per
    snapshot, an error event on failure, and a terminal [DONE] frame
  - WebSocket streaming: one JSON text frame per snapshot, mutex-guarded
    writes, close status carrying the error title on failure
  - Pluggable readiness checks: RegisterCheck with any HealthCheck
*/
package handlers
