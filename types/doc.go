// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package types provides the shared type definitions for the imageflow service.

# Overview

types is the lowest-level common package. It depends on no other imageflow
package and supplies the type contracts shared by workflow, genai, session,
api and the operational shell, so that no import cycles form above it.

# Core types

  - Error / ErrorCode: structured error model with HTTP status, retryable and
    provider markers, plus the fixed user-facing titles for workflow
    definition, update and execution failures
  - Image: immutable image payload (MIME type + bytes) with base64 codecs

# Error tooling

  - NewDefinitionError / NewUpdateError / NewExecutionError: operation
    boundary constructors that preserve the root cause
  - AsError / GetErrorCode / IsRetryable: chain inspection helpers
*/
package types
