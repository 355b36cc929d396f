// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package workflow implements the image-editing pipeline engine: compiling
natural language into a validated workflow and executing that workflow
against an image, one model call per step, with live progress streaming.

# Overview

A Workflow is a named ordered list of Steps, each pairing a short title
with a natural-language instruction. Workflows come from two paths: the
Compiler turns a free-text request into a new Workflow through one
structured-output call to the language model, and Update parses a
user-edited serialized form. Both paths validate against the same JSON
Schema and collect every violation in one pass.

The Executor walks a Workflow's steps in order against an input image.
Each step sends the current image plus the step prompt to the image model;
text fragments in the response become transcript lines and image fragments
replace the current image and join the gallery. Progress is delivered as a
pull-driven stream of Snapshots over an unbuffered channel: the run
suspends after every emission until the consumer receives it.

# Core types

  - Step / Workflow   — the validated pipeline model, Parse/MarshalIndent round trip
  - Compiler          — Define(ctx, input, current) through genai.TextGenerator
  - Update            — the manual edit path, collect-all validation
  - Executor / Run    — step-by-step execution, Snapshot stream, Err after close
  - Examples          — ready-made natural-language requests

# Errors

Failures surface under fixed titles: "Workflow Definition Error" from
Define, "Workflow Update Error" from Update, and "Workflow Execution
Error" from a Run. Snapshots delivered before a failure remain valid;
nothing is rolled back.
*/
package workflow
