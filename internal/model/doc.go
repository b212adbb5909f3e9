// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model holds the in-memory representation of everything the bundler
// moves between stages: resources read from the source tree, the dependency
// references extracted from them, the per-artifact resolution result, the
// assembled bundle and the outcome each task reports back.
//
// # Core Concepts
//
//   - SourceResource: one parsed file from the source tree. Immutable once the
//     index has read it; stages that need to change a resource work on a copy of
//     its Document.
//
//   - DependencyReference: a typed pointer from one resource to another
//     (library, value set or code system), with an optional version.
//
//   - ResolutionResult: the closure of one artifact. Built fresh by every task
//     and never shared.
//
//   - Bundle: the packaged transaction produced from a ResolutionResult.
//
//   - Outcome: the message a task sends back to the orchestrator. It is the only
//     thing that survives a task.
package model
