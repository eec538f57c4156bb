// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework of the buildpatch binary: a
// tree of [Command] values dispatched by name, with flags bound from
// tagged parameter structs ([FlagsFromParams]), structured output
// ([StructuredOutput]) and a command logger ([NewCommandLogger]).
//
// Unknown commands and flags produce "did you mean" suggestions based
// on edit distance.
package cli
