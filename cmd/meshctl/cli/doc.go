// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the hand-built command tree for meshctl: named
// commands with pflag flag sets, structured help, and typo
// suggestions for unknown commands and flags.
package cli
