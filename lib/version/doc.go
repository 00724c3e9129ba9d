// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// Package version exposes build metadata for the observer binaries.
// The values are injected at build time via -ldflags; without them the
// defaults identify a local development build.
package version
