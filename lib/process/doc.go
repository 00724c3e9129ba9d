// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers shared by the
// observer binaries. Each main() follows the run() pattern: all logic
// lives in run() error, and main() hands any error to [Fatal]. This
// keeps raw stderr writes in exactly one place, for the window before
// the structured logger exists.
package process
