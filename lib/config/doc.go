// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the observer
// binaries.
//
// Configuration comes from a single YAML file named by the --config
// flag or the MESH_OBSERVER_CONFIG environment variable, decoded
// strictly so a typo in a key is an error, not a silent default.
// Flags override file values; the file overrides built-in defaults.
package config
