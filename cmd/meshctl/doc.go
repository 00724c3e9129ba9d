// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// meshctl is the observer's command line: node, link, and traffic
// queries against the database, live status and tail from a running
// daemon's control socket, report rendering, and offline capture
// replay.
package main
