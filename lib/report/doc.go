// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// Package report computes network statistics from the store and
// renders them as terminal tables, Markdown, or HTML.
//
// The aggregator is a pure read-side consumer: it fetches the traffic
// window through the store's query surface and does all grouping and
// math in memory. The traffic history is bounded by the store's
// 7-day packet retention, so the full fetch stays small.
package report
