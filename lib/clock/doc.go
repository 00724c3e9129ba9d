// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts wall-clock time so retention sweeps, report
// scheduling, and source backoff can be tested deterministically.
// Production code injects [Real]; tests inject [Fake] and drive time
// with [FakeClock.Advance].
//
// Retention is the reason this package exists: the store decides which
// rows have expired by comparing row timestamps against Now(), and a
// test that waits 24 real hours for a link to expire is not a test.
package clock
