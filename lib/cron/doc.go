// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// Package cron parses standard 5-field cron expressions and computes
// the next occurrence after a given time. The report scheduler uses it
// for the hourly summary and daily full-report jobs.
//
// Supported syntax:
//
//	┌───────────── minute (0-59)
//	│ ┌───────────── hour (0-23)
//	│ │ ┌───────────── day of month (1-31)
//	│ │ │ ┌───────────── month (1-12)
//	│ │ │ │ ┌───────────── day of week (0-6, 0=Sunday)
//	│ │ │ │ │
//	* * * * *
//
// Each field supports single values, ranges (1-5), lists (1,3,5),
// steps (*/15, 1-30/5), and the wildcard. No @hourly shortcuts, no
// seconds field, no named days or months.
//
// Next evaluates in the location of the time it is given, so a
// schedule like "59 23 * * *" fires at local midnight minus one minute
// in whatever timezone the daemon is configured for.
package cron
