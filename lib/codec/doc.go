// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used on the daemon control
// socket. Encoding is RFC 8949 Core Deterministic: sorted map keys,
// smallest integer widths, no indefinite-length items, so the same
// status or event frame always produces identical bytes. Decoding
// ignores unknown fields, which lets old clients talk to newer
// daemons.
//
// Consumers import only this package, never fxamacker/cbor directly.
package codec
