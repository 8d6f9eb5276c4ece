// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Shuttle's standard CBOR encoding and decoding.
//
// All application frames on the bridge wire carry CBOR payloads. The
// encoder is configured for Core Deterministic Encoding (RFC 8949 §4.2)
// so the same envelope always produces identical bytes, which keeps wire
// captures diffable and makes golden tests stable. The decoder ignores
// unknown fields, so older bridges tolerate envelopes from newer UIs.
//
// Consumers import this package rather than fxamacker/cbor directly; the
// type aliases exist so the dependency stays confined to one place.
package codec
