// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the typed records shared between the wire
// envelopes and the upstream client. These are the canonical
// definitions — both ends of the bridge import them from here rather
// than maintaining duplicates.
//
// Field names follow the internal convention (lower snake_case) in
// their json tags. The same tags drive both JSON decoding of
// normalized upstream responses and CBOR encoding on the bridge wire,
// so a record decoded from the workbench API is forwarded to the UI
// without re-mapping.
package schema
