// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

// Package normalize reconciles the two JSON field-naming conventions
// the bridge sits between: the workbench API's mixed-case identifiers
// ("projectID", "providerID") and the internal lower snake_case
// convention carried on the bridge wire ("project_id", "provider_id").
//
// The equivalence table lives in keymap.jsonc, embedded at compile
// time and loaded once at init. A non-invertible table (duplicate
// internal names, or an upstream name colliding with another entry's
// internal name) panics at init — schema drift is a startup failure,
// never a silent runtime one. Keys absent from the table pass through
// unchanged in both directions, so upstream additions are
// forward-compatible.
//
// Both transforms are total over arbitrary JSON: they never fail, and
// Denormalize(Normalize(v)) == v for any value whose keys are drawn
// from the known schema.
package normalize
