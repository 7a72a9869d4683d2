// Package engine generates synthetic records from schema definitions.
//
// Two modes share one executor:
//
//   - Flat mode walks a flat field list, applying per-field rule overrides
//     with a fixed precedence and falling back to type-based defaults.
//   - Dynamic mode walks an AI-authored component hierarchy, gating
//     components, fields, and rules on their confidence scores, then
//     executing candidate rules in priority order behind a probabilistic
//     gate.
//
// The cascade (confidence gate, priority order, probability draw) is what
// makes output plausible-but-stochastic while letting low-confidence schema
// elements fade out instead of failing generation.
//
// All randomness flows through an explicit sample.Source so tests can pin
// every draw.
package engine
