// Package core provides the fundamental types and interfaces for the engine.
//
// This package contains:
//   - JobRecord and CorrectionRecord data models with GORM annotations
//   - Storage interface defining the persistence contract
//   - ErrorDescriptor and the CorrectionLog audit trail
//   - Event types for worker monitoring
//   - Error types for supervised execution
//
// Most users should import the root package github.com/jacksund/simmate-engine
// instead of this package directly.
package core
