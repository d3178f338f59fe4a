// Package executor provides the submission side of the distributed queue.
//
// Submit creates a pending JobRecord and returns a Future identified by the
// record's ID. No in-memory state is authoritative: the Future only polls
// the row, so submission and result retrieval can happen from entirely
// different processes referencing the same ID.
//
// The task Registry is the consumed half of a workflow catalogue: it maps
// human-readable task names to StagedTask configurations.
package executor
