// Package worker provides the polling claim loop that serves the shared
// queue.
//
// Workers never communicate with each other: every coordination decision
// routes through the JobRecord table, and the only cross-worker mutual
// exclusion is the atomic conditional claim update. Lifecycle policies
// (single-flow, max-jobs, stop-when-empty) layer over the same loop.
//
// Most users should import the root package github.com/jacksund/simmate-engine
// which re-exports the worker constructors and options.
package worker
