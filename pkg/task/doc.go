// Package task binds setup, supervised execution, and workup into one
// retryable unit.
//
// A StagedTask is configuration, not logic: it declares its command
// template, its ordered handler lists, its correction budget, and its
// polling interval. The setup and workup functions are supplied by the
// surrounding workflow catalogue.
package task
