// Package runner provides supervised execution of one external command.
//
// The Runner starts the command asynchronously and, while it is alive,
// evaluates monitor handlers against the work directory on a fixed polling
// interval. A fired monitor terminates the process (graceful signal, then
// forced kill after a grace period), applies the handler's correction, and
// restarts the same command in the same directory, bounded by a per-handler
// correction budget. After a normal exit, terminal handlers run once; a
// fired terminal handler requests re-execution of the whole owning task.
package runner
