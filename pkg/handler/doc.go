// Package handler defines the error-handler extension point for supervised
// executions.
//
// A Handler detects and fixes one failure pattern in an external program's
// output. Monitor handlers are polled while the process runs; terminal
// handlers run once after it exits. Handlers in a list are evaluated in
// caller-supplied order and only the first match acts per cycle.
//
// Handlers are a trusted extension point: errors returned from Check or
// Correct are never converted into correctable failures and propagate
// immediately.
package handler
