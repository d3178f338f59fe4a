// Package security provides validation, sanitization, and limits for the
// engine: task names, routing tags, serialized params, and stored error
// text all pass through here before touching the shared job table.
package security
