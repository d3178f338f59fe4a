package handler

import (
	"fmt"

	"github.com/jacksund/simmate-engine/pkg/core"
)

// Handler detects and fixes one failure pattern in a work directory.
//
// Check inspects the directory's current output state and must not mutate
// anything. It returns nil when the pattern is absent. Correct is called
// with a non-nil Check result, rewrites the offending inputs, and returns a
// human-readable description of the fix for the correction log.
type Handler interface {
	Name() string

	// Monitor reports whether the handler is evaluated while the process
	// is alive. Non-monitor (terminal) handlers run once after exit.
	Monitor() bool

	Check(dir string) (*core.ErrorDescriptor, error)
	Correct(dir string, desc *core.ErrorDescriptor) (string, error)
}

// FirstMatch evaluates handlers in order and returns the first one whose
// Check fires, with its descriptor. Handlers after the match are not
// checked that cycle, so one symptom is never fixed twice. An error from
// any Check aborts evaluation immediately.
func FirstMatch(dir string, handlers []Handler) (Handler, *core.ErrorDescriptor, error) {
	for _, h := range handlers {
		desc, err := h.Check(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("handler %q check: %w", h.Name(), err)
		}
		if desc != nil {
			return h, desc, nil
		}
	}
	return nil, nil, nil
}

// ValidateMonitors checks that every handler in a monitor list is tagged as
// a monitor, and that names are unique within the list.
func ValidateMonitors(handlers []Handler) error {
	return validate(handlers, true)
}

// ValidateTerminals checks that every handler in a terminal list is tagged
// as terminal, and that names are unique within the list.
func ValidateTerminals(handlers []Handler) error {
	return validate(handlers, false)
}

func validate(handlers []Handler, monitor bool) error {
	seen := make(map[string]bool, len(handlers))
	for _, h := range handlers {
		if h.Monitor() != monitor {
			return fmt.Errorf("handler %q: monitor flag is %v, list expects %v", h.Name(), h.Monitor(), monitor)
		}
		if seen[h.Name()] {
			return fmt.Errorf("handler %q appears twice in list", h.Name())
		}
		seen[h.Name()] = true
	}
	return nil
}
