package executor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jacksund/simmate-engine/pkg/security"
	"github.com/jacksund/simmate-engine/pkg/task"
)

// Registry maps task names to StagedTask configurations. Submitters use it
// to validate names; workers use it to find the task a claimed JobRecord
// references.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*task.StagedTask
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*task.StagedTask)}
}

// Register adds a task under its declared name.
func (r *Registry) Register(t *task.StagedTask) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := security.ValidateTaskName(t.Name); err != nil {
		return fmt.Errorf("task %q: %w", t.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[t.Name]; exists {
		return fmt.Errorf("engine: task %q already registered", t.Name)
	}
	r.tasks[t.Name] = t
	return nil
}

// MustRegister is Register that panics on error, for catalogue init code.
func (r *Registry) MustRegister(t *task.StagedTask) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get returns a task by name.
func (r *Registry) Get(name string) (*task.StagedTask, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// Names returns the registered task names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
