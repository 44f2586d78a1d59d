package main

import (
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/orvelte/lifecycled/environ"
	"github.com/orvelte/lifecycled/fault"
)

// registry is the control-plane daemon's name→environment table. It
// is a thin layer above environ.Environment: each entry owns its own
// mutex and worker goroutine (§4.4); the registry only serialises
// creation and lookup by name.
type registry struct {
	log *logger.L

	mu   sync.Mutex
	envs map[string]*environ.Environment
}

func newRegistry(log *logger.L) *registry {
	return &registry{
		log:  log,
		envs: make(map[string]*environ.Environment),
	}
}

// open creates a new named environment per §6 Open: args[0] is the
// name, args[1:] are "prog=cmd" handler declarations.
func (r *registry) open(args []string) (*environ.Environment, error) {
	if len(args) == 0 {
		return nil, fault.ErrInvalidOpenArguments
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := args[0]
	if _, exists := r.envs[name]; exists {
		return nil, fault.ErrAlreadyInitialised
	}

	e, err := environ.Open(logger.New(name), args, 2)
	if err != nil {
		return nil, err
	}
	r.envs[name] = e
	return e, nil
}

// lookup returns the named environment, or fault.ErrNotFoundObject.
func (r *registry) lookup(name string) (*environ.Environment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.envs[name]
	if !ok {
		return nil, fault.ErrNotFoundObject
	}
	return e, nil
}

// close stops and forgets the named environment.
func (r *registry) close(name string) error {
	r.mu.Lock()
	e, ok := r.envs[name]
	if ok {
		delete(r.envs, name)
	}
	r.mu.Unlock()

	if !ok {
		return fault.ErrNotFoundObject
	}
	e.Close()
	return nil
}

// snapshot returns each live environment's current DNs, keyed by
// name, for status reporting.
func (r *registry) snapshot() map[string][]string {
	r.mu.Lock()
	envs := make([]*environ.Environment, 0, len(r.envs))
	names := make([]string, 0, len(r.envs))
	for name, e := range r.envs {
		envs = append(envs, e)
		names = append(names, name)
	}
	r.mu.Unlock()

	out := make(map[string][]string, len(envs))
	for i, e := range envs {
		out[names[i]] = e.DumpObjects()
	}
	return out
}

// closeAll stops every registered environment, for daemon shutdown.
func (r *registry) closeAll() {
	r.mu.Lock()
	envs := make([]*environ.Environment, 0, len(r.envs))
	for _, e := range r.envs {
		envs = append(envs, e)
	}
	r.envs = make(map[string]*environ.Environment)
	r.mu.Unlock()

	for _, e := range envs {
		e.Close()
	}
}
