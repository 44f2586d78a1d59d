// Package environ implements the lifecycle environment: a DN-indexed
// object table, its handler table, its transaction engine and its
// service worker.
package environ

import (
	"sort"
	"strings"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/orvelte/lifecycled/attribute"
	"github.com/orvelte/lifecycled/background"
	"github.com/orvelte/lifecycled/fault"
	"github.com/orvelte/lifecycled/handler"
	"github.com/orvelte/lifecycled/lcobject"
)

var sequenceCounter uint64
var sequenceMu sync.Mutex

func nextSequence() uint64 {
	sequenceMu.Lock()
	defer sequenceMu.Unlock()
	sequenceCounter++
	return sequenceCounter
}

// Environment is one backend instance, per §4.4/ENV: a DN-indexed
// object table, a handler table, flag bits, a mutex, a condition
// variable and the transaction-cycle pointer.
type Environment struct {
	Name string
	log  *logger.L

	mu   sync.Mutex
	cond *sync.Cond

	objects   map[string]*lcobject.Object // keyed by DN
	sortedLen int                         // prefix of `order` that is time-ordered
	order     []*lcobject.Object          // partially sorted object list (§4.6)

	handlers map[string]handler.Sink // keyed by program name

	aborted  bool
	serviced bool

	cycle    *Environment // transaction-cycle pointer; self-loop == lone transaction
	sequence uint64       // stable creation order; whatever opens multiple environments' transactions at once orders by this to avoid the lock-order deadlock in §5

	shadowFire map[*attribute.Program]int64 // back-off shadow re-fire time
	missed     map[*attribute.Program]uint8

	background *background.T
}

// Open creates an environment per §6: args[0] is the environment's
// name, args[1:] are "name=command" handler declarations. varCount
// must be 2 (DN and attribute-text). Failure to create any handler
// slot tears down the whole environment.
func Open(log *logger.L, args []string, varCount int) (*Environment, error) {
	if varCount != 2 {
		return nil, fault.ErrInvalidVariableCount
	}
	if len(args) < 2 {
		return nil, fault.ErrMissingHandler
	}

	e := &Environment{
		Name:       args[0],
		log:        log,
		objects:    make(map[string]*lcobject.Object),
		handlers:   make(map[string]handler.Sink),
		shadowFire: make(map[*attribute.Program]int64),
		missed:     make(map[*attribute.Program]uint8),
		sequence:   nextSequence(),
	}
	e.cond = sync.NewCond(&e.mu)

	for _, declaration := range args[1:] {
		if !strings.Contains(declaration, "=") {
			e.closeHandlers()
			return nil, fault.ErrMissingHandlerEquals
		}
		sink, err := handler.NewProcessSink(declaration)
		if err != nil {
			e.closeHandlers()
			return nil, err
		}
		e.handlers[sink.Name()] = sink
	}

	e.serviced = true
	e.background = background.Start(background.Processes{e.workerLoop}, nil)
	return e, nil
}

func (e *Environment) closeHandlers() {
	for _, sink := range e.handlers {
		sink.Close()
	}
}

// Close stops the worker and releases every handler stream, per
// §4.8.1 and §4.8.4.
func (e *Environment) Close() {
	e.mu.Lock()
	e.serviced = false
	e.cond.Broadcast()
	e.mu.Unlock()

	if e.background != nil {
		background.Stop(e.background)
	}

	e.mu.Lock()
	e.closeHandlers()
	e.mu.Unlock()
}

// findOrCreateObject returns the object for dn, creating it (and
// linking it into the partially sorted order) if absent.
func (e *Environment) findOrCreateObject(dn string) *lcobject.Object {
	if o, ok := e.objects[dn]; ok {
		return o
	}
	o := lcobject.New(dn)
	e.objects[dn] = o
	e.order = append(e.order, o)
	return o
}

func (e *Environment) removeObject(o *lcobject.Object) {
	delete(e.objects, o.DN)
	for i, candidate := range e.order {
		if candidate == o {
			e.order = append(e.order[:i], e.order[i+1:]...)
			if i < e.sortedLen {
				e.sortedLen--
			}
			break
		}
	}
}

// DumpObjects returns the DNs currently held by the environment in
// sorted order, for debug logging and tests.
func (e *Environment) DumpObjects() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.objects))
	for dn := range e.objects {
		names = append(names, dn)
	}
	sort.Strings(names)
	return names
}
