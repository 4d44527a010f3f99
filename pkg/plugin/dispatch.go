package plugin

import (
	"errors"
	"slices"

	"github.com/tidwall/sjson"
)

// ErrDispatcherSealed is the panic value raised by Handle once the method set
// has been advertised to the host.
var ErrDispatcherSealed = errors.New("dispatch table is sealed")

// Handler executes one method. state is the plugin value the Dispatcher was
// built with, params the raw JSON params text.
type Handler[S any] func(state S, ctx *RequestContext, params string) Response

// Dispatcher is the reusable method table plugins embed to satisfy
// InvokeMethod and SupportedMethods. Plugins fill it in Register and only
// write handlers.
//
// Names are matched exactly and case-sensitively. Registering a name twice
// replaces the earlier handler; the replaced names are reported by Duplicates
// so the bridge can warn about them or refuse the plugin.
type Dispatcher[S any] struct {
	state      S
	handlers   map[string]Handler[S]
	duplicates []string
	sealed     bool
}

// NewDispatcher creates an empty table bound to state, usually the plugin itself.
func NewDispatcher[S any](state S) *Dispatcher[S] {
	return &Dispatcher[S]{
		state:    state,
		handlers: make(map[string]Handler[S]),
	}
}

// Handle adds or replaces the handler for name. It panics with
// ErrDispatcherSealed after SupportedMethods has been called.
func (d *Dispatcher[S]) Handle(name string, h Handler[S]) {
	if d.sealed {
		panic(ErrDispatcherSealed)
	}
	if _, exists := d.handlers[name]; exists && !slices.Contains(d.duplicates, name) {
		d.duplicates = append(d.duplicates, name)
	}
	d.handlers[name] = h
}

// Methods returns the registered names in lexical order.
func (d *Dispatcher[S]) Methods() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Duplicates lists names that were registered more than once.
func (d *Dispatcher[S]) Duplicates() []string {
	return slices.Clone(d.duplicates)
}

// Seal freezes the table. SupportedMethods seals implicitly.
func (d *Dispatcher[S]) Seal() {
	d.sealed = true
}

func (d *Dispatcher[S]) Sealed() bool {
	return d.sealed
}

// SupportedMethods serializes the method names as a JSON array and seals the table.
func (d *Dispatcher[S]) SupportedMethods() string {
	d.Seal()
	return MethodList(d.Methods())
}

// InvokeMethod looks method up and runs its handler, returning the handler's
// response verbatim, or the UnknownMethod failure.
func (d *Dispatcher[S]) InvokeMethod(method, params string, ctx *RequestContext) Response {
	h, ok := d.handlers[method]
	if !ok {
		return UnknownMethod()
	}
	return h(d.state, ctx, params)
}

// MethodList renders names as a JSON array of strings.
func MethodList(names []string) string {
	out := "[]"
	for _, name := range names {
		// appending a string to a valid array cannot fail
		out, _ = sjson.Set(out, "-1", name)
	}
	return out
}

// DuplicateReporter is implemented by plugins whose method table can report
// names registered more than once. Dispatcher implements it.
type DuplicateReporter interface {
	Duplicates() []string
}
