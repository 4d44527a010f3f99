package bridge

import (
	"fmt"
	"runtime/debug"

	"github.com/hashicorp/go-hclog"
)

// PanicError carries a panic recovered at an entry point.
type PanicError struct {
	EntryPoint string
	Value      any
	Stack      []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.EntryPoint, e.Value)
}

// Unwrap exposes panics raised with an error value.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// contain runs fn and stops any panic from unwinding further. Plugin state
// touched by fn before the panic is left as it was.
func contain(log hclog.Logger, pluginName, entryPoint string, fn func()) (perr *PanicError) {
	defer func() {
		if r := recover(); r != nil {
			perr = &PanicError{EntryPoint: entryPoint, Value: r, Stack: debug.Stack()}
			recoveredPanics.WithLabelValues(pluginName, entryPoint).Inc()
			log.Error("recovered from plugin panic",
				"entry_point", entryPoint,
				"panic", fmt.Sprint(r),
				"stack", string(perr.Stack),
			)
		}
	}()
	fn()
	return nil
}
