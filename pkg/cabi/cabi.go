// Package cabi exports the C ABI of a gobridge plugin module.
//
// A plugin module blank-links this package (usually through cabi.Export) and
// is built with -buildmode=c-shared. The host then resolves these symbols:
//
//	wpe_service_metadata *thunder_service_metadata(void);
//	wpe_plugin_handle wpe_go_plugin_create(const char *name, wpe_send_func send, const void *send_ctx, wpe_service_metadata *metadata);
//	void wpe_go_plugin_destroy(wpe_plugin_handle handle);
//	void wpe_go_plugin_init(wpe_plugin_handle handle, const char *json);
//	void wpe_go_plugin_invoke(wpe_plugin_handle handle, const char *request, wpe_request_context ctx);
//	void wpe_go_plugin_on_client_connect(wpe_plugin_handle handle, uint32_t channel_id);
//	void wpe_go_plugin_on_client_disconnect(wpe_plugin_handle handle, uint32_t channel_id);
//
// Memory rules: strings passed by the host are copied before the call
// returns and never retained. Strings passed to the send callback are owned
// by the bridge and freed as soon as the callback returns. Handles are owned
// by the host between create and destroy.
//
// A null handle, or a null metadata or callback on create, breaks the
// contract and aborts the process. Everything else, including plugin panics,
// is contained and logged.
package cabi

/*
#include "cabi.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"runtime/cgo"
	"sync"
	"unsafe"

	"gobridge.szuro.net/internal/boundary"
	"gobridge.szuro.net/internal/config"
	"gobridge.szuro.net/internal/logger"
	"gobridge.szuro.net/pkg/bridge"
)

var (
	confOnce sync.Once
	conf     config.BridgeConf
)

// loadConfig reads GOBRIDGE_CONFIG once per loaded module.
func loadConfig() config.BridgeConf {
	confOnce.Do(func() {
		c, err := config.Load()
		c.Apply()
		if err != nil {
			logger.Warn("using default bridge config", "error", err)
		}
		conf = c
	})
	return conf
}

// goString copies a borrowed host string. NULL yields "".
func goString(p *C.char) string {
	if p == nil {
		return ""
	}
	return C.GoString(p)
}

// mustHold aborts on host contract violations.
func mustHold(cond bool, what string) {
	if !cond {
		err := fmt.Errorf("%w: %s", boundary.ErrBoundaryViolation, what)
		logger.Error("host broke the plugin ABI", "error", err)
		panic(err)
	}
}

// guard is deferred by every export. It swallows panics that escaped the
// bridge and lets boundary violations through.
func guard(entryPoint string) {
	if r := recover(); r != nil {
		if err, ok := r.(error); ok && errors.Is(err, boundary.ErrBoundaryViolation) {
			panic(r)
		}
		logger.Error("recovered at C boundary", "entry_point", entryPoint, "panic", fmt.Sprint(r))
	}
}

func instanceFor(h C.wpe_plugin_handle, entryPoint string) *bridge.Instance {
	mustHold(h != 0, entryPoint+": null plugin handle")
	inst, ok := cgo.Handle(h).Value().(*bridge.Instance)
	mustHold(ok, entryPoint+": handle does not refer to a plugin instance")
	return inst
}

// callbackDeliverer sends messages through the host callback given to create.
type callbackDeliverer struct {
	fn  C.wpe_send_func
	ctx unsafe.Pointer
}

func (d *callbackDeliverer) Deliver(channelID uint32, message string) error {
	if err := boundary.CheckForeign("message", message); err != nil {
		return err
	}
	lease := boundary.Lend(C.CString(message), func(p *C.char) {
		C.free(unsafe.Pointer(p))
	})
	defer lease.Release()

	C.wpe_call_send(d.fn, C.uint32_t(channelID), lease.Value(), d.ctx)
	return nil
}
