package cabi

/*
#include "cabi.h"
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"

	"gobridge.szuro.net/internal/boundary"
	"gobridge.szuro.net/internal/logger"
	"gobridge.szuro.net/pkg/bridge"
	"gobridge.szuro.net/pkg/plugin"
)

//export wpe_go_plugin_create
func wpe_go_plugin_create(name *C.char, sendFunc C.wpe_send_func, sendCtx unsafe.Pointer, metadata *C.wpe_service_metadata) C.wpe_plugin_handle {
	defer guard("create")
	mustHold(metadata != nil, "create: null service metadata")
	mustHold(sendFunc != nil, "create: null send callback")

	conf := loadConfig()

	meta, ok := plugin.Published()
	if !ok {
		logger.Error("create called but the module published no service metadata")
		return 0
	}
	if requested := goString(metadata.name); requested != meta.Name {
		logger.Warn("host metadata does not match the published record",
			"requested", requested, "published", meta.Name)
	}

	instanceName := goString(name)
	if err := boundary.CheckText("name", instanceName); err != nil {
		logger.Warn("ignoring instance name", "error", err)
		instanceName = ""
	}

	d := &callbackDeliverer{fn: sendFunc, ctx: sendCtx}
	inst, err := bridge.Create(instanceName, meta, d, conf.Options()...)
	if err != nil {
		logger.Error("failed to create plugin instance", "plugin", meta.Name, "error", err)
		return 0
	}
	return C.wpe_plugin_handle(cgo.NewHandle(inst))
}

//export wpe_go_plugin_destroy
func wpe_go_plugin_destroy(handle C.wpe_plugin_handle) {
	defer guard("destroy")
	inst := instanceFor(handle, "destroy")
	defer cgo.Handle(handle).Delete()

	// close failures and panics are logged by the instance
	_ = inst.Destroy()
}

//export wpe_go_plugin_init
func wpe_go_plugin_init(handle C.wpe_plugin_handle, json *C.char) {
	defer guard("init")
	inst := instanceFor(handle, "init")
	_ = inst.Init(goString(json))
}

//export wpe_go_plugin_invoke
func wpe_go_plugin_invoke(handle C.wpe_plugin_handle, request *C.char, reqCtx C.wpe_request_context) {
	defer guard("invoke")
	inst := instanceFor(handle, "invoke")

	text := goString(request)
	ctx := plugin.RequestContext{
		ChannelID: uint32(reqCtx.channel_id),
		AuthToken: goString(reqCtx.auth_token),
	}

	if err := boundary.CheckText("request", text); err != nil {
		_ = inst.Reject(ctx.ChannelID, text, err)
		return
	}
	if err := boundary.CheckText("auth_token", ctx.AuthToken); err != nil {
		_ = inst.Reject(ctx.ChannelID, text, err)
		return
	}
	_ = inst.Invoke(text, ctx)
}

//export wpe_go_plugin_on_client_connect
func wpe_go_plugin_on_client_connect(handle C.wpe_plugin_handle, channelID C.uint32_t) {
	defer guard("on_client_connect")
	_ = instanceFor(handle, "on_client_connect").OnClientConnect(uint32(channelID))
}

//export wpe_go_plugin_on_client_disconnect
func wpe_go_plugin_on_client_disconnect(handle C.wpe_plugin_handle, channelID C.uint32_t) {
	defer guard("on_client_disconnect")
	_ = instanceFor(handle, "on_client_disconnect").OnClientDisconnect(uint32(channelID))
}
