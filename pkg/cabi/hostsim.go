package cabi

/*
#include <string.h>
#include "cabi.h"

#define HOSTSIM_MAX 64

static int hostsim_ctx;
uint32_t hostsim_channels[HOSTSIM_MAX];
char *hostsim_messages[HOSTSIM_MAX];
const void *hostsim_ctxs[HOSTSIM_MAX];
int hostsim_count;

// Copies the message, which is only valid for the duration of the call.
void hostsim_send(uint32_t channel_id, const char *message, const void *ctx) {
	if (hostsim_count >= HOSTSIM_MAX) {
		return;
	}
	hostsim_channels[hostsim_count] = channel_id;
	hostsim_messages[hostsim_count] = message ? strdup(message) : NULL;
	hostsim_ctxs[hostsim_count] = ctx;
	hostsim_count++;
}

static const void *hostsim_ctx_ptr(void) { return &hostsim_ctx; }
*/
import "C"

import "unsafe"

// The hostsim helpers play the C host against the exported entry points so
// the package tests can cross the real boundary.

type hostMessage struct {
	channel uint32
	message string
	// ownCtx is true when the send context given to create came back unchanged.
	ownCtx bool
}

// hostTake returns and clears everything the callback received.
func hostTake() []hostMessage {
	out := make([]hostMessage, 0, int(C.hostsim_count))
	for i := 0; i < int(C.hostsim_count); i++ {
		out = append(out, hostMessage{
			channel: uint32(C.hostsim_channels[i]),
			message: C.GoString(C.hostsim_messages[i]),
			ownCtx:  C.hostsim_ctxs[i] == C.hostsim_ctx_ptr(),
		})
		C.free(unsafe.Pointer(C.hostsim_messages[i]))
		C.hostsim_messages[i] = nil
	}
	C.hostsim_count = 0
	return out
}

func cStringOrNil(s *string) *C.char {
	if s == nil {
		return nil
	}
	return C.CString(*s)
}

func freeC(p *C.char) {
	if p != nil {
		C.free(unsafe.Pointer(p))
	}
}

// hostCreate calls create the way a host does. A nil name is passed as NULL.
func hostCreate(name *string, metadataName string) C.wpe_plugin_handle {
	cname := cStringOrNil(name)
	defer freeC(cname)

	var meta C.wpe_service_metadata
	meta.name = C.CString(metadataName)
	defer freeC(meta.name)

	return wpe_go_plugin_create(cname, C.wpe_send_func(C.hostsim_send), unsafe.Pointer(C.hostsim_ctx_ptr()), &meta)
}

// hostCreateBroken calls create without metadata or without a send callback.
func hostCreateBroken(withMetadata, withCallback bool) C.wpe_plugin_handle {
	var meta *C.wpe_service_metadata
	if withMetadata {
		meta = &C.wpe_service_metadata{}
	}
	var send C.wpe_send_func
	if withCallback {
		send = C.wpe_send_func(C.hostsim_send)
	}
	return wpe_go_plugin_create(nil, send, nil, meta)
}

// hostInvoke passes nil request or token as NULL.
func hostInvoke(h C.wpe_plugin_handle, request *string, channelID uint32, token *string) {
	creq := cStringOrNil(request)
	defer freeC(creq)
	ctoken := cStringOrNil(token)
	defer freeC(ctoken)

	wpe_go_plugin_invoke(h, creq, C.wpe_request_context{
		channel_id: C.uint32_t(channelID),
		auth_token: ctoken,
	})
}

func hostInit(h C.wpe_plugin_handle, config *string) {
	cconf := cStringOrNil(config)
	defer freeC(cconf)
	wpe_go_plugin_init(h, cconf)
}

func hostConnect(h C.wpe_plugin_handle, channelID uint32) {
	wpe_go_plugin_on_client_connect(h, C.uint32_t(channelID))
}

func hostDisconnect(h C.wpe_plugin_handle, channelID uint32) {
	wpe_go_plugin_on_client_disconnect(h, C.uint32_t(channelID))
}

func hostDestroy(h C.wpe_plugin_handle) {
	wpe_go_plugin_destroy(h)
}

// hostHandle converts a raw value, for calls with made-up handles.
func hostHandle(v uintptr) C.wpe_plugin_handle {
	return C.wpe_plugin_handle(v)
}

type hostDescriptor struct {
	name                string
	major, minor, patch uint32
}

// hostDescribe reads the module descriptor through the exported symbol.
func hostDescribe() (hostDescriptor, bool) {
	d := thunder_service_metadata()
	if d == nil {
		return hostDescriptor{}, false
	}
	return hostDescriptor{
		name:  C.GoString(d.name),
		major: uint32(d.major),
		minor: uint32(d.minor),
		patch: uint32(d.patch),
	}, true
}
