// Package plugin provides the types plugin authors use to build gobridge plugins.
//
// A gobridge plugin is a Go module compiled as a C shared library
// (go build -buildmode=c-shared) that a host process loads and drives through
// a small C ABI. The ABI itself lives in package cabi; this package holds the
// value-oriented contract a plugin implements, so plugin code never touches
// C pointers.
//
// Creating a Plugin:
//
// 1. Implement the Plugin interface
// 2. Embed a *Dispatcher for method lookup and NopNotifier if connect/disconnect are not needed
// 3. Publish a ServiceMetadata record through cabi.Export
// 4. Compile as shared library: go build -buildmode=c-shared
//
// Example plugin structure:
//
//	package main
//
//	import (
//	    "encoding/json"
//
//	    "gobridge.szuro.net/pkg/cabi"
//	    "gobridge.szuro.net/pkg/plugin"
//	)
//
//	var ServiceMetadata = plugin.ServiceMetadata{
//	    Name:    "Echo",
//	    Version: plugin.Version{Major: 1},
//	    Create:  func() plugin.Plugin { return &Echo{} },
//	}
//
//	func init() { cabi.Export(&ServiceMetadata) }
//
//	type Echo struct {
//	    *plugin.Dispatcher[*Echo]
//	    plugin.NopNotifier
//	}
//
//	func (e *Echo) Register() {
//	    e.Dispatcher = plugin.NewDispatcher(e)
//	    e.Handle("echo", func(_ *Echo, _ *plugin.RequestContext, params string) plugin.Response {
//	        return plugin.Success(json.RawMessage(params))
//	    })
//	}
//
//	func main() {}
package plugin

// Plugin is the capability contract every plugin instance satisfies.
//
// The bridge drives an instance through Uninitialized -> Registered ->
// Invoking* -> Destroyed. Register is called exactly once, right after the
// factory returns and before any other method. Calls on one instance are
// never concurrent; the host serializes them.
type Plugin interface {
	// Register performs one-time setup, typically filling the dispatch table.
	Register()

	// InvokeMethod executes one named operation. params is the raw JSON text
	// of the request's params member ("null" when absent).
	InvokeMethod(method, params string, ctx *RequestContext) Response

	// SupportedMethods returns the serialized list of method names.
	SupportedMethods() string

	// OnClientConnect is a notification; it has no result.
	OnClientConnect(channelID uint32)

	// OnClientDisconnect is a notification; it has no result.
	OnClientDisconnect(channelID uint32)
}

// NopNotifier provides no-op connect and disconnect notifications.
// Embed it in plugins that do not track clients.
type NopNotifier struct{}

func (NopNotifier) OnClientConnect(uint32) {}

func (NopNotifier) OnClientDisconnect(uint32) {}
