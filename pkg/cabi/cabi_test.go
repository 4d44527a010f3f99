package cabi

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"gobridge.szuro.net/internal/boundary"
	"gobridge.szuro.net/pkg/plugin"
)

type tracker struct {
	*plugin.Dispatcher[*tracker]
	connected map[uint32]bool
}

var closedTrackers int

func (tr *tracker) Register() {
	tr.Dispatcher = plugin.NewDispatcher(tr)
	tr.Handle("echo", func(_ *tracker, _ *plugin.RequestContext, params string) plugin.Response {
		return plugin.Success(json.RawMessage(params))
	})
	tr.Handle("token", func(_ *tracker, ctx *plugin.RequestContext, _ string) plugin.Response {
		return plugin.Success(ctx.AuthToken)
	})
	tr.Handle("boom", func(*tracker, *plugin.RequestContext, string) plugin.Response {
		panic("boom")
	})
	tr.Handle("clients", func(tr *tracker, _ *plugin.RequestContext, _ string) plugin.Response {
		return plugin.Success(len(tr.connected))
	})
}

func (tr *tracker) OnClientConnect(id uint32) { tr.connected[id] = true }

func (tr *tracker) OnClientDisconnect(id uint32) { delete(tr.connected, id) }

func (tr *tracker) Close() error {
	closedTrackers++
	return nil
}

var trackerMeta = plugin.ServiceMetadata{
	Name:    "Tracker",
	Version: plugin.Version{Major: 2, Minor: 5, Patch: 1},
	Create:  func() plugin.Plugin { return &tracker{connected: make(map[uint32]bool)} },
}

func init() {
	Export(&trackerMeta)
}

const trackerMethods = `["boom","clients","echo","token"]`

func ptr(s string) *string {
	return &s
}

// violation runs fn and returns the error it panicked with, if any.
func violation(fn func()) error {
	var r any
	func() {
		defer func() { r = recover() }()
		fn()
	}()
	err, _ := r.(error)
	return err
}

func TestServiceMetadata(t *testing.T) {
	d, ok := hostDescribe()
	require.True(t, ok)
	require.Equal(t, hostDescriptor{name: "Tracker", major: 2, minor: 5, patch: 1}, d)

	again, ok := hostDescribe()
	require.True(t, ok)
	require.Equal(t, d, again)
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name     string
		instance *string
		metadata string
	}{
		{"Named", ptr("tracker-1"), "Tracker"},
		{"Null name", nil, "Tracker"},
		{"Invalid name", ptr("bad\xffname"), "Tracker"},
		{"Metadata mismatch", ptr("tracker-2"), "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := hostCreate(tt.instance, tt.metadata)
			require.NotZero(t, h)
			defer hostDestroy(h)

			sent := hostTake()
			require.Equal(t, []hostMessage{{channel: 0, message: trackerMethods, ownCtx: true}}, sent)
		})
	}
}

func TestInvoke(t *testing.T) {
	tests := []struct {
		name     string
		request  *string
		token    *string
		expected string
	}{
		{"Echo", ptr(`{"method":"echo","params":[1,"two"],"id":1}`), nil,
			`{"jsonrpc":"2.0","id":1,"result":[1,"two"]}`},
		{"Token", ptr(`{"method":"token","id":2}`), ptr("secret"),
			`{"jsonrpc":"2.0","id":2,"result":"secret"}`},
		{"Null token", ptr(`{"method":"token","id":3}`), nil,
			`{"jsonrpc":"2.0","id":3,"result":""}`},
		{"Unknown method", ptr(`{"method":"nope","id":4}`), nil,
			`{"jsonrpc":"2.0","id":4,"error":{"code":-143,"message":"Unknown Method"}}`},
		{"Invalid request encoding", ptr("{\"id\":5,\"method\":\"echo\",\"params\":\"\xff\"}"), nil,
			`{"jsonrpc":"2.0","id":5,"error":{"code":-32600,"message":"Invalid encoding in request"}}`},
		{"Invalid token encoding", ptr(`{"method":"token","id":6}`), ptr("\xfe"),
			`{"jsonrpc":"2.0","id":6,"error":{"code":-32600,"message":"Invalid encoding in auth_token"}}`},
		{"Salvaged id", ptr(`{"id":7,"method":`), nil,
			`{"jsonrpc":"2.0","id":7,"error":{"code":-32700,"message":"Parse error"}}`},
		{"Null request", nil, nil, ""},
		{"No id", ptr(`{not json`), nil, ""},
		{"Panicking handler", ptr(`{"method":"boom","id":8}`), nil, ""},
	}

	h := hostCreate(ptr("invoke"), "Tracker")
	defer hostDestroy(h)
	hostTake()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() { hostInvoke(h, tt.request, 11, tt.token) })

			sent := hostTake()
			if tt.expected == "" {
				require.Empty(t, sent)
				return
			}
			require.Len(t, sent, 1)
			require.Equal(t, uint32(11), sent[0].channel)
			require.True(t, sent[0].ownCtx)
			require.JSONEq(t, tt.expected, sent[0].message)
		})
	}
}

func TestNotifications(t *testing.T) {
	h := hostCreate(nil, "Tracker")
	defer hostDestroy(h)
	hostTake()

	hostInit(h, nil)
	hostInit(h, ptr(`{"anything":true}`))
	hostConnect(h, 3)
	hostConnect(h, 4)
	hostDisconnect(h, 3)
	hostInvoke(h, ptr(`{"method":"clients","id":1}`), 4, nil)

	sent := hostTake()
	require.Len(t, sent, 1)
	require.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":1}`, sent[0].message)
}

func TestDestroyReleasesInstance(t *testing.T) {
	before := closedTrackers
	h := hostCreate(nil, "Tracker")
	hostTake()

	hostDestroy(h)
	require.Equal(t, before+1, closedTrackers)

	const live = `
# HELP gobridge_instances Number of live plugin instances
# TYPE gobridge_instances gauge
gobridge_instances{plugin_name="Tracker"} 0
`
	require.NoError(t, testutil.GatherAndCompare(prometheus.DefaultGatherer, strings.NewReader(live), "gobridge_instances"))

	// the handle is dead; calls through it are contained and do nothing
	require.NotPanics(t, func() {
		hostDestroy(h)
		hostInvoke(h, ptr(`{"method":"echo","id":1}`), 1, nil)
		hostConnect(h, 1)
	})
	require.Empty(t, hostTake())
	require.Equal(t, before+1, closedTrackers)
}

func TestUnknownHandle(t *testing.T) {
	require.NotPanics(t, func() {
		hostInvoke(hostHandle(987654321), ptr(`{"method":"echo","id":1}`), 1, nil)
		hostDestroy(hostHandle(987654321))
	})
	require.Empty(t, hostTake())
}

func TestBrokenContract(t *testing.T) {
	tests := []struct {
		name string
		call func()
	}{
		{"Create without metadata", func() { hostCreateBroken(false, true) }},
		{"Create without callback", func() { hostCreateBroken(true, false) }},
		{"Invoke null handle", func() { hostInvoke(hostHandle(0), ptr(`{"method":"echo","id":1}`), 1, nil) }},
		{"Destroy null handle", func() { hostDestroy(hostHandle(0)) }},
		{"Connect null handle", func() { hostConnect(hostHandle(0), 1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := violation(tt.call)
			require.Error(t, err)
			require.True(t, errors.Is(err, boundary.ErrBoundaryViolation), err.Error())
		})
	}
	require.Empty(t, hostTake())
}
