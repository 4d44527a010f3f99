// Package bridge drives plugin instances on behalf of the host: creation and
// registration, request decoding and dispatch, replies through the outbound
// channel and client notifications.
//
// Every Instance method is a boundary crossing. Panics raised by plugin code
// are recovered, logged and reported as *PanicError; they never reach the
// caller. Calls on one Instance must be serialized by the caller.
package bridge

import (
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"gobridge.szuro.net/internal/boundary"
	"gobridge.szuro.net/internal/envelope"
	"gobridge.szuro.net/internal/logger"
	"gobridge.szuro.net/pkg/plugin"
)

// NotifyChannel is the channel the method list is announced on at creation.
const NotifyChannel uint32 = 0

var (
	ErrCreateFailed    = errors.New("plugin creation failed")
	ErrDuplicateMethod = errors.New("method registered more than once")
	ErrNotRegistered   = errors.New("plugin instance is not registered")
	ErrDestroyed       = errors.New("plugin instance is destroyed")
)

// State is the lifecycle position of an Instance.
type State int

const (
	StateUninitialized State = iota
	StateRegistered
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRegistered:
		return "registered"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Instance is one live plugin together with its outbound channel.
type Instance struct {
	name    string
	meta    *plugin.ServiceMetadata
	plugin  plugin.Plugin
	out     Outbound
	log     hclog.Logger
	opts    options
	state   State
	methods string
}

// Create instantiates meta's plugin, registers it and announces its method
// list on NotifyChannel before returning. name is the instance name used in
// logs; it defaults to the plugin name.
func Create(name string, meta *plugin.ServiceMetadata, d Deliverer, opts ...Option) (*Instance, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}
	if d == nil {
		return nil, fmt.Errorf("%w: no deliverer for %s", ErrCreateFailed, meta.Name)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if name == "" {
		name = meta.Name
	}
	if o.logger == nil {
		o.logger = logger.Named(name)
	}

	inst := &Instance{
		name: name,
		meta: meta,
		out:  NewOutbound(d),
		log:  o.logger,
		opts: o,
	}

	var err error
	if perr := inst.contain("create", func() { err = inst.register() }); perr != nil {
		inst.abandon()
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, perr)
	}
	if err != nil {
		inst.abandon()
		return nil, err
	}

	var notifyErr error
	if perr := inst.contain("create", func() { notifyErr = inst.out.Notify(NotifyChannel, inst.methods) }); perr != nil {
		inst.abandon()
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, perr)
	}
	if notifyErr != nil {
		inst.abandon()
		return nil, fmt.Errorf("%w: announcing methods of %s: %w", ErrCreateFailed, meta.Name, notifyErr)
	}

	pluginInfo.WithLabelValues(meta.Name, meta.Version.String()).Set(1)
	activeInstances.WithLabelValues(meta.Name).Inc()
	inst.log.Info("plugin instance created",
		"plugin", meta.Name,
		"version", meta.Version.String(),
		"methods", inst.methods,
	)
	return inst, nil
}

func (i *Instance) register() error {
	p := i.meta.Create()
	if p == nil {
		return fmt.Errorf("%w: factory of %s returned nil", ErrCreateFailed, i.meta.Name)
	}
	i.plugin = p
	p.Register()
	i.state = StateRegistered

	if dr, ok := p.(plugin.DuplicateReporter); ok {
		if dups := dr.Duplicates(); len(dups) > 0 {
			if i.opts.strictRegistration {
				i.state = StateDestroyed
				return fmt.Errorf("%w: %s registered %v", ErrDuplicateMethod, i.meta.Name, dups)
			}
			i.log.Warn("methods registered more than once, last registration wins", "methods", dups)
		}
	}

	i.methods = p.SupportedMethods()
	return nil
}

// abandon closes a plugin whose creation failed after the factory ran.
func (i *Instance) abandon() {
	p := i.plugin
	i.plugin = nil
	i.state = StateDestroyed

	c, ok := p.(io.Closer)
	if !ok {
		return
	}
	var closeErr error
	if perr := i.contain("create", func() { closeErr = c.Close() }); perr == nil && closeErr != nil {
		i.log.Warn("plugin close after failed create", "error", closeErr)
	}
}

func (i *Instance) Name() string {
	return i.name
}

func (i *Instance) Metadata() *plugin.ServiceMetadata {
	return i.meta
}

func (i *Instance) State() State {
	return i.state
}

// Methods returns the method list announced at creation.
func (i *Instance) Methods() string {
	return i.methods
}

func (i *Instance) contain(entryPoint string, fn func()) *PanicError {
	return contain(i.log, i.meta.Name, entryPoint, fn)
}

func (i *Instance) ready(entryPoint string) error {
	switch i.state {
	case StateRegistered:
		return nil
	case StateDestroyed:
		i.log.Error("call on destroyed instance", "entry_point", entryPoint)
		return ErrDestroyed
	default:
		i.log.Error("call on unregistered instance", "entry_point", entryPoint)
		return ErrNotRegistered
	}
}

// Init is reserved for per-instance configuration and currently does nothing.
func (i *Instance) Init(config string) error {
	if err := i.ready("init"); err != nil {
		return err
	}
	i.log.Debug("init ignored", "config_bytes", len(config))
	return nil
}

// Invoke decodes one request, runs it and sends the reply on ctx.ChannelID.
//
// Malformed requests are answered with an error envelope when their id can
// be recovered and dropped with a log line otherwise. A panicking handler
// produces no reply unless WithRespondOnPanic is set.
func (i *Instance) Invoke(request string, ctx plugin.RequestContext) error {
	if err := i.ready("invoke"); err != nil {
		return err
	}

	var (
		id      uint64
		decoded bool
		sendErr error
	)
	perr := i.contain("invoke", func() {
		req, err := envelope.Decode(request)
		if err != nil {
			sendErr = i.reject(ctx.ChannelID, request, err)
			return
		}
		id, decoded = req.ID, true

		resp := i.plugin.InvokeMethod(req.Method, req.Params, &ctx)
		if resp.Failed() {
			invocations.WithLabelValues(i.meta.Name, outcomeFailure).Inc()
		} else {
			invocations.WithLabelValues(i.meta.Name, outcomeSuccess).Inc()
		}
		sendErr = i.out.Send(ctx.ChannelID, req.ID, resp)
	})
	if perr != nil {
		invocations.WithLabelValues(i.meta.Name, outcomePanic).Inc()
		if decoded && i.opts.respondOnPanic {
			i.contain("invoke", func() {
				resp := plugin.Failure(plugin.CodeInternalError, "Internal error")
				if err := i.out.Send(ctx.ChannelID, id, resp); err != nil {
					i.log.Error("failed to send panic reply", "request_id", id, "error", err)
				}
			})
		}
		return perr
	}
	if sendErr != nil {
		i.log.Error("failed to send reply", "channel_id", ctx.ChannelID, "error", sendErr)
	}
	return sendErr
}

// Reject answers a request that could not be handed to Invoke, typically
// because its text failed boundary validation.
func (i *Instance) Reject(channelID uint32, request string, cause error) error {
	if err := i.ready("invoke"); err != nil {
		return err
	}
	var sendErr error
	if perr := i.contain("invoke", func() { sendErr = i.reject(channelID, request, cause) }); perr != nil {
		return perr
	}
	return sendErr
}

func (i *Instance) reject(channelID uint32, request string, cause error) error {
	resp := failureFor(cause)
	if id, ok := envelope.SalvageID(request); ok {
		invocations.WithLabelValues(i.meta.Name, outcomeRejected).Inc()
		i.log.Warn("rejecting malformed request", "channel_id", channelID, "request_id", id, "error", cause)
		return i.out.Send(channelID, id, resp)
	}
	if i.opts.respondToUnidentified {
		invocations.WithLabelValues(i.meta.Name, outcomeRejected).Inc()
		i.log.Warn("rejecting malformed request without id", "channel_id", channelID, "error", cause)
		return i.out.SendUnidentified(channelID, resp)
	}
	invocations.WithLabelValues(i.meta.Name, outcomeDropped).Inc()
	i.log.Warn("dropping malformed request without id", "channel_id", channelID, "error", cause)
	return nil
}

func failureFor(err error) plugin.Response {
	var de *envelope.DecodeError
	if errors.As(err, &de) {
		return de.Response()
	}
	var ee *boundary.EncodingError
	if errors.As(err, &ee) {
		return plugin.Failure(plugin.CodeInvalidRequest, "Invalid encoding in "+ee.Field)
	}
	return plugin.Failure(plugin.CodeInvalidRequest, "Invalid Request")
}

// OnClientConnect forwards a connect notification to the plugin.
func (i *Instance) OnClientConnect(channelID uint32) error {
	if err := i.ready("on_client_connect"); err != nil {
		return err
	}
	if perr := i.contain("on_client_connect", func() { i.plugin.OnClientConnect(channelID) }); perr != nil {
		return perr
	}
	return nil
}

// OnClientDisconnect forwards a disconnect notification to the plugin.
func (i *Instance) OnClientDisconnect(channelID uint32) error {
	if err := i.ready("on_client_disconnect"); err != nil {
		return err
	}
	if perr := i.contain("on_client_disconnect", func() { i.plugin.OnClientDisconnect(channelID) }); perr != nil {
		return perr
	}
	return nil
}

// Destroy releases the plugin. Plugins implementing io.Closer are closed.
// The Instance rejects every call afterwards.
func (i *Instance) Destroy() error {
	if i.state == StateDestroyed {
		return ErrDestroyed
	}
	p := i.plugin
	i.plugin = nil
	i.state = StateDestroyed
	activeInstances.WithLabelValues(i.meta.Name).Dec()

	var closeErr error
	if c, ok := p.(io.Closer); ok {
		if perr := i.contain("destroy", func() { closeErr = c.Close() }); perr != nil {
			return perr
		}
	}
	if closeErr != nil {
		i.log.Warn("plugin close failed", "error", closeErr)
	}
	i.log.Info("plugin instance destroyed")
	return closeErr
}
