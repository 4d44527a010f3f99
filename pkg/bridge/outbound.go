package bridge

import (
	"gobridge.szuro.net/internal/boundary"
	"gobridge.szuro.net/internal/envelope"
	"gobridge.szuro.net/pkg/plugin"
)

// Deliverer hands one encoded message to the host. The message must not be
// retained by the host after Deliver returns.
type Deliverer interface {
	Deliver(channelID uint32, message string) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(channelID uint32, message string) error

func (f DelivererFunc) Deliver(channelID uint32, message string) error {
	return f(channelID, message)
}

// Outbound is the channel an instance uses to push messages to the host.
type Outbound interface {
	// Send encodes resp as the reply to requestID.
	Send(channelID uint32, requestID uint64, resp plugin.Response) error

	// SendUnidentified encodes resp with a null id.
	SendUnidentified(channelID uint32, resp plugin.Response) error

	// Notify delivers message as is, without an envelope.
	Notify(channelID uint32, message string) error
}

// NewOutbound builds the default Outbound on top of a Deliverer.
func NewOutbound(d Deliverer) Outbound {
	return &responseChannel{d: d}
}

type responseChannel struct {
	d Deliverer
}

func (c *responseChannel) Send(channelID uint32, requestID uint64, resp plugin.Response) error {
	return c.Notify(channelID, envelope.Encode(requestID, resp))
}

func (c *responseChannel) SendUnidentified(channelID uint32, resp plugin.Response) error {
	return c.Notify(channelID, envelope.EncodeUnidentified(resp))
}

func (c *responseChannel) Notify(channelID uint32, message string) error {
	if err := boundary.CheckForeign("message", message); err != nil {
		return err
	}
	return c.d.Deliver(channelID, message)
}
