package plugin

// RequestContext describes the origin of one invocation. It is rebuilt for
// every call and must not be retained past it.
type RequestContext struct {
	// ChannelID identifies the host channel the request arrived on.
	ChannelID uint32

	// AuthToken is the caller's token, copied out of host memory.
	AuthToken string
}
