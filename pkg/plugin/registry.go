package plugin

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	ErrInvalidMetadata  = errors.New("invalid service metadata")
	ErrAlreadyPublished = errors.New("service metadata already published")
)

// published holds the module's single metadata record. It is written once and
// read-only afterwards.
var published atomic.Pointer[ServiceMetadata]

// Publish installs meta as the module's descriptor. Only the first valid call
// succeeds; the record must not be modified afterwards.
func Publish(meta *ServiceMetadata) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	if !published.CompareAndSwap(nil, meta) {
		return fmt.Errorf("%w: %s, refusing %s", ErrAlreadyPublished, published.Load().Name, meta.Name)
	}
	return nil
}

// Published returns the module's descriptor, if any.
func Published() (*ServiceMetadata, bool) {
	meta := published.Load()
	return meta, meta != nil
}
