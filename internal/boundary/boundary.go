// Package boundary holds the cgo-free half of the host boundary: validity
// checks for text crossing it and the ownership rules for memory lent to the host.
package boundary

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

// ErrBoundaryViolation marks host calls that break the ABI contract, such as
// a null handle. Exported entry points treat it as fatal.
var ErrBoundaryViolation = errors.New("boundary violation")

// EncodingError reports text that cannot be represented on one side of the boundary.
type EncodingError struct {
	Field  string
	Offset int
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error in %s at byte %d: %s", e.Field, e.Offset, e.Reason)
}

// CheckText validates host supplied text before the bridge uses it.
func CheckText(field, s string) error {
	if utf8.ValidString(s) {
		return nil
	}
	offset := 0
	for offset < len(s) {
		r, size := utf8.DecodeRuneInString(s[offset:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		offset += size
	}
	return &EncodingError{Field: field, Offset: offset, Reason: "invalid UTF-8"}
}

// CheckForeign validates text the bridge is about to hand to the host as a
// NUL terminated string.
func CheckForeign(field, s string) error {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return &EncodingError{Field: field, Offset: i, Reason: "embedded NUL"}
	}
	return nil
}

// Ownership states who releases a value that crossed the boundary.
type Ownership int

const (
	// Borrowed values belong to the host and are valid for the call only.
	Borrowed Ownership = iota
	// Lent values are allocated by the bridge, read by the host during one
	// callback and released by the bridge when it returns.
	Lent
	// Owned values were copied and belong to the bridge.
	Owned
)

func (o Ownership) String() string {
	switch o {
	case Borrowed:
		return "borrowed"
	case Lent:
		return "lent"
	case Owned:
		return "owned"
	default:
		return fmt.Sprintf("ownership(%d)", int(o))
	}
}

// Lease tracks a bridge allocation lent to the host. Release frees it exactly
// once no matter how many times it is called.
type Lease[T any] struct {
	value    T
	release  func(T)
	once     sync.Once
	released bool
}

// Lend wraps value, to be freed by release.
func Lend[T any](value T, release func(T)) *Lease[T] {
	return &Lease[T]{value: value, release: release}
}

func (l *Lease[T]) Value() T {
	return l.value
}

func (l *Lease[T]) Ownership() Ownership {
	return Lent
}

func (l *Lease[T]) Released() bool {
	return l.released
}

func (l *Lease[T]) Release() {
	l.once.Do(func() {
		l.released = true
		if l.release != nil {
			l.release(l.value)
		}
	})
}
