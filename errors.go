package mcclient

import (
	"errors"
	"fmt"
)

var (
	// ErrNoServers is returned when the server list is empty.
	ErrNoServers = errors.New("mcclient: no servers")

	// ErrClientClosed is returned by calls on a closed Client.
	ErrClientClosed = errors.New("mcclient: client closed")

	// ErrCompressionUnsupported is wrapped by UnsupportedFeatureError when
	// compression is compiled out (-tags nozlib).
	ErrCompressionUnsupported = errors.New("compression is not supported by this build")
)

// KeyError is a key rejected before anything is sent.
type KeyError struct {
	Key    string
	Reason string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("mcclient: invalid key %.32q: %s", e.Key, e.Reason)
}

// EncodeError is a value the blob codec could not serialize.
type EncodeError struct {
	Kind Kind
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("mcclient: encoding %s value: %v", e.Kind, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError is a stored payload that does not parse as its tagged kind.
type DecodeError struct {
	Key   string
	Flags Flags
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("mcclient: decoding %q (%s): %v", e.Key, e.Flags, e.Err)
	}
	return fmt.Sprintf("mcclient: decoding %s value: %v", e.Flags, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FlagError is a stored flags word with an unknown type tag combination.
type FlagError struct {
	Flags Flags
}

func (e *FlagError) Error() string {
	return fmt.Sprintf("mcclient: unknown value flags %#x", uint32(e.Flags))
}

// CompressionError is a corrupt compressed payload.
type CompressionError struct {
	Err error
}

func (e *CompressionError) Error() string {
	return "mcclient: decompressing value: " + e.Err.Error()
}

func (e *CompressionError) Unwrap() error { return e.Err }

// UnsupportedFeatureError is returned when a stored value or an option needs
// a feature this build does not have.
type UnsupportedFeatureError struct {
	Feature string
	Err     error
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("mcclient: %s: %v", e.Feature, e.Err)
}

func (e *UnsupportedFeatureError) Unwrap() error { return e.Err }

// ProtocolError is a fatal status returned by the connection. It aborts the
// batch or fetch it happened in.
type ProtocolError struct {
	Op     string
	Key    string
	Status Status
	Err    error
}

func (e *ProtocolError) Error() string {
	msg := "mcclient: " + e.Op
	if e.Key != "" {
		msg += " " + e.Key
	}
	msg += ": " + e.Status.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// BatchError is returned when a batch stops on a fatal status. Outcomes holds
// every item attempted so far, the aborting one last; items after it were
// never sent.
type BatchError struct {
	Outcomes []ItemOutcome
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("mcclient: batch aborted after %d items: %v", len(e.Outcomes), e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Succeeded returns the keys that were stored before the abort.
func (e *BatchError) Succeeded() []string {
	var keys []string
	for _, o := range e.Outcomes {
		if o.Status == StatusSuccess {
			keys = append(keys, o.Key)
		}
	}
	return keys
}
