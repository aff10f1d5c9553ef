package mcclient

import "context"

// StoreMode selects one of the set-family primitives.
type StoreMode uint8

const (
	ModeSet StoreMode = iota
	ModeAdd
	ModeReplace
	ModeAppend
	ModePrepend
)

func (m StoreMode) String() string {
	switch m {
	case ModeSet:
		return "set"
	case ModeAdd:
		return "add"
	case ModeReplace:
		return "replace"
	case ModeAppend:
		return "append"
	case ModePrepend:
		return "prepend"
	default:
		return "store"
	}
}

// ArithMode selects increment or decrement.
type ArithMode uint8

const (
	ModeIncrement ArithMode = iota
	ModeDecrement
)

func (m ArithMode) String() string {
	if m == ModeDecrement {
		return "decr"
	}
	return "incr"
}

// Fetched is one raw item of a multi-get stream.
type Fetched struct {
	Key     string
	Payload []byte
	Flags   uint32
}

// Conn is the networked collaborator the client drives. Statuses describe
// per-operation outcomes; a non-nil error always comes with a fatal status.
//
// A Conn is not safe for concurrent use. The Client serializes access.
type Conn interface {
	Store(ctx context.Context, mode StoreMode, key string, payload []byte, flags uint32, ttl uint32) (Status, error)

	// Arith returns the new counter value. A missing key is StatusNotFound.
	Arith(ctx context.Context, mode ArithMode, key string, delta uint64) (uint64, Status, error)

	// Delete removes key. A non-zero ttl asks the server to expire it after
	// ttl seconds instead.
	Delete(ctx context.Context, key string, ttl uint32) (Status, error)

	// MGetStart sends a multi-get for keys. Results are read with MGetNext
	// until StatusEnd.
	MGetStart(ctx context.Context, keys []string) (Status, error)
	MGetNext(ctx context.Context) (Fetched, Status, error)

	// Flush invalidates every item on every server after delay seconds.
	Flush(ctx context.Context, delay uint32) (Status, error)

	// Quit closes all network connections. The Conn reconnects on next use.
	Quit() error

	// Clone returns an independent Conn with the same configuration.
	Clone() (Conn, error)
}
