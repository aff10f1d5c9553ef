package meta

import (
	"strconv"
	"strings"
)

// Flag is a single meta flag and its optional token.
type Flag struct {
	Type  FlagType
	Token string
}

// Flags is an ordered list of flags, in wire order.
type Flags []Flag

// Has reports whether a flag of the given type is present.
func (f Flags) Has(flagType FlagType) bool {
	_, ok := f.Get(flagType)
	return ok
}

// Get returns the token of the first flag of the given type.
func (f Flags) Get(flagType FlagType) (string, bool) {
	for _, flag := range f {
		if flag.Type == flagType {
			return flag.Token, true
		}
	}
	return "", false
}

// FormatFlagInt builds a flag carrying a decimal integer token.
func FormatFlagInt(flagType FlagType, value int) Flag {
	return Flag{Type: flagType, Token: strconv.Itoa(value)}
}

// FormatFlagUint builds a flag carrying a decimal unsigned token.
func FormatFlagUint(flagType FlagType, value uint64) Flag {
	return Flag{Type: flagType, Token: strconv.FormatUint(value, 10)}
}

// Request is one protocol command. It carries no behaviour besides flag
// bookkeeping; WriteRequest turns it into bytes.
type Request struct {
	Command CmdType

	// Key is empty for mn and flush_all.
	Key string

	// Data is the value block of ms. For flush_all it holds the optional
	// delay argument.
	Data []byte

	Flags Flags
}

// NewRequest creates a request. Data is only used by ms and flush_all.
func NewRequest(cmd CmdType, key string, data []byte, flags []Flag) *Request {
	return &Request{
		Command: cmd,
		Key:     key,
		Data:    data,
		Flags:   flags,
	}
}

// NewFlushAllRequest creates a flush_all request with an optional delay in seconds.
func NewFlushAllRequest(delay int) *Request {
	req := &Request{Command: CmdFlushAll}
	if delay > 0 {
		req.Data = []byte(strconv.Itoa(delay))
	}
	return req
}

// HasFlag reports whether the request carries a flag of the given type.
func (r *Request) HasFlag(flagType FlagType) bool {
	return r.Flags.Has(flagType)
}

// AddFlag appends a flag and returns the request for chaining.
func (r *Request) AddFlag(flagType FlagType, token string) *Request {
	r.Flags = append(r.Flags, Flag{Type: flagType, Token: token})
	return r
}

// ValidateKey checks a key against the protocol rules: 1..250 bytes, and no
// whitespace or control characters unless the key is base64 encoded.
func ValidateKey(key string, base64 bool) error {
	switch {
	case len(key) < MinKeyLength:
		return &InvalidKeyError{Message: "key is empty"}
	case len(key) > MaxKeyLength:
		return &InvalidKeyError{Message: "key exceeds maximum length of 250 bytes"}
	}

	if !base64 && strings.ContainsFunc(key, func(r rune) bool { return r <= ' ' || r == 0x7f }) {
		return &InvalidKeyError{Message: "key contains whitespace or control characters"}
	}

	return nil
}
