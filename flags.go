package mcclient

import "strconv"

// Flags is the 32 bit client flags word stored next to every value. The low
// bits carry exactly one type tag; FlagCompressed is independent of the tag.
// The numeric layout is persisted in the cache and must never change.
type Flags uint32

const (
	FlagNone    Flags = 0 // raw bytes
	FlagInteger Flags = 1 << 0
	FlagLong    Flags = 1 << 1
	FlagBlob    Flags = 1 << 2
	FlagBool    Flags = 1 << 3

	FlagCompressed Flags = 1 << 4
)

// typeMask covers the type tag region.
const typeMask = FlagInteger | FlagLong | FlagBlob | FlagBool

// Type returns the type tag with the compression bit cleared.
func (f Flags) Type() Flags {
	return f & typeMask
}

// Compressed reports whether the payload is zlib compressed.
func (f Flags) Compressed() bool {
	return f&FlagCompressed != 0
}

func (f Flags) String() string {
	var s string
	switch f.Type() {
	case FlagNone:
		s = "raw"
	case FlagInteger:
		s = "integer"
	case FlagLong:
		s = "long"
	case FlagBlob:
		s = "blob"
	case FlagBool:
		s = "bool"
	default:
		s = "unknown(" + strconv.FormatUint(uint64(f.Type()), 10) + ")"
	}
	if f.Compressed() {
		s += "|compressed"
	}
	return s
}
