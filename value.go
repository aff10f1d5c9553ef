package mcclient

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// Kind is the category of a Value. It selects the type tag on the wire.
type Kind uint8

const (
	KindRaw Kind = iota
	KindInteger
	KindLongInteger
	KindBoolean
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindInteger:
		return "integer"
	case KindLongInteger:
		return "long"
	case KindBoolean:
		return "bool"
	case KindBlob:
		return "blob"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a cached value together with its category. The zero Value is an
// empty Raw value.
type Value struct {
	kind Kind
	raw  []byte
	i    int64
	big  *big.Int
	b    bool
	blob any
}

// Raw returns a byte value stored as-is.
func Raw(b []byte) Value { return Value{kind: KindRaw, raw: b} }

// String returns a byte value holding s.
func String(s string) Value { return Value{kind: KindRaw, raw: []byte(s)} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInteger, i: i} }

// LongInt returns an arbitrary precision integer value. A nil n is zero.
func LongInt(n *big.Int) Value {
	if n == nil {
		n = new(big.Int)
	}
	return Value{kind: KindLongInteger, big: new(big.Int).Set(n)}
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Blob returns a value handed to the BlobCodec.
func Blob(v any) Value { return Value{kind: KindBlob, blob: v} }

// ValueOf picks the category of v from its Go type:
//
//	[]byte, string                  Raw
//	bool                            Boolean
//	int*, uint* fitting in int64    Integer
//	uint64 above MaxInt64, *big.Int LongInteger
//	Value                           itself
//	anything else                   Blob
func ValueOf(v any) Value {
	switch x := v.(type) {
	case Value:
		return x
	case *Value:
		return *x
	case []byte:
		return Raw(x)
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return unsignedValue(uint64(x))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return unsignedValue(x)
	case *big.Int:
		return LongInt(x)
	default:
		return Blob(v)
	}
}

func unsignedValue(u uint64) Value {
	if u > math.MaxInt64 {
		return LongInt(new(big.Int).SetUint64(u))
	}
	return Int(int64(u))
}

// Kind returns the category of the value.
func (v Value) Kind() Kind { return v.kind }

// Bytes returns the payload of a Raw value, nil otherwise.
func (v Value) Bytes() []byte {
	if v.kind != KindRaw {
		return nil
	}
	return v.raw
}

// Int returns the integer of an Integer value. A LongInteger that fits is
// converted.
func (v Value) Int() (int64, bool) {
	switch v.kind {
	case KindInteger:
		return v.i, true
	case KindLongInteger:
		if v.big.IsInt64() {
			return v.big.Int64(), true
		}
	}
	return 0, false
}

// BigInt returns a copy of the number of an Integer or LongInteger value.
func (v Value) BigInt() (*big.Int, bool) {
	switch v.kind {
	case KindInteger:
		return big.NewInt(v.i), true
	case KindLongInteger:
		return new(big.Int).Set(v.big), true
	}
	return nil, false
}

// Bool returns the boolean of a Boolean value.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.b, true
}

// Blob returns the decoded object of a Blob value.
func (v Value) Blob() (any, bool) {
	if v.kind != KindBlob {
		return nil, false
	}
	return v.blob, true
}

// Interface returns the value as a plain Go value: []byte, int64, *big.Int,
// bool, or the blob object.
func (v Value) Interface() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindLongInteger:
		return new(big.Int).Set(v.big)
	case KindBoolean:
		return v.b
	case KindBlob:
		return v.blob
	default:
		return v.raw
	}
}

// Equal reports whether two values have the same kind and content. Blob
// values are compared with ==, which panics on uncomparable objects.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindLongInteger:
		return v.big.Cmp(o.big) == 0
	case KindBoolean:
		return v.b == o.b
	case KindBlob:
		return v.blob == o.blob
	default:
		return string(v.raw) == string(o.raw)
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindRaw:
		return strconv.Quote(string(v.raw))
	case KindBlob:
		return fmt.Sprintf("blob(%v)", v.blob)
	default:
		return fmt.Sprint(v.Interface())
	}
}
