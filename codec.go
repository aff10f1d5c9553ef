package mcclient

import (
	"errors"
	"math/big"
	"strconv"
	"strings"
)

// Codec turns a Value into a payload and its Flags, and back.
type Codec struct {
	blob BlobCodec
}

// NewCodec returns a Codec using blob for Blob values. A nil blob uses
// GobBlobCodec.
func NewCodec(blob BlobCodec) *Codec {
	if blob == nil {
		blob = GobBlobCodec{}
	}
	return &Codec{blob: blob}
}

// Encode returns the payload and type tag of v. It never compresses.
func (c *Codec) Encode(v Value) ([]byte, Flags, error) {
	switch v.kind {
	case KindRaw:
		return v.raw, FlagNone, nil
	case KindInteger:
		return strconv.AppendInt(nil, v.i, 10), FlagInteger, nil
	case KindLongInteger:
		return v.big.Append(nil, 10), FlagLong, nil
	case KindBoolean:
		if v.b {
			return []byte("1"), FlagBool, nil
		}
		return []byte("0"), FlagBool, nil
	case KindBlob:
		data, err := c.blob.Marshal(v.blob)
		if err != nil {
			return nil, 0, &EncodeError{Kind: KindBlob, Err: err}
		}
		return data, FlagBlob, nil
	default:
		return nil, 0, &EncodeError{Kind: v.kind, Err: errors.New("unknown value kind")}
	}
}

// Decode rebuilds the Value stored as payload with flags, decompressing first
// when the compression bit is set.
func (c *Codec) Decode(payload []byte, flags Flags) (Value, error) {
	if flags.Compressed() {
		var err error
		payload, err = decompress(payload)
		if err != nil {
			return Value{}, err
		}
	}

	switch flags.Type() {
	case FlagNone:
		return Raw(payload), nil

	case FlagInteger:
		text := numericText(payload)
		i, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			return Int(i), nil
		}
		// Counters are unsigned on the server and can outgrow int64.
		if errors.Is(err, strconv.ErrRange) {
			if n, ok := new(big.Int).SetString(text, 10); ok {
				return Value{kind: KindLongInteger, big: n}, nil
			}
		}
		return Value{}, &DecodeError{Flags: flags, Err: err}

	case FlagLong:
		n, ok := new(big.Int).SetString(numericText(payload), 10)
		if !ok {
			return Value{}, &DecodeError{Flags: flags, Err: errors.New("invalid long integer " + strconv.Quote(string(payload)))}
		}
		return Value{kind: KindLongInteger, big: n}, nil

	case FlagBool:
		i, err := strconv.ParseInt(numericText(payload), 10, 64)
		if err != nil {
			return Value{}, &DecodeError{Flags: flags, Err: err}
		}
		return Bool(i != 0), nil

	case FlagBlob:
		v, err := c.blob.Unmarshal(payload)
		if err != nil {
			return Value{}, &DecodeError{Flags: flags, Err: err}
		}
		return Blob(v), nil

	default:
		return Value{}, &FlagError{Flags: flags}
	}
}

// numericText trims the padding the server leaves after an in-place
// incr/decr that shortened the number.
func numericText(payload []byte) string {
	return strings.TrimSpace(string(payload))
}
