package mcclient

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

// BlobCodec serializes values that are none of raw bytes, integer or boolean.
type BlobCodec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte) (any, error)
}

// GobBlobCodec encodes blobs with encoding/gob. Concrete types stored through
// it must be registered with gob.Register by the caller.
type GobBlobCodec struct{}

func (GobBlobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobBlobCodec) Unmarshal(data []byte) (any, error) {
	var v any
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// ProtoBlobCodec stores protobuf messages wrapped in google.protobuf.Any, so
// the message type travels with the payload. Unmarshal resolves the type from
// the global registry: the message package must be linked in.
type ProtoBlobCodec struct{}

func (ProtoBlobCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("%T is not a proto.Message", v)
	}
	wrapped, err := anypb.New(m)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(wrapped)
}

func (ProtoBlobCodec) Unmarshal(data []byte) (any, error) {
	var wrapped anypb.Any
	if err := proto.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.UnmarshalNew()
}
