package mcclient

import (
	"bytes"

	"github.com/rs/zerolog"
)

// Item is one entry of a multi-key store. Order and duplicates are kept.
type Item struct {
	Key   string
	Value any
}

// storedItem is an Item ready for the wire. It owns its payload.
type storedItem struct {
	key     string
	wireKey string
	payload []byte
	flags   Flags
	ttl     uint32
}

// keyItem is a key ready for delete or arithmetic.
type keyItem struct {
	key     string
	wireKey string
}

func (s storedItem) originalKey() string { return s.key }
func (s storedItem) sentKey() string     { return s.wireKey }
func (k keyItem) originalKey() string    { return k.key }
func (k keyItem) sentKey() string        { return k.wireKey }

// prepareStore validates, encodes and compresses every item. It fails on the
// first bad item and returns nothing in that case.
func prepareStore(codec *Codec, items []Item, o options, log zerolog.Logger) ([]storedItem, error) {
	prepared := make([]storedItem, 0, len(items))

	for _, item := range items {
		wk, err := wireKey(o.prefix, item.Key)
		if err != nil {
			return nil, err
		}

		value := ValueOf(item.Value)
		payload, flags, err := codec.Encode(value)
		if err != nil {
			return nil, err
		}

		if compressed, ok := maybeCompress(payload, o.compressThreshold); ok {
			payload = compressed
			flags |= FlagCompressed
		} else {
			if shouldCompress(payload, o.compressThreshold) {
				log.Debug().Str("key", item.Key).Int("size", len(payload)).Msg("value stored uncompressed")
			}
			if value.Kind() == KindRaw {
				// raw payloads alias caller memory
				payload = bytes.Clone(payload)
			}
		}

		prepared = append(prepared, storedItem{
			key:     item.Key,
			wireKey: wk,
			payload: payload,
			flags:   flags,
			ttl:     o.ttl,
		})
	}

	return prepared, nil
}

// prepareKeys validates keys and applies the prefix.
func prepareKeys(keys []string, prefix string) ([]keyItem, error) {
	prepared := make([]keyItem, 0, len(keys))
	for _, key := range keys {
		wk, err := wireKey(prefix, key)
		if err != nil {
			return nil, err
		}
		prepared = append(prepared, keyItem{key: key, wireKey: wk})
	}
	return prepared, nil
}
