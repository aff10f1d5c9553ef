package mcclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/edwingeng/deque/v2"
)

// fetchMulti reads keys with one multi-get. The stream is drained completely
// before anything is decoded, so a bad value never leaves the connection
// mid-response. Missing keys are absent from the result.
func fetchMulti(ctx context.Context, conn Conn, codec *Codec, keys []string, prefix string) (map[string]Value, error) {
	if len(keys) == 0 {
		return map[string]Value{}, nil
	}

	wireKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		wk, err := wireKey(prefix, key)
		if err != nil {
			return nil, err
		}
		if wk == "" {
			continue
		}
		wireKeys = append(wireKeys, wk)
	}
	if len(wireKeys) == 0 {
		return map[string]Value{}, nil
	}

	status, err := conn.MGetStart(ctx, wireKeys)
	if status != StatusSuccess || err != nil {
		return nil, &ProtocolError{Op: "get_multi", Status: status, Err: err}
	}

	queue := deque.NewDeque[Fetched]()
	for {
		item, status, err := conn.MGetNext(ctx)
		if err == nil && (status == StatusEnd || (status == StatusSuccess && item.Key == "")) {
			break
		}
		if err == nil && status.IsKeyProblem() {
			continue
		}
		if status != StatusSuccess || err != nil {
			return nil, &ProtocolError{Op: "get_multi", Key: item.Key, Status: status, Err: err}
		}
		queue.PushFront(item)
	}

	results := make(map[string]Value, queue.Len())
	for queue.Len() > 0 {
		item := queue.PopBack()

		key := strings.TrimPrefix(item.Key, prefix)

		value, err := codec.Decode(item.Payload, Flags(item.Flags))
		if err != nil {
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				decodeErr.Key = key
				return nil, decodeErr
			}
			return nil, fmt.Errorf("mcclient: get_multi %q: %w", key, err)
		}
		results[key] = value
	}

	return results, nil
}
