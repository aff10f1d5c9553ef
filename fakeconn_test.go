package mcclient

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

var errInjected = errors.New("injected failure")

type fakeItem struct {
	payload []byte
	flags   uint32
	ttl     uint32
}

// fakeConn is an in-memory Conn with memcached semantics. Keys listed in fail
// answer with the given status instead; fatal ones come with errInjected.
type fakeConn struct {
	items map[string]fakeItem
	fail  map[string]Status

	calls      []string
	mgetKeys   [][]string
	flushDelay []uint32
	deleteTTL  []uint32
	quits      int

	queue []fakeFetch
}

type fakeFetch struct {
	item   Fetched
	status Status
}

var _ Conn = (*fakeConn)(nil)

func newFakeConn() *fakeConn {
	return &fakeConn{
		items: make(map[string]fakeItem),
		fail:  make(map[string]Status),
	}
}

func (f *fakeConn) injected(key string) (Status, bool) {
	status, ok := f.fail[key]
	return status, ok
}

func injectedErr(status Status) error {
	if Classify(status) == ClassFatal {
		return errInjected
	}
	return nil
}

func badKey(key string) bool {
	return strings.ContainsAny(key, " \t\r\n")
}

func (f *fakeConn) Store(_ context.Context, mode StoreMode, key string, payload []byte, flags uint32, ttl uint32) (Status, error) {
	f.calls = append(f.calls, mode.String()+" "+key)

	if status, ok := f.injected(key); ok {
		return status, injectedErr(status)
	}
	if badKey(key) {
		return StatusBadKeyProvided, nil
	}

	existing, exists := f.items[key]
	switch mode {
	case ModeAdd:
		if exists {
			return StatusNotStored, nil
		}
	case ModeReplace:
		if !exists {
			return StatusNotStored, nil
		}
	case ModeAppend, ModePrepend:
		if !exists {
			return StatusNotStored, nil
		}
		combined := append([]byte{}, existing.payload...)
		if mode == ModeAppend {
			combined = append(combined, payload...)
		} else {
			combined = append(append([]byte{}, payload...), existing.payload...)
		}
		f.items[key] = fakeItem{payload: combined, flags: existing.flags, ttl: existing.ttl}
		return StatusSuccess, nil
	}

	f.items[key] = fakeItem{payload: append([]byte{}, payload...), flags: flags, ttl: ttl}
	return StatusSuccess, nil
}

func (f *fakeConn) Arith(_ context.Context, mode ArithMode, key string, delta uint64) (uint64, Status, error) {
	f.calls = append(f.calls, mode.String()+" "+key)

	if status, ok := f.injected(key); ok {
		return 0, status, injectedErr(status)
	}

	item, ok := f.items[key]
	if !ok {
		return 0, StatusNotFound, nil
	}

	n, err := strconv.ParseUint(strings.TrimSpace(string(item.payload)), 10, 64)
	if err != nil {
		return 0, StatusClientError, errors.New("cannot increment or decrement non-numeric value")
	}

	if mode == ModeIncrement {
		n += delta
	} else if delta > n {
		n = 0
	} else {
		n -= delta
	}

	item.payload = strconv.AppendUint(nil, n, 10)
	f.items[key] = item
	return n, StatusSuccess, nil
}

func (f *fakeConn) Delete(_ context.Context, key string, ttl uint32) (Status, error) {
	f.calls = append(f.calls, "delete "+key)
	f.deleteTTL = append(f.deleteTTL, ttl)

	if status, ok := f.injected(key); ok {
		return status, injectedErr(status)
	}
	if _, ok := f.items[key]; !ok {
		return StatusNotFound, nil
	}
	delete(f.items, key)
	return StatusSuccess, nil
}

func (f *fakeConn) MGetStart(_ context.Context, keys []string) (Status, error) {
	f.calls = append(f.calls, "mget "+strings.Join(keys, ","))
	f.mgetKeys = append(f.mgetKeys, keys)
	f.queue = nil

	for _, key := range keys {
		if status, ok := f.injected(key); ok {
			f.queue = append(f.queue, fakeFetch{item: Fetched{Key: key}, status: status})
			continue
		}
		if badKey(key) {
			f.queue = append(f.queue, fakeFetch{item: Fetched{Key: key}, status: StatusBadKeyProvided})
			continue
		}
		if item, ok := f.items[key]; ok {
			f.queue = append(f.queue, fakeFetch{
				item:   Fetched{Key: key, Payload: item.payload, Flags: item.flags},
				status: StatusSuccess,
			})
		}
	}
	return StatusSuccess, nil
}

func (f *fakeConn) MGetNext(_ context.Context) (Fetched, Status, error) {
	if len(f.queue) == 0 {
		return Fetched{}, StatusEnd, nil
	}

	next := f.queue[0]
	f.queue = f.queue[1:]
	if Classify(next.status) == ClassFatal {
		f.queue = nil
		return next.item, next.status, errInjected
	}
	return next.item, next.status, nil
}

func (f *fakeConn) Flush(_ context.Context, delay uint32) (Status, error) {
	f.calls = append(f.calls, "flush")
	f.flushDelay = append(f.flushDelay, delay)
	clear(f.items)
	return StatusSuccess, nil
}

func (f *fakeConn) Quit() error {
	f.quits++
	return nil
}

func (f *fakeConn) Clone() (Conn, error) {
	clone := newFakeConn()
	clone.items = f.items
	return clone, nil
}

// put stores a raw item directly, bypassing the client.
func (f *fakeConn) put(key string, payload []byte, flags Flags) {
	f.items[key] = fakeItem{payload: payload, flags: uint32(flags)}
}
