package mcclient

import (
	"context"
	"encoding/gob"
	"math"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testProfile struct {
	Name  string
	Score int
}

func init() {
	gob.Register(testProfile{})
}

func newTestClient(t *testing.T, conn Conn, config ...Config) *Client {
	t.Helper()

	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}
	client, err := NewWithConn(conn, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestClient_RoundTrip(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 100)

	tests := []struct {
		name  string
		value any
		want  Value
	}{
		{"bytes", []byte("hello"), Raw([]byte("hello"))},
		{"string", "world", String("world")},
		{"empty bytes", []byte{}, Raw([]byte{})},
		{"int", 42, Int(42)},
		{"negative int", int64(-7), Int(-7)},
		{"min int64", int64(math.MinInt64), Int(math.MinInt64)},
		{"max int64", int64(math.MaxInt64), Int(math.MaxInt64)},
		{"uint8", uint8(200), Int(200)},
		{"max uint64", uint64(math.MaxUint64), LongInt(new(big.Int).SetUint64(math.MaxUint64))},
		{"big int", huge, LongInt(huge)},
		{"true", true, Bool(true)},
		{"false", false, Bool(false)},
		{"blob", testProfile{Name: "ada", Score: 3}, Blob(testProfile{Name: "ada", Score: 3})},
		{"explicit value", Int(9), Int(9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, newFakeConn())
			ctx := context.Background()

			ok, err := client.Set(ctx, "key", tt.value)
			require.NoError(t, err)
			require.True(t, ok)

			got, found, err := client.Get(ctx, "key")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, tt.want.Kind(), got.Kind())
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestClient_SetIsIdempotent(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)
	ctx := context.Background()

	for range 5 {
		ok, err := client.Set(ctx, "key", "value", WithTTL(time.Minute))
		require.NoError(t, err)
		assert.True(t, ok)
	}

	got, found, err := client.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "value", string(got.Bytes()))
	assert.Equal(t, uint32(60), conn.items["key"].ttl)

	stats := client.Stats()
	assert.Equal(t, uint64(5), stats.Stores)
	assert.Zero(t, stats.StoreFailures)
	assert.Zero(t, stats.FatalErrors)
}

func TestClient_StoredFlags(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)
	ctx := context.Background()

	_, err := client.SetMulti(ctx, []Item{
		{Key: "raw", Value: "x"},
		{Key: "int", Value: 1},
		{Key: "long", Value: uint64(math.MaxUint64)},
		{Key: "blob", Value: testProfile{}},
		{Key: "bool", Value: true},
	})
	require.NoError(t, err)

	assert.Equal(t, uint32(0), conn.items["raw"].flags)
	assert.Equal(t, uint32(1), conn.items["int"].flags)
	assert.Equal(t, uint32(2), conn.items["long"].flags)
	assert.Equal(t, uint32(4), conn.items["blob"].flags)
	assert.Equal(t, uint32(8), conn.items["bool"].flags)

	assert.Equal(t, "1", string(conn.items["int"].payload))
	assert.Equal(t, "18446744073709551615", string(conn.items["long"].payload))
	assert.Equal(t, "1", string(conn.items["bool"].payload))
}

func TestClient_RawPayloadIsCopied(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)

	buf := []byte("abc")
	_, err := client.Set(context.Background(), "k", buf)
	require.NoError(t, err)

	buf[0] = 'X'
	assert.Equal(t, "abc", string(conn.items["k"].payload))
}

func TestClient_TTL(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)
	ctx := context.Background()

	_, err := client.Set(ctx, "a", "v", WithTTL(90*time.Second))
	require.NoError(t, err)
	_, err = client.Set(ctx, "b", "v", WithTTL(1500*time.Millisecond))
	require.NoError(t, err)
	_, err = client.Set(ctx, "c", "v")
	require.NoError(t, err)

	assert.Equal(t, uint32(90), conn.items["a"].ttl)
	assert.Equal(t, uint32(2), conn.items["b"].ttl)
	assert.Equal(t, uint32(0), conn.items["c"].ttl)
}

func TestClient_StoreModes(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)
	ctx := context.Background()

	ok, err := client.Replace(ctx, "k", "v1")
	require.NoError(t, err)
	assert.False(t, ok, "replace on missing key")

	ok, err = client.Add(ctx, "k", "v1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Add(ctx, "k", "v2")
	require.NoError(t, err)
	assert.False(t, ok, "add on existing key")

	ok, err = client.Replace(ctx, "k", "v2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Append(ctx, "k", "-end")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Prepend(ctx, "k", "start-")
	require.NoError(t, err)
	assert.True(t, ok)

	v, found, err := client.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "start-v2-end", string(v.Bytes()))

	ok, err = client.Append(ctx, "missing", "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_KeyLengthBound(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)
	ctx := context.Background()

	ok, err := client.Set(ctx, strings.Repeat("k", MaxKeyLength), "v")
	require.NoError(t, err)
	assert.True(t, ok)

	conn.calls = nil
	_, err = client.Set(ctx, strings.Repeat("k", MaxKeyLength+1), "v")
	var keyErr *KeyError
	require.ErrorAs(t, err, &keyErr)
	assert.Empty(t, conn.calls)

	_, err = client.SetMulti(ctx, []Item{
		{Key: "fine", Value: 1},
		{Key: strings.Repeat("k", MaxKeyLength+1), Value: 2},
	})
	require.ErrorAs(t, err, &keyErr)
	assert.Empty(t, conn.calls, "nothing is sent when one key is too long")

	_, _, err = client.Get(ctx, strings.Repeat("k", MaxKeyLength+1))
	require.ErrorAs(t, err, &keyErr)

	_, err = client.Delete(ctx, strings.Repeat("k", MaxKeyLength+1))
	require.ErrorAs(t, err, &keyErr)

	_, _, err = client.Incr(ctx, strings.Repeat("k", MaxKeyLength+1), 1)
	require.ErrorAs(t, err, &keyErr)
	assert.Empty(t, conn.calls)
}

func TestClient_PrefixCountsTowardsKeyLength(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)

	_, err := client.Set(context.Background(), strings.Repeat("k", MaxKeyLength-1), "v", WithKeyPrefix("ab"))
	var keyErr *KeyError
	require.ErrorAs(t, err, &keyErr)
	assert.Empty(t, conn.calls)
}

func TestClient_EmptyKey(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)
	ctx := context.Background()

	ok, err := client.Set(ctx, "", "v")
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err := client.Get(ctx, "")
	require.NoError(t, err)
	assert.False(t, found)

	ok, err = client.Delete(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = client.Incr(ctx, "", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Empty(t, conn.calls)
}

func TestClient_EmptyKeyWithPrefix(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)
	ctx := context.Background()

	ok, err := client.Set(ctx, "", "v", WithKeyPrefix("app:"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, conn.items, "app:")

	v, found, err := client.Get(ctx, "", WithKeyPrefix("app:"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v", string(v.Bytes()))
}

func TestClient_KeyPrefix(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)
	ctx := context.Background()
	prefix := WithKeyPrefix("app:")

	failed, err := client.SetMulti(ctx, []Item{{Key: "a", Value: 1}, {Key: "b", Value: 2}}, prefix)
	require.NoError(t, err)
	assert.Empty(t, failed)

	assert.Contains(t, conn.items, "app:a")
	assert.Contains(t, conn.items, "app:b")
	assert.NotContains(t, conn.items, "a")

	values, err := client.GetMulti(ctx, []string{"a", "b", "c"}, prefix)
	require.NoError(t, err)
	assert.Len(t, values, 2)
	assert.Contains(t, values, "a")
	assert.Contains(t, values, "b")

	_, found, err := client.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, found, "unprefixed key is a different item")

	n, ok, err := client.Incr(ctx, "a", 5, prefix)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(6), n)

	deleted, err := client.DeleteMulti(ctx, []string{"a", "b"}, prefix)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, conn.items)
}

func TestClient_SetMultiPartialFailure(t *testing.T) {
	conn := newFakeConn()
	conn.fail["b"] = StatusNotStored
	conn.fail["d"] = StatusServerOutOfMemory
	client := newTestClient(t, conn)

	failed, err := client.SetMulti(context.Background(), []Item{
		{Key: "a", Value: 1},
		{Key: "b", Value: 2},
		{Key: "c", Value: 3},
		{Key: "d", Value: 4},
		{Key: "bad key", Value: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d", "bad key"}, failed)

	assert.Contains(t, conn.items, "a")
	assert.Contains(t, conn.items, "c")
	assert.Equal(t, []string{"set a", "set b", "set c", "set d", "set bad key"}, conn.calls)

	stats := client.Stats()
	assert.Equal(t, uint64(5), stats.Stores)
	assert.Equal(t, uint64(3), stats.StoreFailures)
	assert.Equal(t, uint64(0), stats.FatalErrors)
}

func TestClient_SetMultiFatalAbort(t *testing.T) {
	conn := newFakeConn()
	conn.fail["b"] = StatusConnectionFailure
	client := newTestClient(t, conn)

	failed, err := client.SetMulti(context.Background(), []Item{
		{Key: "a", Value: 1},
		{Key: "b", Value: 2},
		{Key: "c", Value: 3},
	})
	require.Error(t, err)
	assert.Nil(t, failed)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	require.Len(t, batchErr.Outcomes, 2)
	assert.Equal(t, ItemOutcome{Key: "a", Status: StatusSuccess}, batchErr.Outcomes[0])
	assert.Equal(t, ItemOutcome{Key: "b", Status: StatusConnectionFailure}, batchErr.Outcomes[1])
	assert.Equal(t, []string{"a"}, batchErr.Succeeded())

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "b", protoErr.Key)
	assert.Equal(t, StatusConnectionFailure, protoErr.Status)
	assert.ErrorIs(t, err, errInjected)

	assert.NotContains(t, conn.calls, "set c", "items after the fatal one are never sent")
	assert.Equal(t, uint64(1), client.Stats().FatalErrors)
}

func TestClient_StoreReturnsOutcomes(t *testing.T) {
	conn := newFakeConn()
	conn.fail["b"] = StatusDataExists
	client := newTestClient(t, conn)

	result, err := client.Store(context.Background(), ModeSet, []Item{
		{Key: "a", Value: 1},
		{Key: "b", Value: 2},
		{Key: "", Value: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, []ItemOutcome{
		{Key: "a", Status: StatusSuccess},
		{Key: "b", Status: StatusDataExists},
		{Key: "", Status: StatusNotStored},
	}, result.Outcomes)
	assert.False(t, result.AllSucceeded())
}

func TestClient_SetMultiDuplicatesInOrder(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)
	ctx := context.Background()

	_, err := client.SetMulti(ctx, []Item{{Key: "k", Value: 1}, {Key: "k", Value: 2}})
	require.NoError(t, err)
	assert.Equal(t, []string{"set k", "set k"}, conn.calls)

	v, _, err := client.Get(ctx, "k")
	require.NoError(t, err)
	n, _ := v.Int()
	assert.Equal(t, int64(2), n)
}

func TestClient_AddMulti(t *testing.T) {
	conn := newFakeConn()
	conn.put("a", []byte("old"), FlagNone)
	client := newTestClient(t, conn)

	failed, err := client.AddMulti(context.Background(), []Item{{Key: "a", Value: "new"}, {Key: "b", Value: "new"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, failed)
	assert.Equal(t, "old", string(conn.items["a"].payload))
	assert.Equal(t, "new", string(conn.items["b"].payload))
}

func TestClient_GetMulti(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)
	ctx := context.Background()

	_, err := client.SetMulti(ctx, []Item{{Key: "a", Value: "1"}, {Key: "b", Value: 2}, {Key: "c", Value: true}})
	require.NoError(t, err)

	values, err := client.GetMulti(ctx, []string{"a", "b", "c", "missing"})
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, KindRaw, values["a"].Kind())
	assert.Equal(t, KindInteger, values["b"].Kind())
	assert.Equal(t, KindBoolean, values["c"].Kind())
	assert.NotContains(t, values, "missing")

	stats := client.Stats()
	assert.Equal(t, uint64(4), stats.Gets)
	assert.Equal(t, uint64(3), stats.GetHits)
}

func TestClient_GetMultiNoKeys(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)

	values, err := client.GetMulti(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, values)
	assert.Empty(t, values)
	assert.Empty(t, conn.calls)
}

func TestClient_GetMultiSkipsBadKeys(t *testing.T) {
	conn := newFakeConn()
	conn.put("a", []byte("1"), FlagNone)
	conn.put("b", []byte("2"), FlagNone)
	client := newTestClient(t, conn)

	values, err := client.GetMulti(context.Background(), []string{"a", "bad key", "b"})
	require.NoError(t, err)
	assert.Len(t, values, 2)
	assert.Contains(t, values, "a")
	assert.Contains(t, values, "b")
}

func TestClient_GetMultiFatal(t *testing.T) {
	conn := newFakeConn()
	conn.put("a", []byte("1"), FlagNone)
	conn.fail["b"] = StatusTimeout
	client := newTestClient(t, conn)

	values, err := client.GetMulti(context.Background(), []string{"a", "b"})
	assert.Nil(t, values)

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, StatusTimeout, protoErr.Status)
	assert.Equal(t, uint64(1), client.Stats().FatalErrors)
}

func TestClient_GetDecodeError(t *testing.T) {
	conn := newFakeConn()
	conn.put("num", []byte("abc"), FlagInteger)
	client := newTestClient(t, conn)

	_, _, err := client.Get(context.Background(), "num")
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "num", decodeErr.Key)
}

func TestClient_GetUnknownFlags(t *testing.T) {
	conn := newFakeConn()
	conn.put("k", []byte("1"), FlagInteger|FlagBool)
	client := newTestClient(t, conn)

	_, _, err := client.Get(context.Background(), "k")
	var flagErr *FlagError
	require.ErrorAs(t, err, &flagErr)
}

func TestClient_Delete(t *testing.T) {
	conn := newFakeConn()
	conn.put("a", []byte("1"), FlagNone)
	conn.put("b", []byte("1"), FlagNone)
	client := newTestClient(t, conn)
	ctx := context.Background()

	ok, err := client.Delete(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Delete(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = client.DeleteMulti(ctx, []string{"b", "missing"})
	require.NoError(t, err)
	assert.False(t, ok, "not all keys existed")
	assert.NotContains(t, conn.items, "b")

	_, err = client.Delete(ctx, "x", WithTTL(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, uint32(30), conn.deleteTTL[len(conn.deleteTTL)-1])

	assert.Equal(t, uint64(5), client.Stats().Deletes)
}

func TestClient_DeleteFatal(t *testing.T) {
	conn := newFakeConn()
	conn.fail["a"] = StatusServerError
	client := newTestClient(t, conn)

	_, err := client.DeleteMulti(context.Background(), []string{"a", "b"})
	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Len(t, batchErr.Outcomes, 1)
	assert.Equal(t, []string{"delete a"}, conn.calls)
}

func TestClient_IncrDecr(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)
	ctx := context.Background()

	_, ok, err := client.Incr(ctx, "counter", 1)
	require.NoError(t, err)
	assert.False(t, ok, "counters are not created")
	assert.NotContains(t, conn.items, "counter")

	_, err = client.Set(ctx, "counter", 10)
	require.NoError(t, err)

	n, ok, err := client.Incr(ctx, "counter", 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(15), n)

	n, ok, err = client.Decr(ctx, "counter", 20)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), n)

	v, _, err := client.Get(ctx, "counter")
	require.NoError(t, err)
	i, isInt := v.Int()
	assert.True(t, isInt, "counter keeps its integer tag")
	assert.Equal(t, int64(0), i)
}

func TestClient_IncrMulti(t *testing.T) {
	conn := newFakeConn()
	conn.put("a", []byte("1"), FlagInteger)
	conn.put("b", []byte("10"), FlagInteger)
	client := newTestClient(t, conn)
	ctx := context.Background()

	values, err := client.IncrMulti(ctx, []string{"a", "b", "missing"}, 2)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"a": 3, "b": 12}, values)

	values, err = client.DecrMulti(ctx, []string{"a", "b"}, 5)
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"a": 0, "b": 7}, values)

	assert.Equal(t, uint64(5), client.Stats().Arith)
}

func TestClient_IncrNonNumeric(t *testing.T) {
	conn := newFakeConn()
	conn.put("text", []byte("hello"), FlagNone)
	client := newTestClient(t, conn)

	_, _, err := client.Incr(context.Background(), "text", 1)
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, StatusClientError, protoErr.Status)
}

func TestClient_FlushAll(t *testing.T) {
	conn := newFakeConn()
	conn.put("a", []byte("1"), FlagNone)
	client := newTestClient(t, conn)
	ctx := context.Background()

	require.NoError(t, client.FlushAll(ctx, 0))
	require.NoError(t, client.FlushAll(ctx, 10*time.Second))
	require.NoError(t, client.FlushAll(ctx, -5*time.Second))

	assert.Equal(t, []uint32{0, 10, 0}, conn.flushDelay)
	assert.Empty(t, conn.items)
}

func TestClient_DisconnectAll(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)

	require.NoError(t, client.DisconnectAll())
	assert.Equal(t, 1, conn.quits)
}

func TestClient_Close(t *testing.T) {
	conn := newFakeConn()
	client, err := NewWithConn(conn, Config{})
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	assert.Equal(t, 1, conn.quits)

	ctx := context.Background()
	_, err = client.Set(ctx, "k", "v")
	assert.ErrorIs(t, err, ErrClientClosed)
	_, _, err = client.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClientClosed)
	_, _, err = client.Incr(ctx, "k", 1)
	assert.ErrorIs(t, err, ErrClientClosed)
	_, err = client.Delete(ctx, "k")
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.ErrorIs(t, client.FlushAll(ctx, 0), ErrClientClosed)
	_, err = client.Clone()
	assert.ErrorIs(t, err, ErrClientClosed)
}

func TestClient_Clone(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)
	ctx := context.Background()

	_, err := client.Set(ctx, "k", "v")
	require.NoError(t, err)

	clone, err := client.Clone()
	require.NoError(t, err)
	defer clone.Close()

	v, found, err := clone.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v", string(v.Bytes()))

	assert.Equal(t, uint64(1), clone.Stats().Gets)
	assert.Equal(t, uint64(0), client.Stats().Gets, "stats are per client")
}

func TestClient_PoolStatsWithoutCluster(t *testing.T) {
	client := newTestClient(t, newFakeConn())
	assert.Nil(t, client.PoolStats())
}

func TestClient_BlobEncodeError(t *testing.T) {
	conn := newFakeConn()
	client := newTestClient(t, conn)

	_, err := client.Set(context.Background(), "k", make(chan int))
	var encodeErr *EncodeError
	require.ErrorAs(t, err, &encodeErr)
	assert.Equal(t, KindBlob, encodeErr.Kind)
	assert.Empty(t, conn.calls)
}

func TestClient_ConcurrentUse(t *testing.T) {
	client := newTestClient(t, newFakeConn())
	ctx := context.Background()

	done := make(chan error)
	for i := range 8 {
		go func() {
			_, err := client.Set(ctx, "k", i)
			if err == nil {
				_, _, err = client.Get(ctx, "k")
			}
			done <- err
		}()
	}
	for range 8 {
		assert.NoError(t, <-done)
	}
}

func TestNew_NoServers(t *testing.T) {
	_, err := New(NewStaticServers(), Config{})
	assert.ErrorIs(t, err, ErrNoServers)
}
