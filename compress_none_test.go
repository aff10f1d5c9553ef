//go:build nozlib

package mcclient

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoZlib_ThresholdRejected(t *testing.T) {
	_, err := NewWithConn(newFakeConn(), Config{CompressThreshold: 10})
	var unsupported *UnsupportedFeatureError
	require.ErrorAs(t, err, &unsupported)
	assert.ErrorIs(t, err, ErrCompressionUnsupported)

	client := newTestClient(t, newFakeConn())
	_, err = client.Set(context.Background(), "k", strings.Repeat("a", 100), WithCompressThreshold(10))
	require.ErrorAs(t, err, &unsupported)
}

func TestNoZlib_CompressedValueUnsupported(t *testing.T) {
	conn := newFakeConn()
	conn.put("k", []byte("x"), FlagCompressed)
	client := newTestClient(t, conn)

	_, _, err := client.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrCompressionUnsupported)
}

func TestNoZlib_StoresRaw(t *testing.T) {
	out, ok := maybeCompress([]byte(strings.Repeat("a", 100)), 0)
	assert.False(t, ok)
	assert.Len(t, out, 100)
}
