//go:build !nozlib

package mcclient

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

const compressionSupported = true

var deflaters = sync.Pool{
	New: func() any {
		w, _ := zlib.NewWriterLevel(nil, zlib.BestSpeed)
		return w
	},
}

func deflate(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(payload) / 2)

	zw := deflaters.Get().(*zlib.Writer)
	defer deflaters.Put(zw)
	zw.Reset(&buf)

	if _, err := zw.Write(payload); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(payload []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, &CompressionError{Err: err}
	}
	defer zr.Close()

	out := make([]byte, initialInflateSize)
	n := 0
	for {
		if n == len(out) {
			grown := make([]byte, 2*len(out))
			copy(grown, out)
			out = grown
		}

		m, err := zr.Read(out[n:])
		n += m
		switch {
		case err == io.EOF:
			return out[:n], nil
		case err != nil:
			return nil, &CompressionError{Err: err}
		}
	}
}
