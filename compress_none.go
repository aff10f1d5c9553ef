//go:build nozlib

package mcclient

const compressionSupported = false

func deflate([]byte) ([]byte, error) {
	return nil, ErrCompressionUnsupported
}

func inflate([]byte) ([]byte, error) {
	return nil, &UnsupportedFeatureError{Feature: "compressed value", Err: ErrCompressionUnsupported}
}
