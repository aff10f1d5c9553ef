package mcclient

// initialInflateSize is the first output buffer size when decompressing. It
// doubles until the stream ends.
const initialInflateSize = 16 << 10

// shouldCompress reports whether a payload qualifies for a compression attempt.
func shouldCompress(payload []byte, threshold int) bool {
	return threshold > 0 && len(payload) >= threshold
}

// maybeCompress deflates payload when it reaches threshold. Any failure, or a
// result that is not strictly smaller, returns payload unchanged and false.
func maybeCompress(payload []byte, threshold int) ([]byte, bool) {
	if !compressionSupported || !shouldCompress(payload, threshold) {
		return payload, false
	}

	out, err := deflate(payload)
	if err != nil || len(out) >= len(payload) {
		return payload, false
	}
	return out, true
}

// decompress inflates a payload stored with FlagCompressed.
func decompress(payload []byte) ([]byte, error) {
	return inflate(payload)
}

// checkCompressThreshold rejects a threshold this build cannot honour.
func checkCompressThreshold(threshold int) error {
	if threshold > 0 && !compressionSupported {
		return &UnsupportedFeatureError{Feature: "compress threshold", Err: ErrCompressionUnsupported}
	}
	return nil
}
