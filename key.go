package mcclient

import (
	"strconv"

	"github.com/pior/mcclient/meta"
)

// MaxKeyLength is the longest key the server accepts, prefix included.
const MaxKeyLength = meta.MaxKeyLength

// validateKey enforces the length bound only. Empty keys pass and are
// resolved downstream without a wire call. Byte content is not checked here;
// keys with whitespace come back from the connection as StatusBadKeyProvided.
func validateKey(key string) error {
	if len(key) > MaxKeyLength {
		return &KeyError{Key: key, Reason: "longer than " + strconv.Itoa(MaxKeyLength) + " bytes"}
	}
	return nil
}

// wireKey validates and returns the key as sent to the server. The bound
// applies to the prefixed key.
func wireKey(prefix, key string) (string, error) {
	wk := prefix + key
	if err := validateKey(wk); err != nil {
		return "", err
	}
	return wk, nil
}
