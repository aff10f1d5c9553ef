package mcclient

import (
	"context"

	"github.com/rs/zerolog"
)

// ItemOutcome is the result of one batch item.
type ItemOutcome struct {
	// Key is the caller's key, without prefix.
	Key    string
	Status Status
	// Value is the new counter value of a successful incr/decr.
	Value uint64
}

// Succeeded reports whether the item was applied.
func (o ItemOutcome) Succeeded() bool {
	return o.Status == StatusSuccess
}

// BatchResult holds the outcomes of a completed batch, in input order.
type BatchResult struct {
	Outcomes []ItemOutcome
}

// AllSucceeded reports whether every item was applied.
func (r BatchResult) AllSucceeded() bool {
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			return false
		}
	}
	return true
}

// FailedKeys returns the keys of the items that were not applied.
func (r BatchResult) FailedKeys() []string {
	var keys []string
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			keys = append(keys, o.Key)
		}
	}
	return keys
}

type batchItem interface {
	originalKey() string
	sentKey() string
}

// runBatch calls fn for each item in order. Items with an empty wire key get
// emptyStatus without a call. A recoverable status fails the item and moves
// on; a fatal one stops the batch with a *BatchError holding the outcomes so far.
func runBatch[T batchItem](ctx context.Context, op string, items []T, emptyStatus Status, log zerolog.Logger,
	fn func(ctx context.Context, item T) (uint64, Status, error),
) (BatchResult, error) {
	result := BatchResult{Outcomes: make([]ItemOutcome, 0, len(items))}

	for _, item := range items {
		outcome := ItemOutcome{Key: item.originalKey()}

		if item.sentKey() == "" {
			outcome.Status = emptyStatus
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		value, status, err := fn(ctx, item)
		if err != nil && Classify(status) != ClassFatal {
			status = StatusUnknown
		}
		outcome.Status = status
		if status == StatusSuccess {
			outcome.Value = value
		}
		result.Outcomes = append(result.Outcomes, outcome)

		switch Classify(status) {
		case ClassRecoverable:
			log.Debug().Str("op", op).Str("key", outcome.Key).Stringer("status", status).Msg("item failed")

		case ClassFatal:
			perr := &ProtocolError{Op: op, Key: outcome.Key, Status: status, Err: err}
			log.Warn().Err(perr).Int("attempted", len(result.Outcomes)).Int("total", len(items)).Msg("batch aborted")
			return result, &BatchError{Outcomes: result.Outcomes, Err: perr}
		}
	}

	return result, nil
}

func runStore(ctx context.Context, conn Conn, mode StoreMode, items []storedItem, log zerolog.Logger) (BatchResult, error) {
	return runBatch(ctx, mode.String(), items, StatusNotStored, log,
		func(ctx context.Context, item storedItem) (uint64, Status, error) {
			status, err := conn.Store(ctx, mode, item.wireKey, item.payload, uint32(item.flags), item.ttl)
			return 0, status, err
		})
}

func runDelete(ctx context.Context, conn Conn, items []keyItem, ttl uint32, log zerolog.Logger) (BatchResult, error) {
	return runBatch(ctx, "delete", items, StatusNotFound, log,
		func(ctx context.Context, item keyItem) (uint64, Status, error) {
			status, err := conn.Delete(ctx, item.wireKey, ttl)
			return 0, status, err
		})
}

func runArith(ctx context.Context, conn Conn, mode ArithMode, items []keyItem, delta uint64, log zerolog.Logger) (BatchResult, error) {
	return runBatch(ctx, mode.String(), items, StatusNotFound, log,
		func(ctx context.Context, item keyItem) (uint64, Status, error) {
			return conn.Arith(ctx, mode, item.wireKey, delta)
		})
}
