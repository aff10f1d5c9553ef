package coarsetime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow_Advances(t *testing.T) {
	first := Now()
	assert.WithinDuration(t, time.Now(), first, 2*tick)

	assert.Eventually(t, func() bool {
		return Now().After(first)
	}, time.Second, tick/2)
}

func BenchmarkTimeNow(b *testing.B) {
	var t time.Time

	b.Run("time", func(b *testing.B) {
		for b.Loop() {
			t = time.Now()
		}
	})

	b.Run("coarsetime", func(b *testing.B) {
		for b.Loop() {
			t = Now()
		}
	})

	_ = t
}
