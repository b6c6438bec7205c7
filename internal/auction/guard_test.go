package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMaybeExtend(t *testing.T) {
	end := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := 2 * time.Minute
	extension := 2 * time.Minute

	t.Run("bid outside the window leaves the end time", func(t *testing.T) {
		got, extended := MaybeExtend(end, end.Add(-3*time.Minute), window, extension)
		assert.False(t, extended)
		assert.Equal(t, end, got)
	})

	t.Run("bid exactly at the window boundary extends", func(t *testing.T) {
		got, extended := MaybeExtend(end, end.Add(-window), window, extension)
		assert.True(t, extended)
		assert.Equal(t, end.Add(extension), got)
	})

	t.Run("bid one nanosecond before the boundary does not extend", func(t *testing.T) {
		_, extended := MaybeExtend(end, end.Add(-window-time.Nanosecond), window, extension)
		assert.False(t, extended)
	})

	t.Run("extension is additive from the scheduled end", func(t *testing.T) {
		bidTime := end.Add(-10 * time.Second)
		got, extended := MaybeExtend(end, bidTime, window, extension)
		assert.True(t, extended)
		assert.Equal(t, end.Add(extension), got, "extends from end time, not from bid time")
	})

	t.Run("disabled when window or extension is zero", func(t *testing.T) {
		_, extended := MaybeExtend(end, end.Add(-time.Second), 0, extension)
		assert.False(t, extended)
		_, extended = MaybeExtend(end, end.Add(-time.Second), window, 0)
		assert.False(t, extended)
	})
}

func TestMaybeExtend_RepeatedSnipes(t *testing.T) {
	// Each accepted bid inside the window pushes the end out again; there is
	// no cap on repeats.
	end := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	window := 2 * time.Minute
	extension := 2 * time.Minute

	bidTime := end.Add(-30 * time.Second)
	for i := 0; i < 5; i++ {
		next, extended := MaybeExtend(end, bidTime, window, extension)
		assert.True(t, extended, "snipe %d should extend", i)
		assert.Equal(t, end.Add(extension), next)
		end = next
		// The next snipe lands just inside the new window.
		bidTime = end.Add(-30 * time.Second)
	}
}
