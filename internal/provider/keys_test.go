package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRotatorWrapsPastExhausted(t *testing.T) {
	r := NewKeyRotator([]string{"a", "b", "c"})

	k, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, "a", k)

	r.MarkExhausted()
	k, ok = r.Current()
	require.True(t, ok)
	assert.Equal(t, "b", k)

	r.MarkExhausted()
	k, ok = r.Current()
	require.True(t, ok)
	assert.Equal(t, "c", k)

	// Wrapping skips the dead keys.
	require.True(t, r.RotateToNext())
	k, _ = r.Current()
	assert.Equal(t, "c", k, "only live key remains active")
}

func TestKeyRotatorNeverReturnsExhausted(t *testing.T) {
	r := NewKeyRotator([]string{"a", "b"})
	r.MarkExhausted()
	r.MarkExhausted()

	_, ok := r.Current()
	assert.False(t, ok, "fully spent pool must report no key")
	assert.False(t, r.RotateToNext(), "same month: no reset allowed")
}

func TestKeyRotatorMonthlyReset(t *testing.T) {
	r := NewKeyRotator([]string{"a", "b"})
	r.MarkExhausted()
	r.MarkExhausted()

	clock := time.Now().UTC().AddDate(0, 1, 0)
	r.SetClock(func() time.Time { return clock })

	require.True(t, r.RotateToNext(), "month boundary crossed: pool resets")
	k, ok := r.Current()
	require.True(t, ok)
	assert.Equal(t, "a", k)

	// The reset is stamped; exhausting again within the new month stays dead.
	r.MarkExhausted()
	r.MarkExhausted()
	assert.False(t, r.RotateToNext())
}

func TestKeyRotatorEmptyPool(t *testing.T) {
	r := NewKeyRotator(nil)
	_, ok := r.Current()
	assert.False(t, ok)
	assert.False(t, r.RotateToNext())
	r.MarkExhausted() // must not panic
	r.RecordCall()
}

func TestKeyRotatorStats(t *testing.T) {
	r := NewKeyRotator([]string{"a", "b"})
	r.RecordCall()
	r.RecordCall()
	r.MarkExhausted()
	r.RecordCall()

	s := r.Stats()
	assert.Equal(t, 2, s.PoolSize)
	assert.Equal(t, 1, s.Exhausted)
	assert.Equal(t, []int64{2, 1}, s.Usage)
}
