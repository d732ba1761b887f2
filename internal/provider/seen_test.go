package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeenCacheMarkAndHit(t *testing.T) {
	c := NewSeenCache(time.Hour)

	assert.False(t, c.IsSeen("Osimhen back in training", "brave"))
	c.MarkSeen("Osimhen back in training", "brave")
	assert.True(t, c.IsSeen("Osimhen back in training", "brave"))
	assert.True(t, c.IsSeen("osimhen BACK in training", "brave"),
		"fingerprint normalizes case")
}

func TestSeenCachePerSource(t *testing.T) {
	c := NewSeenCache(time.Hour)
	c.MarkSeen("same headline", "brave")
	assert.False(t, c.IsSeen("same headline", "serper"),
		"the dedup key includes the source")
}

func TestSeenCacheExpiry(t *testing.T) {
	c := NewSeenCache(10 * time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.MarkSeen("headline", "brave")
	assert.True(t, c.IsSeen("headline", "brave"))

	c.now = func() time.Time { return base.Add(11 * time.Minute) }
	assert.False(t, c.IsSeen("headline", "brave"))
	assert.Equal(t, 0, c.Len(), "expired entry dropped on read")
}
