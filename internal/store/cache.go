package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pitchedge/pitchedge/internal/models"
)

// TeamCache fronts the slow-moving team context with redis. Entries expire
// faster as kickoff approaches so lineup-sensitive data stays fresh when it
// matters.
type TeamCache struct {
	rdb *redis.Client
}

// NewTeamCache connects to redis. A nil return means caching is disabled
// and callers fall through to the live fetch.
func NewTeamCache(addr string, db int) *TeamCache {
	if addr == "" {
		return nil
	}
	return &TeamCache{rdb: redis.NewClient(&redis.Options{Addr: addr, DB: db})}
}

// NewTeamCacheWithClient wraps an existing client; tests use redismock.
func NewTeamCacheWithClient(c *redis.Client) *TeamCache {
	return &TeamCache{rdb: c}
}

func (c *TeamCache) key(league, team string) string {
	return fmt.Sprintf("teamctx:%s:%s", league, team)
}

// TTLFor shortens entry lifetimes near kickoff.
func TTLFor(kickoff time.Time) time.Duration {
	until := time.Until(kickoff)
	switch {
	case until < 2*time.Hour:
		return 5 * time.Minute
	case until < 24*time.Hour:
		return 30 * time.Minute
	default:
		return 6 * time.Hour
	}
}

// Get returns the cached context, or ok=false on miss or redis trouble.
func (c *TeamCache) Get(ctx context.Context, league, team string) (models.TeamContext, bool) {
	if c == nil {
		return models.TeamContext{}, false
	}
	raw, err := c.rdb.Get(ctx, c.key(league, team)).Bytes()
	if err != nil {
		return models.TeamContext{}, false
	}
	var tc models.TeamContext
	if err := json.Unmarshal(raw, &tc); err != nil {
		return models.TeamContext{}, false
	}
	return tc, true
}

// Put stores the context with a kickoff-aware TTL. Failures are returned
// but callers treat the cache as best effort.
func (c *TeamCache) Put(ctx context.Context, league string, tc models.TeamContext, kickoff time.Time) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(tc)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(league, tc.Team), raw, TTLFor(kickoff)).Err()
}

// Ping verifies connectivity for the status surface.
func (c *TeamCache) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("team cache disabled")
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *TeamCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
