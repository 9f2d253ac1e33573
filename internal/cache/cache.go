package cache

import (
	"context"
	"sync"
	"time"

	"miren.dev/jira-release/internal/jiraapi"
)

// DefaultTTL covers a whole release run.
const DefaultTTL = 30 * time.Minute

type entry struct {
	issue     *jiraapi.Issue
	fetchedAt time.Time
}

// Cache remembers issue lookups, misses included, so a key mentioned by many
// commits is fetched from Jira once. Errors are not cached.
type Cache struct {
	fetcher jiraapi.IssueFetcher
	ttl     time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
}

func New(fetcher jiraapi.IssueFetcher, ttl time.Duration) *Cache {
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// FetchIssue returns the cached issue for key, fetching it when absent or
// older than the TTL.
func (c *Cache) FetchIssue(ctx context.Context, key string) (*jiraapi.Issue, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Sub(e.fetchedAt) < c.ttl {
		return e.issue, nil
	}

	issue, err := c.fetcher.FetchIssue(ctx, key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = &entry{issue: issue, fetchedAt: c.now()}
	c.mu.Unlock()

	return issue, nil
}

// Len returns the number of cached entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
