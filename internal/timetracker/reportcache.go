package timetracker

import (
	"sync"
	"time"

	"github.com/SharXeniX/jira-timetracker-plugin/pkg/types"
)

// ReportCache remembers the worklog lists of recent queries keyed by
// user and range. It replaces the legacy per-session parameter store;
// invalidation is the caller's job after a successful mutation.
type ReportCache struct {
	mu      sync.Mutex
	entries map[reportKey][]types.Worklog
}

type reportKey struct {
	user     string
	from, to int64
}

// NewReportCache returns an empty cache.
func NewReportCache() *ReportCache {
	return &ReportCache{entries: make(map[reportKey][]types.Worklog)}
}

// Get returns a copy of the cached worklog list for the key, if any, so
// callers cannot mutate the cached records.
func (c *ReportCache) Get(user string, from, to time.Time) ([]types.Worklog, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	logs, ok := c.entries[key(user, from, to)]
	if !ok {
		return nil, false
	}
	out := make([]types.Worklog, len(logs))
	copy(out, logs)
	return out, true
}

// Put stores a copy of the worklog list under the key.
func (c *ReportCache) Put(user string, from, to time.Time, logs []types.Worklog) {
	stored := make([]types.Worklog, len(logs))
	copy(stored, logs)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(user, from, to)] = stored
}

// Invalidate drops every cached range for the user.
func (c *ReportCache) Invalidate(user string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.user == user {
			delete(c.entries, k)
		}
	}
}

// InvalidateAll empties the cache.
func (c *ReportCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[reportKey][]types.Worklog)
}

func key(user string, from, to time.Time) reportKey {
	return reportKey{user: user, from: from.Unix(), to: to.Unix()}
}
