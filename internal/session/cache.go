package session

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"cc_session_mgr/internal/logging"
)

// DefaultCacheTTL is how long cached listings and stats stay fresh.
const DefaultCacheTTL = 5 * time.Second

var cacheLog = logging.ForComponent(logging.CompCache)

// Cache holds derived results behind one shared freshness watermark.
//
// Every write restamps the watermark, so writing any slot refreshes all of
// them. Invalidate clears every slot and resets the watermark in a single
// critical section. Writers pass the generation they
// observed before computing; a write from before an invalidation is dropped.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu         sync.RWMutex
	projects   []Project
	stats      *Stats
	sessions   map[string][]SessionSummary
	lastUpdate time.Time
	generation uint64
}

// NewCache creates a cache. A ttl <= 0 uses DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string][]SessionSummary),
	}
}

// SetClock replaces the time source (useful for testing)
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// SessionsKey builds the session-list slot key for a project filter and limit.
func SessionsKey(projectID string, limit int) string {
	if projectID == "" {
		projectID = "all"
	}
	return projectID + ":" + strconv.Itoa(limit)
}

// fresh must be called with c.mu held.
func (c *Cache) fresh() bool {
	return !c.lastUpdate.IsZero() && c.now().Sub(c.lastUpdate) < c.ttl
}

// Generation returns the current invalidation generation. Callers read it
// before computing a value and hand it back to the matching Set method.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Projects returns the cached project listing if it is fresh.
func (c *Cache) Projects() ([]Project, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.projects == nil || !c.fresh() {
		return nil, false
	}
	return c.projects, true
}

// SetProjects stores a project listing computed at generation gen.
func (c *Cache) SetProjects(gen uint64, projects []Project) bool {
	if projects == nil {
		projects = []Project{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.projects = projects
	c.lastUpdate = c.now()
	return true
}

// Stats returns the cached stats snapshot if it is fresh.
func (c *Cache) Stats() (*Stats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stats == nil || !c.fresh() {
		return nil, false
	}
	return c.stats, true
}

// SetStats stores a stats snapshot computed at generation gen.
func (c *Cache) SetStats(gen uint64, stats *Stats) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.stats = stats
	c.lastUpdate = c.now()
	return true
}

// Sessions returns a cached session list for key if it is fresh.
func (c *Cache) Sessions(key string) ([]SessionSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list, ok := c.sessions[key]
	if !ok || !c.fresh() {
		return nil, false
	}
	return list, true
}

// SetSessions stores a session list computed at generation gen.
func (c *Cache) SetSessions(gen uint64, key string, list []SessionSummary) bool {
	if list == nil {
		list = []SessionSummary{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.sessions[key] = list
	c.lastUpdate = c.now()
	return true
}

// Invalidate drops every slot and marks the cache stale. Session lists are
// cleared too, since a later write to any slot restamps the shared watermark.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.projects = nil
	c.stats = nil
	clear(c.sessions)
	c.lastUpdate = time.Time{}
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	cacheLog.Debug("cache_invalidated", slog.Uint64("generation", gen))
}
