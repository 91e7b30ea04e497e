package session

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sahilm/fuzzy"

	"cc_session_mgr/internal/logging"
)

var (
	indexLog  = logging.ForComponent(logging.CompIndex)
	statsLog  = logging.ForComponent(logging.CompStats)
	searchLog = logging.ForComponent(logging.CompSearch)
)

// Options configures an Index
type Options struct {
	// ProjectsDir holds one subdirectory per project
	ProjectsDir string

	// HistoryFile is the global prompt history log
	HistoryFile string

	// CacheTTL is the freshness window for listings and stats (default 5s)
	CacheTTL time.Duration

	// Watch enables filesystem invalidation, started on the first cached query
	Watch bool

	// ResolverCapacity bounds memoized project paths (default 4096)
	ResolverCapacity int
}

// Index answers listing, stats and search queries over the transcript tree.
// It owns the cache, the path resolver and the watcher lifecycle.
type Index struct {
	root    string
	history string
	watch   bool

	cache    *Cache
	resolver *Resolver

	watchOnce sync.Once
	watcher   *Watcher
	closeOnce sync.Once
	done      chan struct{}

	subMu       sync.Mutex
	subscribers map[chan Event]struct{}
}

// NewIndex creates an index. Nothing is read until the first query.
func NewIndex(opts Options) *Index {
	return &Index{
		root:        filepath.Clean(opts.ProjectsDir),
		history:     opts.HistoryFile,
		watch:       opts.Watch,
		cache:       NewCache(opts.CacheTTL),
		resolver:    NewResolver(opts.ProjectsDir, opts.ResolverCapacity),
		done:        make(chan struct{}),
		subscribers: make(map[chan Event]struct{}),
	}
}

// Root returns the projects directory.
func (ix *Index) Root() string { return ix.root }

// Cache returns the cache backing the index.
func (ix *Index) Cache() *Cache { return ix.cache }

// Resolver returns the project path resolver.
func (ix *Index) Resolver() *Resolver { return ix.resolver }

// StartWatcher starts filesystem watching if enabled. It runs at most once;
// failures are logged and leave the index on TTL expiry alone.
func (ix *Index) StartWatcher() {
	if !ix.watch {
		return
	}
	ix.watchOnce.Do(func() {
		w, err := NewWatcher(ix.root)
		if err != nil {
			indexLog.Warn("watcher_init_failed", slog.String("error", err.Error()))
			return
		}
		if err := w.Start(); err != nil {
			indexLog.Warn("watcher_start_failed", slog.String("root", ix.root), slog.String("error", err.Error()))
			_ = w.Stop()
			return
		}
		ix.watcher = w
		go ix.listen(w)
	})
}

// listen consumes watcher events until the index is closed.
func (ix *Index) listen(w *Watcher) {
	for {
		select {
		case <-ix.done:
			return
		case ev := <-w.Events:
			ix.Invalidate(ev)
		}
	}
}

// Invalidate drops cached listings and stats and notifies subscribers.
func (ix *Index) Invalidate(ev Event) {
	ix.cache.Invalidate()

	ix.subMu.Lock()
	defer ix.subMu.Unlock()
	for ch := range ix.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe returns a channel of change events and a function that
// unsubscribes. Slow subscribers miss events rather than block the index.
func (ix *Index) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	ix.subMu.Lock()
	ix.subscribers[ch] = struct{}{}
	ix.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			ix.subMu.Lock()
			delete(ix.subscribers, ch)
			ix.subMu.Unlock()
		})
	}
}

// Close stops the watcher and the listener.
func (ix *Index) Close() error {
	var err error
	ix.closeOnce.Do(func() {
		close(ix.done)
		// Block a late StartWatcher from starting after close.
		ix.watchOnce.Do(func() {})
		if ix.watcher != nil {
			err = ix.watcher.Stop()
		}
	})
	return err
}

// ListProjects returns every project with its most recent sessions.
func (ix *Index) ListProjects() []Project {
	if projects, ok := ix.cache.Projects(); ok {
		return projects
	}
	ix.StartWatcher()

	gen := ix.cache.Generation()
	projects := scanProjects(ix.root, ix.resolver)
	ix.cache.SetProjects(gen, projects)
	return projects
}

// ListSessions returns session summaries, newest first, for one project or
// for all projects when projectID is empty.
func (ix *Index) ListSessions(projectID string, limit int) []SessionSummary {
	if limit <= 0 {
		return []SessionSummary{}
	}
	key := SessionsKey(projectID, limit)
	if list, ok := ix.cache.Sessions(key); ok {
		return list
	}
	ix.StartWatcher()

	gen := ix.cache.Generation()
	list := scanSessions(ix.root, ix.resolver, projectID, limit)
	ix.cache.SetSessions(gen, key, list)
	return list
}

// GetSession returns the full transcript of one session. Paths that leave
// the projects directory and missing files are reported as absent.
func (ix *Index) GetSession(project, sessionID string) (*SessionDetail, bool) {
	detail, ok := loadSession(ix.root, project, sessionID)
	if !ok {
		indexLog.Debug("session_not_found", slog.String("project", project), slog.String("session", sessionID))
	}
	return detail, ok
}

// Stats returns token usage aggregated globally, per project and per day.
func (ix *Index) Stats() *Stats {
	if stats, ok := ix.cache.Stats(); ok {
		return stats
	}
	ix.StartWatcher()

	gen := ix.cache.Generation()
	start := time.Now()
	stats := computeStats(ix.root, ix.resolver)
	ix.cache.SetStats(gen, stats)
	statsLog.Debug("stats_computed",
		slog.Int("sessions", stats.Global.TotalSessions),
		slog.Duration("elapsed", time.Since(start)))
	return stats
}

// HistoryCommands returns the most recent prompt history entries, newest first.
func (ix *Index) HistoryCommands(limit int) []Command {
	return readHistory(ix.history, limit)
}

// SearchSessions matches query against transcript content.
func (ix *Index) SearchSessions(query string, limit int) []SearchResult {
	if !validQuery(query) {
		return []SearchResult{}
	}
	return searchTranscripts(ix.root, query, limit)
}

// SearchCommands matches query against prompt history.
func (ix *Index) SearchCommands(query string, limit int) []SearchResult {
	if !validQuery(query) {
		return []SearchResult{}
	}
	return searchHistory(ix.history, query, limit)
}

// SearchAll runs both scans, each capped at limit, and merges them newest first.
func (ix *Index) SearchAll(query string, limit int) []SearchResult {
	if !validQuery(query) || limit <= 0 {
		return []SearchResult{}
	}
	start := time.Now()
	results := mergeResults(limit,
		searchTranscripts(ix.root, query, limit),
		searchHistory(ix.history, query, limit),
	)
	searchLog.Debug("search_completed",
		slog.String("query", query),
		slog.Int("results", len(results)),
		slog.Duration("elapsed", time.Since(start)))
	return results
}

// projectSource implements fuzzy.Source over project names and resolved paths
type projectSource struct {
	names []string
	paths []string
}

func (s projectSource) String(i int) string { return s.paths[i] }
func (s projectSource) Len() int            { return len(s.paths) }

// FindProject resolves a user-supplied project reference to an encoded
// directory name: an exact name or path first, then the best fuzzy match.
func (ix *Index) FindProject(query string) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}

	names := listProjectDirs(ix.root)
	src := projectSource{names: names, paths: make([]string, len(names))}
	for i, name := range names {
		if name == query {
			return name, true
		}
		src.paths[i] = ix.resolver.ResolveOr(name, name)
		if src.paths[i] == query {
			return name, true
		}
	}

	matches := fuzzy.FindFrom(query, src)
	if len(matches) == 0 {
		return "", false
	}
	return names[matches[0].Index], true
}
