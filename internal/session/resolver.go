package session

import (
	"path/filepath"
	"sync"
)

// DefaultResolverCapacity bounds the number of memoized project paths.
const DefaultResolverCapacity = 4096

// Resolver maps encoded project directory names to the working directory
// recorded inside their transcripts. Mappings are never overwritten.
type Resolver struct {
	root     string
	capacity int

	mu    sync.Mutex
	paths map[string]string
}

// NewResolver creates a resolver for the given projects root.
// A capacity <= 0 uses DefaultResolverCapacity.
func NewResolver(root string, capacity int) *Resolver {
	if capacity <= 0 {
		capacity = DefaultResolverCapacity
	}
	return &Resolver{
		root:     root,
		capacity: capacity,
		paths:    make(map[string]string),
	}
}

// Resolve returns the real path for encodedDir. Only successful
// resolutions are memoized, so a project without a cwd hint yet is
// retried on the next call.
func (r *Resolver) Resolve(encodedDir string) (string, bool) {
	r.mu.Lock()
	if p, ok := r.paths[encodedDir]; ok {
		r.mu.Unlock()
		return p, true
	}
	r.mu.Unlock()

	realPath, ok := r.scan(encodedDir)
	if !ok {
		return "", false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.paths[encodedDir]; ok {
		return existing, true
	}
	if len(r.paths) < r.capacity {
		r.paths[encodedDir] = realPath
	}
	return realPath, true
}

// ResolveOr returns the resolved path or fallback.
func (r *Resolver) ResolveOr(encodedDir, fallback string) string {
	if p, ok := r.Resolve(encodedDir); ok {
		return p
	}
	return fallback
}

// Len returns the number of memoized mappings.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

func (r *Resolver) scan(encodedDir string) (string, bool) {
	projectDir := filepath.Join(r.root, encodedDir)
	files := listTranscripts(projectDir)
	if len(files) == 0 {
		return "", false
	}
	// Only the first transcript is consulted.
	return cwdHint(ReadJSONL(filepath.Join(projectDir, files[0]), 0))
}

// cwdHint returns the first working directory found in records: a progress
// record's data.cwd or any top-level cwd.
func cwdHint(records []Record) (string, bool) {
	for i := range records {
		rec := &records[i]
		if rec.Type == "progress" && rec.Data != nil && rec.Data.CWD != "" {
			return rec.Data.CWD, true
		}
		if rec.CWD != "" {
			return rec.CWD, true
		}
	}
	return "", false
}
