// Package contextfile tracks the freshness of context documents attached to
// agent queries. Files are marked stale by file-update events and refreshed
// before the next send.
package contextfile

import (
	"context"
	"sync"

	"github.com/nkall/periscope/internal/domain"
)

// Fetcher retrieves the current content and metadata of one context file.
// A fetch error means the file is missing.
type Fetcher interface {
	FetchFile(ctx context.Context, path string) (*domain.FileInfo, error)
}

// Tracker maintains last-known size and modification time per context file
// path. It is fed by the file-update channel asynchronously, at any time,
// with no ordering relationship to telemetry.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*domain.ContextFileEntry
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*domain.ContextFileEntry)}
}

// Add registers a path with its last-known metadata. Re-adding refreshes
// the metadata and clears staleness.
func (t *Tracker) Add(path string, info *domain.FileInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := &domain.ContextFileEntry{Path: path}
	if info != nil {
		e.LastKnownModifiedTime = info.LastModified
		e.LastKnownSize = info.Size
	}
	t.entries[path] = e
}

// Remove drops a path from the tracker.
func (t *Tracker) Remove(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, path)
}

// MarkModified flips a tracked path to stale. Idempotent; unknown paths are
// ignored.
func (t *Tracker) MarkModified(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[path]; ok {
		e.Stale = true
	}
}

// IsStale reports whether a tracked path has been named by a modification
// event since its last refresh.
func (t *Tracker) IsStale(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[path]
	return ok && e.Stale
}

// Tracked reports whether a path is registered.
func (t *Tracker) Tracked(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[path]
	return ok
}

// StalePaths returns the tracked paths currently marked stale.
func (t *Tracker) StalePaths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for p, e := range t.entries {
		if e.Stale {
			out = append(out, p)
		}
	}
	return out
}

// Entry returns a copy of the tracked entry for path.
func (t *Tracker) Entry(path string) (domain.ContextFileEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[path]
	if !ok {
		return domain.ContextFileEntry{}, false
	}
	return *e, true
}

// RefreshedFile pairs a path with its refetched content and metadata.
type RefreshedFile struct {
	Path string
	Info *domain.FileInfo
}

// RefreshResult reports the outcome of a RefreshAll pass.
type RefreshResult struct {
	Refreshed []RefreshedFile
	Missing   []string
}

// RefreshAll refetches each path. A successful fetch updates the path's
// metadata and clears staleness; a failed fetch removes the path from the
// tracker and reports it missing. One path's failure never aborts the rest.
func (t *Tracker) RefreshAll(ctx context.Context, fetcher Fetcher, paths []string) RefreshResult {
	var res RefreshResult
	for _, path := range paths {
		info, err := fetcher.FetchFile(ctx, path)
		if err != nil {
			t.Remove(path)
			res.Missing = append(res.Missing, path)
			continue
		}

		t.mu.Lock()
		e, ok := t.entries[path]
		if !ok {
			e = &domain.ContextFileEntry{Path: path}
			t.entries[path] = e
		}
		e.LastKnownModifiedTime = info.LastModified
		e.LastKnownSize = info.Size
		e.Stale = false
		t.mu.Unlock()

		res.Refreshed = append(res.Refreshed, RefreshedFile{Path: path, Info: info})
	}
	return res
}
