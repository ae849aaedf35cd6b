package store

import (
	"sort"
	"sync"
	"time"

	"github.com/linomassaro/SyncStream/internal/model"
)

type viewerKey struct {
	sessionID string
	viewerID  string
}

// ViewerRegistry tracks which viewers are associated with a session,
// independent of transport connections. Entries are only removed on explicit
// Remove; a connection that dies without a close frame leaves its viewer
// registered until the transport signals closure.
type ViewerRegistry struct {
	mu      sync.RWMutex
	viewers map[viewerKey]*model.Viewer
}

// NewViewerRegistry creates an empty registry.
func NewViewerRegistry() *ViewerRegistry {
	return &ViewerRegistry{viewers: make(map[viewerKey]*model.Viewer)}
}

// Add registers a viewer for a session, stamping LastSeen.
func (r *ViewerRegistry) Add(sessionID, viewerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewers[viewerKey{sessionID, viewerID}] = &model.Viewer{
		SessionID: sessionID,
		ViewerID:  viewerID,
		LastSeen:  time.Now(),
	}
}

// Remove deletes a viewer. Returns true if the viewer was registered.
func (r *ViewerRegistry) Remove(sessionID, viewerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := viewerKey{sessionID, viewerID}
	if _, ok := r.viewers[key]; !ok {
		return false
	}
	delete(r.viewers, key)
	return true
}

// Touch updates LastSeen. No-op if the viewer is not registered.
func (r *ViewerRegistry) Touch(sessionID, viewerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.viewers[viewerKey{sessionID, viewerID}]; ok {
		v.LastSeen = time.Now()
	}
}

// ListForSession returns the viewers registered for a session, sorted by
// viewer id for stable output.
func (r *ViewerRegistry) ListForSession(sessionID string) []model.Viewer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Viewer, 0)
	for key, v := range r.viewers {
		if key.sessionID == sessionID {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ViewerID < out[j].ViewerID })
	return out
}
