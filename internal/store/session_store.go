package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/linomassaro/SyncStream/internal/model"
)

// SessionPatch is a partial update for a session. Nil fields are left
// untouched; VideoSources is replaced wholesale when non-nil.
type SessionPatch struct {
	VideoURL         *string
	VideoSources     []model.VideoSource
	SelectedSourceID *string
	IsPlaying        *bool
	CurrentTime      *float64
}

// SessionStore is the authoritative in-memory record of session state.
// Updates are last-write-wins in arrival order; there is no read-modify-write
// transaction. Sessions live for the lifetime of the process.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*model.Session)}
}

// Get returns a copy of the session, or false if it does not exist.
func (s *SessionStore) Get(id string) (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.Session{}, false
	}
	return cloneSession(sess), true
}

// Create inserts a new session with the given initial fields and returns it.
// If id is empty a new one is generated. Idempotent: when the id already
// exists the existing session is returned unchanged.
func (s *SessionStore) Create(id string, initial SessionPatch) model.Session {
	if id == "" {
		id = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return cloneSession(sess)
	}
	now := time.Now()
	sess := &model.Session{
		ID:           id,
		VideoSources: []model.VideoSource{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	applyPatch(sess, initial)
	s.sessions[id] = sess
	return cloneSession(sess)
}

// Update shallow-merges the patch into the session and stamps UpdatedAt.
// Returns false if the session does not exist.
func (s *SessionStore) Update(id string, patch SessionPatch) (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return model.Session{}, false
	}
	applyPatch(sess, patch)
	sess.UpdatedAt = time.Now()
	return cloneSession(sess), true
}

// Count returns the number of sessions currently held.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func applyPatch(sess *model.Session, patch SessionPatch) {
	if patch.VideoURL != nil {
		sess.VideoURL = *patch.VideoURL
	}
	if patch.VideoSources != nil {
		sess.VideoSources = append([]model.VideoSource(nil), patch.VideoSources...)
	}
	if patch.SelectedSourceID != nil {
		sess.SelectedSourceID = *patch.SelectedSourceID
	}
	if patch.IsPlaying != nil {
		sess.IsPlaying = *patch.IsPlaying
	}
	if patch.CurrentTime != nil {
		sess.CurrentTime = *patch.CurrentTime
		if sess.CurrentTime < 0 {
			sess.CurrentTime = 0
		}
	}
	// SelectedSourceID must reference an existing source.
	if sess.SelectedSourceID != "" && !hasSource(sess.VideoSources, sess.SelectedSourceID) {
		sess.SelectedSourceID = ""
	}
}

func hasSource(sources []model.VideoSource, id string) bool {
	for _, src := range sources {
		if src.ID == id {
			return true
		}
	}
	return false
}

func cloneSession(sess *model.Session) model.Session {
	out := *sess
	out.VideoSources = append([]model.VideoSource{}, sess.VideoSources...)
	return out
}
