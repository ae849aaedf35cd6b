package service

import (
	"github.com/linomassaro/SyncStream/internal/errs"
	"github.com/linomassaro/SyncStream/internal/metrics"
	"github.com/linomassaro/SyncStream/internal/model"
	"github.com/linomassaro/SyncStream/internal/store"
	"go.uber.org/zap"
)

// SessionService is the session façade: create-or-get and lookup over the
// in-memory store, plus viewer listing derived from the multiplexer's open
// connections. The protocol engine depends on it only for creation.
type SessionService struct {
	store *store.SessionStore
	mux   *Multiplexer
	log   *zap.Logger
}

// NewSessionService creates a session service.
func NewSessionService(sessions *store.SessionStore, mux *Multiplexer, log *zap.Logger) *SessionService {
	return &SessionService{store: sessions, mux: mux, log: log}
}

// CreateOrGet returns the session with the given id, creating it on demand.
// An empty id creates a session with a generated id.
func (s *SessionService) CreateOrGet(id, videoURL string) model.Session {
	before := s.store.Count()
	var initial store.SessionPatch
	if videoURL != "" {
		initial.VideoURL = &videoURL
	}
	sess := s.store.Create(id, initial)
	if s.store.Count() > before {
		metrics.Sessions.Inc()
		s.log.Info("session created", zap.String("session_id", sess.ID))
	}
	return sess
}

// Get returns a session or errs.ErrSessionNotFound.
func (s *SessionService) Get(id string) (model.Session, error) {
	sess, ok := s.store.Get(id)
	if !ok {
		return model.Session{}, errs.ErrSessionNotFound
	}
	return sess, nil
}

// Update shallow-merges the patch into a session or returns
// errs.ErrSessionNotFound.
func (s *SessionService) Update(id string, patch store.SessionPatch) (model.Session, error) {
	sess, ok := s.store.Update(id, patch)
	if !ok {
		return model.Session{}, errs.ErrSessionNotFound
	}
	return sess, nil
}

// Viewers returns the viewer ids with open connections to the session. The
// count comes from the multiplexer, not the possibly-stale registry.
func (s *SessionService) Viewers(id string) ([]string, error) {
	if _, ok := s.store.Get(id); !ok {
		return nil, errs.ErrSessionNotFound
	}
	return s.mux.ViewerIDsOpen(id), nil
}
