package service

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/linomassaro/SyncStream/internal/metrics"
	"github.com/linomassaro/SyncStream/internal/model"
	"github.com/linomassaro/SyncStream/internal/store"
	wire "github.com/linomassaro/SyncStream/pkg/protocol"
	"go.uber.org/zap"
)

// Protocol interprets inbound messages, decides which ones mutate the session
// store, and constructs outbound broadcasts and the join-time snapshot.
//
// Mutation rules: sync/play/pause/seek write playback state; video-change
// resets playback around a new URL; source-add/source-remove edit the source
// list. viewer-join/viewer-leave are server-originated only, and reaction is
// relayed without touching the store. Everything else is relay-only.
type Protocol struct {
	store   *store.SessionStore
	viewers *store.ViewerRegistry
	mux     *Multiplexer
	log     *zap.Logger
}

// NewProtocol creates the protocol engine.
func NewProtocol(sessions *store.SessionStore, viewers *store.ViewerRegistry, mux *Multiplexer, log *zap.Logger) *Protocol {
	return &Protocol{store: sessions, viewers: viewers, mux: mux, log: log}
}

// HandleJoin runs the join sequence for a freshly registered connection:
// register presence, send the full snapshot to the new connection only, and
// announce the viewer to the rest of the session. The session must already
// exist; the engine never creates one.
func (p *Protocol) HandleJoin(c *Conn) {
	p.viewers.Add(c.SessionID, c.ViewerID)

	sess, ok := p.store.Get(c.SessionID)
	if !ok {
		p.log.Warn("join for unknown session, no snapshot sent",
			zap.String("session_id", c.SessionID),
			zap.String("viewer_id", c.ViewerID))
		return
	}
	p.mux.Send(c, marshal(snapshotEnvelope(&sess)))

	p.broadcast(c.SessionID, &wire.Envelope{
		Type:      wire.TypeViewerJoin,
		SessionID: c.SessionID,
		Data:      &wire.MessageData{ViewerID: c.ViewerID},
	}, c.ViewerID)
}

// HandleLeave removes the viewer's presence after its connection closed and
// broadcasts viewer-leave when the viewer was actually registered.
func (p *Protocol) HandleLeave(c *Conn) {
	if !p.viewers.Remove(c.SessionID, c.ViewerID) {
		return
	}
	p.broadcast(c.SessionID, &wire.Envelope{
		Type:      wire.TypeViewerLeave,
		SessionID: c.SessionID,
		Data:      &wire.MessageData{ViewerID: c.ViewerID},
	}, c.ViewerID)
}

// HandleMessage processes one inbound frame from a connection. Malformed
// frames are logged and dropped; the connection stays open.
func (p *Protocol) HandleMessage(c *Conn, raw []byte) {
	var env wire.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		metrics.DroppedMessages.Inc()
		p.log.Warn("malformed message dropped",
			zap.String("conn_id", c.ID),
			zap.String("viewer_id", c.ViewerID),
			zap.Error(err))
		return
	}
	// The registered session is authoritative, whatever the envelope claims.
	env.SessionID = c.SessionID
	p.viewers.Touch(c.SessionID, c.ViewerID)
	metrics.InboundMessages.WithLabelValues(string(env.Type)).Inc()

	switch env.Type {
	case wire.TypeSync, wire.TypePlay, wire.TypePause, wire.TypeSeek:
		p.applyPlayback(c, &env)
	case wire.TypeVideoChange:
		p.applyVideoChange(c, &env)
	case wire.TypeSourceAdd:
		p.applySourceAdd(c, &env)
	case wire.TypeSourceRemove:
		p.applySourceRemove(c, &env)
	case wire.TypeViewerJoin, wire.TypeViewerLeave:
		// Server-originated only; inbound copies are dropped.
		p.log.Debug("ignoring client-sent presence message",
			zap.String("type", string(env.Type)),
			zap.String("viewer_id", c.ViewerID))
	default:
		// Relay-only: reaction and any unrecognized type mutate nothing.
		p.broadcast(c.SessionID, &env, c.ViewerID)
	}
}

func (p *Protocol) applyPlayback(c *Conn, env *wire.Envelope) {
	if env.Data == nil {
		p.dropMalformed(c, env, "missing data")
		return
	}
	patch := store.SessionPatch{
		CurrentTime: env.Data.CurrentTime,
		IsPlaying:   env.Data.IsPlaying,
	}
	if _, ok := p.store.Update(c.SessionID, patch); !ok {
		p.log.Warn("playback update for unknown session",
			zap.String("session_id", c.SessionID))
	}
	p.broadcast(c.SessionID, env, c.ViewerID)
}

func (p *Protocol) applyVideoChange(c *Conn, env *wire.Envelope) {
	if env.Data == nil || env.Data.VideoURL == nil {
		p.dropMalformed(c, env, "missing videoUrl")
		return
	}
	zero := 0.0
	paused := false
	patch := store.SessionPatch{
		VideoURL:    env.Data.VideoURL,
		CurrentTime: &zero,
		IsPlaying:   &paused,
	}
	if env.Data.VideoSources != nil {
		patch.VideoSources = env.Data.VideoSources
	}
	if env.Data.SelectedSourceID != nil {
		patch.SelectedSourceID = env.Data.SelectedSourceID
	}
	if _, ok := p.store.Update(c.SessionID, patch); !ok {
		p.log.Warn("video change for unknown session",
			zap.String("session_id", c.SessionID))
	}
	p.broadcast(c.SessionID, env, c.ViewerID)
}

func (p *Protocol) applySourceAdd(c *Conn, env *wire.Envelope) {
	if env.Data == nil || env.Data.Source == nil {
		p.dropMalformed(c, env, "missing source")
		return
	}
	src := *env.Data.Source
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if src.AddedBy == "" {
		src.AddedBy = c.ViewerID
	}
	sess, ok := p.store.Get(c.SessionID)
	if !ok {
		p.log.Warn("source add for unknown session", zap.String("session_id", c.SessionID))
		return
	}
	updated, ok := p.store.Update(c.SessionID, store.SessionPatch{
		VideoSources: append(sess.VideoSources, src),
	})
	if !ok {
		return
	}
	// The broadcast carries the authoritative full list, so it goes to the
	// sender too (the generated source id originates here).
	p.broadcast(c.SessionID, &wire.Envelope{
		Type:      wire.TypeSourceAdd,
		SessionID: c.SessionID,
		Data: &wire.MessageData{
			Source:       &src,
			VideoSources: updated.VideoSources,
		},
	}, "")
}

func (p *Protocol) applySourceRemove(c *Conn, env *wire.Envelope) {
	if env.Data == nil || env.Data.SourceID == "" {
		p.dropMalformed(c, env, "missing sourceId")
		return
	}
	sess, ok := p.store.Get(c.SessionID)
	if !ok {
		p.log.Warn("source remove for unknown session", zap.String("session_id", c.SessionID))
		return
	}
	// Removing an absent id is a no-op, not an error.
	kept := make([]model.VideoSource, 0, len(sess.VideoSources))
	for _, src := range sess.VideoSources {
		if src.ID != env.Data.SourceID {
			kept = append(kept, src)
		}
	}
	updated, ok := p.store.Update(c.SessionID, store.SessionPatch{VideoSources: kept})
	if !ok {
		return
	}
	p.broadcast(c.SessionID, &wire.Envelope{
		Type:      wire.TypeSourceRemove,
		SessionID: c.SessionID,
		Data: &wire.MessageData{
			SourceID:     env.Data.SourceID,
			VideoSources: updated.VideoSources,
		},
	}, "")
}

func (p *Protocol) broadcast(sessionID string, env *wire.Envelope, excludeViewerID string) {
	p.mux.Broadcast(sessionID, marshal(env), excludeViewerID)
}

func (p *Protocol) dropMalformed(c *Conn, env *wire.Envelope, reason string) {
	metrics.DroppedMessages.Inc()
	p.log.Warn("message dropped",
		zap.String("type", string(env.Type)),
		zap.String("viewer_id", c.ViewerID),
		zap.String("reason", reason))
}

func snapshotEnvelope(sess *model.Session) *wire.Envelope {
	currentTime := sess.CurrentTime
	isPlaying := sess.IsPlaying
	videoURL := sess.VideoURL
	data := &wire.MessageData{
		CurrentTime:  &currentTime,
		IsPlaying:    &isPlaying,
		VideoURL:     &videoURL,
		VideoSources: sess.VideoSources,
	}
	if sess.SelectedSourceID != "" {
		selected := sess.SelectedSourceID
		data.SelectedSourceID = &selected
	}
	return &wire.Envelope{
		Type:      wire.TypeSync,
		SessionID: sess.ID,
		Data:      data,
	}
}

func marshal(env *wire.Envelope) []byte {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil
	}
	return raw
}
