package model

import (
	"time"

	"github.com/linomassaro/SyncStream/pkg/protocol"
)

// VideoSource is the wire-format source type; sessions own their sources
// exclusively, with no cross-session sharing.
type VideoSource = protocol.VideoSource

// Session is a named shared playback context joined by multiple viewers.
// SelectedSourceID, if set, references an entry in VideoSources; CurrentTime
// is never negative.
type Session struct {
	ID               string        `json:"id"`
	VideoURL         string        `json:"videoUrl"`
	VideoSources     []VideoSource `json:"videoSources"`
	SelectedSourceID string        `json:"selectedSourceId,omitempty"`
	IsPlaying        bool          `json:"isPlaying"`
	CurrentTime      float64       `json:"currentTime"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// Viewer is presence metadata for one participant in a session, decoupled
// from the transport connection.
type Viewer struct {
	SessionID string    `json:"sessionId"`
	ViewerID  string    `json:"viewerId"`
	LastSeen  time.Time `json:"lastSeen"`
}

// CreateSessionRequest is the request body for POST /sessions.
// Both fields are optional: a missing id means "generate one".
type CreateSessionRequest struct {
	ID       string `json:"id"`
	VideoURL string `json:"videoUrl"`
}

// UpdateSessionRequest is the request body for PATCH /sessions/:id.
// Pointer fields distinguish "not provided" from zero values.
type UpdateSessionRequest struct {
	VideoURL         *string       `json:"videoUrl"`
	VideoSources     []VideoSource `json:"videoSources"`
	SelectedSourceID *string       `json:"selectedSourceId"`
	IsPlaying        *bool         `json:"isPlaying"`
	CurrentTime      *float64      `json:"currentTime"`
}

// SessionViewersResponse is the response for GET /sessions/:id/viewers.
// The list is derived from open connections, not the viewer registry.
type SessionViewersResponse struct {
	SessionID   string   `json:"sessionId"`
	ViewerCount int      `json:"viewerCount"`
	Viewers     []string `json:"viewers"`
}
