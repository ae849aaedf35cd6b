// Package protocol defines the wire format shared by the server and clients:
// JSON envelopes over a persistent connection keyed by sessionId and viewerId.
package protocol

// MessageType identifies a wire protocol message.
type MessageType string

const (
	TypeSync         MessageType = "sync"
	TypePlay         MessageType = "play"
	TypePause        MessageType = "pause"
	TypeSeek         MessageType = "seek"
	TypeVideoChange  MessageType = "video-change"
	TypeSourceAdd    MessageType = "source-add"
	TypeSourceRemove MessageType = "source-remove"
	TypeViewerJoin   MessageType = "viewer-join"
	TypeViewerLeave  MessageType = "viewer-leave"
	TypeReaction     MessageType = "reaction"
)

// VideoSource is one playable variant offered within a session.
type VideoSource struct {
	ID       string  `json:"id"`
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Language string  `json:"language,omitempty"`
	Delay    float64 `json:"delay,omitempty"` // client-side offset in seconds, never applied server-side
	AddedBy  string  `json:"addedBy,omitempty"`
}

// Envelope is the wire format for every protocol message, in both directions.
type Envelope struct {
	Type      MessageType  `json:"type"`
	SessionID string       `json:"sessionId"`
	Data      *MessageData `json:"data,omitempty"`
}

// MessageData carries the payload of an Envelope. All fields are optional;
// which ones are required depends on the message type.
type MessageData struct {
	CurrentTime      *float64      `json:"currentTime,omitempty"`
	IsPlaying        *bool         `json:"isPlaying,omitempty"`
	VideoURL         *string       `json:"videoUrl,omitempty"`
	VideoSources     []VideoSource `json:"videoSources,omitempty"`
	SelectedSourceID *string       `json:"selectedSourceId,omitempty"`
	ViewerID         string        `json:"viewerId,omitempty"`
	Source           *VideoSource  `json:"source,omitempty"`
	SourceID         string        `json:"sourceId,omitempty"`
	Reaction         *Reaction     `json:"reaction,omitempty"`
}

// Reaction is an ephemeral emoji reaction, relayed but never stored.
type Reaction struct {
	Emoji     string `json:"emoji"`
	ViewerID  string `json:"viewerId"`
	Timestamp int64  `json:"timestamp"`
}
