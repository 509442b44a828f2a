package broadcast

import "cc_activity_mon/internal/session"

// MessageType tags every message sent to clients
type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgEvent    MessageType = "event"
)

// Message is the envelope written to websocket clients
type Message struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
}

// SnapshotPayload is sent once when a client connects
type SnapshotPayload struct {
	Sessions []session.SessionState `json:"sessions"`
}
