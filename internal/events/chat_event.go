package events

import "time"

type EventType string

const (
	// EventHistoryRefresh tells listeners the stored chat list changed and
	// should be re-queried.
	EventHistoryRefresh EventType = "history:refresh"
	// EventChatSwept reports a TTL sweep that removed at least one chat.
	EventChatSwept EventType = "history:swept"
	// EventChatDeleted reports an explicit user deletion.
	EventChatDeleted EventType = "history:deleted"
)

// ChatEvent is the payload delivered to the emitter.
type ChatEvent struct {
	Type      EventType `json:"type"`
	ChatID    string    `json:"chatId,omitempty"`
	Deleted   int64     `json:"deleted,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
