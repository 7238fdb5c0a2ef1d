package models

import (
	"fmt"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// Role identifies the sender of a chat message. Only two roles are ever
// produced by this client.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// isoMillis is the wire format for message timestamps, matching
// JavaScript's Date.toISOString() (millisecond precision, UTC).
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// MessageTime is a time.Time that round-trips through JSON as an ISO-8601
// string with millisecond precision. Older records stored the timestamp as
// an epoch-milliseconds number; both forms decode to the same instant.
type MessageTime struct {
	time.Time
}

func NewMessageTime(t time.Time) MessageTime {
	return MessageTime{Time: t.Truncate(time.Millisecond)}
}

func (t MessageTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.UTC().Format(isoMillis))), nil
}

func (t *MessageTime) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty message timestamp")
	}
	if data[0] == '"' {
		raw, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("unquote message timestamp: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return fmt.Errorf("parse message timestamp %q: %w", raw, err)
		}
		t.Time = parsed
		return nil
	}
	millis, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("parse message timestamp %s: %w", data, err)
	}
	t.Time = time.UnixMilli(millis).UTC()
	return nil
}

// Source is a document citation attached to an assistant message.
type Source struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// Message is a single chat exchange entry. Content may be empty while a
// streamed answer is still arriving; IsStreaming must be false by the time
// the surrounding history is persisted for a completed exchange.
type Message struct {
	ID          string      `json:"id"`
	Role        Role        `json:"role"`
	Content     string      `json:"content"`
	Timestamp   MessageTime `json:"timestamp"`
	Reasoning   string      `json:"reasoning,omitempty"`
	Sources     []Source    `json:"sources,omitempty"`
	IsStreaming bool        `json:"isStreaming,omitempty"`
}

// ChatHistory is the in-memory shape of a stored conversation.
// CreatedAt is the TTL reference and never changes after creation;
// UpdatedAt moves forward on every save. Both are epoch milliseconds.
type ChatHistory struct {
	ID        string
	Title     string
	Messages  []Message
	CreatedAt int64
	UpdatedAt int64
}

// Conversation is the durable row for a chat history. Messages are kept as
// a single JSON document; created_at/updated_at carry secondary indexes so
// listings and TTL sweeps scan in key order.
type Conversation struct {
	ID        string         `gorm:"primaryKey;size:64"`
	Title     string         `gorm:"size:255;not null"`
	Messages  datatypes.JSON `gorm:"not null"`
	CreatedAt int64          `gorm:"not null;autoCreateTime:false;index:idx_conversations_created_at"`
	UpdatedAt int64          `gorm:"not null;autoUpdateTime:false;index:idx_conversations_updated_at"`
}
