package chatstore

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"armonia/internal/models"
)

// encodeMessages converts the in-memory message list to its storage-safe
// JSON document. Message timestamps serialize as ISO-8601 strings with
// millisecond precision; encoding the same list twice yields identical
// bytes, so repeated saves are stable.
func encodeMessages(messages []models.Message) (datatypes.JSON, error) {
	if messages == nil {
		messages = []models.Message{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("encode messages: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// decodeMessages restores native timestamp values from the stored document.
// It accepts both the ISO-8601 string form and the legacy epoch-millis
// number form (see models.MessageTime).
func decodeMessages(raw datatypes.JSON) ([]models.Message, error) {
	if len(raw) == 0 {
		return []models.Message{}, nil
	}
	var messages []models.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}
