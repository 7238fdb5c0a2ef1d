// Package chatstore converts between in-memory chat histories and their
// durable rows, and owns the history expiry policy.
package chatstore

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"armonia/internal/models"
	"armonia/internal/repositories"
	"armonia/pkg/logger"
)

// ErrNotFound is returned when an operation requires an existing history.
var ErrNotFound = errors.New("chat not found")

// ErrCorruptRecord wraps a stored row whose message document no longer
// decodes. List skips such rows; Get surfaces the error.
var ErrCorruptRecord = errors.New("corrupt chat record")

// Patch carries partial updates for Update. Nil fields are left untouched.
type Patch struct {
	Title    *string
	Messages []models.Message
}

// Store wraps a ConversationRepository with the serialize/deserialize cycle
// and the TTL sweep. It is safe for use from the sweep goroutine and the
// interactive loop at once: each repository call touches a single row.
type Store struct {
	repo repositories.ConversationRepository
	log  *logger.Logger
}

func New(repo repositories.ConversationRepository, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{repo: repo, log: log}
}

// Save upserts the history. Calling it repeatedly for the same id is fine;
// the last write wins.
func (s *Store) Save(history *models.ChatHistory) error {
	if history == nil || history.ID == "" {
		return fmt.Errorf("chat id is required")
	}
	raw, err := encodeMessages(history.Messages)
	if err != nil {
		return err
	}
	return s.repo.Put(&models.Conversation{
		ID:        history.ID,
		Title:     history.Title,
		Messages:  raw,
		CreatedAt: history.CreatedAt,
		UpdatedAt: history.UpdatedAt,
	})
}

// Get loads one history. A missing id yields (nil, nil), never an error.
func (s *Store) Get(id string) (*models.ChatHistory, error) {
	row, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	history, err := s.fromRow(row)
	if err != nil {
		return nil, err
	}
	return history, nil
}

// List returns every stored history ordered by creation time ascending
// (oldest first); presentation layers reverse as needed. Rows that fail to
// decode are skipped with a warning so one bad record cannot hide the rest.
func (s *Store) List() ([]models.ChatHistory, error) {
	rows, err := s.repo.ListByCreation()
	if err != nil {
		return nil, err
	}
	histories := make([]models.ChatHistory, 0, len(rows))
	for i := range rows {
		history, err := s.fromRow(&rows[i])
		if err != nil {
			s.log.Warn("skipping undecodable chat record",
				zap.String("chat_id", rows[i].ID), zap.Error(err))
			continue
		}
		histories = append(histories, *history)
	}
	return histories, nil
}

// Delete removes a history; deleting an absent id is a no-op.
func (s *Store) Delete(id string) error {
	return s.repo.Delete(id)
}

// Update loads, merges the patch, forces UpdatedAt to now and saves.
func (s *Store) Update(id string, patch Patch) error {
	history, err := s.Get(id)
	if err != nil {
		return err
	}
	if history == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if patch.Title != nil {
		history.Title = *patch.Title
	}
	if patch.Messages != nil {
		history.Messages = patch.Messages
	}
	history.UpdatedAt = time.Now().UnixMilli()
	return s.Save(history)
}

// DeleteOlderThan removes every history created before now minus maxAge and
// reports the count. Creation time is the TTL reference: a chat still being
// updated past the window is deleted all the same.
func (s *Store) DeleteOlderThan(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	return s.repo.DeleteCreatedBefore(cutoff)
}

func (s *Store) fromRow(row *models.Conversation) (*models.ChatHistory, error) {
	messages, err := decodeMessages(row.Messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, row.ID, err)
	}
	return &models.ChatHistory{
		ID:        row.ID,
		Title:     row.Title,
		Messages:  messages,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}
