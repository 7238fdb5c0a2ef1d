package repositories

import "armonia/internal/models"

// noopConversationRepository backs the degraded mode used when the local
// database cannot be opened. Writes vanish, reads see nothing, and the rest
// of the app is untouched by the absence of persistence.
type noopConversationRepository struct{}

func NewNoopConversationRepository() ConversationRepository {
	return noopConversationRepository{}
}

func (noopConversationRepository) Put(*models.Conversation) error { return nil }

func (noopConversationRepository) Get(string) (*models.Conversation, error) { return nil, nil }

func (noopConversationRepository) ListByCreation() ([]models.Conversation, error) {
	return nil, nil
}

func (noopConversationRepository) Delete(string) error { return nil }

func (noopConversationRepository) DeleteCreatedBefore(int64) (int64, error) { return 0, nil }
