package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"armonia/internal/models"
)

type ConversationRepository interface {
	// Put upserts the full row keyed by ID. Last write wins.
	Put(conv *models.Conversation) error
	// Get returns (nil, nil) when no row exists for the id.
	Get(id string) (*models.Conversation, error)
	// ListByCreation returns all rows ordered by created_at ascending.
	ListByCreation() ([]models.Conversation, error)
	// Delete removes the row; deleting an absent id is not an error.
	Delete(id string) error
	// DeleteCreatedBefore removes every row with created_at < cutoff
	// (epoch milliseconds) and reports how many were removed.
	DeleteCreatedBefore(cutoff int64) (int64, error)
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Put(conv *models.Conversation) error {
	if conv == nil || conv.ID == "" {
		return fmt.Errorf("conversation id is required")
	}
	// Upsert on the primary key; the whole row is replaced, no partial update.
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(conv).Error
}

func (r *conversationRepository) Get(id string) (*models.Conversation, error) {
	var conv models.Conversation
	res := r.db.Where("id = ?", id).Take(&conv)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &conv, nil
}

func (r *conversationRepository) ListByCreation() ([]models.Conversation, error) {
	var convs []models.Conversation
	res := r.db.Order("created_at asc").Find(&convs)
	if res.Error != nil {
		return nil, res.Error
	}
	return convs, nil
}

func (r *conversationRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.Conversation{}).Error
}

func (r *conversationRepository) DeleteCreatedBefore(cutoff int64) (int64, error) {
	res := r.db.Where("created_at < ?", cutoff).Delete(&models.Conversation{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
