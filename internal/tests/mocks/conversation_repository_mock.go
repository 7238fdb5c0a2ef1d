package mocks

import (
	"armonia/internal/models"
)

type ConversationRepositoryMock struct {
	PutFunc                 func(conv *models.Conversation) error
	GetFunc                 func(id string) (*models.Conversation, error)
	ListByCreationFunc      func() ([]models.Conversation, error)
	DeleteFunc              func(id string) error
	DeleteCreatedBeforeFunc func(cutoff int64) (int64, error)
}

func (m *ConversationRepositoryMock) Put(conv *models.Conversation) error {
	if m.PutFunc != nil {
		return m.PutFunc(conv)
	}
	return nil
}

func (m *ConversationRepositoryMock) Get(id string) (*models.Conversation, error) {
	if m.GetFunc != nil {
		return m.GetFunc(id)
	}
	return nil, nil
}

func (m *ConversationRepositoryMock) ListByCreation() ([]models.Conversation, error) {
	if m.ListByCreationFunc != nil {
		return m.ListByCreationFunc()
	}
	return nil, nil
}

func (m *ConversationRepositoryMock) Delete(id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(id)
	}
	return nil
}

func (m *ConversationRepositoryMock) DeleteCreatedBefore(cutoff int64) (int64, error) {
	if m.DeleteCreatedBeforeFunc != nil {
		return m.DeleteCreatedBeforeFunc(cutoff)
	}
	return 0, nil
}
