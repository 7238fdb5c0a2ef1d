package mocks

import (
	"context"

	"armonia/internal/api"
)

type ChatAPIMock struct {
	ChatFunc       func(ctx context.Context, question, kbID string) (*api.ChatResponse, error)
	ChatStreamFunc func(ctx context.Context, question, kbID string, onDelta func(delta string)) (*api.ChatResponse, error)
}

func (m *ChatAPIMock) Chat(ctx context.Context, question, kbID string) (*api.ChatResponse, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, question, kbID)
	}
	return &api.ChatResponse{}, nil
}

func (m *ChatAPIMock) ChatStream(ctx context.Context, question, kbID string, onDelta func(delta string)) (*api.ChatResponse, error) {
	if m.ChatStreamFunc != nil {
		return m.ChatStreamFunc(ctx, question, kbID, onDelta)
	}
	return &api.ChatResponse{}, nil
}
