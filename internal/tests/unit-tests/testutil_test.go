package unit_tests

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"armonia/internal/chatstore"
	"armonia/internal/database"
	"armonia/internal/repositories"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Init(database.Config{
		Path: filepath.Join(t.TempDir(), "armonia.db"),
	})
	require.NoError(t, err)
	return db
}

func newTestStore(t *testing.T) (*chatstore.Store, repositories.ConversationRepository) {
	t.Helper()
	repo := repositories.NewConversationRepository(newTestDB(t))
	return chatstore.New(repo, nil), repo
}
