package unit_tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"armonia/internal/models"
	"armonia/internal/repositories"
)

func emptyRow(id string, createdAt int64) *models.Conversation {
	return &models.Conversation{
		ID:        id,
		Title:     "New Chat",
		Messages:  datatypes.JSON("[]"),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestConversationRepository_PutAndGet(t *testing.T) {
	repo := repositories.NewConversationRepository(newTestDB(t))

	require.NoError(t, repo.Put(emptyRow("1700000000000", 1700000000000)))

	got, err := repo.Get("1700000000000")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "New Chat", got.Title)
	assert.Equal(t, int64(1700000000000), got.CreatedAt)
}

func TestConversationRepository_Get_MissingIsNil(t *testing.T) {
	repo := repositories.NewConversationRepository(newTestDB(t))

	got, err := repo.Get("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConversationRepository_Put_RequiresID(t *testing.T) {
	repo := repositories.NewConversationRepository(newTestDB(t))

	assert.Error(t, repo.Put(&models.Conversation{Messages: datatypes.JSON("[]")}))
}

func TestConversationRepository_Put_LastWriteWins(t *testing.T) {
	repo := repositories.NewConversationRepository(newTestDB(t))

	first := emptyRow("x", 100)
	first.Title = "first"
	first.UpdatedAt = 100
	require.NoError(t, repo.Put(first))

	second := emptyRow("x", 100)
	second.Title = "second"
	second.UpdatedAt = 200
	require.NoError(t, repo.Put(second))

	got, err := repo.Get("x")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Title)
	assert.Equal(t, int64(200), got.UpdatedAt)

	all, err := repo.ListByCreation()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConversationRepository_ListByCreation_Ascending(t *testing.T) {
	repo := repositories.NewConversationRepository(newTestDB(t))

	// Inserted out of order on purpose.
	require.NoError(t, repo.Put(emptyRow("a", 1)))
	require.NoError(t, repo.Put(emptyRow("b", 3)))
	require.NoError(t, repo.Put(emptyRow("c", 2)))

	all, err := repo.ListByCreation()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(1), all[0].CreatedAt)
	assert.Equal(t, int64(2), all[1].CreatedAt)
	assert.Equal(t, int64(3), all[2].CreatedAt)
}

func TestConversationRepository_Delete_AbsentIsNoop(t *testing.T) {
	repo := repositories.NewConversationRepository(newTestDB(t))

	assert.NoError(t, repo.Delete("never-existed"))
}

func TestConversationRepository_DeleteCreatedBefore_Boundary(t *testing.T) {
	repo := repositories.NewConversationRepository(newTestDB(t))

	now := time.Now()
	fresh := now.Add(-1 * time.Hour).UnixMilli()
	almost := now.Add(-23*time.Hour - 59*time.Minute).UnixMilli()
	expired := now.Add(-25 * time.Hour).UnixMilli()

	require.NoError(t, repo.Put(emptyRow("fresh", fresh)))
	require.NoError(t, repo.Put(emptyRow("almost", almost)))
	require.NoError(t, repo.Put(emptyRow("expired", expired)))

	cutoff := now.Add(-24 * time.Hour).UnixMilli()
	deleted, err := repo.DeleteCreatedBefore(cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	gone, err := repo.Get("expired")
	require.NoError(t, err)
	assert.Nil(t, gone)

	for _, id := range []string{"fresh", "almost"} {
		kept, err := repo.Get(id)
		require.NoError(t, err)
		assert.NotNil(t, kept, id)
	}
}

func TestDatabaseInit_StampsSchemaVersion(t *testing.T) {
	db := newTestDB(t)

	var settings models.Settings
	require.NoError(t, db.First(&settings, 1).Error)
	assert.Equal(t, models.SchemaVersion, settings.Version)
}
