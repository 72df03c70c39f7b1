package message

import (
	"context"
	"testing"
	"time"

	"barter_backend/internal/platform/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_ListByMatch(t *testing.T) {
	db, err := database.NewTestDB(&Message{})
	require.NoError(t, err)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	matchID := uuid.New()
	sender := uuid.New()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	// Inserted out of order to prove the ordering comes from created_at.
	for _, i := range []int{2, 0, 3, 1} {
		require.NoError(t, repo.Create(ctx, &Message{
			MatchID:   matchID,
			SenderID:  sender,
			Content:   []string{"a", "b", "c", "d"}[i],
			Type:      TypeText,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(ctx, NewSystemMessage(uuid.New(), "elsewhere")))

	page, total, err := repo.ListByMatch(ctx, matchID, 2, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "b", page[0].Content)
	assert.Equal(t, "c", page[1].Content)

	all, _, err := repo.ListByMatch(ctx, matchID, 50, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "a", all[0].Content)
	assert.Equal(t, "d", all[3].Content)
}

func TestRepository_ListByMatch_SameTimestampPagesByID(t *testing.T) {
	db, err := database.NewTestDB(&Message{})
	require.NoError(t, err)
	repo := NewGORMRepository(db)
	ctx := context.Background()

	matchID := uuid.New()
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ids := []string{
		"00000000-0000-0000-0000-000000000003",
		"00000000-0000-0000-0000-000000000001",
		"00000000-0000-0000-0000-000000000004",
		"00000000-0000-0000-0000-000000000002",
	}
	for _, id := range ids {
		require.NoError(t, repo.Create(ctx, &Message{
			ID:        uuid.MustParse(id),
			MatchID:   matchID,
			SenderID:  uuid.New(),
			Content:   id[len(id)-1:],
			Type:      TypeText,
			CreatedAt: at,
		}))
	}

	var seen []string
	for offset := 0; offset < len(ids); offset += 2 {
		page, _, err := repo.ListByMatch(ctx, matchID, 2, offset)
		require.NoError(t, err)
		for _, m := range page {
			seen = append(seen, m.Content)
		}
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, seen)
}

func TestNewSystemMessage(t *testing.T) {
	msg := NewSystemMessage(uuid.New(), "It's a match!")
	assert.True(t, msg.IsSystem())
	assert.Equal(t, TypeSystem, msg.Type)
}
