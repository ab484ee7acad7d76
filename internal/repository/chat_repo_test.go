package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harmony/internal/db"
	"harmony/internal/repository"
)

func TestConversationExists(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	matches := repository.NewMatchRepository(dbase)
	chats := repository.NewChatRepository(dbase)

	_, match, err := matches.CreateWithConversation(ctx, &db.Match{UserAID: 1, UserBID: 2})
	require.NoError(t, err)

	exists, err := chats.ConversationExists(ctx, match.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = chats.ConversationExists(ctx, 999)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListMessagesPagination(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	matches := repository.NewMatchRepository(dbase)
	chats := repository.NewChatRepository(dbase)

	_, match, err := matches.CreateWithConversation(ctx, &db.Match{UserAID: 1, UserBID: 2})
	require.NoError(t, err)

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		message := db.Message{
			ConversationID: match.ID,
			SenderID:       uint64(1 + i%2),
			Content:        fmt.Sprintf("message %d", i),
			SentAt:         base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, chats.CreateMessage(ctx, &message))
	}

	// first page
	page, token, err := chats.ListMessages(ctx, match.ID, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "message 0", page[0].Content)
	assert.Equal(t, "message 1", page[1].Content)
	require.NotEmpty(t, token)

	// second page continues where the first ended
	page, token, err = chats.ListMessages(ctx, match.ID, token, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "message 2", page[0].Content)
	assert.Equal(t, "message 3", page[1].Content)
	require.NotEmpty(t, token)

	// last page has no next token
	page, token, err = chats.ListMessages(ctx, match.ID, token, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "message 4", page[0].Content)
	assert.Empty(t, token)
}

func TestListMessagesSameTimestampTieBreak(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	matches := repository.NewMatchRepository(dbase)
	chats := repository.NewChatRepository(dbase)

	_, match, err := matches.CreateWithConversation(ctx, &db.Match{UserAID: 1, UserBID: 2})
	require.NoError(t, err)

	at := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		message := db.Message{
			ConversationID: match.ID,
			SenderID:       1,
			Content:        fmt.Sprintf("burst %d", i),
			SentAt:         at,
		}
		require.NoError(t, chats.CreateMessage(ctx, &message))
	}

	var seen []string
	token := ""
	for {
		page, next, err := chats.ListMessages(ctx, match.ID, token, 1)
		require.NoError(t, err)
		for _, m := range page {
			seen = append(seen, m.Content)
		}
		if next == "" {
			break
		}
		token = next
	}

	assert.Equal(t, []string{"burst 0", "burst 1", "burst 2"}, seen)
}

func TestListMessagesInvalidToken(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	chats := repository.NewChatRepository(dbase)

	_, _, err := chats.ListMessages(ctx, 1, "not-base64!!", 10)
	assert.Error(t, err)
}
