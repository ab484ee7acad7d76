package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"harmony/internal/db"
	"harmony/internal/utils/pagination"
)

// ChatRepository provides data access for conversations and their messages.
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new repository bound to the given DB connection.
func NewChatRepository(database *gorm.DB) *ChatRepository {
	return &ChatRepository{db: database}
}

// ConversationExists reports whether the match has a conversation attached.
func (r *ChatRepository) ConversationExists(ctx context.Context, matchID uint64) (bool, error) {
	var conversation db.Conversation
	err := r.db.WithContext(ctx).First(&conversation, "match_id = ?", matchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateMessage appends a message to a conversation.
func (r *ChatRepository) CreateMessage(ctx context.Context, message *db.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// ListMessages returns one page of a conversation's history in send order,
// plus the cursor for the next page ("" on the last page).
//
// The cursor pins (sent_at, id) of the last row served; ties on sent_at are
// broken by id so a page boundary inside a same-millisecond burst never
// skips or repeats rows. Fetches limit+1 rows to decide whether a next page
// exists.
func (r *ChatRepository) ListMessages(ctx context.Context, conversationID uint64, pageToken string, limit int) ([]db.Message, string, error) {
	cursor, err := pagination.Decode(pageToken)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID)
	if cursor.ID > 0 {
		after := time.UnixMilli(cursor.SentUnix)
		query = query.Where(
			"(sent_at > ?) OR (sent_at = ? AND id > ?)",
			after, after, cursor.ID,
		)
	}

	var messages []db.Message
	err = query.
		Order("sent_at ASC, id ASC").
		Limit(limit + 1).
		Find(&messages).Error
	if err != nil {
		return nil, "", err
	}

	nextToken := ""
	if len(messages) > limit {
		messages = messages[:limit]
		last := messages[len(messages)-1]
		nextToken, err = pagination.Encode(pagination.Cursor{
			ID:       last.ID,
			SentUnix: last.SentAt.UnixMilli(),
		})
		if err != nil {
			return nil, "", err
		}
	}

	return messages, nextToken, nil
}
