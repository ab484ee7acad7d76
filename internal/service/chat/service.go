// Package chat contains the business logic for match conversations: history
// reads, message sends and live fanout through the relay hub.
package chat

import (
	"context"
	"encoding/json"
	"time"

	"harmony/internal/app"
	"harmony/internal/db"
	svcErr "harmony/internal/errors"
	"harmony/internal/metrics"
	"harmony/internal/repository"
)

// defaultPageSize bounds a history page when the caller does not say.
const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxContentBytes = 4000
)

// Service implements the conversation API on top of the repository layer and
// the relay hub.
type Service struct {
	appCtx *app.AppContext
	match  *repository.MatchRepository
	chat   *repository.ChatRepository
}

// NewService creates a chat service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		match:  repository.NewMatchRepository(appCtx.DB),
		chat:   repository.NewChatRepository(appCtx.DB),
	}
}

// MessageView is one chat message as served to clients, over HTTP and over
// the websocket alike.
type MessageView struct {
	ID             uint64    `json:"id"`
	ConversationID uint64    `json:"conversation_id"`
	SenderID       uint64    `json:"sender_id"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sent_at"`
}

// EnsureMember verifies the conversation exists and userID is one of its two
// members. Gatekeeper for every history read, send and socket join.
func (s *Service) EnsureMember(ctx context.Context, matchID, userID uint64) error {
	match, err := s.match.GetByID(ctx, matchID)
	if err != nil {
		return svcErr.Map(err)
	}
	if !match.Involves(userID) {
		return svcErr.Forbidden("not a member of this conversation")
	}

	exists, err := s.chat.ConversationExists(ctx, matchID)
	if err != nil {
		return svcErr.Map(err)
	}
	if !exists {
		return svcErr.NotFound("conversation not found")
	}
	return nil
}

// ListMessages returns one page of conversation history in send order plus
// the next-page token ("" on the last page).
func (s *Service) ListMessages(ctx context.Context, matchID, userID uint64, pageToken string, limit int) ([]MessageView, string, error) {
	if err := s.EnsureMember(ctx, matchID, userID); err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	messages, nextToken, err := s.chat.ListMessages(ctx, matchID, pageToken, limit)
	if err != nil {
		if pageToken != "" && svcErr.KindOf(err) == 0 {
			return nil, "", svcErr.Validation("invalid pagination token")
		}
		return nil, "", svcErr.Map(err)
	}

	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, toView(m))
	}
	return views, nextToken, nil
}

// SendMessage persists a message and fans it out to the conversation's
// connected sockets.
//
// Persistence is the source of truth: the relay publish happens only after a
// successful write, so every delivered frame is backed by a stored row.
func (s *Service) SendMessage(ctx context.Context, matchID, userID uint64, content string) (*MessageView, error) {
	if content == "" {
		return nil, svcErr.Validation("message content must not be empty")
	}
	if len(content) > maxContentBytes {
		return nil, svcErr.Validation("message content too long")
	}
	if err := s.EnsureMember(ctx, matchID, userID); err != nil {
		return nil, err
	}

	message := db.Message{
		ConversationID: matchID,
		SenderID:       userID,
		Content:        content,
	}
	if err := s.chat.CreateMessage(ctx, &message); err != nil {
		return nil, svcErr.Map(err)
	}
	metrics.MessagesSent.Inc()

	view := toView(message)
	if s.appCtx.Hub != nil {
		if data, err := json.Marshal(view); err == nil {
			s.appCtx.Hub.Publish(matchID, data)
		} else {
			s.appCtx.Logger.Error("message fanout marshal failed", "match_id", matchID, "err", err)
		}
	}

	return &view, nil
}

func toView(m db.Message) MessageView {
	return MessageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		SentAt:         m.SentAt,
	}
}
