package chat_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"harmony/internal/app"
	"harmony/internal/cache"
	"harmony/internal/config"
	"harmony/internal/db"
	svcErr "harmony/internal/errors"
	"harmony/internal/relay"
	"harmony/internal/repository"
	"harmony/internal/service/chat"
)

// setupService wires an in-memory DB, miniredis and a live hub into a
// chat.Service, with users 1 and 2 matched (match id returned).
func setupService(t *testing.T) (*chat.Service, *app.AppContext, uint64) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, dbase.AutoMigrate(db.Models()...))

	users := []db.User{
		{ID: 1, Username: "user1", Email: "u1@test.com", PasswordHash: "x", Active: true},
		{ID: 2, Username: "user2", Email: "u2@test.com", PasswordHash: "x", Active: true},
		{ID: 3, Username: "user3", Email: "u3@test.com", PasswordHash: "x", Active: true},
	}
	require.NoError(t, dbase.Create(&users).Error)

	_, match, err := repository.NewMatchRepository(dbase).
		CreateWithConversation(context.Background(), &db.Match{UserAID: 1, UserBID: 2})
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(cfg, dbase, cache.NewRedisCache(cfg), relay.NewHub(logger), logger)
	return chat.NewService(appCtx), appCtx, match.ID
}

func TestSendAndListMessages(t *testing.T) {
	ctx := context.Background()
	svc, _, matchID := setupService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.SendMessage(ctx, matchID, 1, fmt.Sprintf("hello %d", i))
		require.NoError(t, err)
	}
	_, err := svc.SendMessage(ctx, matchID, 2, "hey back")
	require.NoError(t, err)

	messages, next, err := svc.ListMessages(ctx, matchID, 1, "", 10)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Empty(t, next)
	assert.Equal(t, "hello 0", messages[0].Content)
	assert.Equal(t, "hey back", messages[3].Content)
	assert.Equal(t, uint64(2), messages[3].SenderID)
}

func TestListMessagesPaginates(t *testing.T) {
	ctx := context.Background()
	svc, _, matchID := setupService(t)

	for i := 0; i < 5; i++ {
		_, err := svc.SendMessage(ctx, matchID, 1, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	page, next, err := svc.ListMessages(ctx, matchID, 2, "", 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.NotEmpty(t, next)

	page, next, err = svc.ListMessages(ctx, matchID, 2, next, 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Empty(t, next)
	assert.Equal(t, "m4", page[1].Content)
}

func TestMembershipEnforced(t *testing.T) {
	ctx := context.Background()
	svc, _, matchID := setupService(t)

	// user3 is not part of the match
	_, _, err := svc.ListMessages(ctx, matchID, 3, "", 10)
	require.Error(t, err)
	assert.Equal(t, svcErr.KindForbidden, svcErr.KindOf(err))

	_, err = svc.SendMessage(ctx, matchID, 3, "let me in")
	require.Error(t, err)
	assert.Equal(t, svcErr.KindForbidden, svcErr.KindOf(err))

	// unknown conversation
	_, _, err = svc.ListMessages(ctx, 999, 1, "", 10)
	require.Error(t, err)
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))
}

func TestSendMessageValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, matchID := setupService(t)

	_, err := svc.SendMessage(ctx, matchID, 1, "")
	require.Error(t, err)
	assert.Equal(t, svcErr.KindValidation, svcErr.KindOf(err))
}

func TestInvalidPageToken(t *testing.T) {
	ctx := context.Background()
	svc, _, matchID := setupService(t)

	_, _, err := svc.ListMessages(ctx, matchID, 1, "not-a-token!!", 10)
	require.Error(t, err)
	assert.Equal(t, svcErr.KindValidation, svcErr.KindOf(err))
}

// TestSendFansOutToSubscribers checks that a persisted message reaches a
// connected socket in the conversation's room.
func TestSendFansOutToSubscribers(t *testing.T) {
	ctx := context.Background()
	svc, appCtx, matchID := setupService(t)

	server, client := net.Pipe()
	defer client.Close()
	sub := appCtx.Hub.Join(matchID, 2, server)
	defer appCtx.Hub.Leave(matchID, sub)

	frames := make(chan []byte, 1)
	go func() {
		_ = client.SetReadDeadline(time.Now().Add(time.Second))
		data, err := wsutil.ReadServerText(client)
		if err == nil {
			frames <- data
		}
	}()

	view, err := svc.SendMessage(ctx, matchID, 1, "ping")
	require.NoError(t, err)

	select {
	case data := <-frames:
		assert.Contains(t, string(data), `"content":"ping"`)
		assert.Contains(t, string(data), fmt.Sprintf(`"id":%d`, view.ID))
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
	}
}
