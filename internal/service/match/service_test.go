package match_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"harmony/internal/app"
	"harmony/internal/cache"
	"harmony/internal/config"
	"harmony/internal/db"
	svcErr "harmony/internal/errors"
	"harmony/internal/matching"
	"harmony/internal/service/match"
)

//
// Test helpers
//

// seedTasteData inserts a small deterministic dataset.
//
// Dataset:
//   - Catalog: genres rock(1), jazz(2), metal(3); artist a1(1); song s1(1)
//   - Users: 1..4 active, 5 inactive
//   - Preferences:
//   - user1: rock=10, jazz=4
//   - user2: rock=6, metal=2 (genre sim with user1 = 0.545)
//   - user3: jazz=8
//   - user4: none
func seedTasteData(t *testing.T, gdb *gorm.DB) {
	t.Helper()

	require.NoError(t, gdb.Create(&[]db.Genre{
		{ID: 1, Name: "Rock"}, {ID: 2, Name: "Jazz"}, {ID: 3, Name: "Metal"},
	}).Error)
	require.NoError(t, gdb.Create(&db.Artist{ID: 1, Name: "Artist One", SpotifyID: "a1"}).Error)
	require.NoError(t, gdb.Create(&db.Song{ID: 1, Name: "Song One", SpotifyID: "s1"}).Error)

	users := []db.User{
		{ID: 1, Username: "user1", Email: "u1@test.com", PasswordHash: "x", Active: true},
		{ID: 2, Username: "user2", Email: "u2@test.com", PasswordHash: "x", Active: true},
		{ID: 3, Username: "user3", Email: "u3@test.com", PasswordHash: "x", Active: true},
		{ID: 4, Username: "user4", Email: "u4@test.com", PasswordHash: "x", Active: true},
		{ID: 5, Username: "user5", Email: "u5@test.com", PasswordHash: "x", Active: false},
	}
	require.NoError(t, gdb.Create(&users).Error)

	prefs := []db.GenrePreference{
		{UserID: 1, GenreID: 1, Weight: 10},
		{UserID: 1, GenreID: 2, Weight: 4},
		{UserID: 2, GenreID: 1, Weight: 6},
		{UserID: 2, GenreID: 3, Weight: 2},
		{UserID: 3, GenreID: 2, Weight: 8},
	}
	require.NoError(t, gdb.Create(&prefs).Error)
}

// setupService spins up an in-memory SQLite DB, applies migrations, seeds
// test data, starts a miniredis, and wires everything into a match.Service.
//
// Each test gets its own isolated DB + Redis.
func setupService(t *testing.T) (*match.Service, *app.AppContext) {
	t.Helper()

	// _txlock=immediate keeps concurrent accept transactions from deadlocking
	// on a read-to-write lock upgrade; they serialize on the busy timeout.
	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000&_txlock=immediate", t.Name())
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
	seedTasteData(t, dbase)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(cfg, dbase, redisCache, nil, logger)
	return match.NewService(appCtx), appCtx
}

//
// Tests
//

// TestAcceptCreatesMatchAndConversation verifies the accept path end to end:
// a match row with frozen scores plus its conversation in one shot.
func TestAcceptCreatesMatchAndConversation(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	m, created, err := svc.Accept(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint64(1), m.UserAID)
	assert.Equal(t, uint64(2), m.UserBID)

	// genre sim 0.545 → 54.5 frozen; default weights → 0.545/3×100
	assert.Equal(t, 54.5, m.GenreScore)
	assert.Equal(t, 18.167, m.CombinedScore)

	var conversation db.Conversation
	require.NoError(t, appCtx.DB.First(&conversation, "match_id = ?", m.ID).Error)

	// accept leaves an audit trail
	var swipes int64
	appCtx.DB.Model(&db.Swipe{}).Where("swiper_id = ? AND type = ?", 1, db.SwipeLike).Count(&swipes)
	assert.Equal(t, int64(1), swipes)
}

// TestAcceptIdempotentBothOrders ensures accepting twice, in either
// direction, converges on a single match and conversation.
func TestAcceptIdempotentBothOrders(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	first, created, err := svc.Accept(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.Accept(ctx, 2, 1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var matches, conversations int64
	appCtx.DB.Model(&db.Match{}).Count(&matches)
	appCtx.DB.Model(&db.Conversation{}).Count(&conversations)
	assert.Equal(t, int64(1), matches)
	assert.Equal(t, int64(1), conversations)
}

// TestAcceptConcurrentBothSides races both directions of the same pair.
// Exactly one match must exist afterwards and neither call may error.
func TestAcceptConcurrentBothSides(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _, errs[0] = svc.Accept(ctx, 1, 2)
	}()
	go func() {
		defer wg.Done()
		_, _, errs[1] = svc.Accept(ctx, 2, 1)
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	var matches, conversations int64
	appCtx.DB.Model(&db.Match{}).Count(&matches)
	appCtx.DB.Model(&db.Conversation{}).Count(&conversations)
	assert.Equal(t, int64(1), matches)
	assert.Equal(t, int64(1), conversations)
}

func TestAcceptSelfRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, _, err := svc.Accept(ctx, 1, 1)
	require.Error(t, err)
	assert.Equal(t, svcErr.KindValidation, svcErr.KindOf(err))
}

func TestAcceptUnknownTarget(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, _, err := svc.Accept(ctx, 1, 999)
	require.Error(t, err)
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))
}

// TestRejectIsDirectedAndIdempotent: repeat rejections collapse, the reverse
// direction stays independent, and the rejected user keeps seeing the rejecter.
func TestRejectIsDirectedAndIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	require.NoError(t, svc.Reject(ctx, 1, 3))
	require.NoError(t, svc.Reject(ctx, 1, 3))

	var rejections int64
	appCtx.DB.Model(&db.MatchRejection{}).Count(&rejections)
	assert.Equal(t, int64(1), rejections)

	// 3 still sees 1
	candidates, err := svc.Candidates(ctx, 3)
	require.NoError(t, err)
	ids := candidateIDs(candidates)
	assert.Contains(t, ids, uint64(1))

	// 1 no longer sees 3
	candidates, err = svc.Candidates(ctx, 1)
	require.NoError(t, err)
	assert.NotContains(t, candidateIDs(candidates), uint64(3))
}

func TestRejectSelfRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	err := svc.Reject(ctx, 1, 1)
	require.Error(t, err)
	assert.Equal(t, svcErr.KindValidation, svcErr.KindOf(err))
}

// TestCandidatesPoolAndRanking verifies exclusions and compatibility order.
func TestCandidatesPoolAndRanking(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	// user1 matched with 3, so only 2 and 4 remain (5 is inactive)
	_, _, err := svc.Accept(ctx, 1, 3)
	require.NoError(t, err)

	candidates, err := svc.Candidates(ctx, 1)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// user2 shares rock with user1, user4 shares nothing
	assert.Equal(t, uint64(2), candidates[0].UserID)
	assert.Equal(t, 18.167, candidates[0].Compatibility)
	assert.Equal(t, uint64(4), candidates[1].UserID)
	assert.Equal(t, 0.0, candidates[1].Compatibility)
}

// TestCandidatesTopPreferences verifies the taste summary on candidate cards.
func TestCandidatesTopPreferences(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	candidates, err := svc.Candidates(ctx, 4)
	require.NoError(t, err)

	for _, c := range candidates {
		if c.UserID != 1 {
			continue
		}
		require.Len(t, c.TopGenres, 2)
		assert.Equal(t, "Rock", c.TopGenres[0].Name)
		assert.Equal(t, 10.0, c.TopGenres[0].Weight)
	}
}

// TestScoringWeightsRoundTrip covers defaults, validation and the effect of
// a custom configuration on scoring.
func TestScoringWeightsRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	weights, err := svc.ScoringWeights(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, matching.DefaultWeights(), weights)

	// out of range → rejected, not clamped
	err = svc.SetScoringWeights(ctx, 1, matching.Weights{Genre: 6, Artist: 1, Song: 1})
	require.Error(t, err)
	assert.Equal(t, svcErr.KindValidation, svcErr.KindOf(err))

	require.NoError(t, svc.SetScoringWeights(ctx, 1, matching.Weights{Genre: 5, Artist: 0, Song: 0}))

	// genre-only weighting: compatibility equals the genre similarity ×100
	candidates, err := svc.Candidates(ctx, 1)
	require.NoError(t, err)
	for _, c := range candidates {
		if c.UserID == 2 {
			assert.Equal(t, 54.5, c.Compatibility)
		}
	}
}

// TestCountMatchesCacheFirst verifies DB fallback, cache hit and the bump on
// new matches.
func TestCountMatchesCacheFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	count, err := svc.CountMatches(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	_, _, err = svc.Accept(ctx, 1, 2)
	require.NoError(t, err)

	// cached zero was bumped by the accept
	count, err = svc.CountMatches(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = svc.CountMatches(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

// TestCountMatchesBumpSkipsAbsentKey: with no cached key, a new match must
// not seed the counter at 1; the next read falls back to the DB for the
// true count.
func TestCountMatchesBumpSkipsAbsentKey(t *testing.T) {
	ctx := context.Background()
	svc, appCtx := setupService(t)

	_, _, err := svc.Accept(ctx, 1, 2)
	require.NoError(t, err)

	// simulate cache expiry between matches
	require.NoError(t, appCtx.RedisCache.Client.FlushAll(ctx).Err())

	_, _, err = svc.Accept(ctx, 1, 3)
	require.NoError(t, err)

	count, err := svc.CountMatches(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

// TestListMatches resolves the other member per match, newest first.
func TestListMatches(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, _, err := svc.Accept(ctx, 1, 2)
	require.NoError(t, err)
	_, _, err = svc.Accept(ctx, 3, 1)
	require.NoError(t, err)

	summaries, err := svc.ListMatches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	for _, s := range summaries {
		assert.NotEqual(t, uint64(1), s.UserID)
		assert.NotEmpty(t, s.Username)
	}

	summaries, err = svc.ListMatches(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func candidateIDs(candidates []match.Candidate) []uint64 {
	ids := make([]uint64, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.UserID)
	}
	return ids
}
