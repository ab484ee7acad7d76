// Package match contains the business logic for candidate discovery and the
// match lifecycle: scoring, accepting, rejecting, listing and weight
// configuration.
package match

import (
	"context"
	"math"
	"sort"
	"time"

	"harmony/internal/app"
	"harmony/internal/db"
	svcErr "harmony/internal/errors"
	"harmony/internal/matching"
	"harmony/internal/metrics"
	"harmony/internal/repository"
)

// topPreferenceCount caps the per-category taste summary on candidate cards.
const topPreferenceCount = 3

// Service implements the matching API on top of the repository and cache
// layers.
type Service struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
	prefs  *repository.PreferenceRepository
	match  *repository.MatchRepository
	scorer *matching.Scorer
}

// NewService creates a match service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	prefs := repository.NewPreferenceRepository(appCtx.DB)
	return &Service{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
		prefs:  prefs,
		match:  repository.NewMatchRepository(appCtx.DB),
		scorer: matching.NewScorer(prefs),
	}
}

// Candidate is a scored potential match with a taste summary.
type Candidate struct {
	UserID        uint64                  `json:"user_id"`
	Username      string                  `json:"username"`
	Age           int                     `json:"age,omitempty"`
	Location      string                  `json:"location,omitempty"`
	Scores        matching.Scores         `json:"scores"`
	Compatibility float64                 `json:"compatibility"`
	TopGenres     []repository.Preference `json:"top_genres"`
	TopArtists    []repository.Preference `json:"top_artists"`
	TopSongs      []repository.Preference `json:"top_songs"`
}

// MatchSummary is one accepted match as seen by one of its members.
type MatchSummary struct {
	MatchID       uint64          `json:"match_id"`
	UserID        uint64          `json:"user_id"`
	Username      string          `json:"username"`
	Scores        matching.Scores `json:"scores"`
	Compatibility float64         `json:"compatibility"`
	MatchedAt     time.Time       `json:"matched_at"`
}

// Candidates returns the user's candidate pool scored and ranked.
//
// Behavior:
//   - Pool excludes the user, existing matches (either side) and anyone the
//     user rejected; users who rejected the requester stay visible.
//   - Every candidate is scored with the requester's weight configuration.
//   - Ordered by compatibility descending, user id ascending on ties.
func (s *Service) Candidates(ctx context.Context, userID uint64) ([]Candidate, error) {
	s.appCtx.Logger.Debug("Candidates called", "user", userID)

	weights, err := s.prefs.WeightSettings(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	ids, err := s.match.EligibleIDs(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	candidates := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		user, ok := users[id]
		if !ok {
			continue
		}

		scores, err := s.scorer.Score(ctx, userID, id, weights)
		if err != nil {
			return nil, svcErr.Map(err)
		}

		candidate := Candidate{
			UserID:        id,
			Username:      user.Username,
			Age:           user.Age,
			Location:      user.Location,
			Scores:        scores,
			Compatibility: scores.Compatibility(weights),
		}
		if candidate.TopGenres, err = s.prefs.TopByCategory(ctx, id, matching.CategoryGenre, topPreferenceCount); err != nil {
			return nil, svcErr.Map(err)
		}
		if candidate.TopArtists, err = s.prefs.TopByCategory(ctx, id, matching.CategoryArtist, topPreferenceCount); err != nil {
			return nil, svcErr.Map(err)
		}
		if candidate.TopSongs, err = s.prefs.TopByCategory(ctx, id, matching.CategorySong, topPreferenceCount); err != nil {
			return nil, svcErr.Map(err)
		}
		candidates = append(candidates, candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Compatibility != candidates[j].Compatibility {
			return candidates[i].Compatibility > candidates[j].Compatibility
		}
		return candidates[i].UserID < candidates[j].UserID
	})

	s.appCtx.Logger.Debug("Candidates result", "user", userID, "count", len(candidates))
	return candidates, nil
}

// Accept records that userID wants to match targetID.
//
// Behavior:
//   - Scores the pair with the acceptor's weight configuration and freezes
//     the scores on the match row.
//   - Match and conversation are created atomically; if the pair is already
//     matched (including losing a concurrent race from the other side) the
//     existing match is returned and nothing else changes.
//   - On a new match both users' cached match counts are bumped.
func (s *Service) Accept(ctx context.Context, userID, targetID uint64) (*db.Match, bool, error) {
	s.appCtx.Logger.Debug("Accept called", "user", userID, "target", targetID)

	if userID == targetID {
		return nil, false, svcErr.Validation("cannot match with yourself")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return nil, false, svcErr.Map(err)
	}

	weights, err := s.prefs.WeightSettings(ctx, userID)
	if err != nil {
		return nil, false, svcErr.Map(err)
	}
	scores, err := s.scorer.Score(ctx, userID, targetID, weights)
	if err != nil {
		return nil, false, svcErr.Map(err)
	}

	match := &db.Match{
		UserAID:       userID,
		UserBID:       targetID,
		GenreScore:    asPercent(scores.Genre),
		ArtistScore:   asPercent(scores.Artist),
		SongScore:     asPercent(scores.Song),
		CombinedScore: scores.Compatibility(weights),
	}
	created, match, err := s.match.CreateWithConversation(ctx, match)
	if err != nil {
		return nil, false, svcErr.Map(err)
	}

	// audit log; a failure here never unwinds the match
	if err := s.match.AppendSwipe(ctx, userID, targetID, db.SwipeLike); err != nil {
		s.appCtx.Logger.Error("AppendSwipe failed", "user", userID, "target", targetID, "err", err)
	}

	if created {
		s.bumpMatchCount(ctx, match.UserAID)
		s.bumpMatchCount(ctx, match.UserBID)
		metrics.MatchesCreated.Inc()
		s.appCtx.Logger.Info("match created",
			"match_id", match.ID,
			"user_a", match.UserAID,
			"user_b", match.UserBID,
			"compatibility", match.CombinedScore,
		)
	}

	return match, created, nil
}

// Reject records that userID does not want to see targetID again.
//
// Directed and idempotent: repeat rejections are no-ops, and the reverse
// direction is untouched.
func (s *Service) Reject(ctx context.Context, userID, targetID uint64) error {
	s.appCtx.Logger.Debug("Reject called", "user", userID, "target", targetID)

	if userID == targetID {
		return svcErr.Validation("cannot reject yourself")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return svcErr.Map(err)
	}

	if err := s.match.CreateRejection(ctx, userID, targetID); err != nil {
		return svcErr.Map(err)
	}

	if err := s.match.AppendSwipe(ctx, userID, targetID, db.SwipeDislike); err != nil {
		s.appCtx.Logger.Error("AppendSwipe failed", "user", userID, "target", targetID, "err", err)
	}
	return nil
}

// ListMatches returns the user's matches with the other member resolved,
// newest first.
func (s *Service) ListMatches(ctx context.Context, userID uint64) ([]MatchSummary, error) {
	matches, err := s.match.ListForUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	otherIDs := make([]uint64, 0, len(matches))
	for _, m := range matches {
		otherIDs = append(otherIDs, m.OtherUser(userID))
	}
	users, err := s.users.ListByIDs(ctx, otherIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	summaries := make([]MatchSummary, 0, len(matches))
	for _, m := range matches {
		otherID := m.OtherUser(userID)
		summaries = append(summaries, MatchSummary{
			MatchID:  m.ID,
			UserID:   otherID,
			Username: users[otherID].Username,
			Scores: matching.Scores{
				Genre:  m.GenreScore / 100,
				Artist: m.ArtistScore / 100,
				Song:   m.SongScore / 100,
			},
			Compatibility: m.CombinedScore,
			MatchedAt:     m.CreatedAt,
		})
	}
	return summaries, nil
}

// CountMatches returns how many matches the user has.
// Cache-first strategy:
//  1. Attempts to read from Redis (matches:count:userID).
//  2. On cache miss, falls back to DB via repository.CountForUser.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) CountMatches(ctx context.Context, userID uint64) (int64, error) {
	if count, ok, err := s.appCtx.RedisCache.GetMatchCount(ctx, userID); err == nil && ok {
		return count, nil
	} else if err != nil {
		s.appCtx.Logger.Error("match count cache read failed", "user", userID, "err", err)
	}

	count, err := s.match.CountForUser(ctx, userID)
	if err != nil {
		return 0, svcErr.Map(err)
	}
	if err := s.appCtx.RedisCache.SetMatchCount(ctx, userID, count); err != nil {
		s.appCtx.Logger.Error("match count cache write failed", "user", userID, "err", err)
	}
	return count, nil
}

// ScoringWeights returns the user's weight configuration (defaults when
// never configured).
func (s *Service) ScoringWeights(ctx context.Context, userID uint64) (matching.Weights, error) {
	weights, err := s.prefs.WeightSettings(ctx, userID)
	if err != nil {
		return matching.Weights{}, svcErr.Map(err)
	}
	return weights, nil
}

// SetScoringWeights validates and persists a weight configuration.
// Each component must be in [0, MaxCategoryWeight]; out-of-range values are
// rejected, never clamped.
func (s *Service) SetScoringWeights(ctx context.Context, userID uint64, w matching.Weights) error {
	for _, v := range []float64{w.Genre, w.Artist, w.Song} {
		if v < 0 || v > matching.MaxCategoryWeight {
			return svcErr.Validation("weights must be between 0 and 5")
		}
	}
	if err := s.prefs.SaveWeightSettings(ctx, userID, w); err != nil {
		return svcErr.Map(err)
	}
	return nil
}

// asPercent scales a [0,1] similarity onto [0,100] for frozen storage,
// rounded so the stored value carries no float drift.
func asPercent(sim float64) float64 {
	return math.Round(sim*100000) / 1000
}

// bumpMatchCount increments a user's cached count only when the key is
// live. Incrementing an absent key would seed it at 1 and undercount users
// whose cache expired; leaving it absent lets the next read fall back to
// the DB.
func (s *Service) bumpMatchCount(ctx context.Context, userID uint64) {
	key := s.appCtx.RedisCache.KeyForMatchCount(userID)
	exists, err := s.appCtx.RedisCache.Exists(ctx, key)
	if err != nil {
		s.appCtx.Logger.Error("match count bump failed", "user", userID, "err", err)
		return
	}
	if !exists {
		return
	}
	if _, err := s.appCtx.RedisCache.Incr(ctx, key); err != nil {
		s.appCtx.Logger.Error("match count bump failed", "user", userID, "err", err)
		return
	}
	_ = s.appCtx.RedisCache.Client.Expire(ctx, key, time.Hour).Err()
}
