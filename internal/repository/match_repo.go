package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"harmony/internal/db"
)

// MatchRepository provides data access for matches, rejections, swipes and
// the candidate pool. All pair writes go through normalized (lo, hi) order so
// (A,B) and (B,A) address the same row.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// NormalizePair orders a user pair lower id first.
func NormalizePair(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

// GetByID returns a match or gorm.ErrRecordNotFound.
func (r *MatchRepository) GetByID(ctx context.Context, id uint64) (*db.Match, error) {
	var match db.Match
	if err := r.db.WithContext(ctx).First(&match, id).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

// FindByPair returns the match for an unordered pair, or nil when none exists.
func (r *MatchRepository) FindByPair(ctx context.Context, a, b uint64) (*db.Match, error) {
	lo, hi := NormalizePair(a, b)
	var match db.Match
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", lo, hi).
		First(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// CreateWithConversation inserts the match and its conversation in one
// transaction, normalizing the pair first.
//
// Behavior:
//   - If the pair already has a match, it is returned with created=false.
//   - Otherwise match + conversation are created together; if the
//     conversation insert fails the match insert rolls back with it — a
//     match never exists without its conversation.
//   - When a concurrent accept wins the race, our insert fails on
//     idx_match_pair, the transaction rolls back, and the winner's committed
//     row is re-read and returned. The caller never sees the conflict.
func (r *MatchRepository) CreateWithConversation(ctx context.Context, match *db.Match) (created bool, out *db.Match, err error) {
	match.UserAID, match.UserBID = NormalizePair(match.UserAID, match.UserBID)

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing db.Match
		findErr := tx.
			Where("user_a_id = ? AND user_b_id = ?", match.UserAID, match.UserBID).
			First(&existing).Error
		if findErr == nil {
			out = &existing
			return nil
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}

		if createErr := tx.Create(match).Error; createErr != nil {
			return createErr
		}
		conversation := db.Conversation{MatchID: match.ID}
		if createErr := tx.Create(&conversation).Error; createErr != nil {
			return createErr
		}

		created = true
		out = match
		return nil
	})

	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		existing, findErr := r.FindByPair(ctx, match.UserAID, match.UserBID)
		if findErr != nil {
			return false, nil, findErr
		}
		if existing != nil {
			return false, existing, nil
		}
		return false, nil, err
	}
	if err != nil {
		return false, nil, err
	}
	return created, out, nil
}

// ListForUser returns all matches with the user on either side, newest first.
func (r *MatchRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// CountForUser returns how many matches the user is part of.
// Used in conjunction with the Redis cache (DB is fallback).
func (r *MatchRepository) CountForUser(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Count(&count).Error
	return count, err
}

// CreateRejection inserts a directed rejection row.
//
// Insert-or-ignore on the composite PK: repeat rejections of the same
// directed pair collapse to the original row and are not an error.
func (r *MatchRepository) CreateRejection(ctx context.Context, rejecterID, rejectedID uint64) error {
	rejection := db.MatchRejection{
		RejecterID: rejecterID,
		RejectedID: rejectedID,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rejecter_id"}, {Name: "rejected_id"}},
			DoNothing: true,
		}).
		Create(&rejection).Error
}

// CountRejections returns the number of rejection rows for a directed pair.
// Test helper semantics; the candidate filter uses EligibleIDs.
func (r *MatchRepository) CountRejections(ctx context.Context, rejecterID, rejectedID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.MatchRejection{}).
		Where("rejecter_id = ? AND rejected_id = ?", rejecterID, rejectedID).
		Count(&count).Error
	return count, err
}

// AppendSwipe records an accept/reject action in the append-only swipe log.
func (r *MatchRepository) AppendSwipe(ctx context.Context, swiperID, targetID uint64, swipeType string) error {
	swipe := db.Swipe{
		SwiperID: swiperID,
		TargetID: targetID,
		Type:     swipeType,
	}
	return r.db.WithContext(ctx).Create(&swipe).Error
}

// EligibleIDs builds the candidate pool for a user.
//
// Exclusion set: the user themself, anyone in an existing match with the
// user (either side), and anyone the user has rejected. Rejection is
// directional on purpose: B stays visible to A's rejecters. Inactive users
// are never candidates. Ordering is unspecified; ranking belongs to the
// caller.
func (r *MatchRepository) EligibleIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Table("users u").
		Where("u.id <> ? AND u.active = ?", userID, true).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM matches m
				WHERE (m.user_a_id = ? AND m.user_b_id = u.id)
				   OR (m.user_b_id = ? AND m.user_a_id = u.id)
			)`, userID, userID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM match_rejections r
				WHERE r.rejecter_id = ?
				  AND r.rejected_id = u.id
			)`, userID).
		Order("u.id").
		Pluck("u.id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
