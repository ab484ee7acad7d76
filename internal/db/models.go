package db

import (
	"time"
)

// User table
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Location     string `gorm:"size:255"`
	Age          int
	Biography    string `gorm:"type:text"`
	Interests    string `gorm:"type:text"`
	Active       bool   `gorm:"not null"`
	LastLoginAt  time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Genre is a catalog row preferences point at.
type Genre struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"uniqueIndex;size:64;not null"`
}

// Artist is a catalog row preferences point at.
type Artist struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:128;not null"`
	SpotifyID string `gorm:"uniqueIndex;size:64"`
}

// Song is a catalog row preferences point at.
type Song struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	Name       string `gorm:"size:255;not null"`
	SpotifyID  string `gorm:"uniqueIndex;size:64"`
	Album      string `gorm:"size:255"`
	DurationMS int
	Popularity int
}

// GenrePreference is a user's weighted taste in one genre.
//
// Composite PK: (UserID, GenreID) — one row per (user, item), upserts
// overwrite the weight. Weight is in [1,10].
type GenrePreference struct {
	UserID    uint64    `gorm:"primaryKey"`
	GenreID   uint64    `gorm:"primaryKey"`
	Weight    float64   `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// ArtistPreference mirrors GenrePreference for artists.
type ArtistPreference struct {
	UserID    uint64    `gorm:"primaryKey"`
	ArtistID  uint64    `gorm:"primaryKey"`
	Weight    float64   `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// SongPreference mirrors GenrePreference for songs.
type SongPreference struct {
	UserID    uint64    `gorm:"primaryKey"`
	SongID    uint64    `gorm:"primaryKey"`
	Weight    float64   `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// MatchWeightSettings holds a user's per-category scoring weights, each in
// [0,5]. Users without a row fall back to 1.0 per category; no column
// defaults, so a configured 0 is stored as 0.
type MatchWeightSettings struct {
	UserID       uint64    `gorm:"primaryKey"`
	GenreWeight  float64   `gorm:"not null"`
	ArtistWeight float64   `gorm:"not null"`
	SongWeight   float64   `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

const (
	SwipeLike    = "LIKE"
	SwipeDislike = "DISLIKE"
)

// Swipe is an append-only record of an accept (LIKE) or reject (DISLIKE)
// action. Never updated or deleted.
type Swipe struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	SwiperID  uint64    `gorm:"not null;index:idx_swipe_pair,priority:1"`
	TargetID  uint64    `gorm:"not null;index:idx_swipe_pair,priority:2"`
	Type      string    `gorm:"size:10;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Match is a completed match between two users with the similarity scores
// frozen at acceptance time.
//
// The pair is stored normalized: UserAID < UserBID always, so (A,B) and
// (B,A) hit the same row. idx_match_pair enforces at most one match per
// unordered pair; concurrent accepts from both sides collapse on it.
type Match struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	UserAID       uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:1"`
	UserBID       uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:2;index"`
	GenreScore    float64   `gorm:"not null"`
	ArtistScore   float64   `gorm:"not null"`
	SongScore     float64   `gorm:"not null"`
	CombinedScore float64   `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// OtherUser returns the member of the pair that is not userID.
func (m *Match) OtherUser(userID uint64) uint64 {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// Involves reports whether userID is one of the two members.
func (m *Match) Involves(userID uint64) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// MatchRejection is a directed "do not show me this user again" record.
//
// Composite PK: (RejecterID, RejectedID) — repeat rejections collapse to one
// row. Directed: A rejecting B does not hide A from B.
type MatchRejection struct {
	RejecterID uint64    `gorm:"primaryKey"`
	RejectedID uint64    `gorm:"primaryKey"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// Conversation is the 1:1 chat attached to a match. It shares the match's
// identity and lifetime and is created in the same transaction as the match.
type Conversation struct {
	MatchID   uint64    `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Message is a persisted chat message inside a conversation.
type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	ConversationID uint64    `gorm:"not null;index:idx_conv_sent,priority:1"`
	SenderID       uint64    `gorm:"not null"`
	Content        string    `gorm:"type:text;not null"`
	SentAt         time.Time `gorm:"autoCreateTime;index:idx_conv_sent,priority:2"`
}
