package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedTestData resets the database and populates it with demo users, a small
// music catalog, weighted preferences and a handful of matches.
//
// Behavior:
//  1. Clears all tables.
//  2. Creates a catalog of genres, artists and songs.
//  3. Creates 12 users with hashed passwords and 3-6 preferences per
//     category (weights 1-10).
//  4. Creates two matches (with conversations and opening messages) and one
//     directed rejection so the candidate filter has something to exclude.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	tables := []string{
		"messages", "conversations", "matches", "match_rejections", "swipes",
		"genre_preferences", "artist_preferences", "song_preferences",
		"match_weight_settings", "songs", "artists", "genres", "users",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range tables {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence")
	}

	log.Println("Cleared existing data")

	// --- Catalog ---
	genres := []Genre{
		{Name: "Rock"}, {Name: "Pop"}, {Name: "Jazz"}, {Name: "Hip-Hop"},
		{Name: "Electronic"}, {Name: "Classical"}, {Name: "Metal"}, {Name: "Folk"},
	}
	if err := db.Create(&genres).Error; err != nil {
		return fmt.Errorf("failed to seed genres: %w", err)
	}

	artistNames := []string{
		"The Beatles", "Radiohead", "Miles Davis", "Kendrick Lamar",
		"Daft Punk", "Nina Simone", "Metallica", "Bob Dylan", "Björk", "Queen",
	}
	artists := make([]Artist, 0, len(artistNames))
	for i, name := range artistNames {
		artists = append(artists, Artist{Name: name, SpotifyID: fmt.Sprintf("artist_%02d", i+1)})
	}
	if err := db.Create(&artists).Error; err != nil {
		return fmt.Errorf("failed to seed artists: %w", err)
	}

	songNames := []string{
		"Hey Jude", "Paranoid Android", "So What", "Alright", "Around the World",
		"Feeling Good", "Master of Puppets", "Like a Rolling Stone",
		"Army of Me", "Bohemian Rhapsody", "Let It Be", "Karma Police",
	}
	songs := make([]Song, 0, len(songNames))
	for i, name := range songNames {
		songs = append(songs, Song{
			Name:       name,
			SpotifyID:  fmt.Sprintf("song_%02d", i+1),
			Album:      "Greatest Hits",
			DurationMS: 180000 + r.Intn(180000),
			Popularity: 40 + r.Intn(60),
		})
	}
	if err := db.Create(&songs).Error; err != nil {
		return fmt.Errorf("failed to seed songs: %w", err)
	}

	// --- Users with preferences ---
	locations := []string{"London", "Berlin", "New York", "Lisbon", "Tokyo", "Austin"}
	for i := 1; i <= 12; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user := User{
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: string(hash),
			Location:     locations[r.Intn(len(locations))],
			Age:          20 + r.Intn(20),
			Biography:    "Here for the music.",
			Active:       true,
			LastLoginAt:  time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		for _, gi := range r.Perm(len(genres))[:3+r.Intn(3)] {
			pref := GenrePreference{UserID: user.ID, GenreID: genres[gi].ID, Weight: float64(1 + r.Intn(10))}
			if err := db.Create(&pref).Error; err != nil {
				return fmt.Errorf("failed to seed genre preference: %w", err)
			}
		}
		for _, ai := range r.Perm(len(artists))[:3+r.Intn(4)] {
			pref := ArtistPreference{UserID: user.ID, ArtistID: artists[ai].ID, Weight: float64(1 + r.Intn(10))}
			if err := db.Create(&pref).Error; err != nil {
				return fmt.Errorf("failed to seed artist preference: %w", err)
			}
		}
		for _, si := range r.Perm(len(songs))[:3+r.Intn(4)] {
			pref := SongPreference{UserID: user.ID, SongID: songs[si].ID, Weight: float64(1 + r.Intn(10))}
			if err := db.Create(&pref).Error; err != nil {
				return fmt.Errorf("failed to seed song preference: %w", err)
			}
		}
	}
	log.Println("Seeded 12 users with preferences.")

	// A couple of users with a custom weight configuration.
	settings := []MatchWeightSettings{
		{UserID: 1, GenreWeight: 2.0, ArtistWeight: 1.0, SongWeight: 0.5},
		{UserID: 4, GenreWeight: 0.5, ArtistWeight: 3.0, SongWeight: 1.5},
	}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&settings).Error; err != nil {
		return fmt.Errorf("failed to seed weight settings: %w", err)
	}

	// --- Matches, conversations, messages, one rejection ---
	matches := []Match{
		{UserAID: 1, UserBID: 2, GenreScore: 54.5, ArtistScore: 31.0, SongScore: 12.5, CombinedScore: 32.7},
		{UserAID: 3, UserBID: 5, GenreScore: 80.0, ArtistScore: 66.7, SongScore: 40.0, CombinedScore: 62.2},
	}
	for i := range matches {
		if err := db.Create(&matches[i]).Error; err != nil {
			return fmt.Errorf("failed to seed match: %w", err)
		}
		conv := Conversation{MatchID: matches[i].ID}
		if err := db.Create(&conv).Error; err != nil {
			return fmt.Errorf("failed to seed conversation: %w", err)
		}
		msg := Message{
			ConversationID: matches[i].ID,
			SenderID:       matches[i].UserAID,
			Content:        "Hey! Great taste in music.",
		}
		if err := db.Create(&msg).Error; err != nil {
			return fmt.Errorf("failed to seed message: %w", err)
		}

		swipes := []Swipe{
			{SwiperID: matches[i].UserAID, TargetID: matches[i].UserBID, Type: SwipeLike},
		}
		if err := db.Create(&swipes).Error; err != nil {
			return fmt.Errorf("failed to seed swipes: %w", err)
		}
	}

	rejection := MatchRejection{RejecterID: 1, RejectedID: 6}
	if err := db.Create(&rejection).Error; err != nil {
		return fmt.Errorf("failed to seed rejection: %w", err)
	}
	if err := db.Create(&Swipe{SwiperID: 1, TargetID: 6, Type: SwipeDislike}).Error; err != nil {
		return fmt.Errorf("failed to seed swipe: %w", err)
	}

	log.Println("Seeded matches, conversations and rejections.")
	return nil
}
