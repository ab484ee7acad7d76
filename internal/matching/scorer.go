// Package matching computes music-taste similarity between two users.
//
// Preferences are weighted item maps per category (genre, artist, song).
// Per category the score is a weighted overlap coefficient:
//
//	2 · Σ_{i ∈ shared} min(A[i], B[i]) / (Σ A + Σ B)
//
// which is symmetric, bounded in [0,1] and invariant to how many
// preferences either user has recorded. The combined score weighs the three
// category scores by a per-user weight configuration.
package matching

import (
	"context"
	"math"
)

// Category is an axis along which preferences are recorded and scored.
type Category string

const (
	CategoryGenre  Category = "genre"
	CategoryArtist Category = "artist"
	CategorySong   Category = "song"
)

// Categories returns all scoring categories in combined-score order.
func Categories() []Category {
	return []Category{CategoryGenre, CategoryArtist, CategorySong}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryGenre, CategoryArtist, CategorySong:
		return true
	}
	return false
}

// MaxCategoryWeight bounds each configurable category weight.
const MaxCategoryWeight = 5.0

// Weights is a per-category scoring weight configuration.
type Weights struct {
	Genre  float64 `json:"genre_weight"`
	Artist float64 `json:"artist_weight"`
	Song   float64 `json:"song_weight"`
}

// DefaultWeights returns the 1.0-per-category default configuration.
func DefaultWeights() Weights {
	return Weights{Genre: 1.0, Artist: 1.0, Song: 1.0}
}

// Sum returns the weight total, the upper bound of a combined score.
func (w Weights) Sum() float64 {
	return w.Genre + w.Artist + w.Song
}

// Scores holds the per-category similarities in [0,1] and the raw combined
// score. Combined is bounded by Weights.Sum(), not by any fixed range;
// display scaling is the caller's policy.
type Scores struct {
	Genre    float64 `json:"genre"`
	Artist   float64 `json:"artist"`
	Song     float64 `json:"song"`
	Combined float64 `json:"combined"`
}

// Compatibility scales the combined score into [0,100] relative to the
// configured weight total. With default weights this is the ×100/3 scaling.
func (s Scores) Compatibility(w Weights) float64 {
	total := w.Sum()
	if total == 0 {
		return 0.0
	}
	return round3(s.Combined / total * 100)
}

// PreferenceSource provides read access to a user's weighted preferences.
// Implemented by repository.PreferenceRepository; tests use in-memory maps.
type PreferenceSource interface {
	// WeightsByCategory returns itemID → weight for one user and category.
	// A user with no preferences yields an empty map, not an error.
	WeightsByCategory(ctx context.Context, userID uint64, cat Category) (map[uint64]float64, error)
}

// Scorer computes similarity scores for user pairs.
type Scorer struct {
	prefs PreferenceSource
}

// NewScorer creates a scorer reading preferences from the given source.
func NewScorer(prefs PreferenceSource) *Scorer {
	return &Scorer{prefs: prefs}
}

// Score computes per-category and combined similarity between two users.
//
// The weight configuration is the caller's: when two users have different
// configured weights, the requesting user's configuration decides the
// combined score. Absent preference data degrades to zero similarity and is
// never an error; only the underlying source failing returns one.
func (s *Scorer) Score(ctx context.Context, userA, userB uint64, w Weights) (Scores, error) {
	var out Scores
	for _, cat := range Categories() {
		aPrefs, err := s.prefs.WeightsByCategory(ctx, userA, cat)
		if err != nil {
			return Scores{}, err
		}
		bPrefs, err := s.prefs.WeightsByCategory(ctx, userB, cat)
		if err != nil {
			return Scores{}, err
		}

		sim := Similarity(aPrefs, bPrefs)
		switch cat {
		case CategoryGenre:
			out.Genre = sim
		case CategoryArtist:
			out.Artist = sim
		case CategorySong:
			out.Song = sim
		}
	}

	out.Combined = round3(out.Genre*w.Genre + out.Artist*w.Artist + out.Song*w.Song)
	return out, nil
}

// Similarity computes the weighted overlap coefficient for one category,
// rounded to 3 decimal places.
//
// The empty-intersection check short-circuits before the division, so a zero
// denominator (both users without preferences) can never be reached.
func Similarity(a, b map[uint64]float64) float64 {
	var numerator float64
	shared := false
	for item, wa := range a {
		wb, ok := b[item]
		if !ok {
			continue
		}
		shared = true
		numerator += math.Min(wa, wb)
	}
	if !shared {
		return 0.0
	}

	var denominator float64
	for _, w := range a {
		denominator += w
	}
	for _, w := range b {
		denominator += w
	}

	return round3(2 * numerator / denominator)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
