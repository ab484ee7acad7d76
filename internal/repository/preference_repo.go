package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"harmony/internal/db"
	"harmony/internal/matching"
)

// PreferenceRepository provides read/write access to a user's weighted
// song/artist/genre preferences and their scoring-weight configuration.
// Its read side implements matching.PreferenceSource.
type PreferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates a new repository bound to the given DB connection.
func NewPreferenceRepository(database *gorm.DB) *PreferenceRepository {
	return &PreferenceRepository{db: database}
}

// categoryTables maps a category onto its preference table, item column and
// catalog table. Keeping the three preference tables symmetric lets every
// query below be written once.
var categoryTables = map[matching.Category]struct {
	prefTable    string
	itemColumn   string
	catalogTable string
}{
	matching.CategoryGenre:  {"genre_preferences", "genre_id", "genres"},
	matching.CategoryArtist: {"artist_preferences", "artist_id", "artists"},
	matching.CategorySong:   {"song_preferences", "song_id", "songs"},
}

// WeightsByCategory returns itemID → weight for one user and category.
// A user with no preferences yields an empty map.
func (r *PreferenceRepository) WeightsByCategory(ctx context.Context, userID uint64, cat matching.Category) (map[uint64]float64, error) {
	tables, ok := categoryTables[cat]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", cat)
	}

	var rows []struct {
		ItemID uint64
		Weight float64
	}
	err := r.db.WithContext(ctx).
		Table(tables.prefTable).
		Select(tables.itemColumn+" AS item_id, weight").
		Where("user_id = ?", userID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uint64]float64, len(rows))
	for _, row := range rows {
		out[row.ItemID] = row.Weight
	}
	return out, nil
}

// Preference is a joined preference row with its catalog item name.
type Preference struct {
	ItemID uint64  `json:"id"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// ListByCategory returns all of a user's preferences in one category with
// item names, heaviest first.
func (r *PreferenceRepository) ListByCategory(ctx context.Context, userID uint64, cat matching.Category) ([]Preference, error) {
	return r.listByCategory(ctx, userID, cat, 0)
}

// TopByCategory returns the user's heaviest preferences in one category,
// capped at limit. Used for candidate profile summaries.
func (r *PreferenceRepository) TopByCategory(ctx context.Context, userID uint64, cat matching.Category, limit int) ([]Preference, error) {
	return r.listByCategory(ctx, userID, cat, limit)
}

func (r *PreferenceRepository) listByCategory(ctx context.Context, userID uint64, cat matching.Category, limit int) ([]Preference, error) {
	tables, ok := categoryTables[cat]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", cat)
	}

	query := r.db.WithContext(ctx).
		Table(tables.prefTable+" p").
		Select("p."+tables.itemColumn+" AS item_id, c.name, p.weight").
		Joins(fmt.Sprintf("JOIN %s c ON c.id = p.%s", tables.catalogTable, tables.itemColumn)).
		Where("p.user_id = ?", userID).
		Order("p.weight DESC, item_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var prefs []Preference
	if err := query.Scan(&prefs).Error; err != nil {
		return nil, err
	}
	return prefs, nil
}

// ItemExists checks that a catalog item a preference points at is real.
func (r *PreferenceRepository) ItemExists(ctx context.Context, cat matching.Category, itemID uint64) (bool, error) {
	tables, ok := categoryTables[cat]
	if !ok {
		return false, fmt.Errorf("unknown category %q", cat)
	}
	var count int64
	err := r.db.WithContext(ctx).
		Table(tables.catalogTable).
		Where("id = ?", itemID).
		Count(&count).Error
	return count > 0, err
}

// Upsert inserts or overwrites one (user, category, item) preference.
// Composite PK ensures the overwrite guarantee.
func (r *PreferenceRepository) Upsert(ctx context.Context, userID uint64, cat matching.Category, itemID uint64, weight float64) error {
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: categoryTables[cat].itemColumn}},
		DoUpdates: clause.AssignmentColumns([]string{"weight"}),
	}

	switch cat {
	case matching.CategoryGenre:
		pref := db.GenrePreference{UserID: userID, GenreID: itemID, Weight: weight}
		return r.db.WithContext(ctx).Clauses(onConflict).Create(&pref).Error
	case matching.CategoryArtist:
		pref := db.ArtistPreference{UserID: userID, ArtistID: itemID, Weight: weight}
		return r.db.WithContext(ctx).Clauses(onConflict).Create(&pref).Error
	case matching.CategorySong:
		pref := db.SongPreference{UserID: userID, SongID: itemID, Weight: weight}
		return r.db.WithContext(ctx).Clauses(onConflict).Create(&pref).Error
	default:
		return fmt.Errorf("unknown category %q", cat)
	}
}

// Delete removes one (user, category, item) preference.
// Returns gorm.ErrRecordNotFound when there was nothing to delete.
func (r *PreferenceRepository) Delete(ctx context.Context, userID uint64, cat matching.Category, itemID uint64) error {
	var res *gorm.DB
	switch cat {
	case matching.CategoryGenre:
		res = r.db.WithContext(ctx).Delete(&db.GenrePreference{UserID: userID, GenreID: itemID})
	case matching.CategoryArtist:
		res = r.db.WithContext(ctx).Delete(&db.ArtistPreference{UserID: userID, ArtistID: itemID})
	case matching.CategorySong:
		res = r.db.WithContext(ctx).Delete(&db.SongPreference{UserID: userID, SongID: itemID})
	default:
		return fmt.Errorf("unknown category %q", cat)
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// WeightSettings returns the user's scoring-weight configuration, falling
// back to the 1.0-per-category default when none was ever saved.
func (r *PreferenceRepository) WeightSettings(ctx context.Context, userID uint64) (matching.Weights, error) {
	var settings db.MatchWeightSettings
	err := r.db.WithContext(ctx).First(&settings, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return matching.DefaultWeights(), nil
	}
	if err != nil {
		return matching.Weights{}, err
	}
	return matching.Weights{
		Genre:  settings.GenreWeight,
		Artist: settings.ArtistWeight,
		Song:   settings.SongWeight,
	}, nil
}

// SaveWeightSettings inserts or overwrites the user's scoring-weight
// configuration. Range validation happens in the service layer.
func (r *PreferenceRepository) SaveWeightSettings(ctx context.Context, userID uint64, w matching.Weights) error {
	settings := db.MatchWeightSettings{
		UserID:       userID,
		GenreWeight:  w.Genre,
		ArtistWeight: w.Artist,
		SongWeight:   w.Song,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"genre_weight", "artist_weight", "song_weight"}),
		}).
		Create(&settings).Error
}
