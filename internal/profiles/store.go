// Package profiles reads identified user profiles from the relational store
// and attaches their traits to analytics rows.
package profiles

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pocketlytics/internal/models"
)

// Store looks up traits for identified users of one site.
type Store interface {
	// TraitsFor returns traits keyed by user id. Ids without a profile are
	// absent from the result.
	TraitsFor(ctx context.Context, siteID uint, userIDs []string) (map[string]map[string]any, error)
}

// GormStore is a Store over the user_profiles table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a profile store on db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// TraitsFor loads every requested profile in a single query.
func (s *GormStore) TraitsFor(ctx context.Context, siteID uint, userIDs []string) (map[string]map[string]any, error) {
	out := make(map[string]map[string]any, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []models.UserProfile
	err := s.db.WithContext(ctx).
		Select("user_id", "traits").
		Where("site_id = ? AND user_id IN ?", siteID, userIDs).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error loading profiles for site %d: %w", siteID, err)
	}

	for _, row := range rows {
		traits, err := row.Traits.Object()
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", row.UserID, err)
		}
		if traits == nil {
			traits = map[string]any{}
		}
		out[row.UserID] = traits
	}
	return out, nil
}

// Save creates or replaces the traits of an identified user.
func Save(logger *slog.Logger, db *gorm.DB, siteID uint, userID string, traits map[string]any) error {
	raw, err := json.Marshal(traits)
	if err != nil {
		return fmt.Errorf("error encoding traits: %w", err)
	}

	profile := models.UserProfile{SiteID: siteID, UserID: userID, Traits: models.JSON(raw)}
	return models.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "site_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"traits", "updated_at"}),
		}).Create(&profile).Error
	})
}
