package sites

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"pocketlytics/internal/models"
)

// NotFoundError represents an error when a site is not registered
type NotFoundError struct {
	ID uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("site not found: %d", e.ID)
}

// Site is a tracked site. Its ID scopes every analytics query.
type Site struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Domain    string    `gorm:"unique;not null" json:"domain"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Find returns the site with id, or a *NotFoundError.
func Find(db *gorm.DB, id uint) (*Site, error) {
	var site Site
	if err := db.Where("id = ?", id).First(&site).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("unexpected error querying site: %w", err)
	}
	return &site, nil
}

// List returns every site ordered by id.
func List(db *gorm.DB) ([]Site, error) {
	var out []Site
	if err := db.Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("error listing sites: %w", err)
	}
	return out, nil
}

// Create registers a site for domain.
func Create(logger *slog.Logger, db *gorm.DB, domain, name string) (*Site, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, errors.New("domain is required")
	}

	site := &Site{Domain: domain, Name: name}
	err := models.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(site).Error
	})
	if err != nil {
		return nil, fmt.Errorf("error creating site %s: %w", domain, err)
	}
	return site, nil
}
