package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"pocketlytics/internal/analytics"
	"pocketlytics/internal/sites"
)

// SiteIDKey is the Locals key holding the scoped site id.
const SiteIDKey = "site_id"

// SiteFinder resolves a site id from the registry.
type SiteFinder interface {
	Site(ctx context.Context, id uint) (*sites.Site, error)
}

// SiteScope resolves the :site path parameter and sets site_id in the request
// context. Unknown or malformed ids are 404.
func SiteScope(finder SiteFinder, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Params("site")
		siteID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || siteID == 0 {
			logger.Debug("Invalid site id provided", slog.String("site", raw))
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Site not found"})
		}

		site, err := finder.Site(c.UserContext(), uint(siteID))
		if err != nil {
			if errors.Is(err, analytics.ErrSiteNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Site not found"})
			}
			logger.Error("Failed to load site", slog.String("site", raw), slog.Any("error", err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load site"})
		}

		c.Locals(SiteIDKey, site.ID)
		logger.Debug("Applied site scope", slog.Uint64("site_id", uint64(site.ID)), slog.String("domain", site.Domain))
		return c.Next()
	}
}
