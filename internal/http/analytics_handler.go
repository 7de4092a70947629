package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"pocketlytics/internal/analytics"
	"pocketlytics/internal/http/middleware"
	"pocketlytics/internal/timeframe"
)

// PaginationData describes the page a paginated response holds.
type PaginationData struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	PerPage     int   `json:"per_page"`
}

// DataResponse is the body of non-paginated endpoints.
type DataResponse struct {
	Data any `json:"data"`
}

// PagedResponse is the body of paginated endpoints.
type PagedResponse struct {
	Data       []map[string]any `json:"data"`
	Pagination PaginationData   `json:"pagination"`
}

// OverviewResponse is the body of the overview endpoint.
type OverviewResponse struct {
	Data                map[string]any `json:"data"`
	UnavailableFeatures []string       `json:"unavailableFeatures"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AnalyticsHandler serves the site-scoped analytics endpoints.
type AnalyticsHandler struct {
	svc *analytics.Service
}

// NewAnalyticsHandler creates the handler set for svc.
func NewAnalyticsHandler(svc *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// EventSeriesAction handles GET /events/series
func (h *AnalyticsHandler) EventSeriesAction(ctx *cartridge.Context) error {
	params, err := siteParams(ctx)
	if err != nil {
		return respondError(ctx, err, "event series")
	}
	rows, err := h.svc.EventSeries(ctx.UserContext(), params)
	if err != nil {
		return respondError(ctx, err, "event series")
	}
	return ctx.JSON(DataResponse{Data: rows})
}

// OverviewBucketedAction handles GET /overview-bucketed
func (h *AnalyticsHandler) OverviewBucketedAction(ctx *cartridge.Context) error {
	params, err := siteParams(ctx)
	if err != nil {
		return respondError(ctx, err, "overview")
	}
	rows, err := h.svc.OverviewBucketed(ctx.UserContext(), params)
	if err != nil {
		return respondError(ctx, err, "overview")
	}
	return ctx.JSON(DataResponse{Data: rows})
}

// OverviewAction handles GET /overview
func (h *AnalyticsHandler) OverviewAction(ctx *cartridge.Context) error {
	params, err := siteParams(ctx)
	if err != nil {
		return respondError(ctx, err, "overview")
	}
	result, err := h.svc.Overview(ctx.UserContext(), params)
	if err != nil {
		return respondError(ctx, err, "overview")
	}
	return ctx.JSON(OverviewResponse{Data: result.Data, UnavailableFeatures: result.UnavailableFeatures})
}

// MetricAction handles GET /metric?parameter=
func (h *AnalyticsHandler) MetricAction(ctx *cartridge.Context) error {
	params, err := siteParams(ctx)
	if err != nil {
		return respondError(ctx, err, "metric")
	}
	page, err := h.svc.Metric(ctx.UserContext(), params, ctx.Query("parameter"), pagination(ctx))
	if err != nil {
		return respondError(ctx, err, "metric")
	}
	return ctx.JSON(pagedResponse(page))
}

// SessionsAction handles GET /sessions
func (h *AnalyticsHandler) SessionsAction(ctx *cartridge.Context) error {
	params, err := siteParams(ctx)
	if err != nil {
		return respondError(ctx, err, "sessions")
	}
	page, err := h.svc.Sessions(ctx.UserContext(), params, pagination(ctx))
	if err != nil {
		return respondError(ctx, err, "sessions")
	}
	return ctx.JSON(pagedResponse(page))
}

// UsersAction handles GET /users
func (h *AnalyticsHandler) UsersAction(ctx *cartridge.Context) error {
	params, err := siteParams(ctx)
	if err != nil {
		return respondError(ctx, err, "users")
	}
	page, err := h.svc.Users(ctx.UserContext(), params, pagination(ctx))
	if err != nil {
		return respondError(ctx, err, "users")
	}
	return ctx.JSON(pagedResponse(page))
}

// LiveUserCountAction handles GET /live-user-count?minutes=
func (h *AnalyticsHandler) LiveUserCountAction(ctx *cartridge.Context) error {
	params, err := siteParams(ctx)
	if err != nil {
		return respondError(ctx, err, "live user count")
	}
	minutes := ctx.QueryInt("minutes", analytics.DefaultLiveMinutes)
	count, err := h.svc.LiveUserCount(ctx.UserContext(), params, minutes)
	if err != nil {
		return respondError(ctx, err, "live user count")
	}
	return ctx.JSON(DataResponse{Data: fiber.Map{"count": count}})
}

// siteParams reads the shared query parameters. The site id is set by the
// site scope middleware.
func siteParams(ctx *cartridge.Context) (analytics.SiteScopedQueryParams, error) {
	siteID, ok := ctx.Locals(middleware.SiteIDKey).(uint)
	if !ok {
		return analytics.SiteScopedQueryParams{}, analytics.ErrSiteNotFound
	}

	var spec timeframe.TimeSpec
	if err := ctx.QueryParser(&spec); err != nil {
		return analytics.SiteScopedQueryParams{}, &analytics.ValidationError{Message: "Invalid time range", Err: err}
	}

	return analytics.SiteScopedQueryParams{
		SiteID:  siteID,
		Time:    spec,
		Bucket:  ctx.Query("bucket"),
		Filters: ctx.Query("filters"),
	}, nil
}

func pagination(ctx *cartridge.Context) analytics.Pagination {
	return analytics.Pagination{
		Page:  ctx.QueryInt("page", 1),
		Limit: ctx.QueryInt("limit", analytics.DefaultLimit),
	}
}

func pagedResponse(page *analytics.PagedRows) PagedResponse {
	totalPages := int((page.Total + int64(page.Limit) - 1) / int64(page.Limit))
	return PagedResponse{
		Data: page.Rows,
		Pagination: PaginationData{
			CurrentPage: page.Page,
			TotalPages:  totalPages,
			TotalItems:  page.Total,
			PerPage:     page.Limit,
		},
	}
}

// respondError maps err to 400, 404 or 500. Store errors are logged and
// answered with a generic message.
func respondError(ctx *cartridge.Context, err error, what string) error {
	var validationErr *analytics.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: validationErr.Message})
	case errors.Is(err, analytics.ErrSiteNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "Site not found"})
	}

	ctx.Logger.Error("Failed to fetch "+what,
		slog.String("path", ctx.Path()),
		slog.Any("error", err))
	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "Failed to fetch " + what})
}
