// Package analytics answers site-scoped analytics requests against the event
// store.
//
// The package is organized into focused modules:
//   - analytics.go: Service, its collaborators and error taxonomy
//   - params.go: request parameters and scope resolution
//   - series.go: bucketed time series (event counts and overview)
//   - overview.go: overview totals and optional query statistics
//   - breakdown.go: paginated metric breakdowns and their labels
//   - sessions.go: paginated session and user lists with traits
//   - live.go: live visitor count
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"pocketlytics/internal/config"
	"pocketlytics/internal/normalize"
	"pocketlytics/internal/pkg/async"
	"pocketlytics/internal/profiles"
	"pocketlytics/internal/query"
	"pocketlytics/internal/sites"
	"pocketlytics/internal/timeframe"
)

// ErrSiteNotFound is returned for sites missing from the registry.
var ErrSiteNotFound = errors.New("site not found")

// ValidationError is a request rejected before any store round trip.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(message string, err error) error {
	return &ValidationError{Message: message, Err: err}
}

// Store runs compiled statements against the event store.
type Store interface {
	Query(ctx context.Context, stmt query.Statement) ([]map[string]any, error)
}

// Options configures a Service.
type Options struct {
	Store        Store
	DB           *gorm.DB
	Profiles     profiles.Store
	Logger       *slog.Logger
	Resolver     *timeframe.Resolver
	OverviewMode string
	QueryStats   bool
	Workers      int
	// MaxBuckets caps the buckets of a gap-filled series. Zero means
	// timeframe.MaxSeriesPoints.
	MaxBuckets int
}

// Service compiles requests into statements, runs them and shapes the rows.
type Service struct {
	store        Store
	db           *gorm.DB
	profiles     profiles.Store
	logger       *slog.Logger
	resolver     *timeframe.Resolver
	overviewMode string
	queryStats   bool
	maxBuckets   int
	pool         *async.Pool
}

// NewService creates a Service. Profiles default to the gorm store on DB.
func NewService(opts Options) *Service {
	if opts.Resolver == nil {
		opts.Resolver = timeframe.NewResolver()
	}
	if opts.Profiles == nil && opts.DB != nil {
		opts.Profiles = profiles.NewGormStore(opts.DB)
	}
	if opts.OverviewMode == "" {
		opts.OverviewMode = config.OverviewJoined
	}
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxBuckets < 1 {
		opts.MaxBuckets = timeframe.MaxSeriesPoints
	}
	return &Service{
		store:        opts.Store,
		db:           opts.DB,
		profiles:     opts.Profiles,
		logger:       opts.Logger,
		resolver:     opts.Resolver,
		overviewMode: opts.OverviewMode,
		queryStats:   opts.QueryStats,
		maxBuckets:   opts.MaxBuckets,
		pool:         async.NewPool(opts.Workers),
	}
}

// Site returns the registered site, or ErrSiteNotFound.
func (s *Service) Site(ctx context.Context, id uint) (*sites.Site, error) {
	site, err := sites.Find(s.db.WithContext(ctx), id)
	if err != nil {
		var notFound *sites.NotFoundError
		if errors.As(err, &notFound) {
			return nil, ErrSiteNotFound
		}
		return nil, err
	}
	return site, nil
}

// run executes stmt and normalizes its rows.
func (s *Service) run(ctx context.Context, stmt query.Statement) ([]map[string]any, error) {
	rows, err := s.store.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("error running %s: %w", stmt.Name, err)
	}
	return normalize.Rows(rows), nil
}

// runAll executes statements concurrently and returns their rows in order.
func (s *Service) runAll(ctx context.Context, stmts ...query.Statement) ([][]map[string]any, error) {
	tasks := make([]async.Task, len(stmts))
	for i, stmt := range stmts {
		stmt := stmt
		tasks[i] = async.Task{
			Name: fmt.Sprintf("%d:%s", i, stmt.Name),
			Execute: func(ctx context.Context) (any, error) {
				return s.run(ctx, stmt)
			},
		}
	}

	results := s.pool.Execute(ctx, tasks)
	if err := async.FirstError(tasks, results); err != nil {
		return nil, err
	}

	out := make([][]map[string]any, len(tasks))
	for i, task := range tasks {
		out[i], _ = results[task.Name].Data.([]map[string]any)
	}
	return out, nil
}

// total reads the single "total" value of a count statement.
func total(rows []map[string]any) int64 {
	if len(rows) == 0 {
		return 0
	}
	switch v := rows[0]["total"].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func nonNil(rows []map[string]any) []map[string]any {
	if rows == nil {
		return []map[string]any{}
	}
	return rows
}
