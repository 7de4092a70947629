package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pocketlytics/internal/config"
	"pocketlytics/internal/models"
	"pocketlytics/internal/sites"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with pocketlytics' interface
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

// allModels returns all relational models for migration
func allModels() []any {
	return []any{
		&sites.Site{},
		&models.UserProfile{},
	}
}

// SetupTestDB creates a test database with all models migrated.
// Uses a named in-memory database with cache=shared to allow multiple connections
// to share the same database within a test. Caches the database by test name
// so multiple calls within the same test return the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	// Use root test name for caching to handle closure issues where
	// setup functions capture the outer t while t.Run has subtest t
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")

	if err := db.AutoMigrate(allModels()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager using cartridge's testsupport
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	t.Helper()
	db := SetupTestDB(t)
	return NewTestDBManager(db), GetLogger()
}

// SetupTestDBManagerWithSite creates a test database manager with a registered site
func SetupTestDBManagerWithSite(t *testing.T, domain string) (*TestDBManager, *slog.Logger, sites.Site) {
	t.Helper()
	dbManager, logger := SetupTestDBManager(t)
	site := CreateTestSite(t, dbManager.GetConnection(), domain)
	return dbManager, logger, site
}

// CleanAllTables clears all non-system tables in the database
func CleanAllTables(db *gorm.DB) {
	var tableNames []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)

	if len(tableNames) == 0 {
		return
	}

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tableNames {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// CreateTestSite creates a site in the database, or returns the existing one
func CreateTestSite(t *testing.T, db *gorm.DB, domain string) sites.Site {
	t.Helper()
	var site sites.Site
	if db.Where("domain = ?", domain).First(&site).Error != nil {
		site = sites.Site{Domain: domain, Name: domain, CreatedAt: time.Now().UTC()}
		if err := db.Create(&site).Error; err != nil {
			t.Fatalf("testsupport: failed to create site: %v", err)
		}
	}
	return site
}

// CreateTestProfile stores traits for an identified user of a site
func CreateTestProfile(t *testing.T, db *gorm.DB, siteID uint, userID string, traits map[string]any) models.UserProfile {
	t.Helper()
	raw, err := json.Marshal(traits)
	if err != nil {
		t.Fatalf("testsupport: failed to encode traits: %v", err)
	}
	profile := models.UserProfile{SiteID: siteID, UserID: userID, Traits: models.JSON(raw)}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("testsupport: failed to create profile: %v", err)
	}
	return profile
}

// CountQueries counts SELECT statements gorm issues against table until the
// test ends. The returned func reads the current count.
func CountQueries(t *testing.T, db *gorm.DB, table string) func() int {
	t.Helper()
	var mu sync.Mutex
	count := 0
	name := fmt.Sprintf("testsupport:count_%s_%d", table, time.Now().UnixNano())

	err := db.Callback().Query().After("gorm:query").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			mu.Lock()
			count++
			mu.Unlock()
		}
	})
	if err != nil {
		t.Fatalf("testsupport: failed to register query counter: %v", err)
	}
	t.Cleanup(func() {
		db.Callback().Query().Remove(name)
	})

	return func() int {
		mu.Lock()
		defer mu.Unlock()
		return count
	}
}

// GetLogger returns a logger for tests
func GetLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// CreateTestApp creates a test Fiber app with the routes mount registers,
// backed by db.
func CreateTestApp(t *testing.T, db *gorm.DB, mount func(*cartridge.Server)) *fiber.App {
	t.Helper()

	dbManager := NewTestDBManager(db)
	appConfig := config.GetConfig()
	appConfig.Environment = config.Test

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = dbManager

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	mount(srv)
	return srv.App()
}
