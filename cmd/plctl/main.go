// main.go - Admin control tool for pocketlytics
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"pocketlytics/internal"
	"pocketlytics/internal/profiles"
	"pocketlytics/internal/sites"
)

const (
	defaultShutdownTimeout = 30 * time.Second
)

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given app and args
	Execute(ctx context.Context, app *internal.Application, args []string) error
}

// The set of available commands
var commands = []Command{
	&MigrateCommand{},
	&CreateSiteCommand{},
	&ListSitesCommand{},
	&SetTraitsCommand{},
	&StatusCommand{},
	&HelpCommand{},
}

func main() {
	flag.Parse()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	cmdName, args := parseArgs()

	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	app, err := internal.NewApp()
	if err != nil {
		log.Printf("Warning: Failed to initialize app: %v", err)
		log.Println("Proceeding with limited functionality...")
	}

	defer func() {
		if app != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
			defer cancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				log.Printf("Warning: Cleanup error: %v", err)
			}
		}
	}()

	if err := cmd.Execute(ctx, app, args); err != nil {
		log.Fatalf("Command failed: %v", err)
	}

	log.Printf("Command %s completed successfully", cmd.Name())
}

// MigrateCommand runs database migrations
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("app initialization failed, cannot run migrations")
	}

	log.Println("Running database migrations...")
	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Println("Migrations completed successfully")
	return nil
}

// CreateSiteCommand registers a site so its events can be queried
type CreateSiteCommand struct{}

func (c *CreateSiteCommand) Name() string        { return "create-site" }
func (c *CreateSiteCommand) Description() string { return "Registers a site: create-site <domain> [name]" }

func (c *CreateSiteCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <domain> [name]", c.Name())
	}
	if app == nil {
		return fmt.Errorf("app initialization failed, cannot connect to database")
	}

	name := args[0]
	if len(args) >= 2 {
		name = args[1]
	}

	site, err := sites.Create(slog.Default(), app.DBManager.GetConnection(), args[0], name)
	if err != nil {
		return err
	}
	fmt.Printf("Site %s registered with id %d\n", site.Domain, site.ID)
	return nil
}

// ListSitesCommand prints every registered site
type ListSitesCommand struct{}

func (c *ListSitesCommand) Name() string        { return "list-sites" }
func (c *ListSitesCommand) Description() string { return "Lists registered sites" }

func (c *ListSitesCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("app initialization failed, cannot connect to database")
	}

	all, err := sites.List(app.DBManager.GetConnection())
	if err != nil {
		return err
	}
	for _, site := range all {
		fmt.Printf("%d\t%s\t%s\n", site.ID, site.Domain, site.Name)
	}
	return nil
}

// SetTraitsCommand stores the traits of an identified user
type SetTraitsCommand struct{}

func (c *SetTraitsCommand) Name() string { return "set-traits" }
func (c *SetTraitsCommand) Description() string {
	return `Sets user traits: set-traits <site-id> <user-id> '{"plan":"pro"}'`
}

func (c *SetTraitsCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: %s <site-id> <user-id> <traits-json>", c.Name())
	}
	if app == nil {
		return fmt.Errorf("app initialization failed, cannot connect to database")
	}

	siteID, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid site id %q: %w", args[0], err)
	}
	var traits map[string]any
	if err := json.Unmarshal([]byte(args[2]), &traits); err != nil {
		return fmt.Errorf("traits must be a JSON object: %w", err)
	}

	db := app.DBManager.GetConnection()
	if _, err := sites.Find(db, uint(siteID)); err != nil {
		return err
	}
	return profiles.Save(slog.Default(), db, uint(siteID), args[1], traits)
}

// StatusCommand implements a command to check the system status
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Shows the current system status" }

func (c *StatusCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if app == nil {
		return fmt.Errorf("cannot check status: app initialization failed")
	}

	db := app.DBManager.GetConnection()

	var count int64
	if err := db.Model(&sites.Site{}).Count(&count).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	log.Println("System Status:")
	log.Println("- Database: Connected")
	log.Printf("- Sites: %d", count)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := app.Store.Ping(pingCtx); err != nil {
		log.Printf("- Event store: unreachable (%v)", err)
	} else {
		log.Println("- Event store: Connected")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}

	log.Printf("- Max Open Connections: %d", sqlDB.Stats().MaxOpenConnections)
	log.Printf("- Open Connections: %d", sqlDB.Stats().OpenConnections)
	log.Printf("- In Use: %d", sqlDB.Stats().InUse)
	log.Printf("- Idle: %d", sqlDB.Stats().Idle)

	return nil
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows usage information" }

func (c *HelpCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	printUsage()
	return nil
}

// parseArgs parses the command name and arguments
func parseArgs() (string, []string) {
	args := os.Args[1:]
	if len(args) == 0 {
		return "help", []string{}
	}
	return args[0], args[1:]
}

// findCommand finds a command by name
func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: plctl [command] [args...]")
	fmt.Println("Available commands:")

	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}
}

// showUsageAndExit shows usage information and exits
func showUsageAndExit() {
	printUsage()
	os.Exit(1)
}
