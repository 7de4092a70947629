//go:build integration

package testinfra

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultClickHouseImage is the server image integration tests run.
	DefaultClickHouseImage = "clickhouse/clickhouse-server:24.8-alpine"

	// ClickHouseHTTPPort is the port of the HTTP interface.
	ClickHouseHTTPPort = "8123"

	clickHouseDatabase = "analytics"
	clickHouseUser     = "pocketlytics"
	clickHousePassword = "pocketlytics"
)

// EventsTableDDL creates the events table the query builders read.
const EventsTableDDL = `CREATE TABLE IF NOT EXISTS events (
    site_id UInt16,
    timestamp DateTime64(3, 'UTC'),
    session_id String,
    user_id String,
    identified_user_id String DEFAULT '',
    hostname String DEFAULT '',
    pathname String DEFAULT '',
    querystring String DEFAULT '',
    url_parameters Map(String, String),
    page_title String DEFAULT '',
    referrer String DEFAULT '',
    channel String DEFAULT '',
    browser String DEFAULT '',
    browser_version String DEFAULT '',
    operating_system String DEFAULT '',
    operating_system_version String DEFAULT '',
    language String DEFAULT '',
    country String DEFAULT '',
    region String DEFAULT '',
    city String DEFAULT '',
    screen_width UInt16 DEFAULT 0,
    screen_height UInt16 DEFAULT 0,
    device_type String DEFAULT '',
    type LowCardinality(String),
    event_name String DEFAULT '',
    props String DEFAULT ''
)
ENGINE = MergeTree
ORDER BY (site_id, timestamp)`

// ClickHouseContainer is a running ClickHouse server.
type ClickHouseContainer struct {
	testcontainers.Container
	URL      string
	Database string
	User     string
	Password string

	httpClient *http.Client
}

// NewClickHouseContainer starts a ClickHouse server with an empty database.
func NewClickHouseContainer(ctx context.Context) (*ClickHouseContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        DefaultClickHouseImage,
		ExposedPorts: []string{ClickHouseHTTPPort + "/tcp"},
		Env: map[string]string{
			"CLICKHOUSE_DB":       clickHouseDatabase,
			"CLICKHOUSE_USER":     clickHouseUser,
			"CLICKHOUSE_PASSWORD": clickHousePassword,
			"TZ":                  "UTC",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(ClickHouseHTTPPort+"/tcp"),
			wait.ForHTTP("/ping").WithPort(ClickHouseHTTPPort+"/tcp"),
		).WithStartupTimeout(2 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create clickhouse container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, ClickHouseHTTPPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &ClickHouseContainer{
		Container:  container,
		URL:        fmt.Sprintf("http://%s:%s", host, port.Port()),
		Database:   clickHouseDatabase,
		User:       clickHouseUser,
		Password:   clickHousePassword,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Exec runs a statement that returns no rows.
func (c *ClickHouseContainer) Exec(ctx context.Context, sql string) error {
	return c.post(ctx, url.Values{}, strings.NewReader(sql))
}

// Insert writes rows into table as JSONEachRow. Columns missing from a row
// take their defaults.
func (c *ClickHouseContainer) Insert(ctx context.Context, table string, rows []map[string]any) error {
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
	}

	values := url.Values{}
	values.Set("query", fmt.Sprintf("INSERT INTO %s FORMAT JSONEachRow", table))
	return c.post(ctx, values, &body)
}

func (c *ClickHouseContainer) post(ctx context.Context, values url.Values, body io.Reader) error {
	values.Set("database", c.Database)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL+"/?"+values.Encode(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-ClickHouse-User", c.User)
	req.Header.Set("X-ClickHouse-Key", c.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("clickhouse returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
