// Package clickhouse queries the columnar event store over its HTTP
// interface. Statements are sent with bound parameters and read back as
// JSONEachRow.
package clickhouse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"pocketlytics/internal/metrics"
	"pocketlytics/internal/query"
)

// ErrUnavailable is returned while the circuit breaker refuses calls.
var ErrUnavailable = errors.New("event store unavailable")

// StoreError is a statement the store answered with an error status.
type StoreError struct {
	StatusCode int
	Message    string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("clickhouse returned %d: %s", e.StatusCode, e.Message)
}

// Config configures a Client.
type Config struct {
	URL           string
	Database      string
	User          string
	Password      string
	Timeout       time.Duration
	MaxResultRows int
	Breaker       BreakerSettings
}

// Client runs statements against the store.
type Client struct {
	endpoint      *url.URL
	database      string
	user          string
	password      string
	maxResultRows int
	httpClient    *http.Client
	breaker       *gobreaker.CircuitBreaker[[]map[string]any]
	logger        *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing clickhouse url: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return nil, fmt.Errorf("clickhouse url must be http or https, got %q", cfg.URL)
	}

	return &Client{
		endpoint:      endpoint,
		database:      cfg.Database,
		user:          cfg.User,
		password:      cfg.Password,
		maxResultRows: cfg.MaxResultRows,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		breaker:       newBreaker("clickhouse", cfg.Breaker, logger),
		logger:        logger,
	}, nil
}

// Query runs stmt and returns its rows. Numbers are decoded as json.Number
// and 64-bit integers arrive as strings; callers normalize them.
func (c *Client) Query(ctx context.Context, stmt query.Statement) ([]map[string]any, error) {
	queryID := uuid.NewString()
	start := time.Now()

	rows, err := c.breaker.Execute(func() ([]map[string]any, error) {
		return c.do(ctx, stmt, queryID)
	})
	elapsed := time.Since(start)

	if err != nil {
		outcome := metrics.OutcomeFailure
		if rejected(err) {
			outcome = metrics.OutcomeRejected
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		metrics.RecordStoreQuery(stmt.Name, outcome, elapsed, 0)

		c.logger.Error("store query failed",
			slog.String("statement", stmt.Name),
			slog.String("query_id", queryID),
			slog.String("sql", stmt.SQL),
			slog.Any("params", paramNames(stmt.Params)),
			slog.Any("error", err))
		return nil, fmt.Errorf("running %s: %w", stmt.Name, err)
	}

	metrics.RecordStoreQuery(stmt.Name, metrics.OutcomeSuccess, elapsed, len(rows))
	c.logger.Debug("store query",
		slog.String("statement", stmt.Name),
		slog.String("query_id", queryID),
		slog.Int("rows", len(rows)),
		slog.Duration("elapsed", elapsed))
	return rows, nil
}

// Ping checks the store answers on its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	pingURL := c.endpoint.JoinPath("ping")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pingURL.String(), nil)
	if err != nil {
		return fmt.Errorf("building ping request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pinging clickhouse: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StoreError{StatusCode: resp.StatusCode, Message: "ping failed"}
	}
	return nil
}

func (c *Client) do(ctx context.Context, stmt query.Statement, queryID string) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(stmt, queryID),
		strings.NewReader(stmt.SQL+"\nFORMAT JSONEachRow"))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if c.user != "" {
		req.Header.Set("X-ClickHouse-User", c.user)
	}
	if c.password != "" {
		req.Header.Set("X-ClickHouse-Key", c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StoreError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	return decodeRows(resp.Body)
}

func (c *Client) requestURL(stmt query.Statement, queryID string) string {
	values := url.Values{}
	if c.database != "" {
		values.Set("database", c.database)
	}
	values.Set("query_id", queryID)
	values.Set("log_comment", stmt.LogComment())
	if c.maxResultRows > 0 {
		values.Set("max_result_rows", strconv.Itoa(c.maxResultRows))
		values.Set("result_overflow_mode", "throw")
	}
	for k, v := range stmt.Settings {
		values.Set(k, v)
	}
	for name, v := range stmt.Params {
		values.Set("param_"+name, escapeParam(v))
	}

	u := *c.endpoint
	u.RawQuery = values.Encode()
	return u.String()
}

// decodeRows reads newline-delimited JSON objects. An exception the server
// writes after it started streaming fails decoding and surfaces as an error.
func decodeRows(r io.Reader) ([]map[string]any, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	rows := make([]map[string]any, 0)
	for {
		var row map[string]any
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decoding rows: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// escapeParam renders a parameter value in the escaped form the HTTP
// interface parses for param_ values.
func escapeParam(v string) string {
	return paramEscaper.Replace(v)
}

var paramEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\t", `\t`,
	"\n", `\n`,
	"\r", `\r`,
)

func paramNames(params map[string]string) []string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
