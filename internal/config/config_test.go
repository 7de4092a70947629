package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Environment:             Test,
		DatabaseType:            SQLiteDatabase,
		OverviewMode:            OverviewJoined,
		ClickHouseURL:           "http://localhost:8123",
		ClickHouseMaxResultRows: 100000,
		BreakerFailureRatio:     0.6,
		MaxBuckets:              10000,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().validate())
}

func TestValidateMaxBuckets(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "not positive",
			mutate:  func(c *Config) { c.MaxBuckets = 0 },
			wantErr: "max buckets must be positive",
		},
		{
			name:    "above result row limit",
			mutate:  func(c *Config) { c.MaxBuckets = c.ClickHouseMaxResultRows + 1 },
			wantErr: "exceeds clickhouse max result rows",
		},
		{
			name:   "equal to result row limit",
			mutate: func(c *Config) { c.MaxBuckets = c.ClickHouseMaxResultRows },
		},
		{
			name: "result row limit disabled",
			mutate: func(c *Config) {
				c.ClickHouseMaxResultRows = 0
				c.MaxBuckets = 1000000
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateRejectsUnknownOverviewMode(t *testing.T) {
	c := validConfig()
	c.OverviewMode = "parallel"
	assert.ErrorContains(t, c.validate(), "invalid overview mode")
}
