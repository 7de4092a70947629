package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// JSON is a custom type for handling JSON data
type JSON []byte

// Scan scan value into JSON, implements sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal JSON value:", value))
	}

	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON value: %q", data)
	}
	*j = append((*j)[0:0], data...)
	return nil
}

// Value return json value, implement driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

// MarshalJSON implements the json.Marshaler interface
func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return fmt.Errorf("JSON: UnmarshalJSON on nil pointer")
	}
	*j = append((*j)[0:0], data...)
	return nil
}

// Object decodes j as a JSON object. Empty and null values decode to nil.
func (j JSON) Object() (map[string]any, error) {
	if len(j) == 0 || string(j) == "null" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(j, &out); err != nil {
		return nil, fmt.Errorf("decoding JSON object: %w", err)
	}
	return out, nil
}

// PerformWrite executes a write transaction with retry logic for SQLite busy errors.
// This is a wrapper that delegates to cartridge's sqlite.PerformWrite implementation.
func PerformWrite(logger *slog.Logger, dbConn *gorm.DB, f func(tx *gorm.DB) error) error {
	return sqlite.PerformWrite(logger, dbConn, f)
}
