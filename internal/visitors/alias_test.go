package visitors_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"pocketlytics/internal/visitors"
)

func TestAlias(t *testing.T) {
	t.Run("stable for a signature", func(t *testing.T) {
		assert.Equal(t, visitors.Alias("device-123"), visitors.Alias("device-123"))
	})

	t.Run("adjective animal format", func(t *testing.T) {
		for _, sig := range []string{"", "a", "device-123", "ünïcödé", "0000000000000000"} {
			assert.Regexp(t, `^[A-Z][a-z]+ [A-Z][a-z]+$`, visitors.Alias(sig), sig)
		}
	})

	t.Run("spreads across names", func(t *testing.T) {
		seen := map[string]struct{}{}
		for i := 0; i < 200; i++ {
			seen[visitors.Alias(fmt.Sprintf("device-%d", i))] = struct{}{}
		}
		assert.Greater(t, len(seen), 100)
	})
}

func TestLabel(t *testing.T) {
	rows := visitors.Label([]map[string]any{
		{"session_id": "s1", "user_id": "device-1", "identified_user_id": ""},
		{"session_id": "s2", "user_id": "device-1", "identified_user_id": "alice"},
		{"session_id": "s3", "user_id": "", "identified_user_id": ""},
		{"session_id": "", "user_id": ""},
	})

	assert.Equal(t, visitors.Alias("device-1"), rows[0][visitors.AliasKey])
	assert.Nil(t, rows[1][visitors.AliasKey])
	assert.Contains(t, rows[1], visitors.AliasKey)
	assert.Equal(t, visitors.Alias("s3"), rows[2][visitors.AliasKey])
	assert.Nil(t, rows[3][visitors.AliasKey])
}
