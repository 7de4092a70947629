package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabeler(t *testing.T) {
	tests := []struct {
		parameter string
		value     any
		expected  string
	}{
		{"country", "US", "United States"},
		{"country", "zz", "ZZ"},
		{"country", "", "Unknown"},
		{"device_type", "desktop", "Desktop"},
		{"browser", nil, "Unknown"},
		{"operating_system", "ios", "iOS"},
		{"operating_system", "Mac OS X", "macOS"},
		{"operating_system", "windows", "Windows"},
		{"referrer", "https://t.co/abc", "X/Twitter"},
		{"referrer", "", "Direct / Unknown"},
		{"pathname", "/pricing", "/pricing"},
		{"dimensions", int64(1920), "1920"},
		{"event_name", "", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.parameter, func(t *testing.T) {
			assert.Equal(t, tt.expected, labeler(tt.parameter)(tt.value))
		})
	}
}

func TestPaginationQuery(t *testing.T) {
	p := Pagination{Page: 3, Limit: 25}
	assert.NoError(t, p.validate())
	assert.Equal(t, 50, p.query().Offset)
	assert.Equal(t, 25, p.query().Limit)

	assert.Error(t, Pagination{Page: 1, Limit: 0}.validate())
	assert.Error(t, Pagination{Page: 0, Limit: 10}.validate())
}
