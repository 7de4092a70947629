package referrers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFriendlyName(t *testing.T) {
	tests := []struct {
		hostname string
		expected string
	}{
		// Known referrers
		{"google.com", "Google"},
		{"news.ycombinator.com", "Hacker News"},
		{"x.com", "X/Twitter"},
		{"reddit.com", "Reddit"},

		// With www prefix
		{"www.google.com", "Google"},

		// Subdomains of known referrers
		{"m.facebook.com", "Facebook"},
		{"mobile.twitter.com", "X/Twitter"},

		// Unknown referrers (capitalized)
		{"www.example.com", "Example.com"},
		{"myblog.io", "Myblog.io"},

		// Case insensitive
		{"News.Ycombinator.Com", "Hacker News"},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			assert.Equal(t, tt.expected, FriendlyName(tt.hostname))
		})
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		name     string
		referrer string
		expected string
	}{
		{"empty", "", DirectOrUnknown},
		{"blank", "   ", DirectOrUnknown},
		{"full url", "https://www.google.com/search?q=analytics", "Google"},
		{"host with path", "news.ycombinator.com/item?id=1", "Hacker News"},
		{"unknown url", "http://blog.example.org/post", "Blog.example.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Label(tt.referrer))
		})
	}
}
