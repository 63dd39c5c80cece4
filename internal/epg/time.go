package epg

import (
	"fmt"
	"strings"
	"time"
)

// InvalidDateSentinel marks schedule entries the upstream generator could not
// date: their @start_a/@end_a validity tokens begin with this character.
// Feeds routinely contain such entries, so callers skip them silently rather
// than treating them as errors.
const InvalidDateSentinel = "-"

// Timestamp layouts seen across upstream feeds, tried in order. XMLTV uses
// the compact form with or without a zone offset; a few providers emit
// RFC 3339 instead.
var instantLayouts = []string{
	"20060102150405 -0700",
	"20060102150405",
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
}

// ParseInstant parses a feed timestamp token and returns it as a UTC instant.
// Tokens without an explicit offset are taken as already being UTC.
func ParseInstant(token string) (time.Time, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", token)
}
