// Package catalog resolves the master channel listing: a CSV-like blob of
// candidate feed URLs that is filtered, cleaned, and deduplicated before the
// per-channel fetch loop runs.
package catalog

import (
	"regexp"
	"strings"
)

// Entry is one resolved feed listing: a display name and the feed URL. The
// URL is the entry's true identity.
type Entry struct {
	Name string
	URL  string
}

// reFeedExt keeps only lines pointing at the feed format we ingest.
var reFeedExt = regexp.MustCompile(`(?i)\.xml$`)

// denylist holds URL fragments known to mark expired or placeholder feeds.
var denylist = []string{
	"gmt-content",
	"200-ok-server",
	"-expires-",
}

// Parse turns the raw catalog text into a clean ordered list of entries.
// One candidate per line, two comma-separated fields (quoted name, bare URL).
// Lines that do not end in the feed extension, contain a denylisted fragment,
// or have the wrong field count are dropped, never reported. Duplicates are
// removed first verbatim and then by URL, keeping the first occurrence so the
// output order is stable.
func Parse(raw string) []Entry {
	seenLine := make(map[string]struct{})
	seenURL := make(map[string]struct{})
	var out []Entry

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if !reFeedExt.MatchString(trimmed) {
			continue
		}
		if containsAny(trimmed, denylist) {
			continue
		}
		if _, dup := seenLine[trimmed]; dup {
			continue
		}
		seenLine[trimmed] = struct{}{}

		fields := strings.Split(trimmed, ",")
		if len(fields) != 2 {
			continue
		}
		url := strings.TrimSpace(fields[1])
		if _, dup := seenURL[url]; dup {
			continue
		}
		seenURL[url] = struct{}{}

		out = append(out, Entry{
			Name: strings.Trim(strings.TrimSpace(fields[0]), `"`),
			URL:  url,
		})
	}
	return out
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
