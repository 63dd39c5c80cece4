package catalog

import (
	"strings"
	"testing"
)

func TestParseFiltersAndDeduplicates(t *testing.T) {
	raw := strings.Join([]string{
		`"CNN",http://epg.example.org/public/xml/usa/cnn.xml`,
		`"CNN",http://epg.example.org/public/xml/usa/cnn.xml`,
		`"CNN HD",http://epg.example.org/public/xml/usa/cnn.xml`,
		`"Sky One",http://epg.example.org/public/xml/sky/skyone.XML`,
		`"Not A Feed",http://epg.example.org/public/html/page.html`,
		`"Expired",http://epg.example.org/public/xml/usa/old-expires-soon.xml`,
		`"Placeholder",http://epg.example.org/gmt-content/x.xml`,
		`"Server Page",http://epg.example.org/200-ok-server/y.xml`,
		`no-comma-line.xml`,
		`"a","b",http://epg.example.org/three-fields.xml`,
		``,
	}, "\n")

	entries := Parse(raw)

	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].Name != "CNN" || entries[0].URL != "http://epg.example.org/public/xml/usa/cnn.xml" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Name != "Sky One" {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}

	seen := make(map[string]bool)
	for _, e := range entries {
		if seen[e.URL] {
			t.Fatalf("duplicate URL in output: %s", e.URL)
		}
		seen[e.URL] = true
		lower := strings.ToLower(e.URL)
		if !strings.HasSuffix(lower, ".xml") {
			t.Fatalf("URL does not end in feed extension: %s", e.URL)
		}
	}
}

func TestParseKeepsStableOrder(t *testing.T) {
	raw := `"B",http://h/b.xml` + "\n" + `"A",http://h/a.xml` + "\n" + `"C",http://h/c.xml`
	entries := Parse(raw)
	if len(entries) != 3 {
		t.Fatalf("want 3 entries, got %d", len(entries))
	}
	want := []string{"B", "A", "C"}
	for i, e := range entries {
		if e.Name != want[i] {
			t.Fatalf("position %d: want %s, got %s", i, want[i], e.Name)
		}
	}
}

func TestParseEmptyInput(t *testing.T) {
	if entries := Parse(""); len(entries) != 0 {
		t.Fatalf("want no entries, got %+v", entries)
	}
}
