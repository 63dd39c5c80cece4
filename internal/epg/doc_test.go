package epg

import (
	"strings"
	"testing"
	"time"
)

const sampleFeed = `<tv>
  <channel id="c1">
    <display-name lang="en">Example One</display-name>
    <channellogo>http://img.example.org/one.png</channellogo>
  </channel>
  <programme start="20230501200000 +0000" stop="20230501210000 +0000">
    <title lang="en">Game Night</title>
    <length units="minutes">60</length>
    <category>Entertainment</category>
  </programme>
</tv>`

func TestParseShapes(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleFeed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := doc.Get("channel.display-name.#text", ""); got != "Example One" {
		t.Fatalf("display-name: got %q", got)
	}
	// Attribute-less leaf collapses to plain text.
	if got := doc.Get("channel.channellogo", ""); got != "http://img.example.org/one.png" {
		t.Fatalf("channellogo: got %q", got)
	}

	progs := doc.Programmes()
	if len(progs) != 1 {
		t.Fatalf("want 1 programme, got %d", len(progs))
	}
	p := progs[0]
	if got := p.Get("@start", ""); got != "20230501200000 +0000" {
		t.Fatalf("@start: got %q", got)
	}
	if got := p.Get("title.#text", ""); got != "Game Night" {
		t.Fatalf("title: got %q", got)
	}
	if got := p.Get("length.#text", ""); got != "60" {
		t.Fatalf("length: got %q", got)
	}
	if got := p.Get("category", ""); got != "Entertainment" {
		t.Fatalf("category: got %q", got)
	}
}

func TestParseRepeatedSiblings(t *testing.T) {
	raw := `<tv>
  <programme start="a"><title>1</title></programme>
  <programme start="b"><title>2</title></programme>
  <programme start="c"><title>3</title></programme>
</tv>`
	doc, err := Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	progs := doc.Programmes()
	if len(progs) != 3 {
		t.Fatalf("want 3 programmes, got %d", len(progs))
	}
	if got := progs[1].Get("@start", ""); got != "b" {
		t.Fatalf("second programme start: got %q", got)
	}
}

func TestGetDefaults(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleFeed))
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Get("no.such.path", "fallback"); got != "fallback" {
		t.Fatalf("missing path: got %q", got)
	}
	// Path ending on a subtree rather than a string also defaults.
	if got := doc.Get("channel", "fallback"); got != "fallback" {
		t.Fatalf("non-leaf path: got %q", got)
	}
}

func TestProgrammesAbsent(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<tv><channel id="c"><display-name lang="en">X</display-name></channel></tv>`))
	if err != nil {
		t.Fatal(err)
	}
	if progs := doc.Programmes(); len(progs) != 0 {
		t.Fatalf("want no programmes, got %d", len(progs))
	}
}

func TestParseInstant(t *testing.T) {
	cases := []struct {
		token string
		want  time.Time
	}{
		{"20240310013000 +0200", time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)},
		{"20240310013000", time.Date(2024, 3, 10, 1, 30, 0, 0, time.UTC)},
		{"2023-05-01T20:00:00Z", time.Date(2023, 5, 1, 20, 0, 0, 0, time.UTC)},
		{"2023-05-01T20:00:00-04:00", time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := ParseInstant(c.token)
		if err != nil {
			t.Fatalf("ParseInstant(%q): %v", c.token, err)
		}
		if !got.Equal(c.want) {
			t.Fatalf("ParseInstant(%q): want %v, got %v", c.token, c.want, got)
		}
		if got.Location() != time.UTC {
			t.Fatalf("ParseInstant(%q): not UTC: %v", c.token, got.Location())
		}
	}

	for _, bad := range []string{"", "garbage", "2024-99-99"} {
		if _, err := ParseInstant(bad); err == nil {
			t.Fatalf("ParseInstant(%q): expected error", bad)
		}
	}
}
