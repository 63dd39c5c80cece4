package vod

import (
	"strings"
	"testing"
	"time"

	"github.com/guidevault/guidevault/internal/epg"
	"github.com/guidevault/guidevault/internal/models"
)

func sampleProgram() *models.Program {
	return &models.Program{
		ID:        7,
		ChannelID: 1,
		Title:     "Game Night",
		Length:    60,
		StartAt:   time.Date(2023, 5, 1, 20, 0, 0, 0, time.UTC),
		Info: epg.Doc{
			"@start": "2023-05-01T20:00:00Z",
			"title":  map[string]any{"#text": "Game Night"},
			"length": map[string]any{"#text": "60"},
			"desc":   map[string]any{"#text": "Weekly quiz."},
			"icon":   map[string]any{"@src": "http://img.example.org/gn.png"},
		},
	}
}

func sampleChannel() *models.Channel {
	return &models.Channel{
		ID:    1,
		Title: "Example One",
		URL:   "http://vod.example.org/streams/",
	}
}

func TestPlaybackPathDerivation(t *testing.T) {
	p := sampleProgram()
	// epoch(2023-05-01T20:00:00Z) = 1682971200; 60*60+300 = 3900.
	want := "1682971200-3900"
	if got := PlaybackPath(p); got != want {
		t.Fatalf("want %s, got %s", want, got)
	}
}

func TestPlaybackPathPrefersArchivedRecord(t *testing.T) {
	p := sampleProgram()
	p.Archived = &models.ArchivedProgram{ProgramID: p.ID, Path: "111-222", Status: true}
	if got := PlaybackPath(p); got != "111-222" {
		t.Fatalf("want 111-222, got %s", got)
	}
}

func TestRenderEmbedsPlaybackURL(t *testing.T) {
	doc := Render(Input{Program: sampleProgram(), Channel: sampleChannel()})

	wantURL := `url="http://vod.example.org/streams/1682971200-3900.m3u8"`
	if !strings.Contains(doc, wantURL) {
		t.Fatalf("document missing %s:\n%s", wantURL, doc)
	}
	// 20:00 UTC is 16:00 in America/New_York, still 01 May.
	if !strings.Contains(doc, `title="01 May 2023 Game Night"`) {
		t.Fatalf("document missing dated title:\n%s", doc)
	}
	if !strings.Contains(doc, `duration="60"`) {
		t.Fatalf("document missing duration:\n%s", doc)
	}
	if !strings.Contains(doc, `year="2023"`) || !strings.Contains(doc, `month="05"`) || !strings.Contains(doc, `day="01"`) {
		t.Fatalf("document missing date fields:\n%s", doc)
	}
	if !strings.Contains(doc, `poster="http://img.example.org/gn.png"`) {
		t.Fatalf("document missing poster:\n%s", doc)
	}
}

func TestRenderArchivalZoneShiftsDate(t *testing.T) {
	p := sampleProgram()
	// 02:00 UTC on May 2 is still May 1 evening in America/New_York.
	p.Info["@start"] = "2023-05-02T02:00:00Z"
	doc := Render(Input{Program: p, Channel: sampleChannel()})
	if !strings.Contains(doc, `title="01 May 2023 Game Night"`) {
		t.Fatalf("air date should be rendered in America/New_York:\n%s", doc)
	}
}

func TestRenderPathOverride(t *testing.T) {
	doc := Render(Input{Program: sampleProgram(), Channel: sampleChannel(), PathOverride: "999-111"})
	if !strings.Contains(doc, `url="http://vod.example.org/streams/999-111.m3u8"`) {
		t.Fatalf("override path not used:\n%s", doc)
	}
}

func TestRenderCategoryFallbacks(t *testing.T) {
	ch := sampleChannel()
	defaults := Defaults{Category: "General", AdditionalCategory: "TV"}

	doc := Render(Input{Program: sampleProgram(), Channel: ch, Defaults: defaults})
	if !strings.Contains(doc, `category="General"`) {
		t.Fatalf("default category not applied:\n%s", doc)
	}

	ch.Settings.Category = "Sports"
	doc = Render(Input{Program: sampleProgram(), Channel: ch, Defaults: defaults})
	if !strings.Contains(doc, `category="Sports"`) {
		t.Fatalf("channel category not applied:\n%s", doc)
	}
}

func TestRenderUnknownTokensEmpty(t *testing.T) {
	p := sampleProgram()
	delete(p.Info, "desc")
	delete(p.Info, "icon")
	doc := Render(Input{Program: p, Channel: sampleChannel()})

	if strings.Contains(doc, ":_") || strings.Contains(doc, "_:") {
		t.Fatalf("literal token text left in output:\n%s", doc)
	}
	if !strings.Contains(doc, `description=""`) || !strings.Contains(doc, `poster=""`) {
		t.Fatalf("missing payload fields should render empty:\n%s", doc)
	}
}
