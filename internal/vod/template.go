// Package vod derives on-demand playback paths for archived programs and
// renders the fixed-structure VOD manifest the content platform ingests.
package vod

import (
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/guidevault/guidevault/internal/epg"
	"github.com/guidevault/guidevault/internal/models"
)

// Template holds the raw VOD manifest with :_name_: placeholder tokens.
//
//go:embed vod_template.xml
var Template string

// ArchiveZone is the timezone VOD titles and air dates are rendered in.
// The content platform expects US East Coast dates regardless of the viewer.
const ArchiveZone = "America/New_York"

// TrailingBufferSeconds is padding appended to a program's recorded length
// so the capture covers overruns.
const TrailingBufferSeconds = 300

// Defaults supplies platform-level category fallbacks used when neither the
// program nor its channel carries one.
type Defaults struct {
	Category           string
	AdditionalCategory string
}

// Input gathers everything one render needs. PathOverride, when non-empty,
// replaces the derived playback path.
type Input struct {
	Program      *models.Program
	Channel      *models.Channel
	Defaults     Defaults
	PathOverride string
}

// rule resolves one placeholder: either a dotted path into the program's
// retained feed payload, or a computed function. Exactly one of the two is
// set.
type rule struct {
	path string
	fn   func(in Input) string
}

var rules = map[string]rule{
	"title":    {fn: titleWithAirDate},
	"duration": {path: "length.#text"},
	"category": {fn: func(in Input) string {
		if in.Channel.Settings.Category != "" {
			return in.Channel.Settings.Category
		}
		return in.Defaults.Category
	}},
	"additional_category": {fn: func(in Input) string {
		if in.Channel.Settings.AdditionalCategory != "" {
			return in.Channel.Settings.AdditionalCategory
		}
		return in.Defaults.AdditionalCategory
	}},
	"desc":   {path: "desc.#text"},
	"poster": {path: "icon.@src"},
	"url": {fn: func(in Input) string {
		path := in.PathOverride
		if path == "" {
			path = PlaybackPath(in.Program)
		}
		return in.Channel.URL + path + ".m3u8"
	}},
	"year":  {fn: airDateField("2006")},
	"month": {fn: airDateField("01")},
	"day":   {fn: airDateField("02")},
}

var reToken = regexp.MustCompile(`:_(.+?)_:`)

// Render substitutes every placeholder token in the manifest template.
// Unknown tokens resolve to the empty string; the literal token text never
// survives into the output.
func Render(in Input) string {
	return reToken.ReplaceAllStringFunc(Template, func(tok string) string {
		name := tok[2 : len(tok)-2]
		r, ok := rules[name]
		if !ok {
			return ""
		}
		if r.fn != nil {
			return r.fn(in)
		}
		return in.Program.Info.Get(r.path, "")
	})
}

// PlaybackPath derives the on-demand stream path for a program. An existing
// archival record's path is authoritative; otherwise the path is the epoch
// second of the program's original start joined to its padded duration in
// seconds.
func PlaybackPath(p *models.Program) string {
	if p.Archived != nil && p.Archived.Path != "" {
		return p.Archived.Path
	}
	start, err := epg.ParseInstant(p.Info.Get("@start", ""))
	if err != nil {
		// Fall back to the normalized start instant already stored.
		start = p.StartAt
	}
	length, _ := strconv.Atoi(p.Info.Get("length.#text", ""))
	if length == 0 {
		length = p.Length
	}
	return fmt.Sprintf("%d-%d", start.Unix(), length*60+TrailingBufferSeconds)
}

// titleWithAirDate prefixes the feed title with the air date formatted in
// the archival timezone, e.g. "01 May 2023 Game Night".
func titleWithAirDate(in Input) string {
	title := in.Program.Info.Get("title.#text", "")
	t, err := programStart(in.Program)
	if err != nil {
		return title
	}
	return t.Format("02 Jan 2006") + " " + title
}

// airDateField renders one date component of the program's start in the
// archival timezone.
func airDateField(layout string) func(in Input) string {
	return func(in Input) string {
		t, err := programStart(in.Program)
		if err != nil {
			return ""
		}
		return t.Format(layout)
	}
}

func programStart(p *models.Program) (time.Time, error) {
	loc, err := time.LoadLocation(ArchiveZone)
	if err != nil {
		return time.Time{}, err
	}
	start, err := epg.ParseInstant(p.Info.Get("@start", ""))
	if err != nil {
		start = p.StartAt
		if start.IsZero() {
			return time.Time{}, fmt.Errorf("program has no start instant")
		}
	}
	return start.In(loc), nil
}
