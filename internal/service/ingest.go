// Package service runs the scheduled EPG ingest batch: resolve the master
// catalog, then fetch, normalize, and upsert one feed at a time.
package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/guidevault/guidevault/internal/catalog"
	"github.com/guidevault/guidevault/internal/epg"
	"github.com/guidevault/guidevault/internal/fetcher"
	"github.com/guidevault/guidevault/internal/models"
	"github.com/guidevault/guidevault/internal/store"
)

// Report summarizes one batch run: how many catalog entries were visited and
// which feeds were skipped, with the reason. Per-feed failures never abort
// the batch, so the report is the only place they surface.
type Report struct {
	Total     int
	Processed int
	Channels  int
	Programs  int
	Failures  []string
}

// Ingestor drives the batch. Feeds are visited strictly one at a time with
// Delay between items; this is a politeness throttle against the upstream
// host, not a performance knob.
type Ingestor struct {
	store    store.Store
	fetcher  *fetcher.Fetcher
	listURL  string
	delay    time.Duration
	progress func(done, total int)
}

// NewIngestor wires an Ingestor. progress may be nil; it is purely
// observational and reports (done, total) after every catalog entry.
func NewIngestor(s store.Store, f *fetcher.Fetcher, listURL string, delay time.Duration, progress func(done, total int)) *Ingestor {
	if progress == nil {
		progress = func(int, int) {}
	}
	return &Ingestor{store: s, fetcher: f, listURL: listURL, delay: delay, progress: progress}
}

// Run executes one full batch. Only the catalog fetch itself is fatal:
// without the master list there is nothing to process. Everything after that
// is contained per feed.
func (in *Ingestor) Run(ctx context.Context) (*Report, error) {
	raw, err := in.fetcher.FetchRemote(ctx, in.listURL)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	entries := catalog.Parse(string(raw))

	report := &Report{Total: len(entries)}
	// Shared across the whole batch so a category title resolves to one id
	// no matter which feed mentions it first.
	categories := make(map[string]int64)

	for i, entry := range entries {
		// Check for context cancellation between iterations to allow
		// graceful shutdown during long batches.
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("ingest cancelled: %w", err)
		}

		if err := in.ingestFeed(ctx, entry, categories, report); err != nil {
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", entry.URL, err))
		}
		report.Processed = i + 1
		in.progress(report.Processed, report.Total)

		if err := in.wait(ctx); err != nil {
			return report, err
		}
	}
	return report, nil
}

// wait sleeps the configured inter-item delay, honouring cancellation. It
// runs after every entry, success or failure, to bound the request rate.
func (in *Ingestor) wait(ctx context.Context) error {
	if in.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(in.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ingestFeed fetches and normalizes one feed, then upserts its channel and
// programs. Any error here is this feed's problem alone.
func (in *Ingestor) ingestFeed(ctx context.Context, entry catalog.Entry, categories map[string]int64, report *Report) error {
	body, err := in.fetcher.Fetch(ctx, entry.URL)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	doc, err := epg.Parse(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	provider := in.fetcher.Provider(entry.URL)
	return in.storeFeed(ctx, entry.URL, provider, doc, categories, report)
}

// storeFeed normalizes one parsed feed document. A feed with no programme
// entries at all is skipped outright: no channel write, no error.
func (in *Ingestor) storeFeed(ctx context.Context, feedURL, provider string, doc epg.Doc, categories map[string]int64, report *Report) error {
	programmes := doc.Programmes()
	if len(programmes) == 0 {
		return nil
	}

	channelID, err := in.store.UpsertChannel(ctx, &models.Channel{
		XMLURL:   feedURL,
		Provider: provider,
		Title:    doc.Get("channel.display-name.#text", ""),
		Logo:     doc.Get("channel.channellogo", ""),
	})
	if err != nil {
		return fmt.Errorf("UpsertChannel: %w", err)
	}
	report.Channels++

	programs := make([]*models.Program, 0, len(programmes))
	for _, p := range programmes {
		pr, ok := in.normalizeProgramme(ctx, channelID, p, categories)
		if !ok {
			continue
		}
		programs = append(programs, pr)
	}

	// The channel row exists by now, so the batch can reference its id.
	if err := in.store.UpsertPrograms(ctx, programs); err != nil {
		return fmt.Errorf("UpsertPrograms: %w", err)
	}
	report.Programs += len(programs)
	return nil
}

// normalizeProgramme turns one programme entry into a Program record.
// Entries the upstream marked undateable, or whose timestamps do not parse
// into a valid start < end pair, are dropped silently: such entries are
// routine in these feeds and must not disturb their siblings.
func (in *Ingestor) normalizeProgramme(ctx context.Context, channelID int64, p epg.Doc, categories map[string]int64) (*models.Program, bool) {
	if strings.HasPrefix(p.Get("@start_a", ""), epg.InvalidDateSentinel) ||
		strings.HasPrefix(p.Get("@end_a", ""), epg.InvalidDateSentinel) {
		return nil, false
	}

	start, err := epg.ParseInstant(p.Get("@start", ""))
	if err != nil {
		return nil, false
	}
	end, err := epg.ParseInstant(p.Get("@stop", ""))
	if err != nil {
		return nil, false
	}
	if !start.Before(end) {
		return nil, false
	}

	pr := &models.Program{
		ChannelID: channelID,
		Title:     normalizeTitle(p.Get("title.#text", "")),
		StartAt:   start,
		EndAt:     end,
		Info:      p,
	}
	if length, err := strconv.Atoi(strings.TrimSpace(p.Get("length.#text", ""))); err == nil {
		pr.Length = length
	}

	title := p.Get("category", "")
	if title == "" {
		// Some providers attach a lang attribute, which nests the text.
		title = p.Get("category.#text", "")
	}
	if title != "" {
		id, ok := categories[title]
		if !ok {
			var err error
			id, err = in.store.GetOrCreateCategory(ctx, title)
			if err != nil {
				// Leave the program uncategorized rather than dropping it.
				return pr, true
			}
			categories[title] = id
		}
		pr.CategoryID = &id
	}
	return pr, true
}

// normalizeTitle trims whitespace and repairs the upstream double-escaped
// apostrophe artifact. This is a known encoding defect in the feeds, not
// general HTML unescaping.
func normalizeTitle(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "&amp;apos;", "'"))
}
