package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/guidevault/guidevault/internal/fetcher"
	"github.com/guidevault/guidevault/internal/models"
	"github.com/guidevault/guidevault/internal/store"
)

const remotePrefix = "http://epg.example.org"

const feedOne = `<tv>
  <channel id="one">
    <display-name lang="en">Example One</display-name>
    <channellogo>http://img.example.org/one.png</channellogo>
  </channel>
  <programme start="20240310013000 +0200" stop="20240310023000 +0200" start_a="1710026400" end_a="1710030000">
    <title lang="en">Tom&amp;amp;apos;s Pick</title>
    <length units="minutes">60</length>
    <category lang="en">News</category>
  </programme>
  <programme start="20240310023000 +0200" stop="20240310033000 +0200" start_a="1710030000" end_a="1710033600">
    <title lang="en">Late Film</title>
    <length units="minutes">60</length>
  </programme>
  <programme start="20240310033000 +0200" stop="20240310043000 +0200" start_a="-6216998400" end_a="1710037200">
    <title lang="en">Broken Entry</title>
    <length units="minutes">60</length>
  </programme>
</tv>`

const feedEmpty = `<tv>
  <channel id="empty">
    <display-name lang="en">No Schedule</display-name>
    <channellogo>http://img.example.org/empty.png</channellogo>
  </channel>
</tv>`

// writeMirror lays out feed files under a temp dir mimicking the upstream
// URL structure and returns the dir.
func writeMirror(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, body := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func catalogServer(t *testing.T, csv string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(csv))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestIngestor(s store.Store, mirror, listURL string, delay time.Duration, progress func(int, int)) *Ingestor {
	f := fetcher.New(fetcher.Options{
		RemotePrefix: remotePrefix,
		LocalDir:     mirror,
		USAPath:      remotePrefix + "/public/xml/usa/",
	})
	return NewIngestor(s, f, listURL, delay, progress)
}

func TestRunIngestsAndIsolatesFailures(t *testing.T) {
	mirror := writeMirror(t, map[string]string{
		"public/xml/usa/one.xml":   feedOne,
		"public/xml/sky/empty.xml": feedEmpty,
	})
	csv := strings.Join([]string{
		`"Example One",` + remotePrefix + `/public/xml/usa/one.xml`,
		`"No Schedule",` + remotePrefix + `/public/xml/sky/empty.xml`,
		`"Missing",` + remotePrefix + `/public/xml/sky/missing.xml`,
	}, "\n")
	srv := catalogServer(t, csv)

	mem := store.NewMemory()
	var steps []int
	ing := newTestIngestor(mem, mirror, srv.URL, 0, func(done, total int) {
		if total != 3 {
			t.Fatalf("progress total: want 3, got %d", total)
		}
		steps = append(steps, done)
	})

	report, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Processed != 3 || report.Total != 3 {
		t.Fatalf("report processed/total: got %d/%d", report.Processed, report.Total)
	}
	if len(report.Failures) != 1 || !strings.Contains(report.Failures[0], "missing.xml") {
		t.Fatalf("want one failure for missing.xml, got %v", report.Failures)
	}
	if len(steps) != 3 || steps[2] != 3 {
		t.Fatalf("progress steps: %v", steps)
	}

	// Feed with no programmes is skipped entirely; the failed feed writes
	// nothing. Only one channel exists.
	if n := mem.CountChannels(); n != 1 {
		t.Fatalf("want 1 channel, got %d", n)
	}
	// The sentinel entry is dropped, its siblings are kept.
	if n := mem.CountPrograms(); n != 2 {
		t.Fatalf("want 2 programs, got %d", n)
	}

	channels, err := mem.ListChannels(context.Background(), store.ChannelFilter{})
	if err != nil {
		t.Fatal(err)
	}
	ch := channels[0]
	if ch.Provider != models.ProviderUSA {
		t.Fatalf("provider: want usa, got %s", ch.Provider)
	}
	if ch.Title != "Example One" || ch.Logo != "http://img.example.org/one.png" {
		t.Fatalf("channel metadata: %+v", ch)
	}

	window := store.ProgramFilter{
		From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	programs, err := mem.ListPrograms(context.Background(), window)
	if err != nil {
		t.Fatal(err)
	}
	if len(programs) != 2 {
		t.Fatalf("want 2 programs, got %d", len(programs))
	}

	first := programs[0]
	// 01:30 +0200 normalizes to 23:30 UTC the previous day.
	wantStart := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	if !first.StartAt.Equal(wantStart) {
		t.Fatalf("start: want %v, got %v", wantStart, first.StartAt)
	}
	if !first.StartAt.Before(first.EndAt) {
		t.Fatalf("start must precede end: %v / %v", first.StartAt, first.EndAt)
	}
	if first.Title != "Tom's Pick" {
		t.Fatalf("title: want Tom's Pick, got %q", first.Title)
	}
	if first.Length != 60 {
		t.Fatalf("length: want 60, got %d", first.Length)
	}
	if first.CategoryTitle == nil || *first.CategoryTitle != "News" {
		t.Fatalf("category: %v", first.CategoryTitle)
	}
	// The full entry payload rides along for later templating.
	if got := first.Info.Get("title.#text", ""); got != "Tom&amp;apos;s Pick" {
		t.Fatalf("payload title: got %q", got)
	}
	if programs[1].CategoryID != nil {
		t.Fatalf("second program should have no category")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	mirror := writeMirror(t, map[string]string{
		"public/xml/usa/one.xml": feedOne,
	})
	srv := catalogServer(t, `"Example One",`+remotePrefix+`/public/xml/usa/one.xml`)

	mem := store.NewMemory()
	ing := newTestIngestor(mem, mirror, srv.URL, 0, nil)

	for i := 0; i < 2; i++ {
		if _, err := ing.Run(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}

	if n := mem.CountChannels(); n != 1 {
		t.Fatalf("want 1 channel after re-run, got %d", n)
	}
	if n := mem.CountPrograms(); n != 2 {
		t.Fatalf("want 2 programs after re-run, got %d", n)
	}
	cats, err := mem.ListCategories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 {
		t.Fatalf("want 1 category after re-run, got %d", len(cats))
	}
}

func TestRunAppliesThrottleDelay(t *testing.T) {
	mirror := writeMirror(t, map[string]string{
		"public/xml/usa/one.xml": feedOne,
	})
	csv := strings.Join([]string{
		`"One",` + remotePrefix + `/public/xml/usa/one.xml`,
		`"Two",` + remotePrefix + `/public/xml/usa/two.xml`,
	}, "\n")
	srv := catalogServer(t, csv)

	ing := newTestIngestor(store.NewMemory(), mirror, srv.URL, 20*time.Millisecond, nil)

	started := time.Now()
	if _, err := ing.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Two entries, delay after each (success or failure alike).
	if elapsed := time.Since(started); elapsed < 40*time.Millisecond {
		t.Fatalf("throttle not applied: elapsed %v", elapsed)
	}
}

func TestRunFatalWithoutCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ing := newTestIngestor(store.NewMemory(), t.TempDir(), srv.URL, 0, nil)
	if _, err := ing.Run(context.Background()); err == nil {
		t.Fatal("expected fatal error when the catalog cannot be fetched")
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	mirror := writeMirror(t, map[string]string{
		"public/xml/usa/one.xml": feedOne,
	})
	srv := catalogServer(t, `"One",`+remotePrefix+`/public/xml/usa/one.xml`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ing := newTestIngestor(store.NewMemory(), mirror, srv.URL, 0, nil)
	if _, err := ing.Run(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
}
