package guide

import (
	"errors"
	"testing"
	"time"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("LoadLocation(%s): %v", name, err)
	}
	return loc
}

func TestDayWindowDSTTransition(t *testing.T) {
	// 2024-03-10 is the spring-forward date in America/New_York: the local
	// day is 23 hours long.
	ny := mustLoad(t, "America/New_York")
	w := DayWindow(Date{Year: 2024, Month: time.March, Day: 10}, ny)

	wantFrom := time.Date(2024, 3, 10, 5, 0, 0, 0, time.UTC)
	wantTo := time.Date(2024, 3, 11, 3, 59, 0, 0, time.UTC)
	if !w.From.Equal(wantFrom) {
		t.Fatalf("From: want %v, got %v", wantFrom, w.From)
	}
	if !w.To.Equal(wantTo) {
		t.Fatalf("To: want %v, got %v", wantTo, w.To)
	}
	if span := w.To.Sub(w.From); span != 22*time.Hour+59*time.Minute {
		t.Fatalf("span: want 22h59m (23-hour local day), got %v", span)
	}
}

func TestPreviousDayWindowAcrossDST(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	d := Date{Year: 2024, Month: time.March, Day: 10}

	prev := PreviousDayWindow(d, ny)
	cur := DayWindow(d, ny)

	// Previous local day is still on EST (UTC-5).
	wantFrom := time.Date(2024, 3, 9, 5, 0, 0, 0, time.UTC)
	wantTo := time.Date(2024, 3, 10, 4, 59, 0, 0, time.UTC)
	if !prev.From.Equal(wantFrom) {
		t.Fatalf("From: want %v, got %v", wantFrom, prev.From)
	}
	if !prev.To.Equal(wantTo) {
		t.Fatalf("To: want %v, got %v", wantTo, prev.To)
	}
	// The previous day ends one minute before the current day begins.
	if got := cur.From.Sub(prev.To); got != time.Minute {
		t.Fatalf("gap between windows: want 1m, got %v", got)
	}
}

func TestDayWindowPlainDay(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	w := DayWindow(Date{Year: 2024, Month: time.July, Day: 4}, ny)
	if span := w.To.Sub(w.From); span != 23*time.Hour+59*time.Minute {
		t.Fatalf("span: want 23h59m, got %v", span)
	}
	if !w.From.Equal(time.Date(2024, 7, 4, 4, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected From: %v", w.From)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-3-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Year != 2024 || d.Month != time.March || d.Day != 10 {
		t.Fatalf("unexpected date: %+v", d)
	}

	for _, bad := range []string{"2024-03", "2024-03-10-11", "not-a-date", "", "2024-xx-10"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrBadDate) {
			t.Fatalf("ParseDate(%q): want ErrBadDate, got %v", bad, err)
		}
	}
}

func TestTodayUsesLocation(t *testing.T) {
	utc := Today(time.UTC)
	now := time.Now().UTC()
	if utc.Year != now.Year() || utc.Month != now.Month() {
		t.Fatalf("Today(UTC) disagrees with time.Now: %+v vs %v", utc, now)
	}
}
