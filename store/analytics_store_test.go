package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/api/models"
)

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	return func() time.Time {
		cur := t
		t = t.Add(step)
		return cur
	}
}

func newTestStore() *AnalyticsStore {
	return NewAnalyticsStore(AnalyticsStoreOptions{
		Location: time.UTC,
		Now:      stepClock(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), time.Second),
	})
}

func record(t *testing.T, s *AnalyticsStore, page, visitor string) models.PageViewEvent {
	t.Helper()
	event, err := s.RecordPageView(models.PageViewInput{Page: page, VisitorKey: visitor})
	require.NoError(t, err)
	return event
}

func TestRecordPageViewCountsEveryCall(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 37; i++ {
		record(t, s, fmt.Sprintf("/p%d", i%5), "1.1.1.1")
	}

	overview := s.GetOverview()
	assert.Equal(t, int64(37), overview.TotalPageViews)
	assert.Equal(t, int64(1), overview.TotalVisitors)
}

func TestRecordPageViewUniqueVisitors(t *testing.T) {
	s := newTestStore()
	for _, key := range []string{"a", "b", "a", "c", "b", "a", "d", "c"} {
		record(t, s, "/", key)
	}

	overview := s.GetOverview()
	assert.Equal(t, int64(4), overview.TotalVisitors)
	assert.Equal(t, int64(4), overview.UniqueVisitors)
	assert.Len(t, s.seenVisitorKeys, 4)
	assert.LessOrEqual(t, overview.TotalVisitors, overview.TotalPageViews)
}

func TestRecordPageViewAssignsIDAndTimestamp(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewAnalyticsStore(AnalyticsStoreOptions{Now: func() time.Time { return now }})

	event, err := s.RecordPageView(models.PageViewInput{
		Page:             "/blog",
		Referrer:         "https://example.com",
		UserAgent:        "Mozilla/5.0 Firefox/120.0",
		ScreenResolution: "1920x1080",
		Timezone:         "Europe/Berlin",
		VisitorKey:       "10.0.0.1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, now, event.Timestamp)
	assert.Equal(t, "/blog", event.Page)
	assert.Equal(t, "10.0.0.1", event.VisitorKey)
	assert.Equal(t, []models.PageViewEvent{event}, s.History())
}

func TestRecordPageViewRejectsEmptyPage(t *testing.T) {
	s := newTestStore()

	_, err := s.RecordPageView(models.PageViewInput{VisitorKey: "a"})
	assert.ErrorIs(t, err, ErrEmptyPage)

	overview := s.GetOverview()
	assert.Zero(t, overview.TotalPageViews)
	assert.Zero(t, overview.TotalVisitors)
	assert.Empty(t, s.History())
}

func TestRecordPageViewTimestampsNeverGoBackwards(t *testing.T) {
	times := []time.Time{
		time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC),
	}
	i := 0
	s := NewAnalyticsStore(AnalyticsStoreOptions{Now: func() time.Time {
		t := times[i]
		i++
		return t
	}})

	for range times {
		record(t, s, "/", "a")
	}

	history := s.History()
	require.Len(t, history, 3)
	assert.Equal(t, times[0], history[0].Timestamp)
	assert.Equal(t, times[0], history[1].Timestamp)
	assert.Equal(t, times[2], history[2].Timestamp)
}

func TestRollingWindowKeepsMostRecent(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 1500; i++ {
		record(t, s, fmt.Sprintf("/p%d", i), "a")
	}

	history := s.History()
	require.Len(t, history, DefaultHistorySize)
	assert.Equal(t, "/p500", history[0].Page)
	assert.Equal(t, "/p1499", history[len(history)-1].Page)
	for i, e := range history {
		assert.Equal(t, fmt.Sprintf("/p%d", i+500), e.Page)
	}

	assert.Equal(t, int64(1500), s.GetOverview().TotalPageViews)
}

func TestRollingWindowCustomSize(t *testing.T) {
	s := NewAnalyticsStore(AnalyticsStoreOptions{HistorySize: 3})
	for i := 0; i < 5; i++ {
		record(t, s, fmt.Sprintf("/p%d", i), "a")
	}

	assert.Equal(t, 3, s.HistorySize())
	history := s.History()
	require.Len(t, history, 3)
	assert.Equal(t, "/p2", history[0].Page)
}

func TestGetOverviewAverage(t *testing.T) {
	s := newTestStore()
	visitors := []string{"a", "b", "c", "d", "a", "b", "c", "a", "b", "a"}
	for _, v := range visitors {
		record(t, s, "/", v)
	}

	overview := s.GetOverview()
	assert.Equal(t, int64(10), overview.TotalPageViews)
	assert.Equal(t, int64(4), overview.UniqueVisitors)
	assert.Equal(t, 2.5, overview.AveragePageViewsPerVisitor)
}

func TestGetOverviewAverageRoundsToTwoDecimals(t *testing.T) {
	s := newTestStore()
	for _, v := range []string{"a", "b", "c", "a"} {
		record(t, s, "/", v)
	}

	assert.Equal(t, 1.33, s.GetOverview().AveragePageViewsPerVisitor)
}

func TestGetOverviewEmpty(t *testing.T) {
	s := newTestStore()

	assert.Equal(t, models.Overview{}, s.GetOverview())
}

func TestGetPageStatsUsesAllTimeDenominator(t *testing.T) {
	s := newTestStore()
	for i := 0; i < 1200; i++ {
		record(t, s, "/a", "a")
	}

	stats := s.GetPageStats()
	require.Len(t, stats, 1)
	assert.Equal(t, "/a", stats[0].Page)
	assert.Equal(t, 1000, stats[0].Views)
	assert.Equal(t, "83.33", stats[0].Percentage)
}

func TestGetPageStatsTiesKeepFirstSeenOrder(t *testing.T) {
	s := newTestStore()
	for _, p := range []string{"/b", "/a", "/c", "/a", "/b", "/c", "/c"} {
		record(t, s, p, "a")
	}

	stats := s.GetPageStats()
	require.Len(t, stats, 3)
	assert.Equal(t, "/c", stats[0].Page)
	assert.Equal(t, "/b", stats[1].Page)
	assert.Equal(t, "/a", stats[2].Page)
}

func TestGetPageStatsEmpty(t *testing.T) {
	s := newTestStore()

	stats := s.GetPageStats()
	assert.NotNil(t, stats)
	assert.Empty(t, stats)
}

func TestGetReferrerStatsNormalizesDirect(t *testing.T) {
	s := newTestStore()
	inputs := []models.PageViewInput{
		{Page: "/", VisitorKey: "a"},
		{Page: "/", VisitorKey: "a", Referrer: "https://news.ycombinator.com"},
		{Page: "/", VisitorKey: "b"},
		{Page: "/", VisitorKey: "c", Referrer: "Direct"},
	}
	for _, in := range inputs {
		_, err := s.RecordPageView(in)
		require.NoError(t, err)
	}

	stats := s.GetReferrerStats()
	require.Len(t, stats, 2)
	assert.Equal(t, models.ReferrerStat{Referrer: "Direct", Count: 3, Percentage: "75.00"}, stats[0])
	assert.Equal(t, models.ReferrerStat{Referrer: "https://news.ycombinator.com", Count: 1, Percentage: "25.00"}, stats[1])

	// The raw event keeps the empty referrer.
	assert.Equal(t, "", s.History()[0].Referrer)
}

func TestGetTrafficPatternsBuckets(t *testing.T) {
	times := []time.Time{
		time.Date(2024, 1, 15, 10, 5, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 10, 55, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 16, 0, 30, 0, 0, time.UTC),
	}
	i := 0
	s := NewAnalyticsStore(AnalyticsStoreOptions{
		Location: time.UTC,
		Now: func() time.Time {
			t := times[i]
			i++
			return t
		},
	})
	for range times {
		record(t, s, "/", "a")
	}

	assert.Equal(t, []models.TrafficPoint{
		{Time: "2024-01-15 10:00", Count: 2},
		{Time: "2024-01-15 11:00", Count: 1},
		{Time: "2024-01-16 00:00", Count: 1},
	}, s.GetTrafficPatterns("hourly"))

	daily := []models.TrafficPoint{
		{Time: "2024-01-15", Count: 3},
		{Time: "2024-01-16", Count: 1},
	}
	assert.Equal(t, daily, s.GetTrafficPatterns("daily"))
	assert.Equal(t, daily, s.GetTrafficPatterns("weekly"))
	assert.Equal(t, daily, s.GetTrafficPatterns(""))
}

func TestGetTrafficPatternsUsesStoreLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	s := NewAnalyticsStore(AnalyticsStoreOptions{
		Location: loc,
		Now:      func() time.Time { return time.Date(2024, 1, 15, 22, 30, 0, 0, time.UTC) },
	})
	record(t, s, "/", "a")

	assert.Equal(t, []models.TrafficPoint{{Time: "2024-01-16", Count: 1}}, s.GetTrafficPatterns("daily"))
	assert.Equal(t, []models.TrafficPoint{{Time: "2024-01-16 01:00", Count: 1}}, s.GetTrafficPatterns("hourly"))
}

func TestClassifyBrowser(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      string
	}{
		{"chrome", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36", "Chrome"},
		{"edge contains chrome", "Mozilla/5.0 AppleWebKit/537.36 Chrome/120.0 Safari/537.36 Edge/120.0", "Chrome"},
		{"firefox", "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0", "Firefox"},
		{"safari", "Mozilla/5.0 (Macintosh) AppleWebKit/605.1.15 Version/17.0 Safari/605.1.15", "Safari"},
		{"legacy edge", "Mozilla/5.0 (Windows NT 10.0) Edge/18.19041", "Edge"},
		{"curl", "curl/8.4.0", "Unknown"},
		{"empty", "", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyBrowser(tt.userAgent))
		})
	}
}

func TestGetDeviceStats(t *testing.T) {
	s := newTestStore()
	inputs := []models.PageViewInput{
		{Page: "/", UserAgent: "Firefox/120.0", ScreenResolution: "1920x1080", Timezone: "Europe/Berlin"},
		{Page: "/", UserAgent: "Chrome/120.0 Edge/120.0", ScreenResolution: "390x844"},
		{Page: "/", UserAgent: "Chrome/120.0", ScreenResolution: "390x844", Timezone: "America/New_York"},
		{Page: "/", UserAgent: "bot"},
		{Page: "/", UserAgent: "Firefox/119.0", Timezone: "America/New_York"},
	}
	for _, in := range inputs {
		_, err := s.RecordPageView(in)
		require.NoError(t, err)
	}

	stats := s.GetDeviceStats()
	assert.Equal(t, []models.BrowserCount{
		{Browser: "Firefox", Count: 2},
		{Browser: "Chrome", Count: 2},
		{Browser: "Unknown", Count: 1},
	}, stats.Browsers)
	assert.Equal(t, []models.ResolutionCount{
		{Resolution: "390x844", Count: 2},
		{Resolution: "1920x1080", Count: 1},
	}, stats.ScreenResolutions)
	assert.Equal(t, []models.TimezoneCount{
		{Timezone: "America/New_York", Count: 2},
		{Timezone: "Europe/Berlin", Count: 1},
	}, stats.Timezones)
}

func TestGetDeviceStatsEmpty(t *testing.T) {
	stats := newTestStore().GetDeviceStats()

	assert.NotNil(t, stats.Browsers)
	assert.NotNil(t, stats.ScreenResolutions)
	assert.NotNil(t, stats.Timezones)
	assert.Empty(t, stats.Browsers)
}

func TestResetIsIdempotent(t *testing.T) {
	s := newTestStore()
	for _, v := range []string{"a", "b", "a"} {
		record(t, s, "/", v)
	}

	s.Reset()
	assert.Equal(t, models.Overview{}, s.GetOverview())
	assert.Empty(t, s.History())
	assert.Empty(t, s.GetPageStats())

	s.Reset()
	assert.Equal(t, models.Overview{}, s.GetOverview())

	// A visitor seen before the reset counts again afterwards.
	record(t, s, "/", "a")
	assert.Equal(t, int64(1), s.GetOverview().TotalVisitors)
}

func TestEndToEndScenario(t *testing.T) {
	s := newTestStore()
	record(t, s, "/home", "1.1.1.1")
	record(t, s, "/home", "2.2.2.2")
	record(t, s, "/about", "1.1.1.1")
	record(t, s, "/home", "2.2.2.2")

	assert.Equal(t, models.Overview{
		TotalVisitors:              2,
		TotalPageViews:             4,
		UniqueVisitors:             2,
		AveragePageViewsPerVisitor: 2,
	}, s.GetOverview())

	assert.Equal(t, []models.PageStat{
		{Page: "/home", Views: 3, Percentage: "75.00"},
		{Page: "/about", Views: 1, Percentage: "25.00"},
	}, s.GetPageStats())
}

func TestConcurrentRecordAndRead(t *testing.T) {
	s := NewAnalyticsStore(AnalyticsStoreOptions{HistorySize: 100})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				_, _ = s.RecordPageView(models.PageViewInput{
					Page:       "/",
					VisitorKey: fmt.Sprintf("v%d", (w*250+i)%50),
				})
				if i%50 == 0 {
					s.GetOverview()
					s.GetPageStats()
					s.GetDeviceStats()
				}
			}
		}(w)
	}
	wg.Wait()

	overview := s.GetOverview()
	assert.Equal(t, int64(2000), overview.TotalPageViews)
	assert.Equal(t, int64(50), overview.TotalVisitors)
	assert.Len(t, s.History(), 100)
}
