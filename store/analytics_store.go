// store/analytics_store.go
package store

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"portfolio/api/models"
	"portfolio/api/utils"
)

// DefaultHistorySize is the number of most recent page views kept for the
// grouped reports.
const DefaultHistorySize = 1000

const directReferrer = "Direct"

// browserRules are evaluated top to bottom, first match wins.
// Edge user agents also contain "Chrome", so they classify as Chrome.
var browserRules = []struct {
	substr string
	label  string
}{
	{"Chrome", "Chrome"},
	{"Firefox", "Firefox"},
	{"Safari", "Safari"},
	{"Edge", "Edge"},
}

type AnalyticsStoreOptions struct {
	// HistorySize caps the rolling window. Zero means DefaultHistorySize.
	HistorySize int
	// Location is used to bucket traffic patterns. Nil means time.Local.
	Location *time.Location
	// Now overrides the clock used to stamp events.
	Now func() time.Time
}

// AnalyticsStore keeps page-view counters for the lifetime of the process
// and a rolling window of the most recent events. All-time counters are never
// capped; the grouped reports only see the window.
type AnalyticsStore struct {
	mu sync.Mutex

	totalPageViews  int64
	totalVisitors   int64
	seenVisitorKeys map[string]struct{}
	history         []models.PageViewEvent
	lastTimestamp   time.Time

	historySize int
	location    *time.Location
	now         func() time.Time
}

func NewAnalyticsStore(opts AnalyticsStoreOptions) *AnalyticsStore {
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &AnalyticsStore{
		seenVisitorKeys: make(map[string]struct{}),
		history:         make([]models.PageViewEvent, 0, opts.HistorySize),
		historySize:     opts.HistorySize,
		location:        opts.Location,
		now:             opts.Now,
	}
}

// RecordPageView counts one page view and appends it to the rolling window.
// The returned event carries the server-assigned ID and timestamp.
func (s *AnalyticsStore) RecordPageView(in models.PageViewInput) (models.PageViewEvent, error) {
	if in.Page == "" {
		return models.PageViewEvent{}, ErrEmptyPage
	}

	event := models.PageViewEvent{
		ID:               uuid.New().String(),
		Page:             in.Page,
		VisitorKey:       in.VisitorKey,
		UserAgent:        in.UserAgent,
		Referrer:         in.Referrer,
		ScreenResolution: in.ScreenResolution,
		Timezone:         in.Timezone,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Timestamps never go backwards in insertion order, even if the wall
	// clock does.
	event.Timestamp = s.now()
	if event.Timestamp.Before(s.lastTimestamp) {
		event.Timestamp = s.lastTimestamp
	}
	s.lastTimestamp = event.Timestamp

	s.totalPageViews++
	if _, ok := s.seenVisitorKeys[in.VisitorKey]; !ok {
		s.seenVisitorKeys[in.VisitorKey] = struct{}{}
		s.totalVisitors++
	}

	s.history = append(s.history, event)
	if over := len(s.history) - s.historySize; over > 0 {
		s.history = s.history[over:]
	}

	return event, nil
}

// GetOverview reports the all-time counters.
func (s *AnalyticsStore) GetOverview() models.Overview {
	s.mu.Lock()
	total := s.totalPageViews
	visitors := s.totalVisitors
	unique := int64(len(s.seenVisitorKeys))
	s.mu.Unlock()

	var avg float64
	if unique > 0 {
		avg = math.Round(float64(total)/float64(unique)*100) / 100
	}

	return models.Overview{
		TotalVisitors:              visitors,
		TotalPageViews:             total,
		UniqueVisitors:             unique,
		AveragePageViewsPerVisitor: avg,
	}
}

// GetPageStats groups the rolling window by page. Percentages are relative to
// the all-time page view total, so they sum to less than 100 once the window
// has evicted events.
func (s *AnalyticsStore) GetPageStats() []models.PageStat {
	history, total := s.snapshot()

	groups := countBy(history, func(e models.PageViewEvent) (string, bool) {
		return e.Page, true
	})

	stats := make([]models.PageStat, 0, len(groups))
	for _, g := range groups {
		stats = append(stats, models.PageStat{
			Page:       g.key,
			Views:      g.count,
			Percentage: percentage(g.count, total),
		})
	}
	return stats
}

// GetReferrerStats groups the rolling window by referrer. An empty referrer
// is reported as "Direct".
func (s *AnalyticsStore) GetReferrerStats() []models.ReferrerStat {
	history, total := s.snapshot()

	groups := countBy(history, func(e models.PageViewEvent) (string, bool) {
		if e.Referrer == "" {
			return directReferrer, true
		}
		return e.Referrer, true
	})

	stats := make([]models.ReferrerStat, 0, len(groups))
	for _, g := range groups {
		stats = append(stats, models.ReferrerStat{
			Referrer:   g.key,
			Count:      g.count,
			Percentage: percentage(g.count, total),
		})
	}
	return stats
}

// GetTrafficPatterns buckets the rolling window by day or hour in the store's
// time zone. Unknown periods fall back to daily. Empty buckets are omitted.
func (s *AnalyticsStore) GetTrafficPatterns(period string) []models.TrafficPoint {
	history, _ := s.snapshot()
	layout := utils.BucketLayout(period)

	counts := make(map[string]int)
	for _, e := range history {
		counts[e.Timestamp.In(s.location).Format(layout)]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	// Both layouts sort chronologically as strings.
	sort.Strings(keys)

	points := make([]models.TrafficPoint, 0, len(keys))
	for _, k := range keys {
		points = append(points, models.TrafficPoint{Time: k, Count: counts[k]})
	}
	return points
}

// GetDeviceStats tallies browsers, screen resolutions and time zones over the
// rolling window. Events without a resolution or time zone are left out of
// that tally.
func (s *AnalyticsStore) GetDeviceStats() models.DeviceStats {
	history, _ := s.snapshot()

	browsers := countBy(history, func(e models.PageViewEvent) (string, bool) {
		return ClassifyBrowser(e.UserAgent), true
	})
	resolutions := countBy(history, func(e models.PageViewEvent) (string, bool) {
		return e.ScreenResolution, e.ScreenResolution != ""
	})
	timezones := countBy(history, func(e models.PageViewEvent) (string, bool) {
		return e.Timezone, e.Timezone != ""
	})

	stats := models.DeviceStats{
		Browsers:          make([]models.BrowserCount, 0, len(browsers)),
		ScreenResolutions: make([]models.ResolutionCount, 0, len(resolutions)),
		Timezones:         make([]models.TimezoneCount, 0, len(timezones)),
	}
	for _, g := range browsers {
		stats.Browsers = append(stats.Browsers, models.BrowserCount{Browser: g.key, Count: g.count})
	}
	for _, g := range resolutions {
		stats.ScreenResolutions = append(stats.ScreenResolutions, models.ResolutionCount{Resolution: g.key, Count: g.count})
	}
	for _, g := range timezones {
		stats.Timezones = append(stats.Timezones, models.TimezoneCount{Timezone: g.key, Count: g.count})
	}
	return stats
}

// Reset drops all counters, visitor keys and history.
func (s *AnalyticsStore) Reset() {
	s.mu.Lock()
	s.totalPageViews = 0
	s.totalVisitors = 0
	s.seenVisitorKeys = make(map[string]struct{})
	s.history = make([]models.PageViewEvent, 0, s.historySize)
	s.mu.Unlock()

	slog.Info("analytics state reset")
}

// History returns a copy of the rolling window, oldest first.
func (s *AnalyticsStore) History() []models.PageViewEvent {
	history, _ := s.snapshot()
	return history
}

// HistorySize returns the capacity of the rolling window.
func (s *AnalyticsStore) HistorySize() int {
	return s.historySize
}

func (s *AnalyticsStore) snapshot() ([]models.PageViewEvent, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]models.PageViewEvent, len(s.history))
	copy(history, s.history)
	return history, s.totalPageViews
}

// ClassifyBrowser maps a raw user agent to Chrome, Firefox, Safari, Edge or
// Unknown by ordered substring matching.
func ClassifyBrowser(userAgent string) string {
	for _, rule := range browserRules {
		if strings.Contains(userAgent, rule.substr) {
			return rule.label
		}
	}
	return "Unknown"
}

type keyCount struct {
	key   string
	count int
}

// countBy groups events by key and returns the groups sorted by count
// descending, ties in order of first appearance.
func countBy(events []models.PageViewEvent, keyFn func(models.PageViewEvent) (string, bool)) []keyCount {
	index := make(map[string]int)
	var groups []keyCount
	for _, e := range events {
		key, ok := keyFn(e)
		if !ok {
			continue
		}
		if i, seen := index[key]; seen {
			groups[i].count++
			continue
		}
		index[key] = len(groups)
		groups = append(groups, keyCount{key: key, count: 1})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].count > groups[j].count
	})
	return groups
}

func percentage(count int, total int64) string {
	if total == 0 {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", float64(count)*100/float64(total))
}
