// models/report.go
package models

type Overview struct {
	TotalVisitors              int64   `json:"totalVisitors"`
	TotalPageViews             int64   `json:"totalPageViews"`
	UniqueVisitors             int64   `json:"uniqueVisitors"`
	AveragePageViewsPerVisitor float64 `json:"averagePageViewsPerVisitor"`
}

// PageStat percentages are pre-formatted with two decimals.
type PageStat struct {
	Page       string `json:"page"`
	Views      int    `json:"views"`
	Percentage string `json:"percentage"`
}

type ReferrerStat struct {
	Referrer   string `json:"referrer"`
	Count      int    `json:"count"`
	Percentage string `json:"percentage"`
}

type TrafficPoint struct {
	Time  string `json:"time"`
	Count int    `json:"count"`
}

type BrowserCount struct {
	Browser string `json:"browser"`
	Count   int    `json:"count"`
}

type ResolutionCount struct {
	Resolution string `json:"resolution"`
	Count      int    `json:"count"`
}

type TimezoneCount struct {
	Timezone string `json:"timezone"`
	Count    int    `json:"count"`
}

type DeviceStats struct {
	Browsers          []BrowserCount    `json:"browsers"`
	ScreenResolutions []ResolutionCount `json:"screenResolutions"`
	Timezones         []TimezoneCount   `json:"timezones"`
}
