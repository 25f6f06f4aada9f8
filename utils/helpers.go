package utils

const (
	PeriodDaily  = "daily"
	PeriodHourly = "hourly"
)

// NormalizePeriod maps a traffic-pattern period selector to a supported
// value. Anything other than "hourly" is treated as daily.
func NormalizePeriod(period string) string {
	switch period {
	case PeriodHourly:
		return PeriodHourly
	default:
		return PeriodDaily
	}
}

// BucketLayout returns the time layout used to bucket events for period.
func BucketLayout(period string) string {
	if NormalizePeriod(period) == PeriodHourly {
		return "2006-01-02 15:00"
	}
	return "2006-01-02"
}
