// Package schedule decides whether a tenant's crawl or generation is due.
// Every function here is pure: the caller supplies the current time.
package schedule

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/mfenderov/contentloop/pkg/models"
)

// GenerationWindow is how many whole hours past the target hour generation is still admitted.
const GenerationWindow = 2

// DefaultGenerationTime is used when a tenant has not set a time of day.
const DefaultGenerationTime = "09:00"

var crawlThresholds = map[models.Cadence]time.Duration{
	models.CadenceEvery6Hours:  6 * time.Hour,
	models.CadenceEvery12Hours: 12 * time.Hour,
	models.CadenceDaily:        24 * time.Hour,
	models.CadenceWeekly:       168 * time.Hour,
}

// CrawlThreshold returns the minimum time between crawls for a cadence.
// Unknown cadences fall back to the daily threshold.
func CrawlThreshold(cadence models.Cadence) time.Duration {
	if d, ok := crawlThresholds[cadence]; ok {
		return d
	}
	return crawlThresholds[models.CadenceDaily]
}

// Disabled reports whether a cadence never runs on its own.
func Disabled(cadence models.Cadence) bool {
	switch models.Cadence(strings.TrimSpace(string(cadence))) {
	case "", models.CadenceManual, models.CadenceDisabled:
		return true
	}
	return false
}

// ShouldCrawl reports whether a crawl is due. Thresholds are absolute
// durations, so unlike ShouldGenerate the tenant's zone plays no part.
func ShouldCrawl(cadence models.Cadence, lastRunAt *time.Time, now time.Time) bool {
	if Disabled(cadence) {
		return false
	}
	if lastRunAt == nil {
		return true
	}
	return now.Sub(*lastRunAt) >= CrawlThreshold(cadence)
}

// ShouldGenerate reports whether generation is due for the tenant at now.
func ShouldGenerate(s models.Settings, now time.Time) bool {
	if !s.GenerationEnabled || Disabled(s.GenerationSchedule) || len(s.Formats) == 0 {
		return false
	}

	loc := Location(s.Timezone)
	local := now.In(loc)

	target, ok := TargetHour(s.GenerationTime)
	if !ok {
		return false
	}
	since := local.Hour() - target
	if since < 0 || since > GenerationWindow {
		return false
	}

	if s.GenerationSchedule == models.CadenceWeekly && local.Weekday() != s.GenerationDay {
		return false
	}

	if s.LastGenerationAt != nil && SameLocalDay(*s.LastGenerationAt, local, loc) {
		return false
	}
	return true
}

// Location loads an IANA zone, falling back to UTC for empty or unknown names.
func Location(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TargetHour parses "HH:MM" (or "H") and returns the hour.
func TargetHour(timeOfDay string) (int, bool) {
	timeOfDay = strings.TrimSpace(timeOfDay)
	if timeOfDay == "" {
		timeOfDay = DefaultGenerationTime
	}
	for _, layout := range []string{"15:04", "15"} {
		if t, err := time.Parse(layout, timeOfDay); err == nil {
			return t.Hour(), true
		}
	}
	return 0, false
}

// SameLocalDay reports whether a and b fall on the same calendar day in loc.
func SameLocalDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
