package models

import "time"

// Cadence is a named recurrence policy for crawling or generation.
type Cadence string

const (
	CadenceManual       Cadence = "manual"
	CadenceDisabled     Cadence = "disabled"
	CadenceEvery6Hours  Cadence = "every_6_hours"
	CadenceEvery12Hours Cadence = "every_12_hours"
	CadenceDaily        Cadence = "daily"
	CadenceWeekly       Cadence = "weekly"
)

// Valid reports whether c is one of the named cadences.
func (c Cadence) Valid() bool {
	switch c {
	case CadenceManual, CadenceDisabled, CadenceEvery6Hours, CadenceEvery12Hours, CadenceDaily, CadenceWeekly:
		return true
	}
	return false
}

// Settings holds a tenant's pipeline configuration and schedule state.
type Settings struct {
	UserID             string       `json:"user_id"`
	CrawlSchedule      Cadence      `json:"crawl_schedule"`
	CrawlEnabled       bool         `json:"crawl_enabled"`
	GenerationSchedule Cadence      `json:"generation_schedule"`
	GenerationTime     string       `json:"generation_time"` // "HH:MM" in Timezone
	GenerationDay      time.Weekday `json:"generation_day"`  // used by weekly cadence
	GenerationEnabled  bool         `json:"generation_enabled"`
	Formats            []string     `json:"formats"`
	Timezone           string       `json:"timezone"`
	ProfileContext     string       `json:"profile_context,omitempty"`
	LastCrawlAt        *time.Time   `json:"last_crawl_at,omitempty"`
	LastGenerationAt   *time.Time   `json:"last_generation_at,omitempty"`
}
