package schedule

import (
	"testing"
	"time"

	"github.com/mfenderov/contentloop/pkg/models"
)

func ago(now time.Time, d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

func TestShouldCrawl(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		cadence models.Cadence
		last    *time.Time
		want    bool
	}{
		{"empty cadence", "", nil, false},
		{"manual cadence", models.CadenceManual, nil, false},
		{"disabled cadence", models.CadenceDisabled, ago(now, 1000*time.Hour), false},
		{"never crawled", models.CadenceDaily, nil, true},
		{"daily just under threshold", models.CadenceDaily, ago(now, 23*time.Hour+59*time.Minute), false},
		{"daily just over threshold", models.CadenceDaily, ago(now, 24*time.Hour+1*time.Minute), true},
		{"daily exactly at threshold", models.CadenceDaily, ago(now, 24*time.Hour), true},
		{"six hours not yet", models.CadenceEvery6Hours, ago(now, 5*time.Hour), false},
		{"six hours due", models.CadenceEvery6Hours, ago(now, 6*time.Hour), true},
		{"twelve hours due", models.CadenceEvery12Hours, ago(now, 13*time.Hour), true},
		{"weekly not yet", models.CadenceWeekly, ago(now, 100*time.Hour), false},
		{"weekly due", models.CadenceWeekly, ago(now, 168*time.Hour), true},
		{"unknown cadence uses daily", "fortnightly", ago(now, 25*time.Hour), true},
		{"unknown cadence under daily", "fortnightly", ago(now, 2*time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldCrawl(tt.cadence, tt.last, now); got != tt.want {
				t.Errorf("ShouldCrawl(%q) = %v, want %v", tt.cadence, got, tt.want)
			}
		})
	}
}

func TestShouldGenerate(t *testing.T) {
	// Tuesday 2025-06-10 14:30 in New York is 18:30 UTC.
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation() error = %v", err)
	}
	now := time.Date(2025, 6, 10, 14, 30, 0, 0, ny).UTC()

	base := func() models.Settings {
		return models.Settings{
			UserID:             "u1",
			GenerationEnabled:  true,
			GenerationSchedule: models.CadenceDaily,
			GenerationTime:     "13:00",
			Formats:            []string{"newsletter"},
			Timezone:           "America/New_York",
		}
	}

	tests := []struct {
		name   string
		mutate func(*models.Settings)
		want   bool
	}{
		{"due within window", func(s *models.Settings) {}, true},
		{"disabled", func(s *models.Settings) { s.GenerationEnabled = false }, false},
		{"manual cadence", func(s *models.Settings) { s.GenerationSchedule = models.CadenceManual }, false},
		{"no formats", func(s *models.Settings) { s.Formats = nil }, false},
		{"before target hour", func(s *models.Settings) { s.GenerationTime = "15:00" }, false},
		{"at target hour", func(s *models.Settings) { s.GenerationTime = "14:00" }, true},
		{"two hours past target", func(s *models.Settings) { s.GenerationTime = "12:00" }, true},
		{"three hours past target", func(s *models.Settings) { s.GenerationTime = "11:00" }, false},
		{"malformed time", func(s *models.Settings) { s.GenerationTime = "noon" }, false},
		{"hour only", func(s *models.Settings) { s.GenerationTime = "14" }, true},
		{"utc would be outside window", func(s *models.Settings) { s.Timezone = "UTC" }, false},
		{"weekly on matching day", func(s *models.Settings) {
			s.GenerationSchedule = models.CadenceWeekly
			s.GenerationDay = time.Tuesday
		}, true},
		{"weekly on other day", func(s *models.Settings) {
			s.GenerationSchedule = models.CadenceWeekly
			s.GenerationDay = time.Sunday
		}, false},
		{"already generated today", func(s *models.Settings) {
			last := time.Date(2025, 6, 10, 13, 5, 0, 0, ny)
			s.LastGenerationAt = &last
		}, false},
		{"generated yesterday local time", func(s *models.Settings) {
			last := time.Date(2025, 6, 9, 23, 30, 0, 0, ny)
			s.LastGenerationAt = &last
		}, true},
		{"same UTC day but previous local day", func(s *models.Settings) {
			last := time.Date(2025, 6, 10, 2, 0, 0, 0, time.UTC) // June 9 22:00 in New York
			s.LastGenerationAt = &last
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(&s)
			if got := ShouldGenerate(s, now); got != tt.want {
				t.Errorf("ShouldGenerate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldGenerate_OncePerDay(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 15, 0, 0, time.UTC)
	s := models.Settings{
		GenerationEnabled:  true,
		GenerationSchedule: models.CadenceDaily,
		GenerationTime:     "09:00",
		Formats:            []string{"newsletter"},
		Timezone:           "UTC",
	}

	if !ShouldGenerate(s, now) {
		t.Fatal("first check should admit")
	}

	s.LastGenerationAt = &now
	if ShouldGenerate(s, now.Add(30*time.Minute)) {
		t.Error("second check on the same local day should deny")
	}

	tomorrow := now.Add(24 * time.Hour)
	if !ShouldGenerate(s, tomorrow) {
		t.Error("check on the next day should admit")
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		tz   string
		want string
	}{
		{"", "UTC"},
		{"Not/AZone", "UTC"},
		{"Europe/Berlin", "Europe/Berlin"},
	}

	for _, tt := range tests {
		t.Run(tt.tz, func(t *testing.T) {
			if got := Location(tt.tz).String(); got != tt.want {
				t.Errorf("Location(%q) = %q, want %q", tt.tz, got, tt.want)
			}
		})
	}
}

func TestTargetHour(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"", 9, true},
		{"09:00", 9, true},
		{"18:45", 18, true},
		{"7", 7, true},
		{"25:00", 0, false},
		{"evening", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := TargetHour(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("TargetHour(%q) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
