package timezone

import (
	"fmt"
	"slotbook/config"
	"slotbook/shared/constant"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	appLocation *time.Location
	once        sync.Once
)

func load() {
	name := config.Get().App.Timezone
	if name == "" {
		log.Warn().Msg("No timezone configured, using UTC as default")

		appLocation = time.UTC

		return
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Error().
			Err(err).
			Str("timezone", name).
			Msg("Failed to load timezone, falling back to UTC")

		appLocation = time.UTC

		return
	}

	appLocation = loc

	log.Info().Str("timezone", loc.String()).Msg("Application timezone initialized")
}

// GetLocation returns the application timezone location.
func GetLocation() *time.Location {
	once.Do(load)

	return appLocation
}

// Now returns the current time in the application timezone.
func Now() time.Time {
	return time.Now().In(GetLocation())
}

func ToAppTime(t time.Time) time.Time {
	return t.In(GetLocation())
}

// Parse parses a time string in the application timezone.
func Parse(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, GetLocation())
}

func Format(t time.Time, layout string) string {
	return ToAppTime(t).Format(layout)
}

// ParseDay parses a calendar day such as 2024-05-01.
func ParseDay(value string) (time.Time, error) {
	day, err := Parse(constant.DayFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", value, err)
	}

	return day, nil
}

// ParseClock validates a time of day such as 18:30 and returns it normalized.
func ParseClock(value string) (string, error) {
	clock, err := time.Parse(constant.ClockFormat, value)
	if err != nil {
		return "", fmt.Errorf("invalid time of day %q: %w", value, err)
	}

	return clock.Format(constant.ClockFormat), nil
}
