// Package export turns an itinerary into files and links a user can keep:
// an iCalendar file, a standalone HTML page and signed share tokens.
package export

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"ai-day-planner/internal/itinerary"

	ics "github.com/arran4/golang-ical"
)

// ErrNoDate is returned when the trip has no date to anchor events on.
var ErrNoDate = errors.New("trip date is required for calendar export")

const (
	// Floating local time: the calendar app shows it in the trip's own zone.
	floatingLayout  = "20060102T150405"
	defaultDuration = time.Hour
)

// CalendarFilename names the .ics file for a trip, e.g. "day-in-new-york.ics".
// Anything but letters and digits becomes a dash.
func CalendarFilename(city string) string {
	slug := strings.FieldsFunc(strings.ToLower(city), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(slug) == 0 {
		return "day-plan.ics"
	}
	return "day-in-" + strings.Join(slug, "-") + ".ics"
}

var clockLayouts = []string{"03:04 PM", "3:04 PM", "03:04PM", "3:04PM", "3 PM", "3PM", "15:04"}

// ParseClock parses an entry time such as "09:00 AM", "9:00 AM" or "15:04"
// and returns the offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
		}
	}
	return 0, fmt.Errorf("unrecognised time %q", s)
}

var durationPart = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(hours?|hrs?|h|minutes?|mins?|m)\b`)

// ParseDuration reads free-form durations like "2 hrs", "15 min",
// "1.5 hours" or "1 hr 30 min". Unreadable text yields zero.
func ParseDuration(s string) time.Duration {
	var total time.Duration
	for _, m := range durationPart.FindAllStringSubmatch(s, -1) {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		unit := time.Minute
		if strings.HasPrefix(strings.ToLower(m[2]), "h") {
			unit = time.Hour
		}
		total += time.Duration(n * float64(unit))
	}
	return total
}

// ICS renders one event per activity on the trip date. Entries without a
// readable time start when the previous one ended.
func ICS(prefs itinerary.TripPreferences, it itinerary.Itinerary) (string, error) {
	if !prefs.HasDate() {
		return "", ErrNoDate
	}

	day := time.Date(prefs.Date.Year(), prefs.Date.Month(), prefs.Date.Day(), 0, 0, 0, 0, time.UTC)
	cursor := day.Add(9 * time.Hour)
	if offset, err := ParseClock(prefs.StartTime); err == nil {
		cursor = day.Add(offset)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//ai-day-planner//itinerary//EN")
	cal.SetXWRCalName(fmt.Sprintf("Day in %s", prefs.City))

	stamp := time.Now().UTC()
	for _, e := range it {
		length := ParseDuration(e.Duration)
		if e.IsTransit() {
			cursor = cursor.Add(length)
			continue
		}
		if length == 0 {
			length = defaultDuration
		}

		start := cursor
		if offset, err := ParseClock(e.Time); err == nil {
			start = day.Add(offset)
		}
		end := start.Add(length)
		cursor = end

		uid := e.ID
		if uid == "" {
			uid = fmt.Sprintf("%s-%s", start.Format(floatingLayout), e.Title())
		}
		event := cal.AddEvent(uid + "@ai-day-planner")
		event.SetDtStampTime(stamp)
		event.SetProperty(ics.ComponentPropertyDtStart, start.Format(floatingLayout))
		event.SetProperty(ics.ComponentPropertyDtEnd, end.Format(floatingLayout))
		event.SetSummary(e.Title())
		event.SetLocation(e.Title() + ", " + prefs.City)
		event.SetDescription(eventDescription(e))
		event.SetURL(itinerary.MapURL(e.Name, prefs.City))
	}

	return cal.Serialize(), nil
}

func eventDescription(e itinerary.Entry) string {
	if e.Tip == "" {
		return e.Description
	}
	return e.Description + "\n\nTip: " + e.Tip
}
