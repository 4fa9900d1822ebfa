// Package export serializes a structured itinerary into interchange
// formats. It is pure and stateless: it reads the itinerary and never
// touches session state.
package export

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/tripnote/tripnote/internal/metrics"
	"github.com/tripnote/tripnote/internal/trip"
)

const (
	// JSONMediaType is the media type for itinerary JSON exports.
	JSONMediaType = "application/json"
	// CalendarMediaType is the media type for calendar exports.
	CalendarMediaType = "text/calendar"

	productID = "-//tripnote//Trip Itinerary//EN"

	calTimestamp = "20060102T150405"
)

// ToJSON renders the itinerary as pretty-printed canonical JSON.
// Calling it twice on the same itinerary yields identical bytes.
func ToJSON(it trip.StructuredItinerary) ([]byte, error) {
	return json.MarshalIndent(it, "", "  ")
}

// ToCalendar renders one VEVENT per itinerary event. Events whose
// date or time cannot be parsed are logged and skipped; a single
// malformed event never aborts the export. The returned count is the
// number of skipped events.
//
// Event end time is start plus one hour with the minute preserved;
// the end hour is clamped to 23 when the hour would cross midnight,
// so late events render with a truncated duration.
func ToCalendar(it trip.StructuredItinerary, logger *log.Logger) ([]byte, int) {
	if logger == nil {
		logger = log.New(log.Writer(), "[EXPORT] ", log.LstdFlags)
	}

	cal := ics.NewCalendar()
	cal.SetProductId(productID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.MethodPublish)

	now := time.Now().UTC()
	skipped := 0
	for _, ev := range it.Events {
		start, err := parseEventStart(ev)
		if err != nil {
			skipped++
			metrics.ExportSkippedEvents.Inc()
			logger.Printf("skipping event %q: %v", ev.Activity, err)
			continue
		}

		e := cal.AddEvent(uuid.NewString())
		e.SetDtStampTime(now)
		e.SetProperty(ics.ComponentPropertyDtStart, start.Format(calTimestamp))
		e.SetProperty(ics.ComponentPropertyDtEnd, eventEnd(start).Format(calTimestamp))
		e.SetSummary(ev.Activity)
		e.SetDescription(strings.ToUpper(string(ev.Category)) + ": " + ev.Activity)
		if ev.Location != "" {
			e.SetLocation(ev.Location)
		}
	}
	return []byte(cal.Serialize()), skipped
}

// JSONFilename returns the download filename for a JSON export.
func JSONFilename(it trip.StructuredItinerary) string {
	return "trip-" + hyphenate(it.Destination) + ".json"
}

// CalendarFilename returns the download filename for a calendar export.
func CalendarFilename(it trip.StructuredItinerary) string {
	return "trip-" + hyphenate(it.Destination) + ".ics"
}

func hyphenate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		s = "itinerary"
	}
	return strings.ReplaceAll(s, " ", "-")
}

func parseEventStart(ev trip.ItineraryEvent) (time.Time, error) {
	day, err := time.Parse("2006-01-02", ev.Date)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := time.Parse("15:04", ev.Time)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC), nil
}

// eventEnd adds one hour but clamps the hour to 23 instead of rolling
// into the next day. Midnight-crossing events therefore render with a
// truncated duration.
func eventEnd(start time.Time) time.Time {
	hour := start.Hour() + 1
	if hour > 23 {
		hour = 23
	}
	return time.Date(start.Year(), start.Month(), start.Day(), hour, start.Minute(), 0, 0, time.UTC)
}
