package itinerary

import (
	"errors"
	"strings"

	"ai-day-planner/internal/extract"

	"github.com/PuerkitoBio/goquery"
)

var errNoEntries = errors.New("reply contains no entries")

// ParseItinerary decodes a model reply holding a JSON array of entries.
// Every decoded entry is kept, in order, with a fresh ID. Blank types and
// names are left for Kind and Title to handle.
func ParseItinerary(raw string) (Itinerary, error) {
	entries, err := extract.Decode[[]Entry](raw, extract.ShapeArray)
	if err != nil {
		return nil, newParseError(raw, err)
	}
	if len(entries) == 0 {
		return nil, newParseError(raw, errNoEntries)
	}
	for i := range entries {
		entries[i] = sanitizeEntry(entries[i])
	}
	return New(entries), nil
}

// ParseEntry decodes a model reply holding a single JSON object.
func ParseEntry(raw string) (Entry, error) {
	return parseEntry(raw, Entry{})
}

// parseEntry is ParseEntry with blank type, time and duration taken from slot.
func parseEntry(raw string, slot Entry) (Entry, error) {
	entry, err := extract.Decode[Entry](raw, extract.ShapeObject)
	if err != nil {
		return Entry{}, newParseError(raw, err)
	}
	entry = sanitizeEntry(entry)
	if entry.Type == "" {
		entry.Type = slot.Type
	}
	if entry.Time == "" {
		entry.Time = slot.Time
	}
	if entry.Duration == "" {
		entry.Duration = slot.Duration
	}
	return New([]Entry{entry})[0], nil
}

func sanitizeEntry(e Entry) Entry {
	e.Time = cleanText(e.Time)
	e.Duration = cleanText(e.Duration)
	e.Name = cleanText(e.Name)
	e.Description = cleanText(e.Description)
	e.Tip = cleanText(e.Tip)
	e.Method = cleanText(e.Method)
	e.Distance = cleanText(e.Distance)
	return e
}

// cleanText drops markup and decodes entities the model sometimes emits.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style").Each(func(i int, sel *goquery.Selection) {
		sel.Remove()
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}
