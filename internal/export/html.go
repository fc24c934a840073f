package export

import (
	"bytes"
	_ "embed"
	"html/template"
	"strings"

	"ai-day-planner/internal/itinerary"
	"ai-day-planner/internal/render"

	"github.com/samber/lo"
)

//go:embed itinerary.html
var pageTemplate string

var pageTmpl = template.Must(template.New("itinerary").Parse(pageTemplate))

type pageEntry struct {
	Entry  itinerary.Entry
	Icon   string
	MapURL string
}

type pageData struct {
	Prefs     itinerary.TripPreferences
	Date      string
	Interests string
	Entries   []pageEntry
}

// HTML renders a standalone page for the itinerary.
func HTML(prefs itinerary.TripPreferences, it itinerary.Itinerary) ([]byte, error) {
	data := pageData{
		Prefs: prefs,
		Interests: strings.Join(lo.Map(prefs.Interests, func(id string, _ int) string {
			return itinerary.InterestLabel(id)
		}), ", "),
		Entries: lo.Map(it, func(e itinerary.Entry, _ int) pageEntry {
			return pageEntry{Entry: e, Icon: render.Icon(e.Kind()), MapURL: itinerary.MapURL(e.Name, prefs.City)}
		}),
	}
	if prefs.HasDate() {
		data.Date = prefs.Date.Format("Monday, January 2, 2006")
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
