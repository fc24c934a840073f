package itinerary

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/samber/lo"
)

//go:embed itinerary_prompt.md
var itineraryPrompt string

//go:embed replacement_prompt.md
var replacementPrompt string

var (
	itineraryTmpl   = template.Must(template.New("itinerary").Parse(itineraryPrompt))
	replacementTmpl = template.Must(template.New("replacement").Parse(replacementPrompt))
)

type itineraryPromptData struct {
	City      string
	Date      string
	StartTime string
	EndTime   string
	Interests string
	Pace      Pace
	Budget    Budget
	Walking   Walking
	Types     string
}

type replacementPromptData struct {
	City      string
	Type      EntryType
	Name      string
	Time      string
	Duration  string
	Interests string
	Budget    Budget
}

func buildItineraryPrompt(p TripPreferences) (string, error) {
	data := itineraryPromptData{
		City:      p.City,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		Interests: strings.Join(p.Interests, ", "),
		Pace:      p.Pace,
		Budget:    p.Budget,
		Walking:   p.Walking,
		Types: strings.Join(lo.Map(ActivityTypes, func(t EntryType, _ int) string {
			return string(t)
		}), ", "),
	}
	if p.HasDate() {
		data.Date = p.Date.Format("Monday, January 2, 2006")
	}

	var buf bytes.Buffer
	if err := itineraryTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildReplacementPrompt(p TripPreferences, original Entry) (string, error) {
	data := replacementPromptData{
		City:      p.City,
		Type:      original.Type,
		Name:      original.Name,
		Time:      original.Time,
		Duration:  original.Duration,
		Interests: strings.Join(p.Interests, ", "),
		Budget:    p.Budget,
	}

	var buf bytes.Buffer
	if err := replacementTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
