// Package render formats itineraries as text for the terminal and Telegram.
package render

import (
	"fmt"
	"strings"

	"ai-day-planner/internal/itinerary"
	"ai-day-planner/internal/wizard"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var icons = map[itinerary.EntryType]string{
	itinerary.TypeMuseum:    "🏛",
	itinerary.TypeFood:      "🍽",
	itinerary.TypeLandmark:  "📍",
	itinerary.TypeNature:    "🌳",
	itinerary.TypeShopping:  "🛍",
	itinerary.TypeNightlife: "🌙",
	itinerary.TypeTransit:   "🚶",
}

// Icon returns the emoji shown for an entry type.
func Icon(t itinerary.EntryType) string {
	if icon, ok := icons[t]; ok {
		return icon
	}
	return "📌"
}

// Renderer produces either Telegram Markdown or plain text.
type Renderer struct {
	markdown bool
}

var (
	// Markdown output suits Telegram's legacy Markdown parse mode.
	Markdown = Renderer{markdown: true}
	// Plain output is for terminals.
	Plain = Renderer{}
)

var mdEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// Escape makes s safe to embed in the renderer's output.
func (r Renderer) Escape(s string) string {
	return r.esc(s)
}

func (r Renderer) esc(s string) string {
	if !r.markdown {
		return s
	}
	return mdEscaper.Replace(s)
}

func (r Renderer) bold(s string) string {
	return r.entity("*", s)
}

func (r Renderer) italic(s string) string {
	return r.entity("_", s)
}

// entity wraps s in a legacy Markdown entity. Escapes are not honoured
// inside an entity and other markers are literal there, so only the
// closing delimiter has to go.
func (r Renderer) entity(delim, s string) string {
	if !r.markdown {
		return s
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, delim, " "))
	if s == "" {
		return ""
	}
	return delim + s + delim
}

// Label turns an enum value into display text.
func Label(v string) string {
	if v == string(itinerary.BudgetMid) {
		return "Mid-range"
	}
	return cases.Title(language.English).String(v)
}

// Summary renders the trip header.
func (r Renderer) Summary(p itinerary.TripPreferences) string {
	var sb strings.Builder
	sb.WriteString(r.bold(p.City))
	if p.HasDate() {
		sb.WriteString(" · " + p.Date.Format("Monday, January 2, 2006"))
	}
	fmt.Fprintf(&sb, " · %s–%s\n", p.StartTime, p.EndTime)

	if len(p.Interests) > 0 {
		labels := lo.Map(p.Interests, func(id string, _ int) string { return itinerary.InterestLabel(id) })
		sb.WriteString("Interests: " + r.esc(strings.Join(labels, ", ")) + "\n")
	}
	fmt.Fprintf(&sb, "Pace: %s · Budget: %s · Walking: %s",
		Label(string(p.Pace)), Label(string(p.Budget)), Label(string(p.Walking)))
	return sb.String()
}

// Timeline renders every entry in order. Activities are numbered; transit
// entries get a compact line.
func (r Renderer) Timeline(state wizard.State) string {
	var sb strings.Builder
	sb.WriteString(r.Summary(state.Prefs))
	sb.WriteString("\n\n")

	n := 0
	for _, e := range state.Itinerary {
		if e.IsTransit() {
			sb.WriteString("   " + r.transitLine(e) + "\n")
			continue
		}
		n++
		fmt.Fprintf(&sb, "%d. %s %s %s", n, r.esc(e.Time), Icon(e.Kind()), r.bold(e.Title()))
		if e.Duration != "" {
			sb.WriteString(" (" + r.esc(e.Duration) + ")")
		}
		sb.WriteString("\n")
		if e.Description != "" {
			sb.WriteString("   " + r.esc(e.Description) + "\n")
		}
	}
	if n == 0 {
		sb.WriteString(r.italic("No activities left.") + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// List renders activities only, one line each.
func (r Renderer) List(state wizard.State) string {
	var sb strings.Builder
	sb.WriteString(r.Summary(state.Prefs))
	sb.WriteString("\n\n")

	activities := state.Itinerary.Activities()
	for i, e := range activities {
		fmt.Fprintf(&sb, "%d. %s %s · %s · %s\n", i+1, Icon(e.Kind()), r.bold(e.Title()), r.esc(e.Time), r.esc(Label(string(e.Kind()))))
	}
	if len(activities) == 0 {
		sb.WriteString(r.italic("No activities left.") + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Detail renders one activity with its tip and map link.
func (r Renderer) Detail(e itinerary.Entry, city string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", Icon(e.Kind()), r.bold(e.Title()))
	fmt.Fprintf(&sb, "⏰ %s", r.esc(e.Time))
	if e.Duration != "" {
		sb.WriteString(" · " + r.esc(e.Duration))
	}
	sb.WriteString("\n")
	if e.Description != "" {
		sb.WriteString(r.esc(e.Description) + "\n")
	}
	if e.Tip != "" {
		sb.WriteString("💡 " + r.italic(e.Tip) + "\n")
	}
	// Telegram gets the map as a URL button; raw URLs break Markdown entities.
	if !r.markdown {
		sb.WriteString("🗺 " + itinerary.MapURL(e.Name, city))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (r Renderer) transitLine(e itinerary.Entry) string {
	parts := lo.Compact([]string{e.Method, e.Duration, e.Distance})
	return Icon(itinerary.TypeTransit) + " " + r.esc(strings.Join(parts, " · "))
}
