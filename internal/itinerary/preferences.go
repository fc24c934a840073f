package itinerary

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Pace string

const (
	PaceRelaxed  Pace = "relaxed"
	PaceModerate Pace = "moderate"
	PacePacked   Pace = "packed"
)

type Budget string

const (
	BudgetLow    Budget = "budget"
	BudgetMid    Budget = "mid"
	BudgetLuxury Budget = "luxury"
)

type Walking string

const (
	WalkingLimited  Walking = "limited"
	WalkingNormal   Walking = "normal"
	WalkingAthletic Walking = "athletic"
)

var (
	Paces    = []Pace{PaceRelaxed, PaceModerate, PacePacked}
	Budgets  = []Budget{BudgetLow, BudgetMid, BudgetLuxury}
	Walkings = []Walking{WalkingLimited, WalkingNormal, WalkingAthletic}
)

func parseEnum[T ~string](kind, s string, allowed []T) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(s)))
	if !lo.Contains(allowed, v) {
		var zero T
		return zero, fmt.Errorf("unknown %s %q", kind, s)
	}
	return v, nil
}

func ParsePace(s string) (Pace, error)       { return parseEnum("pace", s, Paces) }
func ParseBudget(s string) (Budget, error)   { return parseEnum("budget", s, Budgets) }
func ParseWalking(s string) (Walking, error) { return parseEnum("walking", s, Walkings) }

// Interest is a selectable tag from the catalogue.
type Interest struct {
	ID    string
	Label string
}

// Interests is the catalogue offered to the user.
var Interests = []Interest{
	{ID: "museums", Label: "Museums & Art"},
	{ID: "food", Label: "Local Food"},
	{ID: "architecture", Label: "Architecture"},
	{ID: "shopping", Label: "Shopping"},
	{ID: "history", Label: "History"},
	{ID: "nature", Label: "Nature"},
	{ID: "nightlife", Label: "Nightlife"},
	{ID: "photography", Label: "Photography"},
}

// InterestLabel returns the catalogue label for id, or id itself.
func InterestLabel(id string) string {
	if in, ok := lo.Find(Interests, func(i Interest) bool { return i.ID == id }); ok {
		return in.Label
	}
	return id
}

// TripPreferences is what the user asked for. Values are never mutated in
// place; every With* method returns an edited copy.
type TripPreferences struct {
	City      string    `json:"city"`
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Interests []string  `json:"interests"`
	Pace      Pace      `json:"pace"`
	Budget    Budget    `json:"budget"`
	Walking   Walking   `json:"walking"`
}

// DefaultPreferences returns the starting form values.
func DefaultPreferences() TripPreferences {
	return TripPreferences{
		StartTime: "09:00",
		EndTime:   "20:00",
		Interests: []string{},
		Pace:      PaceModerate,
		Budget:    BudgetMid,
		Walking:   WalkingNormal,
	}
}

func (p TripPreferences) clone() TripPreferences {
	p.Interests = append([]string{}, p.Interests...)
	return p
}

func (p TripPreferences) WithCity(city string) TripPreferences {
	out := p.clone()
	out.City = strings.TrimSpace(city)
	return out
}

func (p TripPreferences) WithDate(date time.Time) TripPreferences {
	out := p.clone()
	out.Date = date
	return out
}

// WithTimeWindow sets the day's window. Both values must be "HH:MM".
func (p TripPreferences) WithTimeWindow(start, end string) (TripPreferences, error) {
	s, err := time.Parse("15:04", start)
	if err != nil {
		return p, fmt.Errorf("invalid start time %q: %w", start, err)
	}
	e, err := time.Parse("15:04", end)
	if err != nil {
		return p, fmt.Errorf("invalid end time %q: %w", end, err)
	}
	if !e.After(s) {
		return p, fmt.Errorf("end time %s must be after start time %s", end, start)
	}
	out := p.clone()
	out.StartTime = s.Format("15:04")
	out.EndTime = e.Format("15:04")
	return out, nil
}

// ToggleInterest adds id when absent and removes it when present.
func (p TripPreferences) ToggleInterest(id string) TripPreferences {
	out := p.clone()
	if lo.Contains(out.Interests, id) {
		out.Interests = lo.Without(out.Interests, id)
	} else {
		out.Interests = append(out.Interests, id)
	}
	return out
}

func (p TripPreferences) WithPace(pace Pace) TripPreferences {
	out := p.clone()
	out.Pace = pace
	return out
}

func (p TripPreferences) WithBudget(budget Budget) TripPreferences {
	out := p.clone()
	out.Budget = budget
	return out
}

func (p TripPreferences) WithWalking(walking Walking) TripPreferences {
	out := p.clone()
	out.Walking = walking
	return out
}

// HasDate reports whether a trip date was chosen.
func (p TripPreferences) HasDate() bool {
	return !p.Date.IsZero()
}

// MapURL builds an embeddable map search for a place in city.
// Matching is best effort: the provider shows its first search hit.
func MapURL(name, city string) string {
	q := strings.ReplaceAll(url.QueryEscape(name+", "+city), "+", "%20")
	return "https://www.google.com/maps?q=" + q + "&output=embed"
}
