package wizard

import (
	"ai-day-planner/internal/itinerary"
)

// Step is a wizard page.
type Step int

const (
	StepWelcome Step = iota
	StepDestination
	StepSchedule
	StepPreferences
	StepResults
)

func (s Step) String() string {
	switch s {
	case StepWelcome:
		return "welcome"
	case StepDestination:
		return "destination"
	case StepSchedule:
		return "schedule"
	case StepPreferences:
		return "preferences"
	case StepResults:
		return "results"
	default:
		return "unknown"
	}
}

// ViewMode selects how results are shown.
type ViewMode string

const (
	ViewTimeline ViewMode = "timeline"
	ViewList     ViewMode = "list"
)

// ReplaceOutcome is the terminal state of a replace request.
type ReplaceOutcome int

const (
	// OutcomeApplied means the entry was overwritten in place.
	OutcomeApplied ReplaceOutcome = iota + 1
	// OutcomeRemoved means the replacement failed and the entry was dropped.
	OutcomeRemoved
)

func (o ReplaceOutcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeRemoved:
		return "removed"
	default:
		return "none"
	}
}

// ReplaceResult reports what ReplaceEntry did. Cause holds the failure
// that led to removal, if any.
type ReplaceResult struct {
	Outcome ReplaceOutcome
	Entry   itinerary.Entry
	Cause   error
}

// State is a point-in-time copy of the session.
type State struct {
	Step            Step
	Prefs           itinerary.TripPreferences
	Itinerary       itinerary.Itinerary
	ViewMode        ViewMode
	SelectedID      string
	GenerationError string
	NeedsCredential bool
	Generating      bool
	ReplacingID     string
}

// Replacing reports whether a replace request is in flight.
func (s State) Replacing() bool {
	return s.ReplacingID != ""
}

// Selected returns the selected entry, if any.
func (s State) Selected() (itinerary.Entry, bool) {
	if s.SelectedID == "" {
		return itinerary.Entry{}, false
	}
	return s.Itinerary.Find(s.SelectedID)
}

func (s State) clone() State {
	s.Prefs.Interests = append([]string{}, s.Prefs.Interests...)
	s.Itinerary = append(itinerary.Itinerary(nil), s.Itinerary...)
	return s
}
