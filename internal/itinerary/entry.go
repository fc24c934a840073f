package itinerary

import (
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// EntryType discriminates activities from transit segments.
type EntryType string

const (
	TypeMuseum    EntryType = "museum"
	TypeFood      EntryType = "food"
	TypeLandmark  EntryType = "landmark"
	TypeNature    EntryType = "nature"
	TypeShopping  EntryType = "shopping"
	TypeNightlife EntryType = "nightlife"
	TypeOther     EntryType = "other"
	TypeTransit   EntryType = "transit"
)

// ActivityTypes lists the activity types the model may use.
var ActivityTypes = []EntryType{TypeMuseum, TypeFood, TypeLandmark, TypeNature, TypeShopping, TypeNightlife, TypeOther}

// Entry is one scheduled item. Activities use Time, Name, Description and
// Tip; transit entries use Method and Distance. Duration is shared.
type Entry struct {
	ID          string    `json:"id,omitempty"`
	Type        EntryType `json:"type"`
	Time        string    `json:"time,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	Tip         string    `json:"tip,omitempty"`
	Method      string    `json:"method,omitempty"`
	Distance    string    `json:"distance,omitempty"`
}

// IsTransit reports whether the entry is a transit segment.
func (e Entry) IsTransit() bool {
	return e.Kind() == TypeTransit
}

// Kind is the display type of the entry. Type is kept as the model sent
// it, so matching ignores case. An untyped entry with a method and no name
// is transit; any other unknown type maps to TypeOther.
func (e Entry) Kind() EntryType {
	t := EntryType(strings.ToLower(strings.TrimSpace(string(e.Type))))
	switch {
	case t == TypeTransit, lo.Contains(ActivityTypes, t):
		return t
	case t == "" && e.Method != "" && e.Name == "":
		return TypeTransit
	}
	return TypeOther
}

// Title is the name to show, with a fallback for unnamed entries.
func (e Entry) Title() string {
	if e.Name != "" {
		return e.Name
	}
	if e.Kind() == TypeTransit {
		if e.Method != "" {
			return e.Method
		}
		return "Transit"
	}
	return "Unnamed stop"
}

// Itinerary is an ordered day plan.
type Itinerary []Entry

// New assigns a fresh ID to every entry and returns the itinerary.
func New(entries []Entry) Itinerary {
	out := make(Itinerary, len(entries))
	for i, e := range entries {
		e.ID = uuid.NewString()
		out[i] = e
	}
	return out
}

// IndexOf returns the position of the entry with id, or -1.
func (it Itinerary) IndexOf(id string) int {
	_, idx, ok := lo.FindIndexOf(it, func(e Entry) bool { return e.ID == id })
	if !ok {
		return -1
	}
	return idx
}

// Find returns the entry with id.
func (it Itinerary) Find(id string) (Entry, bool) {
	return lo.Find(it, func(e Entry) bool { return e.ID == id })
}

// Replace returns a copy with the entry id overwritten by e. The
// replacement keeps its own ID. ok is false when id is unknown.
func (it Itinerary) Replace(id string, e Entry) (Itinerary, bool) {
	idx := it.IndexOf(id)
	if idx == -1 {
		return it, false
	}
	out := make(Itinerary, len(it))
	copy(out, it)
	out[idx] = e
	return out, true
}

// Remove returns a copy without the entry id, keeping the order of the rest.
func (it Itinerary) Remove(id string) (Itinerary, bool) {
	idx := it.IndexOf(id)
	if idx == -1 {
		return it, false
	}
	out := make(Itinerary, 0, len(it)-1)
	out = append(out, it[:idx]...)
	out = append(out, it[idx+1:]...)
	return out, true
}

// Activities returns the non-transit entries.
func (it Itinerary) Activities() Itinerary {
	return lo.Filter(it, func(e Entry, _ int) bool { return !e.IsTransit() })
}
