package itinerary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"ai-day-planner/internal/extract"
	"ai-day-planner/internal/llm"
	"ai-day-planner/internal/llm/llmtest"
)

const fiveEntries = `Here is your day:
[
  {"time": "09:00 AM", "duration": "2 hrs", "type": "museum", "name": "Rijksmuseum", "tip": "Book ahead", "description": "Dutch masters"},
  {"type": "transit", "method": "Walk", "duration": "15 min", "distance": "1 km"},
  {"time": "11:30 AM", "duration": "1 hr", "type": "food", "name": "Foodhallen", "description": "Street food hall"},
  {"time": "01:00 PM", "duration": "1.5 hrs", "type": "nature", "name": "Vondelpark", "description": "Park walk"},
  {"time": "03:00 PM", "duration": "1 hr", "type": "rooftop", "name": "A'DAM Lookout", "description": "City views"}
]`

func testPrefs() TripPreferences {
	p := DefaultPreferences().
		WithCity("Amsterdam").
		WithDate(time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)).
		ToggleInterest("museums").
		ToggleInterest("food")
	return p
}

func TestParseItinerary(t *testing.T) {
	it, err := ParseItinerary(fiveEntries)
	if err != nil {
		t.Fatalf("ParseItinerary failed: %v", err)
	}

	if len(it) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(it))
	}
	names := []string{"Rijksmuseum", "", "Foodhallen", "Vondelpark", "A'DAM Lookout"}
	for i, want := range names {
		if it[i].Name != want {
			t.Errorf("Entry %d: expected name %q, got %q", i, want, it[i].Name)
		}
	}
	if it[0].Tip != "Book ahead" || it[0].Duration != "2 hrs" || it[0].Time != "09:00 AM" {
		t.Errorf("Unexpected field mapping: %+v", it[0])
	}
	if !it[1].IsTransit() || it[1].Method != "Walk" || it[1].Distance != "1 km" {
		t.Errorf("Expected transit entry, got %+v", it[1])
	}

	ids := map[string]bool{}
	for _, e := range it {
		if e.ID == "" || ids[e.ID] {
			t.Fatalf("Expected unique non-empty IDs, got %q", e.ID)
		}
		ids[e.ID] = true
	}

	if it[4].Type != "rooftop" {
		t.Errorf("Expected raw type to be kept, got %q", it[4].Type)
	}
	if it[4].Kind() != TypeOther {
		t.Errorf("Expected unknown type to display as other, got %q", it[4].Kind())
	}
}

func TestParseItineraryFencedFixture(t *testing.T) {
	raw := "```json\n[{\"type\":\"food\",\"name\":\"X\",\"time\":\"09:00 AM\",\"duration\":\"1 hr\",\"description\":\"d\"}]\n```"

	it, err := ParseItinerary(raw)
	if err != nil {
		t.Fatalf("ParseItinerary failed: %v", err)
	}
	if len(it) != 1 || it[0].Name != "X" {
		t.Fatalf("Expected one entry named X, got %+v", it)
	}
}

func TestParseItineraryFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"NoJSON", "Sorry, I cannot help with that."},
		{"BrokenJSON", `[{"name": "X",]`},
		{"Empty", "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseItinerary(tt.raw)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("Expected ParseError, got %v", err)
			}
		})
	}
}

func TestParseItineraryKeepsIncompleteEntries(t *testing.T) {
	raw := `[
  {"type": "museum", "name": "Louvre", "time": "09:00 AM"},
  {"method": "Walk", "duration": "10 min", "distance": "1 km"},
  {"type": "food", "time": "11:30 AM"},
  {"name": "Seine cruise", "time": "02:00 PM"}
]`

	it, err := ParseItinerary(raw)
	if err != nil {
		t.Fatalf("ParseItinerary failed: %v", err)
	}
	if len(it) != 4 {
		t.Fatalf("Expected all 4 entries kept, got %d", len(it))
	}
	if !it[1].IsTransit() || it[1].Type != "" {
		t.Errorf("Expected untyped walk to show as transit with its type left blank, got %+v", it[1])
	}
	if it[2].Name != "" || it[2].Title() != "Unnamed stop" {
		t.Errorf("Expected blank name with a display fallback, got %q / %q", it[2].Name, it[2].Title())
	}
	if it[3].Kind() != TypeOther || it[3].Title() != "Seine cruise" {
		t.Errorf("Expected untyped activity as other, got %q", it[3].Kind())
	}
	if len(it.Activities()) != 3 {
		t.Errorf("Expected 3 activities, got %d", len(it.Activities()))
	}
}

func TestParseEntrySanitizesMarkup(t *testing.T) {
	e, err := ParseEntry(`{"type": "Food", "name": "Caf&eacute; <b>de Jaren</b>", "tip": "Try the <i>appeltaart</i>", "description": "Fish &amp; chips"}`)
	if err != nil {
		t.Fatalf("ParseEntry failed: %v", err)
	}
	if e.Name != "Café de Jaren" {
		t.Errorf("Expected markup stripped, got %q", e.Name)
	}
	if e.Tip != "Try the appeltaart" {
		t.Errorf("Expected markup stripped, got %q", e.Tip)
	}
	if e.Description != "Fish & chips" {
		t.Errorf("Expected entity decoded, got %q", e.Description)
	}
	if e.Type != "Food" {
		t.Errorf("Expected type kept as sent, got %q", e.Type)
	}
	if e.Kind() != TypeFood {
		t.Errorf("Expected Food to display as food, got %q", e.Kind())
	}
}

func TestItineraryMutationsCopy(t *testing.T) {
	it := New([]Entry{
		{Type: TypeMuseum, Name: "A"},
		{Type: TypeTransit, Method: "Tram"},
		{Type: TypeFood, Name: "B"},
	})
	orig := append(Itinerary(nil), it...)

	removed, ok := it.Remove(it[1].ID)
	if !ok || len(removed) != 2 || removed[0].Name != "A" || removed[1].Name != "B" {
		t.Fatalf("Unexpected remove result: %+v", removed)
	}

	replaced, ok := it.Replace(it[2].ID, Entry{ID: "new", Type: TypeFood, Name: "C"})
	if !ok || replaced[2].Name != "C" || replaced[0] != it[0] {
		t.Fatalf("Unexpected replace result: %+v", replaced)
	}

	for i := range it {
		if it[i] != orig[i] {
			t.Errorf("Receiver mutated at %d: %+v", i, it[i])
		}
	}

	if _, ok := it.Remove("missing"); ok {
		t.Error("Expected unknown id to be reported")
	}
	if got := len(it.Activities()); got != 2 {
		t.Errorf("Expected 2 activities, got %d", got)
	}
}

func TestPreferences(t *testing.T) {
	p := DefaultPreferences()
	if p.StartTime != "09:00" || p.EndTime != "20:00" || p.Pace != PaceModerate || p.Budget != BudgetMid || p.Walking != WalkingNormal {
		t.Fatalf("Unexpected defaults: %+v", p)
	}

	q := p.ToggleInterest("food").ToggleInterest("history")
	if len(p.Interests) != 0 {
		t.Errorf("Expected original preferences untouched, got %v", p.Interests)
	}
	q = q.ToggleInterest("food")
	if len(q.Interests) != 1 || q.Interests[0] != "history" {
		t.Errorf("Expected only history, got %v", q.Interests)
	}

	if _, err := p.WithTimeWindow("18:00", "09:00"); err == nil {
		t.Error("Expected error for inverted window")
	}
	if _, err := p.WithTimeWindow("9am", "10:00"); err == nil {
		t.Error("Expected error for malformed time")
	}
	w, err := p.WithTimeWindow("8:30", "17:00")
	if err != nil || w.StartTime != "08:30" {
		t.Errorf("Expected normalised window, got %+v (%v)", w, err)
	}

	if _, err := ParsePace("frantic"); err == nil {
		t.Error("Expected unknown pace to be rejected")
	}
	if b, err := ParseBudget(" Luxury "); err != nil || b != BudgetLuxury {
		t.Errorf("Expected luxury, got %q (%v)", b, err)
	}
	if InterestLabel("museums") != "Museums & Art" {
		t.Errorf("Unexpected label %q", InterestLabel("museums"))
	}
}

func TestMapURL(t *testing.T) {
	got := MapURL("Anne Frank House", "Amsterdam")
	want := "https://www.google.com/maps?q=Anne%20Frank%20House%2C%20Amsterdam&output=embed"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestClientGenerate(t *testing.T) {
	mock := &llmtest.MockTextGenerator{Replies: []llmtest.Reply{{Content: fiveEntries}}}
	client := NewClient(mock, Options{})

	res, err := client.Generate(context.Background(), testPrefs(), "key-1")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(res.Itinerary) != 5 {
		t.Errorf("Expected 5 entries, got %d", len(res.Itinerary))
	}
	if res.Meta.AgentName != "Itinerary" || res.Meta.Usage.TotalTokens != 30 {
		t.Errorf("Unexpected meta %+v", res.Meta)
	}

	req := mock.Requests()[0]
	if req.APIKey != "key-1" || req.MaxOutputTokens != 4096 || req.Temperature != 0.7 {
		t.Errorf("Unexpected request knobs %+v", req)
	}
	for _, want := range []string{"Amsterdam", "09:00 to 20:00", "museums, food", "Pace: moderate", "Saturday, May 2, 2026", "4-6 activities"} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("Expected prompt to contain %q:\n%s", want, req.Prompt)
		}
	}
}

func TestClientGenerateFailures(t *testing.T) {
	t.Run("CredentialMissing", func(t *testing.T) {
		mock := &llmtest.MockTextGenerator{Replies: []llmtest.Reply{{Content: fiveEntries}}}
		_, err := NewClient(mock, Options{}).Generate(context.Background(), testPrefs(), "")
		if !errors.Is(err, ErrCredentialMissing) {
			t.Fatalf("Expected ErrCredentialMissing, got %v", err)
		}
		if mock.Calls() != 0 {
			t.Errorf("Expected no calls, got %d", mock.Calls())
		}
	})

	t.Run("HTTPStatus", func(t *testing.T) {
		mock := &llmtest.MockTextGenerator{Replies: []llmtest.Reply{{Err: &llm.StatusError{Provider: "gemini", StatusCode: 400}}}}
		_, err := NewClient(mock, Options{}).Generate(context.Background(), testPrefs(), "k")
		var reqErr *RequestError
		if !errors.As(err, &reqErr) || reqErr.Reason != ReasonHTTPStatus {
			t.Fatalf("Expected http_status RequestError, got %v", err)
		}
		if msg := UserMessage(err); !strings.Contains(msg, "Check your API key") {
			t.Errorf("Unexpected user message %q", msg)
		}
	})

	t.Run("EmptyResponse", func(t *testing.T) {
		mock := &llmtest.MockTextGenerator{Replies: []llmtest.Reply{{Err: llm.ErrEmptyResponse}}}
		_, err := NewClient(mock, Options{}).Generate(context.Background(), testPrefs(), "k")
		var reqErr *RequestError
		if !errors.As(err, &reqErr) || reqErr.Reason != ReasonEmptyResponse {
			t.Fatalf("Expected empty_response RequestError, got %v", err)
		}
	})

	t.Run("MalformedEnvelope", func(t *testing.T) {
		malformed := fmt.Errorf("%w: invalid character '<'", llm.ErrMalformedResponse)
		mock := &llmtest.MockTextGenerator{Replies: []llmtest.Reply{{Err: malformed}}}
		_, err := NewClient(mock, Options{}).Generate(context.Background(), testPrefs(), "k")
		var reqErr *RequestError
		if !errors.As(err, &reqErr) || reqErr.Reason != ReasonEmptyResponse {
			t.Fatalf("Expected empty_response RequestError, got %v", err)
		}
		if msg := UserMessage(err); !strings.Contains(msg, "empty response") {
			t.Errorf("Unexpected user message %q", msg)
		}
	})

	t.Run("Unparseable", func(t *testing.T) {
		mock := &llmtest.MockTextGenerator{Replies: []llmtest.Reply{{Content: "no plan today"}}}
		res, err := NewClient(mock, Options{}).Generate(context.Background(), testPrefs(), "k")
		var extractErr *extract.Error
		if !errors.As(err, &extractErr) || extractErr.Stage != "span" {
			t.Fatalf("Expected span extraction error, got %v", err)
		}
		if res.Meta.Usage.TotalTokens != 30 {
			t.Errorf("Expected usage to be reported on parse failure, got %+v", res.Meta)
		}
		if !strings.Contains(UserMessage(err), "No valid itinerary") {
			t.Errorf("Unexpected user message %q", UserMessage(err))
		}
	})
}

func TestClientReplacement(t *testing.T) {
	original := Entry{ID: "orig", Type: TypeMuseum, Time: "09:00 AM", Duration: "2 hrs", Name: "Rijksmuseum"}

	t.Run("BackfillsSlot", func(t *testing.T) {
		mock := &llmtest.MockTextGenerator{Replies: []llmtest.Reply{{Content: `Try this: {"type": "museum", "name": "Van Gogh Museum", "description": "Sunflowers"}`}}}
		res, err := NewClient(mock, Options{ReplacementMaxTokens: 256}).Replacement(context.Background(), testPrefs(), original, "k")
		if err != nil {
			t.Fatalf("Replacement failed: %v", err)
		}
		if res.Entry.Name != "Van Gogh Museum" || res.Entry.Time != "09:00 AM" || res.Entry.Duration != "2 hrs" {
			t.Errorf("Unexpected replacement %+v", res.Entry)
		}
		if res.Entry.ID == "" || res.Entry.ID == original.ID {
			t.Errorf("Expected a fresh ID, got %q", res.Entry.ID)
		}

		req := mock.Requests()[0]
		if req.MaxOutputTokens != 256 {
			t.Errorf("Expected 256 tokens, got %d", req.MaxOutputTokens)
		}
		if !strings.Contains(req.Prompt, `alternative to "Rijksmuseum" for 09:00 AM`) {
			t.Errorf("Expected slot anchors in prompt:\n%s", req.Prompt)
		}
	})

	t.Run("Transit", func(t *testing.T) {
		mock := &llmtest.MockTextGenerator{}
		_, err := NewClient(mock, Options{}).Replacement(context.Background(), testPrefs(), Entry{Type: TypeTransit}, "k")
		if !errors.Is(err, ErrTransitReplacement) || mock.Calls() != 0 {
			t.Fatalf("Expected ErrTransitReplacement without calls, got %v (%d calls)", err, mock.Calls())
		}
	})
}
