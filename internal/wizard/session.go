// Package wizard holds the trip-planning session: the step machine, the
// full generation flow and the single-entry replace flow. Front-ends (the
// terminal and the Telegram bot) drive a Session and render its State.
package wizard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ai-day-planner/internal/config"
	"ai-day-planner/internal/itinerary"
	"ai-day-planner/internal/shared"
)

var (
	ErrCityRequired       = errors.New("a destination city is required")
	ErrDateRequired       = errors.New("a trip date is required")
	ErrTooFewInterests    = errors.New("pick at least 2 interests")
	ErrWrongStep          = errors.New("not available at this step")
	ErrGenerationInFlight = errors.New("an itinerary is already being generated")
	ErrReplaceInFlight    = errors.New("a replacement is already in progress")
	ErrEntryNotFound      = errors.New("entry not found")
	ErrNotActivity        = errors.New("transit entries cannot be selected")
	ErrStale              = errors.New("result discarded: session moved on")
	ErrClosed             = errors.New("session closed")
)

// MinInterests is the number of interests required before generating.
const MinInterests = 2

// Outcomes passed to UsageRecorder.
const (
	UsageOK        = "ok"
	UsageFailed    = "failed"
	UsageDiscarded = "discarded"
)

// Generator produces itineraries and single-entry replacements.
// *itinerary.Client implements it.
type Generator interface {
	Generate(ctx context.Context, prefs itinerary.TripPreferences, credential string) (itinerary.GenerateResult, error)
	Replacement(ctx context.Context, prefs itinerary.TripPreferences, original itinerary.Entry, credential string) (itinerary.ReplacementResult, error)
}

// UsageRecorder receives the metadata of every model call that got an answer.
type UsageRecorder interface {
	RecordMeta(meta shared.AgentMeta, outcome string) error
}

type Option func(*Session)

func WithUsageRecorder(r UsageRecorder) Option {
	return func(s *Session) { s.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session is one user's wizard. It is safe for concurrent use; at most one
// generation and one replacement run at a time.
type Session struct {
	gen      Generator
	recorder UsageRecorder
	logger   *slog.Logger

	mu     sync.Mutex
	creds  config.CredentialSource
	state  State
	closed bool

	// epoch changes whenever the session navigates away from the state a
	// request was issued for; results from an older epoch are dropped.
	epoch       uint64
	epochCtx    context.Context
	epochCancel context.CancelFunc

	lifetime context.Context
	stop     context.CancelFunc
}

// New creates a session at the welcome step with default preferences.
func New(gen Generator, creds config.CredentialSource, opts ...Option) *Session {
	lifetime, stop := context.WithCancel(context.Background())
	s := &Session{
		gen:      gen,
		creds:    creds,
		logger:   slog.Default(),
		lifetime: lifetime,
		stop:     stop,
		state: State{
			Step:     StepWelcome,
			Prefs:    itinerary.DefaultPreferences(),
			ViewMode: ViewTimeline,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.epochCtx, s.epochCancel = context.WithCancel(lifetime)
	return s
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Close cancels in-flight requests. Their results are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.bumpLocked()
	s.stop()
}

// bumpLocked starts a new epoch, cancelling requests of the old one.
func (s *Session) bumpLocked() {
	s.epoch++
	s.epochCancel()
	s.epochCtx, s.epochCancel = context.WithCancel(s.lifetime)
	s.state.Generating = false
	s.state.ReplacingID = ""
}

// requestContextLocked derives a context cancelled by the caller or by the
// end of the current epoch.
func (s *Session) requestContextLocked(ctx context.Context) (context.Context, func()) {
	reqCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.epochCtx, cancel)
	return reqCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) edit(fn func(p itinerary.TripPreferences) itinerary.TripPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.state.Prefs = fn(s.state.Prefs)
	return nil
}

func (s *Session) SetCity(city string) error {
	return s.edit(func(p itinerary.TripPreferences) itinerary.TripPreferences { return p.WithCity(city) })
}

func (s *Session) SetDate(date time.Time) error {
	return s.edit(func(p itinerary.TripPreferences) itinerary.TripPreferences { return p.WithDate(date) })
}

func (s *Session) SetTimeWindow(start, end string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	p, err := s.state.Prefs.WithTimeWindow(start, end)
	if err != nil {
		return err
	}
	s.state.Prefs = p
	return nil
}

func (s *Session) ToggleInterest(id string) error {
	return s.edit(func(p itinerary.TripPreferences) itinerary.TripPreferences { return p.ToggleInterest(id) })
}

func (s *Session) SetPace(pace itinerary.Pace) error {
	return s.edit(func(p itinerary.TripPreferences) itinerary.TripPreferences { return p.WithPace(pace) })
}

func (s *Session) SetBudget(budget itinerary.Budget) error {
	return s.edit(func(p itinerary.TripPreferences) itinerary.TripPreferences { return p.WithBudget(budget) })
}

func (s *Session) SetWalking(walking itinerary.Walking) error {
	return s.edit(func(p itinerary.TripPreferences) itinerary.TripPreferences { return p.WithWalking(walking) })
}

// Next advances one step. Destination needs a city and Schedule a date.
// Preferences only advances through Generate.
func (s *Session) Next() (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.state.Step, ErrClosed
	}

	switch s.state.Step {
	case StepWelcome:
		s.state.Step = StepDestination
	case StepDestination:
		if s.state.Prefs.City == "" {
			return s.state.Step, ErrCityRequired
		}
		s.state.Step = StepSchedule
	case StepSchedule:
		if !s.state.Prefs.HasDate() {
			return s.state.Step, ErrDateRequired
		}
		s.state.Step = StepPreferences
	default:
		return s.state.Step, ErrWrongStep
	}
	return s.state.Step, nil
}

// Back returns to the previous step. Leaving Results drops the itinerary.
func (s *Session) Back() (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.state.Step, ErrClosed
	}

	switch s.state.Step {
	case StepWelcome:
		return s.state.Step, ErrWrongStep
	case StepResults:
		s.resetResultsLocked()
		s.state.Step = StepPreferences
	default:
		s.bumpLocked()
		s.state.Step--
	}
	return s.state.Step, nil
}

// Restart goes back to Destination, keeping the preferences.
func (s *Session) Restart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.resetResultsLocked()
	s.state.GenerationError = ""
	s.state.Step = StepDestination
	return nil
}

// Regenerate discards the itinerary and returns to Preferences.
func (s *Session) Regenerate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.state.Step != StepResults {
		return ErrWrongStep
	}
	s.resetResultsLocked()
	s.state.Step = StepPreferences
	return nil
}

func (s *Session) resetResultsLocked() {
	s.bumpLocked()
	s.state.Itinerary = nil
	s.state.SelectedID = ""
}

// SetCredential stores a user-supplied API key for this session only.
func (s *Session) SetCredential(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.creds = s.creds.WithOverride(strings.TrimSpace(key))
	if s.creds.Resolve() != "" {
		s.state.NeedsCredential = false
	}
	return nil
}

// HasCredential reports whether a key is available from any source.
func (s *Session) HasCredential() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds.Resolve() != ""
}

// Generate requests a full itinerary for the current preferences. Without
// a credential it sets NeedsCredential and returns
// itinerary.ErrCredentialMissing without calling the model. On failure
// GenerationError is set and the step is unchanged.
func (s *Session) Generate(ctx context.Context) error {
	s.mu.Lock()
	if err := s.checkGenerateLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	cred := s.creds.Resolve()
	if cred == "" {
		s.state.NeedsCredential = true
		s.mu.Unlock()
		return itinerary.ErrCredentialMissing
	}

	s.state.Generating = true
	s.state.GenerationError = ""
	epoch := s.epoch
	prefs := s.state.Prefs
	reqCtx, done := s.requestContextLocked(ctx)
	s.mu.Unlock()
	defer done()

	s.logger.Info("Generating itinerary", "city", prefs.City, "interests", prefs.Interests)
	res, err := s.gen.Generate(reqCtx, prefs, cred)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		s.recordUsage(res.Meta, UsageDiscarded)
		return ErrStale
	}
	s.state.Generating = false

	if err != nil {
		s.recordUsage(res.Meta, UsageFailed)
		s.logger.Warn("Itinerary generation failed", "error", err)
		s.state.GenerationError = itinerary.UserMessage(err)
		if errors.Is(err, itinerary.ErrCredentialMissing) {
			s.state.NeedsCredential = true
		}
		return err
	}

	s.recordUsage(res.Meta, UsageOK)
	s.state.Itinerary = res.Itinerary
	s.state.SelectedID = ""
	s.state.Step = StepResults
	return nil
}

func (s *Session) checkGenerateLocked() error {
	switch {
	case s.closed:
		return ErrClosed
	case s.state.Step != StepPreferences:
		return ErrWrongStep
	case s.state.Generating:
		return ErrGenerationInFlight
	case len(s.state.Prefs.Interests) < MinInterests:
		return ErrTooFewInterests
	}
	return nil
}

// ReplaceEntry asks for an alternative to entry id, following the
// best-effort replace, degrade to removal policy: a successful reply
// overwrites only that slot, any failure removes the entry and keeps the
// order of the others. Transit entries are removed without a model call.
// Cancellation by the caller leaves the itinerary untouched.
func (s *Session) ReplaceEntry(ctx context.Context, id string) (ReplaceResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ReplaceResult{}, ErrClosed
	}
	if s.state.Step != StepResults {
		s.mu.Unlock()
		return ReplaceResult{}, ErrWrongStep
	}
	if s.state.Replacing() {
		s.mu.Unlock()
		return ReplaceResult{}, ErrReplaceInFlight
	}
	original, ok := s.state.Itinerary.Find(id)
	if !ok {
		s.mu.Unlock()
		return ReplaceResult{}, ErrEntryNotFound
	}
	if original.IsTransit() {
		defer s.mu.Unlock()
		s.removeLocked(id)
		return ReplaceResult{Outcome: OutcomeRemoved, Entry: original, Cause: itinerary.ErrTransitReplacement}, nil
	}

	s.state.ReplacingID = id
	epoch := s.epoch
	prefs := s.state.Prefs
	cred := s.creds.Resolve()
	reqCtx, done := s.requestContextLocked(ctx)
	s.mu.Unlock()
	defer done()

	res, err := s.gen.Replacement(reqCtx, prefs, original, cred)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		s.recordUsage(res.Meta, UsageDiscarded)
		return ReplaceResult{}, ErrStale
	}
	s.state.ReplacingID = ""

	if err != nil && ctx.Err() != nil {
		return ReplaceResult{}, ctx.Err()
	}
	if err != nil {
		s.recordUsage(res.Meta, UsageFailed)
		s.logger.Warn("Replacement failed, removing entry", "entry", original.Name, "error", err)
		s.removeLocked(id)
		return ReplaceResult{Outcome: OutcomeRemoved, Entry: original, Cause: err}, nil
	}

	s.recordUsage(res.Meta, UsageOK)
	s.state.Itinerary, _ = s.state.Itinerary.Replace(id, res.Entry)
	if s.state.SelectedID == id {
		s.state.SelectedID = res.Entry.ID
	}
	return ReplaceResult{Outcome: OutcomeApplied, Entry: res.Entry}, nil
}

// RemoveEntry drops entry id without asking for a replacement.
func (s *Session) RemoveEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.state.Step != StepResults {
		return ErrWrongStep
	}
	if s.state.ReplacingID == id {
		return ErrReplaceInFlight
	}
	if !s.removeLocked(id) {
		return ErrEntryNotFound
	}
	return nil
}

func (s *Session) removeLocked(id string) bool {
	it, ok := s.state.Itinerary.Remove(id)
	if !ok {
		return false
	}
	s.state.Itinerary = it
	if s.state.SelectedID == id {
		s.state.SelectedID = ""
	}
	return true
}

func (s *Session) SetViewMode(mode ViewMode) error {
	if mode != ViewTimeline && mode != ViewList {
		return errors.New("unknown view mode: " + string(mode))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ViewMode = mode
	return nil
}

// Select marks an activity for the detail view.
func (s *Session) Select(id string) (itinerary.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.state.Itinerary.Find(id)
	if !ok {
		return itinerary.Entry{}, ErrEntryNotFound
	}
	if e.IsTransit() {
		return itinerary.Entry{}, ErrNotActivity
	}
	s.state.SelectedID = id
	return e, nil
}

func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SelectedID = ""
}

func (s *Session) recordUsage(meta shared.AgentMeta, outcome string) {
	if s.recorder == nil || meta.AgentName == "" {
		return
	}
	if err := s.recorder.RecordMeta(meta, outcome); err != nil {
		s.logger.Warn("Failed to record usage", "agent", meta.AgentName, "error", err)
	}
}
