package console

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ai-day-planner/internal/config"
	"ai-day-planner/internal/itinerary"
	"ai-day-planner/internal/llm/llmtest"
	"ai-day-planner/internal/wizard"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reply = `[
  {"time": "09:00 AM", "duration": "2 hrs", "type": "museum", "name": "Prado", "description": "Velazquez"},
  {"type": "transit", "method": "Walk", "duration": "10 min", "distance": "700 m"},
  {"time": "11:30 AM", "duration": "1 hr", "type": "food", "name": "Mercado de San Miguel", "description": "Tapas"},
  {"time": "02:00 PM", "duration": "2 hrs", "type": "nature", "name": "Retiro Park", "tip": "Rent a boat", "description": "Lake"}
]`

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	up    = tea.KeyMsg{Type: tea.KeyUp}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	right = tea.KeyMsg{Type: tea.KeyRight}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	wipe  = tea.KeyMsg{Type: tea.KeyCtrlU}
	ctrlC = tea.KeyMsg{Type: tea.KeyCtrlC}
)

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func repeat(msg tea.Msg, n int) []tea.Msg {
	out := make([]tea.Msg, n)
	for i := range out {
		out[i] = msg
	}
	return out
}

// driver feeds messages to the model and runs returned commands inline,
// keeping every rendered frame.
type driver struct {
	m      tea.Model
	frames strings.Builder
}

func newDriver(t *testing.T, mock *llmtest.MockTextGenerator, creds config.CredentialSource) (*driver, *wizard.Session) {
	t.Helper()
	session := wizard.New(itinerary.NewClient(mock, itinerary.Options{}), creds)
	t.Cleanup(session.Close)
	return &driver{m: newModel(context.Background(), session, "Gemini API key")}, session
}

func (d *driver) send(msgs ...tea.Msg) {
	for _, msg := range msgs {
		var cmd tea.Cmd
		d.m, cmd = d.m.Update(msg)
		d.run(cmd)
		d.frames.WriteString(d.m.View())
	}
}

func (d *driver) run(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			d.run(c)
		}
	case tea.QuitMsg, nil:
	default:
		var next tea.Cmd
		d.m, next = d.m.Update(msg)
		d.run(next)
	}
}

func (d *driver) model() model {
	return d.m.(model)
}

func (d *driver) view() string {
	return d.m.View()
}

func TestConsoleFullFlow(t *testing.T) {
	mock := &llmtest.MockTextGenerator{Replies: []llmtest.Reply{
		{Content: reply},
		{Content: "nothing useful"},
	}}
	d, session := newDriver(t, mock, config.CredentialSource{})
	icsPath := filepath.Join(t.TempDir(), "day.ics")

	assert.Contains(t, d.view(), "Tell me where you are going")
	d.send(enter, keys("Madrid"), enter)
	assert.Contains(t, d.view(), "Date (YYYY-MM-DD)")

	d.send(keys("2026-09-12"), enter, enter, enter)
	assert.Contains(t, d.view(), "Museums & Art")

	d.send(space, down, space, keys("g"))
	assert.Contains(t, d.view(), "Gemini API key")
	assert.Equal(t, 0, mock.Calls())

	d.send(keys("my-key"))
	assert.NotContains(t, d.view(), "my-key")
	assert.Contains(t, d.view(), "••••••")

	d.send(enter)
	assert.Equal(t, wizard.StepResults, session.Snapshot().Step)
	assert.Contains(t, d.view(), "1. 09:00 AM 🏛 Prado (2 hrs)")
	assert.Contains(t, d.view(), "🚶 Walk · 10 min · 700 m")

	d.send(keys("l"))
	assert.Contains(t, d.view(), "3. 🌳 Retiro Park · 02:00 PM · Nature")

	d.send(down, down, enter)
	assert.Contains(t, d.view(), "💡 Rent a boat")
	d.send(esc)
	assert.NotContains(t, d.view(), "💡 Rent a boat")
	assert.Equal(t, wizard.StepResults, session.Snapshot().Step)

	d.send(up, up, keys("m"))
	assert.Contains(t, d.view(), "https://www.google.com/maps?q=Prado%2C%20Madrid&output=embed")

	d.send(down, keys("r"))
	assert.Contains(t, d.view(), "No alternative found, removed Mercado de San Miguel.")

	d.send(keys("e"))
	assert.Contains(t, d.view(), "day-in-madrid.ics")
	d.send(wipe, keys(icsPath), enter)
	assert.Contains(t, d.view(), "Saved "+icsPath)

	d.send(keys("q"))
	assert.True(t, d.model().quitting)
	assert.Empty(t, d.view())

	require.Len(t, mock.Requests(), 2)
	assert.Equal(t, "my-key", mock.Requests()[0].APIKey)
	assert.NotContains(t, d.frames.String(), "my-key")

	state := session.Snapshot()
	assert.Equal(t, []string{"museums", "food"}, state.Prefs.Interests)
	assert.Len(t, state.Itinerary, 3)

	cal, err := os.ReadFile(icsPath)
	require.NoError(t, err)
	assert.Contains(t, string(cal), "SUMMARY:Prado")
}

func TestConsoleValidation(t *testing.T) {
	mock := &llmtest.MockTextGenerator{Replies: []llmtest.Reply{{Content: reply}}}
	d, session := newDriver(t, mock, config.CredentialSource{Default: "env-key"})

	d.send(enter, enter)
	assert.Contains(t, d.view(), wizard.ErrCityRequired.Error())

	d.send(keys("Madrid"), enter, keys("next week"), enter)
	assert.Contains(t, d.view(), "YYYY-MM-DD format")

	d.send(wipe, keys("2026-09-12"), enter)
	d.send(wipe, keys("18:00"), enter, wipe, keys("08:00"), enter)
	assert.Contains(t, d.view(), "must be after start time")
	assert.Equal(t, wizard.StepSchedule, session.Snapshot().Step)

	d.send(wipe, keys("10:00"), enter, wipe, keys("18:00"), enter)
	assert.Equal(t, wizard.StepPreferences, session.Snapshot().Step)

	d.send(down, down, space, keys("g"))
	assert.Contains(t, d.view(), wizard.ErrTooFewInterests.Error())
	assert.Equal(t, 0, mock.Calls())

	d.send(repeat(down, 5)...)
	d.send(space)
	d.send(down)
	d.send(right)
	assert.Contains(t, d.view(), "Pace: packed")

	d.send(keys("g"))

	state := session.Snapshot()
	assert.Equal(t, wizard.StepResults, state.Step)
	assert.Equal(t, "10:00", state.Prefs.StartTime)
	assert.Equal(t, itinerary.PacePacked, state.Prefs.Pace)
	assert.Equal(t, []string{"architecture", "photography"}, state.Prefs.Interests)
	assert.Equal(t, 1, mock.Calls())
	assert.Equal(t, "env-key", mock.Requests()[0].APIKey)
}

func TestConsoleShowsGenerationFailure(t *testing.T) {
	mock := &llmtest.MockTextGenerator{Replies: []llmtest.Reply{{Content: "no plan today"}, {Content: reply}}}
	d, session := newDriver(t, mock, config.CredentialSource{Default: "env-key"})

	d.send(enter, keys("Seville"), enter, keys("2026-04-20"), enter, enter, enter)
	d.send(space, down, space, keys("g"))
	assert.Contains(t, d.view(), "No valid itinerary found")
	assert.Contains(t, d.view(), "Press g to retry")
	assert.Equal(t, wizard.StepPreferences, session.Snapshot().Step)

	d.send(keys("g"))
	assert.Equal(t, wizard.StepResults, session.Snapshot().Step)
	assert.Equal(t, 2, mock.Calls())
}

func TestConsoleNavigatesBack(t *testing.T) {
	d, session := newDriver(t, &llmtest.MockTextGenerator{}, config.CredentialSource{})

	d.send(enter, keys("Oslo"), enter)
	assert.Equal(t, wizard.StepSchedule, session.Snapshot().Step)

	d.send(esc)
	assert.Equal(t, wizard.StepDestination, session.Snapshot().Step)
	assert.Equal(t, "Oslo", d.model().input.Value())

	d.send(esc)
	assert.Equal(t, wizard.StepWelcome, session.Snapshot().Step)

	d.send(ctrlC)
	assert.True(t, d.model().quitting)
	assert.Empty(t, d.view())
}

func TestConsoleEmptyKeyIsRejected(t *testing.T) {
	mock := &llmtest.MockTextGenerator{Replies: []llmtest.Reply{{Content: reply}}}
	d, _ := newDriver(t, mock, config.CredentialSource{})

	d.send(enter, keys("Rome"), enter, keys("2026-05-02"), enter, enter, enter)
	d.send(space, down, space, keys("g"), enter)
	assert.Contains(t, d.view(), "That key was empty")
	assert.Equal(t, 0, mock.Calls())
}

func TestRunReadsKeystrokes(t *testing.T) {
	session := wizard.New(itinerary.NewClient(&llmtest.MockTextGenerator{}, itinerary.Options{}), config.CredentialSource{})
	t.Cleanup(session.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := Run(ctx, session, "Gemini API key", strings.NewReader("\rLisbon\r\x03"), &out)
	require.NoError(t, err)

	state := session.Snapshot()
	assert.Equal(t, "Lisbon", state.Prefs.City)
	assert.Equal(t, wizard.StepSchedule, state.Step)
}
