// Package console runs the trip wizard as a terminal UI.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ai-day-planner/internal/export"
	"ai-day-planner/internal/itinerary"
	"ai-day-planner/internal/render"
	"ai-day-planner/internal/wizard"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
)

const dateLayout = "2006-01-02"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	hintStyle   = lipgloss.NewStyle().Faint(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

// field is the text the input box is currently editing.
type field int

const (
	fieldNone field = iota
	fieldCity
	fieldDate
	fieldStart
	fieldEnd
	fieldKey
	fieldICSPath
	fieldHTMLPath
)

// Rows of the preferences page after the interest catalogue.
const (
	rowPace = iota
	rowBudget
	rowWalking
	rowGenerate
)

// generatedMsg carries the outcome of a Generate call.
type generatedMsg struct {
	err error
}

// replacedMsg carries the outcome of a ReplaceEntry call.
type replacedMsg struct {
	original itinerary.Entry
	res      wizard.ReplaceResult
	err      error
}

type model struct {
	ctx     context.Context
	session *wizard.Session
	label   string

	input  textinput.Model
	field  field
	start  string
	cursor int
	status string
	busy   string

	quitting bool
}

// Run shows the wizard until the user quits or ctx ends. label names the
// API key the configured provider expects.
func Run(ctx context.Context, session *wizard.Session, label string, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(newModel(ctx, session, label),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func newModel(ctx context.Context, session *wizard.Session, label string) model {
	ti := textinput.New()
	ti.Prompt = "› "
	ti.Cursor.SetMode(cursor.CursorStatic)

	m := model{ctx: ctx, session: session, label: label, input: ti}
	m.syncStep()
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

// syncStep points the input box at the first field of the current step.
func (m *model) syncStep() {
	st := m.session.Snapshot()
	m.cursor = 0
	switch st.Step {
	case wizard.StepDestination:
		m.edit(fieldCity, st.Prefs.City, "Lisbon")
	case wizard.StepSchedule:
		date := ""
		if st.Prefs.HasDate() {
			date = st.Prefs.Date.Format(dateLayout)
		}
		m.edit(fieldDate, date, "YYYY-MM-DD")
	default:
		m.stopEditing()
	}
}

func (m *model) edit(f field, value, placeholder string) {
	m.field = f
	m.input.EchoMode = textinput.EchoNormal
	if f == fieldKey {
		m.input.EchoMode = textinput.EchoPassword
		m.input.EchoCharacter = '•'
	}
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *model) stopEditing() {
	m.field = fieldNone
	m.input.Reset()
	m.input.EchoMode = textinput.EchoNormal
	m.input.Blur()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case generatedMsg:
		return m.generated(msg)
	case replacedMsg:
		return m.replaced(msg)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		if m.field != fieldNone {
			return m.updateInput(msg)
		}

		switch m.session.Snapshot().Step {
		case wizard.StepWelcome:
			return m.updateWelcome(msg)
		case wizard.StepPreferences:
			return m.updatePreferences(msg)
		case wizard.StepResults:
			return m.updateResults(msg)
		}
	}
	return m, nil
}

func (m model) updateWelcome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if _, err := m.session.Next(); err != nil {
			m.status = "⚠️ " + err.Error()
			return m, nil
		}
		m.syncStep()
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.status = ""
		return m.commit(strings.TrimSpace(m.input.Value()))
	case tea.KeyEsc:
		m.status = ""
		return m.cancel()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// commit applies the value typed into the current field.
func (m model) commit(value string) (tea.Model, tea.Cmd) {
	switch m.field {
	case fieldCity:
		if err := m.session.SetCity(value); err != nil {
			m.status = "⚠️ " + err.Error()
			return m, nil
		}
		if _, err := m.session.Next(); err != nil {
			m.status = "⚠️ " + err.Error()
			return m, nil
		}
		m.syncStep()

	case fieldDate:
		date, err := time.Parse(dateLayout, value)
		if err != nil {
			m.status = "⚠️ Please use the YYYY-MM-DD format."
			return m, nil
		}
		if err := m.session.SetDate(date); err != nil {
			m.status = "⚠️ " + err.Error()
			return m, nil
		}
		m.edit(fieldStart, m.session.Snapshot().Prefs.StartTime, "HH:MM")

	case fieldStart:
		m.start = value
		m.edit(fieldEnd, m.session.Snapshot().Prefs.EndTime, "HH:MM")

	case fieldEnd:
		if err := m.session.SetTimeWindow(m.start, value); err != nil {
			m.status = "⚠️ " + err.Error()
			m.edit(fieldStart, m.start, "HH:MM")
			return m, nil
		}
		if _, err := m.session.Next(); err != nil {
			m.status = "⚠️ " + err.Error()
			return m, nil
		}
		m.syncStep()

	case fieldKey:
		m.stopEditing()
		if value == "" {
			m.status = "🔑 That key was empty."
			return m, nil
		}
		if err := m.session.SetCredential(value); err != nil {
			m.status = "⚠️ " + err.Error()
			return m, nil
		}
		return m.generate()

	case fieldICSPath:
		m.stopEditing()
		m.status = m.exportICS(value)

	case fieldHTMLPath:
		m.stopEditing()
		m.status = m.exportHTML(value)
	}
	return m, nil
}

func (m model) cancel() (tea.Model, tea.Cmd) {
	switch m.field {
	case fieldCity, fieldDate:
		if _, err := m.session.Back(); err != nil {
			m.status = "⚠️ " + err.Error()
			return m, nil
		}
		m.syncStep()
	case fieldStart:
		m.syncStep()
	case fieldEnd:
		m.edit(fieldStart, m.start, "HH:MM")
	default:
		m.stopEditing()
	}
	return m, nil
}

func (m model) updatePreferences(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy != "" {
		return m, nil
	}

	rows := len(itinerary.Interests) + rowGenerate + 1
	switch msg.String() {
	case "up", "k":
		m.cursor = (m.cursor - 1 + rows) % rows
	case "down", "j":
		m.cursor = (m.cursor + 1) % rows
	case " ", "space", "enter":
		if m.cursor == len(itinerary.Interests)+rowGenerate {
			return m.generate()
		}
		m.adjust(1)
	case "right":
		m.adjust(1)
	case "left":
		m.adjust(-1)
	case "g":
		return m.generate()
	case "esc", "b":
		if _, err := m.session.Back(); err == nil {
			m.status = ""
			m.syncStep()
		}
	case "q":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// adjust toggles the interest under the cursor or cycles the style row.
func (m *model) adjust(step int) {
	prefs := m.session.Snapshot().Prefs
	var err error
	switch row := m.cursor - len(itinerary.Interests); {
	case row < 0:
		err = m.session.ToggleInterest(itinerary.Interests[m.cursor].ID)
	case row == rowPace:
		err = m.session.SetPace(cycle(itinerary.Paces, prefs.Pace, step))
	case row == rowBudget:
		err = m.session.SetBudget(cycle(itinerary.Budgets, prefs.Budget, step))
	case row == rowWalking:
		err = m.session.SetWalking(cycle(itinerary.Walkings, prefs.Walking, step))
	}
	if err != nil {
		m.status = "⚠️ " + err.Error()
	}
}

func cycle[T comparable](all []T, current T, step int) T {
	i := lo.IndexOf(all, current)
	return all[(i+step+len(all))%len(all)]
}

// generate starts the request in a command so the view keeps rendering.
func (m model) generate() (tea.Model, tea.Cmd) {
	st := m.session.Snapshot()
	if len(st.Prefs.Interests) < wizard.MinInterests {
		m.status = "⚠️ " + wizard.ErrTooFewInterests.Error()
		return m, nil
	}
	if !m.session.HasCredential() {
		m.status = ""
		m.edit(fieldKey, "", "paste your key")
		return m, nil
	}

	m.status = ""
	m.busy = fmt.Sprintf("✨ Planning your day in %s...", st.Prefs.City)
	session, ctx := m.session, m.ctx
	return m, func() tea.Msg {
		return generatedMsg{err: session.Generate(ctx)}
	}
}

func (m model) generated(msg generatedMsg) (tea.Model, tea.Cmd) {
	m.busy = ""
	switch {
	case msg.err == nil:
		m.syncStep()
	case errors.Is(msg.err, wizard.ErrStale), errors.Is(msg.err, wizard.ErrClosed):
	case errors.Is(msg.err, itinerary.ErrCredentialMissing):
		m.edit(fieldKey, "", "paste your key")
	case errors.Is(msg.err, wizard.ErrTooFewInterests), errors.Is(msg.err, wizard.ErrGenerationInFlight):
		m.status = "⚠️ " + msg.err.Error()
	default:
		m.status = "⚠️ " + m.session.Snapshot().GenerationError + " Press g to retry."
	}
	return m, nil
}

func (m model) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.session.Snapshot()
	activities := st.Itinerary.Activities()
	current, err := lo.Nth(activities, m.cursor)
	hasCurrent := err == nil

	switch msg.String() {
	case "t":
		_ = m.session.SetViewMode(wizard.ViewTimeline)
	case "l":
		_ = m.session.SetViewMode(wizard.ViewList)
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(activities)-1 {
			m.cursor++
		}
	case "enter":
		if !hasCurrent {
			return m, nil
		}
		if st.SelectedID == current.ID {
			m.session.Deselect()
		} else if _, err := m.session.Select(current.ID); err != nil {
			m.status = "⚠️ " + err.Error()
		}
	case "m":
		if hasCurrent {
			m.status = "🗺 " + itinerary.MapURL(current.Name, st.Prefs.City)
		}
	case "r":
		if !hasCurrent {
			return m, nil
		}
		if st.Replacing() {
			m.status = "⚠️ " + wizard.ErrReplaceInFlight.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("🔄 Looking for an alternative to %s...", current.Title())
		session, ctx := m.session, m.ctx
		return m, func() tea.Msg {
			res, err := session.ReplaceEntry(ctx, current.ID)
			return replacedMsg{original: current, res: res, err: err}
		}
	case "x":
		if !hasCurrent {
			return m, nil
		}
		if err := m.session.RemoveEntry(current.ID); err != nil {
			m.status = "⚠️ " + err.Error()
			return m, nil
		}
		m.status = "🗑 Removed " + current.Title() + "."
		m.clampCursor()
	case "e":
		m.edit(fieldICSPath, export.CalendarFilename(st.Prefs.City), "file.ics")
	case "w":
		name := strings.TrimSuffix(export.CalendarFilename(st.Prefs.City), ".ics") + ".html"
		m.edit(fieldHTMLPath, name, "file.html")
	case "g":
		if err := m.session.Regenerate(); err == nil {
			m.status = ""
			m.syncStep()
		}
	case "esc", "b":
		if st.SelectedID != "" {
			m.session.Deselect()
			return m, nil
		}
		if _, err := m.session.Back(); err == nil {
			m.status = ""
			m.syncStep()
		}
	case "q":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m model) replaced(msg replacedMsg) (tea.Model, tea.Cmd) {
	switch {
	case errors.Is(msg.err, wizard.ErrStale), errors.Is(msg.err, wizard.ErrClosed):
		return m, nil
	case msg.err != nil:
		m.status = "⚠️ " + msg.err.Error()
		return m, nil
	}

	switch msg.res.Outcome {
	case wizard.OutcomeApplied:
		m.status = fmt.Sprintf("✅ Replaced %s with %s.", msg.original.Title(), msg.res.Entry.Title())
	case wizard.OutcomeRemoved:
		m.status = fmt.Sprintf("🗑 No alternative found, removed %s.", msg.original.Title())
	}
	m.clampCursor()
	return m, nil
}

func (m *model) clampCursor() {
	n := len(m.session.Snapshot().Itinerary.Activities())
	if m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m model) exportICS(path string) string {
	st := m.session.Snapshot()
	cal, err := export.ICS(st.Prefs, st.Itinerary)
	if err != nil {
		return "⚠️ " + err.Error()
	}
	if err := os.WriteFile(path, []byte(cal), 0o644); err != nil {
		return "⚠️ " + err.Error()
	}
	return "📅 Saved " + path
}

func (m model) exportHTML(path string) string {
	st := m.session.Snapshot()
	page, err := export.HTML(st.Prefs, st.Itinerary)
	if err != nil {
		return "⚠️ " + err.Error()
	}
	if err := os.WriteFile(path, page, 0o644); err != nil {
		return "⚠️ " + err.Error()
	}
	return "📄 Saved " + path
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	st := m.session.Snapshot()
	var b strings.Builder
	b.WriteString(titleStyle.Render("🧭 AI Day Planner"))
	b.WriteString("\n\n")

	switch st.Step {
	case wizard.StepWelcome:
		b.WriteString("Tell me where you are going and I will plan the day.\n\n")
		b.WriteString(hintStyle.Render("enter start · q quit"))
	case wizard.StepDestination:
		b.WriteString("Which city are you visiting?\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(hintStyle.Render("enter continue · esc back"))
	case wizard.StepSchedule:
		m.viewSchedule(&b, st)
	case wizard.StepPreferences:
		m.viewPreferences(&b, st)
	case wizard.StepResults:
		m.viewResults(&b, st)
	}

	if m.status != "" {
		b.WriteString("\n\n")
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	return b.String()
}

func (m model) viewSchedule(b *strings.Builder, st wizard.State) {
	fmt.Fprintf(b, "📍 %s\n\n", st.Prefs.City)
	switch m.field {
	case fieldDate:
		b.WriteString("Date (YYYY-MM-DD)\n")
	case fieldStart:
		fmt.Fprintf(b, "Date: %s\nStart time\n", st.Prefs.Date.Format(dateLayout))
	case fieldEnd:
		fmt.Fprintf(b, "Date: %s\nStart: %s\nEnd time\n", st.Prefs.Date.Format(dateLayout), m.start)
	}
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render("enter continue · esc back"))
}

func (m model) viewPreferences(b *strings.Builder, st wizard.State) {
	b.WriteString("What interests you? (pick 2-4)\n")
	for i, in := range itinerary.Interests {
		mark := "[ ]"
		if lo.Contains(st.Prefs.Interests, in.ID) {
			mark = "[x]"
		}
		fmt.Fprintf(b, "%s%s %s\n", m.pointer(i), mark, in.Label)
	}

	base := len(itinerary.Interests)
	fmt.Fprintf(b, "\n%sPace: %s\n", m.pointer(base+rowPace), st.Prefs.Pace)
	fmt.Fprintf(b, "%sBudget: %s\n", m.pointer(base+rowBudget), st.Prefs.Budget)
	fmt.Fprintf(b, "%sWalking: %s\n", m.pointer(base+rowWalking), st.Prefs.Walking)
	fmt.Fprintf(b, "\n%s✨ Generate\n", m.pointer(base+rowGenerate))

	switch {
	case m.field == fieldKey:
		fmt.Fprintf(b, "\n🔑 %s\n%s\n", m.label, m.input.View())
	case m.busy != "":
		fmt.Fprintf(b, "\n%s\n", m.busy)
	}
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("space toggle · ←/→ change · g generate · esc back"))
}

func (m model) pointer(row int) string {
	if m.field == fieldNone && m.cursor == row {
		return "> "
	}
	return "  "
}

func (m model) viewResults(b *strings.Builder, st wizard.State) {
	if st.ViewMode == wizard.ViewList {
		b.WriteString(render.Plain.List(st))
	} else {
		b.WriteString(render.Plain.Timeline(st))
	}
	b.WriteString("\n")

	if e, err := lo.Nth(st.Itinerary.Activities(), m.cursor); err == nil {
		fmt.Fprintf(b, "\n▸ %d. %s", m.cursor+1, e.Title())
		if st.ReplacingID == e.ID {
			b.WriteString(" 🔄")
		}
		b.WriteString("\n")
	}
	if e, ok := st.Selected(); ok {
		fmt.Fprintf(b, "\n%s\n", render.Plain.Detail(e, st.Prefs.City))
	}

	switch m.field {
	case fieldICSPath:
		fmt.Fprintf(b, "\nSave calendar as\n%s\n", m.input.View())
	case fieldHTMLPath:
		fmt.Fprintf(b, "\nSave page as\n%s\n", m.input.View())
	}
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("↑/↓ pick · enter details · r replace · x remove · m map · e .ics · w .html · t/l view · g regenerate · q quit"))
}
