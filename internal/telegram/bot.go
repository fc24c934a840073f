package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"ai-day-planner/internal/config"
	"ai-day-planner/internal/export"
	"ai-day-planner/internal/itinerary"
	"ai-day-planner/internal/metrics"
	"ai-day-planner/internal/render"
	"ai-day-planner/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	parseMode         = tgbotapi.ModeMarkdown
	generationTimeout = 2 * time.Minute
)

// Sender is the part of the Telegram API the bot uses. *tgbotapi.BotAPI
// implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// UsageReporter serves the /metrics command.
type UsageReporter interface {
	GetDailyUsage(days int) ([]metrics.DailyUsage, error)
}

// Bot runs the planning wizard as a Telegram conversation for a single
// allowed user.
type Bot struct {
	api      Sender
	sessions *SessionStore
	usage    UsageReporter
	share    *export.ShareCodec
	cfg      *config.Config
	logger   *slog.Logger

	jobs sync.WaitGroup
}

// Connect authorises against Telegram and registers the webhook.
func Connect(cfg *config.Config) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	slog.Info("Authorized on Telegram", "account", api.Self.UserName)

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	slog.Info("Webhook set", "response", resp.Description)
	return api, nil
}

// NewBot wires the bot. usage and share may be nil.
func NewBot(cfg *config.Config, api Sender, sessions *SessionStore, usage UsageReporter, share *export.ShareCodec, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		api:      api,
		sessions: sessions,
		usage:    usage,
		share:    share,
		cfg:      cfg,
		logger:   logger,
	}
}

// ServeHTTP receives webhook updates.
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Warn("Error parsing update", "error", err)
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	b.HandleUpdate(*update)
	w.WriteHeader(http.StatusOK)
}

// Wait blocks until background model calls have finished.
func (b *Bot) Wait() {
	b.jobs.Wait()
}

func (b *Bot) background(fn func()) {
	b.jobs.Add(1)
	go func() {
		defer b.jobs.Done()
		fn()
	}()
}

func (b *Bot) allowed(user *tgbotapi.User) bool {
	if user == nil || user.ID != b.cfg.TelegramAllowUserID {
		if user != nil {
			b.logger.Warn("Unauthorized access attempt", "user_id", user.ID, "username", user.UserName)
		}
		return false
	}
	return true
}

// HandleUpdate dispatches one update. Model calls run in the background.
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if b.allowed(update.CallbackQuery.From) {
			b.handleCallback(update.CallbackQuery)
		}
	case update.Message != nil:
		if b.allowed(update.Message.From) {
			b.handleMessage(update.Message)
		}
	}
}

func (b *Bot) send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, err := b.api.Send(c)
	if err != nil {
		b.logger.Warn("Failed to send telegram message", "error", err)
	}
	return msg, err
}

func (b *Bot) reply(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseMode
	return b.send(msg)
}

func (b *Bot) edit(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = parseMode
	edit.ReplyMarkup = keyboard
	b.send(edit)
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch text {
	case "/start", "/new":
		b.startSession(chatID)
		return
	case "/metrics":
		b.handleMetricsCommand(chatID)
		return
	}

	cs, ok := b.sessions.Get(chatID)
	if !ok {
		b.startSession(chatID)
		return
	}

	state := cs.wizard.Snapshot()
	if state.NeedsCredential {
		b.handleCredential(chatID, cs, msg)
		return
	}

	switch state.Step {
	case wizard.StepDestination:
		b.handleCity(chatID, cs, text)
	case wizard.StepSchedule:
		b.handleSchedule(chatID, cs, text)
	case wizard.StepPreferences:
		b.sendPreferences(chatID, cs)
	case wizard.StepResults:
		b.reply(chatID, "Use the buttons under your plan, or /new to start over.")
	}
}

func (b *Bot) startSession(chatID int64) {
	cs := b.sessions.Start(chatID)
	if _, err := cs.wizard.Next(); err != nil {
		b.logger.Warn("Failed to start wizard", "error", err)
	}
	b.reply(chatID, "🧭 *AI Day Planner*\n\nWhich city are you visiting?")
}

func (b *Bot) handleCity(chatID int64, cs *chatSession, text string) {
	if err := cs.wizard.SetCity(text); err != nil {
		b.reply(chatID, "⚠️ "+err.Error())
		return
	}
	if _, err := cs.wizard.Next(); err != nil {
		b.reply(chatID, "⚠️ "+err.Error()+". Which city are you visiting?")
		return
	}
	b.reply(chatID, "📅 When? Send a date like `2026-05-02`, optionally with hours: `2026-05-02 10:00-18:00`")
}

var scheduleRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(?:\s+(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2}))?$`)

func (b *Bot) handleSchedule(chatID int64, cs *chatSession, text string) {
	m := scheduleRe.FindStringSubmatch(text)
	if m == nil {
		b.reply(chatID, "⚠️ Please send a date like `2026-05-02` or `2026-05-02 10:00-18:00`.")
		return
	}
	date, err := time.Parse("2006-01-02", m[1])
	if err != nil {
		b.reply(chatID, "⚠️ That date does not exist.")
		return
	}
	if m[2] != "" {
		if err := cs.wizard.SetTimeWindow(m[2], m[3]); err != nil {
			b.reply(chatID, "⚠️ "+err.Error())
			return
		}
	}
	if err := cs.wizard.SetDate(date); err != nil {
		b.reply(chatID, "⚠️ "+err.Error())
		return
	}
	if _, err := cs.wizard.Next(); err != nil {
		b.reply(chatID, "⚠️ "+err.Error())
		return
	}
	b.sendPreferences(chatID, cs)
}

func preferencesText(p itinerary.TripPreferences) string {
	return render.Markdown.Summary(p) + "\n\nPick 2-4 interests and your style, then tap *Generate*."
}

func (b *Bot) sendPreferences(chatID int64, cs *chatSession) {
	prefs := cs.wizard.Snapshot().Prefs
	msg := tgbotapi.NewMessage(chatID, preferencesText(prefs))
	msg.ParseMode = parseMode
	msg.ReplyMarkup = preferencesKeyboard(prefs)
	if sent, err := b.send(msg); err == nil {
		cs.setView(sent.MessageID)
	}
}

// handleCredential stores the key and deletes the message that carried it.
func (b *Bot) handleCredential(chatID int64, cs *chatSession, msg *tgbotapi.Message) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, msg.MessageID)); err != nil {
		b.logger.Warn("Failed to delete credential message", "error", err)
	}
	if err := cs.wizard.SetCredential(msg.Text); err != nil {
		return
	}
	if !cs.wizard.HasCredential() {
		b.reply(chatID, "🔑 That key was empty. Please send your "+b.cfg.CredentialLabel()+".")
		return
	}
	b.reply(chatID, "🔑 Key received (message deleted). It is kept in memory for this session only.")
	b.startGeneration(chatID, cs.view(), cs)
}

func (b *Bot) handleCallback(query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	data := query.Data

	cs, ok := b.sessions.Get(chatID)
	if !ok {
		b.answer(query, "This plan has expired.")
		b.startSession(chatID)
		return
	}
	cs.setView(messageID)

	switch {
	case strings.HasPrefix(data, cbInterest):
		b.updatePreferences(query, cs, cs.wizard.ToggleInterest(strings.TrimPrefix(data, cbInterest)))
	case strings.HasPrefix(data, cbPace):
		pace, err := itinerary.ParsePace(strings.TrimPrefix(data, cbPace))
		if err == nil {
			err = cs.wizard.SetPace(pace)
		}
		b.updatePreferences(query, cs, err)
	case strings.HasPrefix(data, cbBudget):
		budget, err := itinerary.ParseBudget(strings.TrimPrefix(data, cbBudget))
		if err == nil {
			err = cs.wizard.SetBudget(budget)
		}
		b.updatePreferences(query, cs, err)
	case strings.HasPrefix(data, cbWalking):
		walking, err := itinerary.ParseWalking(strings.TrimPrefix(data, cbWalking))
		if err == nil {
			err = cs.wizard.SetWalking(walking)
		}
		b.updatePreferences(query, cs, err)
	case data == cbGenerate:
		b.answer(query, "")
		b.startGeneration(chatID, messageID, cs)
	case data == cbPrev:
		b.answer(query, "")
		if _, err := cs.wizard.Back(); err == nil {
			b.edit(chatID, messageID, "📅 When? Send a date like `2026-05-02`, optionally with hours: `2026-05-02 10:00-18:00`", nil)
		}
	case strings.HasPrefix(data, cbView):
		b.answer(query, "")
		if err := cs.wizard.SetViewMode(wizard.ViewMode(strings.TrimPrefix(data, cbView))); err == nil {
			b.showResults(chatID, messageID, cs, "")
		}
	case strings.HasPrefix(data, cbDetail):
		b.showDetail(query, cs, strings.TrimPrefix(data, cbDetail))
	case data == cbResults:
		b.answer(query, "")
		cs.wizard.Deselect()
		b.showResults(chatID, messageID, cs, "")
	case strings.HasPrefix(data, cbReplace):
		b.replace(query, cs, strings.TrimPrefix(data, cbReplace))
	case data == cbRegenerate:
		b.answer(query, "")
		if err := cs.wizard.Regenerate(); err == nil {
			prefs := cs.wizard.Snapshot().Prefs
			kb := preferencesKeyboard(prefs)
			b.edit(chatID, messageID, preferencesText(prefs), &kb)
		}
	case data == cbICS:
		b.sendCalendar(query, cs)
	case data == cbShare:
		b.sendShareLink(query, cs)
	default:
		b.answer(query, "")
	}
}

func (b *Bot) answer(query *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, text)); err != nil {
		b.logger.Warn("Failed to answer callback", "error", err)
	}
}

func (b *Bot) updatePreferences(query *tgbotapi.CallbackQuery, cs *chatSession, err error) {
	if err != nil {
		b.answer(query, err.Error())
		return
	}
	b.answer(query, "")
	prefs := cs.wizard.Snapshot().Prefs
	kb := preferencesKeyboard(prefs)
	b.edit(query.Message.Chat.ID, query.Message.MessageID, preferencesText(prefs), &kb)
}

// startGeneration shows a progress note in messageID, or in a new message
// when messageID is 0, and generates in the background.
func (b *Bot) startGeneration(chatID int64, messageID int, cs *chatSession) {
	state := cs.wizard.Snapshot()
	if state.Generating {
		b.reply(chatID, "⏳ Still working on your plan...")
		return
	}

	status := fmt.Sprintf("✨ Planning your day in %s...", render.Markdown.Escape(state.Prefs.City))
	if messageID == 0 {
		sent, err := b.reply(chatID, status)
		if err != nil {
			return
		}
		messageID = sent.MessageID
	} else {
		b.edit(chatID, messageID, status, nil)
	}
	cs.setView(messageID)

	b.background(func() {
		ctx, cancel := context.WithTimeout(context.Background(), generationTimeout)
		defer cancel()

		err := cs.wizard.Generate(ctx)
		switch {
		case err == nil:
			b.showResults(chatID, messageID, cs, "")
		case errors.Is(err, wizard.ErrStale), errors.Is(err, wizard.ErrClosed):
			b.logger.Info("Dropped stale generation", "chat_id", chatID)
		case errors.Is(err, itinerary.ErrCredentialMissing):
			b.edit(chatID, messageID, "🔑 I need a "+b.cfg.CredentialLabel()+" to plan your day. Send it as a message; I will delete it right away.", nil)
		case errors.Is(err, wizard.ErrGenerationInFlight), errors.Is(err, wizard.ErrWrongStep):
			b.edit(chatID, messageID, "⚠️ "+err.Error(), nil)
		default:
			after := cs.wizard.Snapshot()
			note := after.GenerationError
			if errors.Is(err, wizard.ErrTooFewInterests) {
				note = "Pick at least 2 interests."
			}
			kb := preferencesKeyboard(after.Prefs)
			b.edit(chatID, messageID, "⚠️ "+render.Markdown.Escape(note)+"\n\n"+preferencesText(after.Prefs), &kb)
		}
	})
}

func (b *Bot) resultsText(state wizard.State) string {
	if state.ViewMode == wizard.ViewList {
		return render.Markdown.List(state)
	}
	return render.Markdown.Timeline(state)
}

func (b *Bot) showResults(chatID int64, messageID int, cs *chatSession, note string) {
	state := cs.wizard.Snapshot()
	if state.Step != wizard.StepResults {
		return
	}
	text := b.resultsText(state)
	if note != "" {
		text = note + "\n\n" + text
	}
	kb := resultsKeyboard(state, b.share != nil)
	b.edit(chatID, messageID, text, &kb)
	cs.setView(messageID)
}

func (b *Bot) showDetail(query *tgbotapi.CallbackQuery, cs *chatSession, id string) {
	e, err := cs.wizard.Select(id)
	if err != nil {
		b.answer(query, "That entry is no longer in your plan.")
		return
	}
	b.answer(query, "")
	city := cs.wizard.Snapshot().Prefs.City
	kb := detailKeyboard(e, city)
	b.edit(query.Message.Chat.ID, query.Message.MessageID, render.Markdown.Detail(e, city), &kb)
}

func (b *Bot) replace(query *tgbotapi.CallbackQuery, cs *chatSession, id string) {
	state := cs.wizard.Snapshot()
	if state.Replacing() {
		b.answer(query, "Already finding an alternative, one moment.")
		return
	}
	e, ok := state.Itinerary.Find(id)
	if !ok {
		b.answer(query, "That entry is no longer in your plan.")
		return
	}
	b.answer(query, "🔄 Looking for an alternative to "+e.Title())

	chatID, messageID := query.Message.Chat.ID, query.Message.MessageID
	b.background(func() {
		ctx, cancel := context.WithTimeout(context.Background(), generationTimeout)
		defer cancel()

		res, err := cs.wizard.ReplaceEntry(ctx, id)
		if err != nil {
			if !errors.Is(err, wizard.ErrStale) && !errors.Is(err, wizard.ErrClosed) {
				b.logger.Warn("Replace request rejected", "error", err)
			}
			return
		}

		note := fmt.Sprintf("✅ Replaced %s with %s", e.Title(), res.Entry.Title())
		if res.Outcome == wizard.OutcomeRemoved {
			note = fmt.Sprintf("🗑 No alternative found, removed %s", e.Title())
		}
		cs.wizard.Deselect()
		b.showResults(chatID, messageID, cs, render.Markdown.Escape(note))
	})
}

func (b *Bot) sendCalendar(query *tgbotapi.CallbackQuery, cs *chatSession) {
	state := cs.wizard.Snapshot()
	cal, err := export.ICS(state.Prefs, state.Itinerary)
	if err != nil {
		b.answer(query, err.Error())
		return
	}
	b.answer(query, "")

	doc := tgbotapi.NewDocument(query.Message.Chat.ID, tgbotapi.FileBytes{
		Name:  export.CalendarFilename(state.Prefs.City),
		Bytes: []byte(cal),
	})
	doc.Caption = "📅 Import into your calendar"
	b.send(doc)
}

func (b *Bot) sendShareLink(query *tgbotapi.CallbackQuery, cs *chatSession) {
	if b.share == nil {
		b.answer(query, export.ErrSharingDisabled.Error())
		return
	}
	state := cs.wizard.Snapshot()
	token, err := b.share.Encode(state.Prefs, state.Itinerary)
	if err != nil {
		b.logger.Error("Failed to create share link", "error", err)
		b.answer(query, "Could not create a share link.")
		return
	}
	b.answer(query, "")

	link := strings.TrimRight(b.cfg.PublicBaseURL, "/") + "/share/" + token
	msg := tgbotapi.NewMessage(query.Message.Chat.ID, "🔗 Share your day (valid for "+b.cfg.ShareTTL.String()+"):\n"+link)
	msg.DisableWebPagePreview = true
	b.send(msg)
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	if b.usage == nil {
		b.reply(chatID, "Metrics are not enabled.")
		return
	}
	usage, err := b.usage.GetDailyUsage(7)
	if err != nil {
		b.logger.Error("Failed to fetch metrics", "error", err)
		b.reply(chatID, "❌ Error fetching metrics.")
		return
	}

	health := metrics.GetSysHealth(filepath.Dir(b.cfg.DatabasePath))

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent model activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d calls, %d failed)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution, d.Failed)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Disk Data: %s\n", health.DataDiskSize)
	fmt.Fprintf(&sb, "• Uptime: %s\n", health.Uptime)

	b.reply(chatID, sb.String())
}
