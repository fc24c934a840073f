package telegram

import (
	"fmt"

	"ai-day-planner/internal/itinerary"
	"ai-day-planner/internal/render"
	"ai-day-planner/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
)

// Callback data prefixes. Telegram caps callback data at 64 bytes.
const (
	cbInterest   = "i|"
	cbPace       = "p|"
	cbBudget     = "b|"
	cbWalking    = "w|"
	cbView       = "v|"
	cbDetail     = "d|"
	cbReplace    = "r|"
	cbGenerate   = "gen"
	cbPrev       = "prev"
	cbResults    = "results"
	cbRegenerate = "regen"
	cbICS        = "ics"
	cbShare      = "share"
)

func check(selected bool, label string) string {
	if selected {
		return "✅ " + label
	}
	return label
}

func preferencesKeyboard(p itinerary.TripPreferences) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for _, pair := range lo.Chunk(itinerary.Interests, 2) {
		row := lo.Map(pair, func(in itinerary.Interest, _ int) tgbotapi.InlineKeyboardButton {
			return tgbotapi.NewInlineKeyboardButtonData(check(lo.Contains(p.Interests, in.ID), in.Label), cbInterest+in.ID)
		})
		rows = append(rows, row)
	}

	rows = append(rows, lo.Map(itinerary.Paces, func(v itinerary.Pace, _ int) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(check(p.Pace == v, render.Label(string(v))), cbPace+string(v))
	}))
	rows = append(rows, lo.Map(itinerary.Budgets, func(v itinerary.Budget, _ int) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(check(p.Budget == v, render.Label(string(v))), cbBudget+string(v))
	}))
	rows = append(rows, lo.Map(itinerary.Walkings, func(v itinerary.Walking, _ int) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(check(p.Walking == v, "🚶 "+render.Label(string(v))), cbWalking+string(v))
	}))

	generate := "✨ Generate"
	if len(p.Interests) < wizard.MinInterests {
		generate = fmt.Sprintf("✨ Generate (pick %d+)", wizard.MinInterests)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbPrev),
		tgbotapi.NewInlineKeyboardButtonData(generate, cbGenerate),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func resultsKeyboard(state wizard.State, sharing bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for i, e := range state.Itinerary.Activities() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d. %s %s", i+1, render.Icon(e.Kind()), e.Title()), cbDetail+e.ID),
			tgbotapi.NewInlineKeyboardButtonData("🔄", cbReplace+e.ID),
		))
	}

	toggle := tgbotapi.NewInlineKeyboardButtonData("📋 List view", cbView+string(wizard.ViewList))
	if state.ViewMode == wizard.ViewList {
		toggle = tgbotapi.NewInlineKeyboardButtonData("🕒 Timeline view", cbView+string(wizard.ViewTimeline))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		toggle,
		tgbotapi.NewInlineKeyboardButtonData("🔁 New plan", cbRegenerate),
	))

	export := tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📅 Calendar", cbICS))
	if sharing {
		export = append(export, tgbotapi.NewInlineKeyboardButtonData("🔗 Share", cbShare))
	}
	rows = append(rows, export)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func detailKeyboard(e itinerary.Entry, city string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🗺 Map", itinerary.MapURL(e.Name, city)),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Replace", cbReplace+e.ID),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back to plan", cbResults),
		),
	)
}
