package telegram

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"madipath/internal/view"
)

const (
	cbSyncEngine = "sync_engine"
	maxMessage   = 3900
)

// makeSyncKeyboard offers key selection when the engine is disconnected.
func makeSyncKeyboard() tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData("Sync engine", cbSyncEngine)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}

// makeCareKeyboard always offers the nearby search and adds the doctor link
// only when the report advises it.
func makeCareKeyboard(rep view.Report) tgbotapi.InlineKeyboardMarkup {
	row := tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("Find nearby hospital", rep.NearbyURL))
	if rep.ShowDoctorCTA {
		row = append(row, tgbotapi.NewInlineKeyboardButtonURL("Go to doctor", rep.DoctorURL))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func makeLocationKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonLocation("Share location")))
	kb.OneTimeKeyboard = true
	kb.ResizeKeyboard = true
	return kb
}

var riskIcon = map[string]string{
	"risk-high":   "🔴",
	"risk-medium": "🟠",
	"risk-low":    "🟢",
}

// formatReport renders a report as Telegram HTML.
func formatReport(rep view.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n", riskIcon[rep.RiskClass], esc(rep.RiskLabel))
	if rep.Fallback {
		b.WriteString("<i>The triage engine was unavailable. This is a standard safety assessment.</i>\n")
	}
	b.WriteString("\n" + esc(rep.Analysis.Explanation) + "\n")

	section(&b, "Next steps", rep.Analysis.NextSteps)
	section(&b, "Warning signs", rep.Analysis.WarningSigns)
	section(&b, "Over-the-counter options", rep.Analysis.SuggestedOTCMedicines)
	section(&b, "Reference codes", rep.Analysis.MedicalCodes)

	if len(rep.Analysis.Sources) > 0 {
		b.WriteString("\n<b>Sources</b>\n")
		for _, s := range rep.Analysis.Sources {
			fmt.Fprintf(&b, "• <a href=\"%s\">%s</a>\n", esc(s.URI), esc(s.Title))
		}
	}
	out := b.String()
	if len(out) > maxMessage {
		out = truncate(out, maxMessage)
	}
	return out
}

func section(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n<b>%s</b>\n", title)
	for _, it := range items {
		b.WriteString("• " + esc(it) + "\n")
	}
}

// truncate cuts s to at most n bytes on a line boundary so no HTML tag is
// left open.
func truncate(s string, n int) string {
	cut := s[:n]
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i]
	}
	return cut + "\n…"
}

func esc(s string) string {
	return html.EscapeString(s)
}
