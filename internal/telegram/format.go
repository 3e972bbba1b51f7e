package telegram

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"weekly-meal-planner/internal/metrics"
	"weekly-meal-planner/internal/planner"
	"weekly-meal-planner/internal/session"
	"weekly-meal-planner/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

// parseCommand splits "/cmd@bot args" into the lower-case command and
// its trimmed arguments. Plain text yields an empty command.
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd, args, _ := strings.Cut(text[1:], " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	return strings.ToLower(cmd), strings.TrimSpace(args)
}

// parseDays reads "mon wed:full, fri" into form days and styles.
// Validation is left to the preference collector.
func parseDays(args string) ([]string, map[string]string) {
	var days []string
	styles := make(map[string]string)
	for _, field := range strings.FieldsFunc(args, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' }) {
		name, style, _ := strings.Cut(field, ":")
		days = append(days, name)
		if style != "" {
			styles[name] = style
		}
	}
	return days, styles
}

func dietaryText(p planner.Preferences) string {
	if len(p.Tags) == 0 {
		return "none"
	}
	return p.DietaryText()
}

func formatDays(p planner.Preferences) string {
	var sb strings.Builder
	sb.WriteString("🗓 *Days to plan*\n")
	for _, day := range p.Days {
		sb.WriteString(fmt.Sprintf("• %s: %s\n", day, escape(p.StyleFor(day).Label())))
	}
	return sb.String()
}

func formatPantry(items []string) string {
	if len(items) == 0 {
		return "🥫 *Pantry* is empty."
	}
	var sb strings.Builder
	sb.WriteString("🥫 *Pantry*\n")
	for _, item := range items {
		sb.WriteString("• " + escape(item) + "\n")
	}
	return sb.String()
}

// maxMessageLen is Telegram's limit for a message text, in UTF-16 code units.
const maxMessageLen = 4096

const maxNameLen = 120

// textLen counts s the way Telegram does.
func textLen(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// clip shortens s to at most limit UTF-16 units, marking the cut with an ellipsis.
func clip(s string, limit int) string {
	if textLen(s) <= limit {
		return s
	}
	n := 0
	for i, r := range s {
		w := utf16.RuneLen(r)
		if n+w > limit-1 {
			return s[:i] + "…"
		}
		n += w
	}
	return s
}

// escapeWithin escapes raw and clips it so the escaped text fits in limit.
func escapeWithin(raw string, limit int) string {
	for n := limit; n > 0; {
		e := escape(clip(raw, n))
		over := textLen(e) - limit
		if over <= 0 {
			return e
		}
		n -= over
	}
	return ""
}

// formatPlan is the compact plan summary: day, meal name and cook style.
// Recipes are sent per day on demand by formatDay.
func formatPlan(state *session.State) string {
	var sb strings.Builder
	sb.WriteString("📅 *Weekly Meal Plan*\n")
	sb.WriteString("_" + escapeWithin(dietaryText(state.Preferences), 300) + "_\n")
	if state.Plan == nil {
		return sb.String()
	}

	for _, dp := range state.Plan.Days {
		sb.WriteString(fmt.Sprintf("\n*%s*: %s\n", dp.Day, escapeWithin(dp.Meal.Name, maxNameLen)))
		sb.WriteString(escape(state.Preferences.StyleFor(dp.Day).Label()) + "\n")
	}
	sb.WriteString("\n📖 shows a recipe, 🔄 asks for a new meal.")
	return sb.String()
}

// formatDay renders the full recipe of one planned day within one message.
func formatDay(state *session.State, day planner.Weekday) (string, bool) {
	meal, ok := state.Plan.Meal(day)
	if !ok {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%s*: %s\n", day, escapeWithin(meal.Name, maxNameLen)))
	sb.WriteString(escape(state.Preferences.StyleFor(day).Label()) + "\n\n")
	sb.WriteString("*Ingredients*\n")
	// Keep room for at least a short excerpt of the instructions.
	ingredientBudget := maxMessageLen - 500
	for _, ing := range meal.Ingredients {
		amount := shopping.FormatAmount(shopping.Amount{Quantity: ing.Quantity, Unit: ing.Unit})
		line := "• " + escapeWithin(amount+" "+ing.Item, maxNameLen) + "\n"
		if textLen(sb.String())+textLen(line) > ingredientBudget {
			sb.WriteString("• …\n")
			break
		}
		sb.WriteString(line)
	}
	if meal.Instructions != "" {
		sb.WriteString("\n")
		sb.WriteString(escapeWithin(meal.Instructions, maxMessageLen-textLen(sb.String())))
	}
	return sb.String(), true
}

// planKeyboard has one row per planned day: show the recipe, regenerate.
func planKeyboard(plan *planner.MealPlan) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, day := range plan.PlannedDays() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📖 "+day.String(), showPrefix+day.String()),
			tgbotapi.NewInlineKeyboardButtonData("🔄 "+day.String(), regenPrefix+day.String()),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func errorText(err error) string {
	return "❌ " + escape(planner.UserMessage(err))
}

func formatUsage(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	return sb.String()
}
