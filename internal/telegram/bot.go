package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"weekly-meal-planner/internal/app"
	"weekly-meal-planner/internal/config"
	"weekly-meal-planner/internal/metrics"
	"weekly-meal-planner/internal/planner"
	"weekly-meal-planner/internal/session"
	"weekly-meal-planner/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	regenPrefix = "regen|"
	showPrefix  = "show|"
)

const displayFailedText = "❌ Could not display the plan. Please try /plan again."

const helpText = `🧑‍🍳 *Weekly Meal Planner*

/diet gluten-free, high-protein: set dietary requirements
/days mon wed:full fri: choose days (add :full for a longer cook)
/plan: generate the meal plan
/pantry olive oil, salt: set what you already have
/shop: build the shopping list
/metrics: token usage report`

// sender is the part of the Telegram API the bot uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot answers Telegram webhook updates using the planner App. Each chat
// has its own session.
type Bot struct {
	api     sender
	app     *app.App
	usage   *metrics.Store
	allowed map[int64]bool
	logger  *zap.Logger
	// sync makes ServeHTTP handle updates before returning.
	sync bool
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, a *app.App, usage *metrics.Store, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("telegram bot authorized", zap.String("account", api.Self.UserName))

	if cfg.TelegramWebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook url: %w", err)
		}
		resp, err := api.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
		}
		logger.Info("telegram webhook set", zap.String("description", resp.Description))
	}

	return newBot(api, a, usage, cfg.TelegramAllowedUserIDs, logger), nil
}

func newBot(api sender, a *app.App, usage *metrics.Store, allowedIDs []int64, logger *zap.Logger) *Bot {
	allowed := make(map[int64]bool, len(allowedIDs))
	for _, id := range allowedIDs {
		allowed[id] = true
	}
	if len(allowed) == 0 {
		logger.Warn("no telegram users allowed; every update will be ignored")
	}
	return &Bot{api: api, app: a, usage: usage, allowed: allowed, logger: logger}
}

// ServeHTTP receives webhook updates.
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.logger.Warn("error parsing update", zap.Error(err))
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	if b.sync {
		b.handleUpdate(r.Context(), update)
		return
	}
	// Telegram retries updates that are not acknowledged quickly.
	go b.handleUpdate(context.Background(), update)
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if q := update.CallbackQuery; q != nil {
		if q.From == nil || !b.isAllowed(q.From) || q.Message == nil {
			return
		}
		b.handleCallbackQuery(ctx, q)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil || !b.isAllowed(msg.From) {
		return
	}
	b.handleMessage(ctx, msg)
}

func (b *Bot) isAllowed(u *tgbotapi.User) bool {
	if b.allowed[u.ID] {
		return true
	}
	b.logger.Warn("unauthorized telegram access attempt", zap.Int64("user_id", u.ID), zap.String("username", u.UserName))
	return false
}

func sessionID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	id := sessionID(chatID)
	cmd, args := parseCommand(msg.Text)

	switch cmd {
	case "diet":
		b.handleDiet(ctx, chatID, id, args)
	case "days":
		b.handleDays(ctx, chatID, id, args)
	case "plan":
		b.handlePlan(ctx, chatID, id)
	case "pantry":
		b.handlePantry(ctx, chatID, id, args)
	case "shop":
		b.handleShop(ctx, chatID, id)
	case "metrics":
		b.handleMetrics(ctx, chatID)
	default:
		b.send(tgbotapi.NewMessage(chatID, helpText))
	}
}

func (b *Bot) handleDiet(ctx context.Context, chatID int64, id, args string) {
	state, err := b.app.State(ctx, id)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	if args != "" {
		form := state.Preferences.Form()
		form.Dietary = args
		if state, err = b.app.SavePreferences(ctx, id, form); err != nil {
			b.sendError(chatID, err)
			return
		}
	}
	b.send(tgbotapi.NewMessage(chatID, "🥗 *Dietary requirements:* "+escape(dietaryText(state.Preferences))))
}

func (b *Bot) handleDays(ctx context.Context, chatID int64, id, args string) {
	state, err := b.app.State(ctx, id)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	if args != "" {
		form := state.Preferences.Form()
		form.Days, form.Styles = parseDays(args)
		if state, err = b.app.SavePreferences(ctx, id, form); err != nil {
			b.sendError(chatID, err)
			return
		}
	}
	b.send(tgbotapi.NewMessage(chatID, formatDays(state.Preferences)))
}

func (b *Bot) handlePlan(ctx context.Context, chatID int64, id string) {
	state, err := b.app.State(ctx, id)
	if err != nil {
		b.sendError(chatID, err)
		return
	}

	sent, err := b.api.Send(markdown(tgbotapi.NewMessage(chatID, "🧑‍🍳 *Thinking...*\n(Generating your meal plan)")))
	if err != nil {
		b.logger.Error("failed to send initial reply", zap.Error(err))
		return
	}

	state, err = b.app.GeneratePlan(ctx, id, state.Preferences.Form())
	if err != nil {
		b.send(tgbotapi.NewEditMessageText(chatID, sent.MessageID, errorText(err)))
		return
	}
	b.showPlan(chatID, sent.MessageID, state)
}

// showPlan replaces the placeholder message with the plan summary, or
// with an error if Telegram rejects it.
func (b *Bot) showPlan(chatID int64, messageID int, state *session.State) {
	err := b.trySend(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, formatPlan(state), planKeyboard(state.Plan)))
	if err != nil {
		b.logger.Warn("failed to display plan", zap.Error(err))
		b.send(tgbotapi.NewEditMessageText(chatID, messageID, displayFailedText))
	}
}

func (b *Bot) handlePantry(ctx context.Context, chatID int64, id, args string) {
	var state *session.State
	var err error
	if args == "" {
		state, err = b.app.State(ctx, id)
	} else {
		state, err = b.app.UpdatePantry(ctx, id, args)
	}
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.send(tgbotapi.NewMessage(chatID, formatPantry(state.Pantry)))
}

func (b *Bot) handleShop(ctx context.Context, chatID int64, id string) {
	state, err := b.app.DeriveShoppingList(ctx, id)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	b.send(tgbotapi.NewMessage(chatID, "🛒 *Shopping List*\n\n"+escape(shopping.Render(state.ShoppingList))))
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Answer callback to remove the spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", zap.Error(err))
	}

	action, dayName, ok := strings.Cut(query.Data, "|")
	if !ok {
		return
	}
	day, err := planner.ParseWeekday(dayName)
	if err != nil {
		return
	}

	chatID := query.Message.Chat.ID
	id := sessionID(chatID)

	switch action + "|" {
	case showPrefix:
		b.handleShowDay(ctx, chatID, id, day)
	case regenPrefix:
		b.handleRegenerate(ctx, chatID, query.Message.MessageID, id, day)
	}
}

func (b *Bot) handleShowDay(ctx context.Context, chatID int64, id string, day planner.Weekday) {
	state, err := b.app.State(ctx, id)
	if err != nil {
		b.sendError(chatID, err)
		return
	}
	text, ok := formatDay(state, day)
	if !ok {
		b.send(tgbotapi.NewMessage(chatID, escape(fmt.Sprintf("%s is not in the current plan.", day))))
		return
	}
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) handleRegenerate(ctx context.Context, chatID int64, messageID int, id string, day planner.Weekday) {
	b.send(tgbotapi.NewEditMessageText(chatID, messageID, fmt.Sprintf("🧑‍🍳 *Thinking...*\n(New meal for %s)", day)))

	state, err := b.app.RegenerateDay(ctx, id, day)
	if err != nil {
		b.sendError(chatID, err)
		// Put the unchanged plan back.
		if state, err = b.app.State(ctx, id); err != nil || state.Plan == nil {
			return
		}
	}
	b.showPlan(chatID, messageID, state)
}

func (b *Bot) handleMetrics(ctx context.Context, chatID int64) {
	if b.usage == nil {
		b.send(tgbotapi.NewMessage(chatID, "📊 Usage tracking is disabled."))
		return
	}
	usage, err := b.usage.GetDailyUsage(ctx, 7)
	if err != nil {
		b.logger.Error("failed to load usage", zap.Error(err))
		b.send(tgbotapi.NewMessage(chatID, "❌ Error fetching metrics."))
		return
	}
	b.send(tgbotapi.NewMessage(chatID, formatUsage(usage, metrics.GetSysHealth(""))))
}

func (b *Bot) sendError(chatID int64, err error) {
	b.send(tgbotapi.NewMessage(chatID, errorText(err)))
}

// send delivers a message, using Markdown for text messages and edits.
func (b *Bot) send(c tgbotapi.Chattable) {
	if err := b.trySend(c); err != nil {
		b.logger.Warn("failed to send telegram message", zap.Error(err))
	}
}

func (b *Bot) trySend(c tgbotapi.Chattable) error {
	_, err := b.api.Send(markdown(c))
	return err
}

func markdown(c tgbotapi.Chattable) tgbotapi.Chattable {
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		m.ParseMode = tgbotapi.ModeMarkdown
		return m
	case tgbotapi.EditMessageTextConfig:
		m.ParseMode = tgbotapi.ModeMarkdown
		return m
	}
	return c
}
