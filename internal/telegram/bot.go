package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/Tomich37/foodplanner/internal/app"
	"github.com/Tomich37/foodplanner/internal/config"
	"github.com/Tomich37/foodplanner/internal/costing"
	"github.com/Tomich37/foodplanner/internal/menu"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wraps the Telegram API around the planner application. Plan state is
// kept per chat in bot_sessions so a reroll only touches the tapped slot.
type Bot struct {
	api      *tgbotapi.BotAPI
	app      *app.App
	sessions *SessionRepository
	cfg      *config.Config
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, application *app.App, sessions *SessionRepository) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	webhookURL := cfg.TelegramWebhookURL
	wh, _ := tgbotapi.NewWebhook(webhookURL)
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:      bot,
		app:      application,
		sessions: sessions,
		cfg:      cfg,
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.CallbackQuery != nil {
		if !b.cfg.AllowsTelegramUser(update.CallbackQuery.From.ID) {
			return
		}
		go b.handleCallbackQuery(update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}

	if !b.cfg.AllowsTelegramUser(update.Message.From.ID) {
		log.Printf("Unauthorized access attempt from UserID: %d (@%s)",
			update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "/start" || text == "/help":
		b.reply(msg.Chat.ID, helpText)
	case strings.HasPrefix(text, "/plan"):
		b.handlePlanRequest(msg)
	case strings.HasPrefix(text, "/save"):
		b.handleSaveRequest(msg)
	case strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://"):
		b.handleImportRequest(msg)
	default:
		b.reply(msg.Chat.ID, "Не понимаю. Наберите /help для списка команд.")
	}
}

const helpText = `🍽 *Планировщик меню*

/plan [дни] — собрать меню на несколько дней
/save [название] — сохранить текущее меню
Пришлите ссылку на рецепт, чтобы импортировать его.`

func (b *Bot) handlePlanRequest(msg *tgbotapi.Message) {
	ctx := context.Background()

	days := b.cfg.PlanDays
	if fields := strings.Fields(msg.Text); len(fields) > 1 {
		if parsed, err := strconv.Atoi(fields[1]); err == nil && parsed > 0 && parsed <= 14 {
			days = parsed
		}
	}

	// A fresh /plan starts over: drop the previous selection.
	session := &Session{ChatID: msg.Chat.ID, Days: days}
	b.buildAndSendPlan(ctx, msg.Chat.ID, 0, session)
}

// buildAndSendPlan resolves the plan for the session, persists the updated
// selection and renders the result. messageID zero means "send new message",
// otherwise the existing one is edited in place.
func (b *Bot) buildAndSendPlan(ctx context.Context, chatID int64, messageID int, session *Session) {
	result, err := b.app.BuildMenu(ctx, app.BuildMenuRequest{
		Days:            session.Days,
		SelectionTokens: session.Selection,
	})
	if err != nil {
		log.Printf("Error building plan for chat %d: %v", chatID, err)
		b.reply(chatID, "❌ Не удалось собрать меню.")
		return
	}
	if len(result.Pool) == 0 {
		b.reply(chatID, "Пока нет ни одного рецепта — сначала пришлите ссылку на рецепт.")
		return
	}

	session.Selection = result.SelectionTokens
	if err := b.sessions.Save(ctx, session); err != nil {
		log.Printf("Warning: failed to save session for chat %d: %v", chatID, err)
	}

	text := formatPlanText(result)
	keyboard := rerollKeyboard(result.Plan)

	if messageID == 0 {
		out := tgbotapi.NewMessage(chatID, text)
		out.ParseMode = "Markdown"
		out.ReplyMarkup = keyboard
		b.api.Send(out)
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = "Markdown"
	edit.ReplyMarkup = &keyboard
	b.api.Send(edit)
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx := context.Background()
	data := query.Data // "reroll|{day}:{meal}"

	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	parts := strings.Split(data, "|")
	if len(parts) != 2 || parts[0] != "reroll" || query.Message == nil {
		return
	}

	session, err := b.sessions.Get(ctx, query.Message.Chat.ID)
	if err != nil || session == nil {
		log.Printf("Reroll without a session in chat %d: %v", query.Message.Chat.ID, err)
		return
	}

	// Dropping the slot's token makes the next build re-roll only that slot.
	slotPrefix := parts[1] + ":"
	kept := session.Selection[:0]
	for _, token := range session.Selection {
		if !strings.HasPrefix(token, slotPrefix) {
			kept = append(kept, token)
		}
	}
	session.Selection = kept

	b.buildAndSendPlan(ctx, query.Message.Chat.ID, query.Message.MessageID, session)
}

func (b *Bot) handleSaveRequest(msg *tgbotapi.Message) {
	ctx := context.Background()

	session, err := b.sessions.Get(ctx, msg.Chat.ID)
	if err != nil || session == nil || len(session.Selection) == 0 {
		b.reply(msg.Chat.ID, "Нечего сохранять — сначала соберите меню командой /plan.")
		return
	}

	title := strings.TrimSpace(strings.TrimPrefix(msg.Text, "/save"))
	if title == "" {
		title = fmt.Sprintf("Меню на %d дн.", session.Days)
	}

	userID, err := b.ensureChatUser(ctx, msg)
	if err != nil {
		log.Printf("Error resolving user for chat %d: %v", msg.Chat.ID, err)
		b.reply(msg.Chat.ID, "❌ Не удалось сохранить меню.")
		return
	}

	saved, err := b.app.SaveMenu(ctx, session.MenuID, userID, title, session.Days, session.Selection)
	if err != nil {
		log.Printf("Error saving menu for chat %d: %v", msg.Chat.ID, err)
		b.reply(msg.Chat.ID, "❌ Не удалось сохранить меню.")
		return
	}

	session.MenuID = saved.ID
	if err := b.sessions.Save(ctx, session); err != nil {
		log.Printf("Warning: failed to save session for chat %d: %v", msg.Chat.ID, err)
	}

	b.reply(msg.Chat.ID, fmt.Sprintf("✅ Меню «%s» сохранено.", title))
}

func (b *Bot) handleImportRequest(msg *tgbotapi.Message) {
	ctx := context.Background()

	statusText := "✂️ *Импортирую рецепт...*"
	replyMsg := tgbotapi.NewMessage(msg.Chat.ID, statusText)
	replyMsg.ParseMode = "Markdown"
	sentMsg, err := b.api.Send(replyMsg)
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	userID, err := b.ensureChatUser(ctx, msg)
	if err != nil {
		log.Printf("Error resolving user for chat %d: %v", msg.Chat.ID, err)
		return
	}

	rec, err := b.app.ImportRecipe(ctx, msg.Text, userID, nil)
	var finalText string
	if err != nil {
		log.Printf("Error importing recipe: %v", err)
		finalText = "❌ Не удалось импортировать рецепт с этой страницы."
	} else {
		finalText = fmt.Sprintf("✅ *Рецепт сохранён!*\n\n*%s*\nИнгредиентов: %d, шагов: %d",
			rec.Title, len(rec.Ingredients), len(rec.Steps))
		// Pick up the new ingredient names for pricing and aggregation.
		if _, err := b.app.SyncCatalog(ctx); err != nil {
			log.Printf("Warning: catalog sync after import failed: %v", err)
		}
	}
	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, sentMsg.MessageID, finalText)
	edit.ParseMode = "Markdown"
	b.api.Send(edit)
}

// ensureChatUser maps a Telegram sender to a local user row.
func (b *Bot) ensureChatUser(ctx context.Context, msg *tgbotapi.Message) (int64, error) {
	email := fmt.Sprintf("tg-%d@telegram.local", msg.From.ID)
	name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	if name == "" {
		name = msg.From.UserName
	}
	return b.app.EnsureUser(ctx, email, name)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message to chat %d: %v", chatID, err)
	}
}

// formatPlanText renders the plan, per-day costs and the shopping list as
// one Markdown message.
func formatPlanText(result *app.BuildMenuResult) string {
	var sb strings.Builder
	sb.WriteString("📅 *Меню*\n\n")

	for _, day := range result.Plan {
		sb.WriteString(fmt.Sprintf("*День %d*\n", day.Day))
		for _, meal := range day.Meals {
			sb.WriteString(fmt.Sprintf("• %s: %s", meal.MealLabel, meal.Recipe.Title))
			if cost, ok := result.RecipeCosts[meal.Recipe.ID]; ok && cost.TotalRub != nil {
				sb.WriteString(fmt.Sprintf(" — %s", costing.FormatRub(cost.TotalRub)))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("🛒 *Список покупок*\n")
	for _, item := range result.ShoppingList {
		sb.WriteString(fmt.Sprintf("• %s — %s\n", item.Name, item.Display))
	}

	sb.WriteString(fmt.Sprintf("\n💰 Итого: %s", costing.FormatRub(result.MenuCost.TotalRub)))
	if !result.MenuCost.IsComplete {
		sb.WriteString(" (не все позиции оценены)")
	}
	return sb.String()
}

// rerollKeyboard builds one button per resolved meal slot.
func rerollKeyboard(plan []menu.PlanDay) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, day := range plan {
		var row []tgbotapi.InlineKeyboardButton
		for _, meal := range day.Meals {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🔄 %d·%s", day.Day, meal.MealLabel),
				fmt.Sprintf("reroll|%d:%s", day.Day, meal.MealKey),
			))
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
