package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"virtual-number-bot/internal/config"
	"virtual-number-bot/internal/model"
	"virtual-number-bot/internal/repository"
	"virtual-number-bot/internal/service"
)

const (
	cbGetNumber = "get_number"
	cbMyStatus  = "my_status"

	defaultAppName = "Telegram Bot"
)

// Bot aggregates the Telegram API with the allocation and admin
// services. It parses commands, renders replies and nothing else; all
// policy lives in the services.
type Bot struct {
	api      *tgbotapi.BotAPI
	allocSvc *service.AllocationService
	adminSvc *service.AdminService
	config   *config.Config
}

func New(token string, allocSvc *service.AllocationService, adminSvc *service.AdminService, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:      api,
		allocSvc: allocSvc,
		adminSvc: adminSvc,
		config:   cfg,
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		// Requests are short-lived; a bounded timeout keeps a wedged
		// store from stalling the polling loop.
		updateCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(updateCtx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat != nil && update.Message.Chat.IsPrivate() {
				if err := b.handleMessage(updateCtx, update.Message); err != nil {
					log.Printf("handle message: %v", err)
				}
			}
		}
		cancel()
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "I only speak commands. Try /number for a fresh number or /help for the full list.")
	}

	log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return b.handleStart(ctx, msg)
	case "number":
		return b.handleNumber(ctx, msg.Chat.ID, msg.From)
	case "mynumbers":
		return b.handleMyNumbers(ctx, msg.Chat.ID, msg.From)
	case "mystatus":
		return b.handleMyStatus(ctx, msg.Chat.ID, msg.From)
	case "contact":
		return b.handleContact(msg.Chat.ID)
	case "setlimit":
		return b.handleSetLimit(ctx, msg)
	case "addextra":
		return b.handleAddExtra(ctx, msg)
	case "resetlimit":
		return b.handleResetLimit(ctx, msg)
	case "stats":
		return b.handleStats(ctx, msg)
	case "finduser":
		return b.handleFindUser(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil {
		return nil
	}

	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Request(callback); err != nil {
		log.Printf("ack callback: %v", err)
	}

	switch cb.Data {
	case cbGetNumber:
		return b.handleNumber(ctx, cb.Message.Chat.ID, cb.From)
	case cbMyStatus:
		return b.handleMyStatus(ctx, cb.Message.Chat.ID, cb.From)
	default:
		return nil
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(user.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I hand out virtual Indian numbers with verification codes.</b>\n\nCommands:\n"+
			"• /number — get a fresh number + code\n"+
			"• /mynumbers — your recent numbers\n"+
			"• /mystatus — how many you have left\n"+
			"• /contact — reach the admin for more\n"+
			"• /help — this message\n\n"+
			"Every user starts with %d numbers. Numbers stay valid for %d hours.",
		escape(name), b.config.DefaultLimit, int(b.config.Validity.Hours()),
	)

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📱 Get number", cbGetNumber),
			tgbotapi.NewInlineKeyboardButtonData("📊 My status", cbMyStatus),
		),
	)

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = markup
	_, err = b.api.Send(reply)
	return err
}

func (b *Bot) handleNumber(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	if _, err := b.ensureUser(ctx, from); err != nil {
		return err
	}

	allocation, err := b.allocSvc.Request(ctx, from.ID, defaultAppName)
	switch {
	case errors.Is(err, service.ErrQuotaExceeded):
		return b.sendQuotaExceeded(ctx, chatID, from.ID)
	case errors.Is(err, service.ErrAllocationExhausted):
		return b.sendText(chatID, "😔 Could not produce a fresh number right now. Please try again later.")
	case err != nil:
		log.Printf("request allocation for %d: %v", from.ID, err)
		return b.sendText(chatID, "⚠️ Something went wrong, please try again.")
	}

	status, err := b.allocSvc.Status(ctx, from.ID)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(
		"✅ <b>Number generated!</b>\n\n"+
			"📱 <b>Indian number:</b>\n<code>%s</code>\n\n"+
			"🔐 <b>Verification code:</b>\n<code>%s</code>\n\n"+
			"⏰ <b>Valid until:</b> %s\n\n"+
			"📊 <b>Your status:</b>\n• used: %d/%d\n• remaining: %d",
		escape(allocation.PhoneNumber), escape(allocation.Code),
		allocation.ExpiresAt.Format("2006-01-02 15:04"),
		status.Used, status.TotalAllowed, status.Remaining,
	)
	return b.sendText(chatID, text)
}

func (b *Bot) sendQuotaExceeded(ctx context.Context, chatID, userID int64) error {
	status, err := b.allocSvc.Status(ctx, userID)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(
		"❌ <b>Your limit is used up!</b>\n\n"+
			"📊 <b>Your status:</b>\n• used: %d/%d\n• remaining: %d\n\n"+
			"Contact the admin if you need more numbers.",
		status.Used, status.TotalAllowed, status.Remaining,
	)

	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	if b.config.AdminUsername != "" {
		reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("📞 Contact admin", "https://t.me/"+b.config.AdminUsername),
			),
		)
	}
	_, err = b.api.Send(reply)
	return err
}

func (b *Bot) handleMyNumbers(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	if _, err := b.ensureUser(ctx, from); err != nil {
		return err
	}

	allocations, err := b.allocSvc.History(ctx, from.ID, b.config.HistoryPage)
	if err != nil {
		log.Printf("history for %d: %v", from.ID, err)
		return b.sendText(chatID, "⚠️ Could not load your history, please try again.")
	}
	if len(allocations) == 0 {
		return b.sendText(chatID, "📭 You have not received any numbers yet. Try /number.")
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Your numbers</b>\n\n")
	for idx, allocation := range allocations {
		builder.WriteString(fmt.Sprintf("<b>#%d</b>\n", idx+1))
		builder.WriteString(fmt.Sprintf("📱 <code>%s</code>\n", escape(allocation.PhoneNumber)))
		builder.WriteString(fmt.Sprintf("🔐 <code>%s</code>\n", escape(allocation.Code)))
		builder.WriteString(fmt.Sprintf("📅 %s · %s\n\n", allocation.CreatedAt.Format("2006-01-02"), escape(allocation.AppName)))
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleMyStatus(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	if _, err := b.ensureUser(ctx, from); err != nil {
		return err
	}

	status, err := b.allocSvc.Status(ctx, from.ID)
	if err != nil {
		log.Printf("status for %d: %v", from.ID, err)
		return b.sendText(chatID, "⚠️ Could not load your status, please try again.")
	}

	next := "you can request a number with /number"
	if !status.CanAllocate() {
		next = "limit reached — /contact the admin for more"
	}

	text := fmt.Sprintf(
		"📊 <b>Your status</b>\n"+
			"• used: %d/%d\n"+
			"• remaining: %d\n"+
			"• last reset: %s\n\n%s",
		status.Used, status.TotalAllowed, status.Remaining,
		status.LastReset.Format("2006-01-02 15:04"), next,
	)
	return b.sendText(chatID, text)
}

func (b *Bot) handleContact(chatID int64) error {
	if b.config.AdminUsername == "" {
		return b.sendText(chatID, "The admin has not set up a contact yet.")
	}
	text := fmt.Sprintf("📞 <b>Contact the admin</b>\n\nFor more numbers or any issue write to @%s directly.", escape(b.config.AdminUsername))
	return b.sendText(chatID, text)
}

func (b *Bot) handleSetLimit(ctx context.Context, msg *tgbotapi.Message) error {
	targetID, amount, err := parseTargetAndAmount(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /setlimit <user id> <new limit>")
	}

	err = b.adminSvc.SetMaxLimit(ctx, msg.From.ID, targetID, amount)
	if reply, handled := b.adminErrorReply(err); handled {
		return b.sendText(msg.Chat.ID, reply)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Limit for user %d set to %d.", targetID, amount))
}

func (b *Bot) handleAddExtra(ctx context.Context, msg *tgbotapi.Message) error {
	targetID, amount, err := parseTargetAndAmount(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /addextra <user id> <amount>")
	}

	err = b.adminSvc.GrantExtra(ctx, msg.From.ID, targetID, amount)
	if errors.Is(err, service.ErrInvalidGrant) {
		return b.sendText(msg.Chat.ID, "❌ That grant would make the user's bonus negative.")
	}
	if reply, handled := b.adminErrorReply(err); handled {
		return b.sendText(msg.Chat.ID, reply)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Granted %d extra numbers to user %d.", amount, targetID))
}

func (b *Bot) handleResetLimit(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	targetID, err := strconv.ParseInt(args, 10, 64)
	if err != nil || targetID <= 0 {
		return b.sendText(msg.Chat.ID, "Usage: /resetlimit <user id>")
	}

	err = b.adminSvc.Reset(ctx, msg.From.ID, targetID)
	if reply, handled := b.adminErrorReply(err); handled {
		return b.sendText(msg.Chat.ID, reply)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Usage counter for user %d reset.", targetID))
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) error {
	stats, err := b.adminSvc.UsageStats(ctx, msg.From.ID)
	if reply, handled := b.adminErrorReply(err); handled {
		return b.sendText(msg.Chat.ID, reply)
	}

	var builder strings.Builder
	builder.WriteString("📈 <b>Bot statistics</b>\n")
	builder.WriteString(fmt.Sprintf("• users: %d (active today: %d)\n", stats.TotalUsers, stats.ActiveToday))
	builder.WriteString(fmt.Sprintf("• numbers issued: %d (today: %d)\n", stats.TotalNumbers, stats.NumbersToday))
	if len(stats.TopUsers) > 0 {
		builder.WriteString("\n🏆 <b>Top users</b>\n")
		for _, quota := range stats.TopUsers {
			builder.WriteString(fmt.Sprintf("• %d — %d used\n", quota.UserID, quota.Used))
		}
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleFindUser(ctx context.Context, msg *tgbotapi.Message) error {
	term := strings.TrimSpace(msg.CommandArguments())
	if term == "" {
		return b.sendText(msg.Chat.ID, "Usage: /finduser <user id or username>")
	}

	id, _ := strconv.ParseInt(term, 10, 64)
	users, err := b.adminSvc.FindUsers(ctx, msg.From.ID, term, id)
	if reply, handled := b.adminErrorReply(err); handled {
		return b.sendText(msg.Chat.ID, reply)
	}
	if len(users) == 0 {
		return b.sendText(msg.Chat.ID, "No users matched.")
	}

	var builder strings.Builder
	builder.WriteString("🔍 <b>Matches</b>\n")
	for _, user := range users {
		username := user.Username
		if username == "" {
			username = "—"
		}
		builder.WriteString(fmt.Sprintf("• %d @%s %s (joined %s)\n",
			user.ID, escape(username),
			escape(strings.TrimSpace(user.FirstName+" "+user.LastName)),
			user.JoinedAt.Format("2006-01-02")))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

// adminErrorReply maps admin service failures to user-facing strings.
// The second return is false when there was no error at all.
func (b *Bot) adminErrorReply(err error) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, service.ErrNotAuthorized):
		return "🚫 This command is for admins.", true
	default:
		log.Printf("admin operation: %v", err)
		return "⚠️ Something went wrong, please try again.", true
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.allocSvc.Register(ctx, from.ID, profileFromUser(from))
}

// profileFromUser maps the transport's user object onto the store's
// profile. This library version predates the premium flag, so it is
// left at its false default.
func profileFromUser(from *tgbotapi.User) repository.Profile {
	return repository.Profile{
		Username:     from.UserName,
		FirstName:    from.FirstName,
		LastName:     from.LastName,
		LanguageCode: from.LanguageCode,
		IsBot:        from.IsBot,
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func escape(s string) string {
	return html.EscapeString(s)
}

// parseTargetAndAmount parses "<user id> <integer>" command arguments.
func parseTargetAndAmount(args string) (int64, int, error) {
	fields := strings.Fields(strings.TrimSpace(args))
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected two arguments")
	}
	targetID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || targetID <= 0 {
		return 0, 0, fmt.Errorf("bad user id %q", fields[0])
	}
	amount, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad amount %q", fields[1])
	}
	return targetID, amount, nil
}
