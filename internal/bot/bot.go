// Package bot implements the Telegram surface: command dispatch and
// free-text question handling over long polling.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/knowledge"
	"github.com/starford/ansuz/internal/match"
	"github.com/starford/ansuz/internal/unanswered"
)

// Sender is the narrow slice of the Telegram client the handlers need.
// *tgbotapi.BotAPI satisfies it; tests substitute a recorder.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Options tunes matching and polling.
type Options struct {
	Threshold   float64
	MaxResults  int
	PollTimeout int
}

// Bot wires the Telegram client to the knowledge core.
type Bot struct {
	api        *tgbotapi.BotAPI
	sender     Sender
	store      *knowledge.Store
	unanswered *unanswered.Log
	opts       Options
	logger     *slog.Logger
}

// New creates a bot for the given token. It validates the token against
// the Telegram API.
func New(token string, store *knowledge.Store, log *unanswered.Log, opts Options, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	if opts.Threshold <= 0 {
		opts.Threshold = match.DefaultThreshold
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = match.DefaultMaxResults
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30
	}
	return &Bot{
		api:        api,
		sender:     api,
		store:      store,
		unanswered: log,
		opts:       opts,
		logger:     logger,
	}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.opts.PollTimeout

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("bot: polling for updates", slog.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("bot: stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Text != "":
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleQuestion(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, welcomeMessage)
	case "help":
		b.reply(msg.Chat.ID, helpMessage)
	case "categories":
		b.handleCategories(ctx, msg)
	case "stats":
		b.handleStats(ctx, msg)
	case "refresh":
		b.handleRefresh(ctx, msg)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleQuestion(ctx context.Context, msg *tgbotapi.Message) {
	question := msg.Text
	user := username(msg)
	b.logger.Info("bot: question received",
		slog.String("user", user),
		slog.String("question", question))

	snap, err := b.store.Snapshot(ctx)
	if err != nil {
		b.logger.Error("bot: snapshot failed", slog.String("error", err.Error()))
		if errors.Is(err, apperr.ErrSourceUnavailable) {
			b.reply(msg.Chat.ID, sourceUnavailableMessage)
		} else {
			b.reply(msg.Chat.ID, internalErrorMessage)
		}
		return
	}
	if snap.Empty() {
		b.reply(msg.Chat.ID, emptyKnowledgeBaseMessage)
		return
	}

	results := match.Match(question, snap, b.opts.Threshold, b.opts.MaxResults)
	if len(results) == 0 {
		b.recordUnanswered(user, question)
		b.reply(msg.Chat.ID, formatNoMatch(question))
		return
	}

	b.reply(msg.Chat.ID, formatAnswer(results[0], len(results)))
	if len(results) > 1 {
		b.reply(msg.Chat.ID, formatAlternatives(results[1:]))
	}
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) {
	categories, err := b.store.Categories(ctx)
	if err != nil {
		b.logger.Error("bot: categories failed", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, sourceUnavailableMessage)
		return
	}
	if len(categories) == 0 {
		b.reply(msg.Chat.ID, "No categories are available right now.")
		return
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, categoriesPrompt)
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = categoryKeyboard(categories)
	b.send(out)
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	stats, err := b.store.Stats(ctx)
	if err != nil {
		b.logger.Error("bot: stats failed", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, sourceUnavailableMessage)
		return
	}
	pending, err := b.unanswered.Count()
	if err != nil {
		b.logger.Warn("bot: unanswered count failed", slog.String("error", err.Error()))
	}
	b.reply(msg.Chat.ID, formatStats(stats, pending))
}

func (b *Bot) handleRefresh(ctx context.Context, msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID, "Refreshing the knowledge base...")
	b.store.Invalidate()
	if _, err := b.store.Snapshot(ctx); err != nil {
		b.logger.Error("bot: refresh failed", slog.String("error", err.Error()))
		b.reply(msg.Chat.ID, "Refresh failed. Please try again later.")
		return
	}
	b.reply(msg.Chat.ID, "Knowledge base refreshed.")
}

// handleCallback serves the category buttons: it replaces the category
// list with the questions of the chosen category.
func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Telegram requires every callback query to be answered.
	if _, err := b.sender.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		b.logger.Warn("bot: callback ack failed", slog.String("error", err.Error()))
	}

	category, ok := categoryFromCallback(query.Data)
	if !ok || query.Message == nil {
		return
	}

	snap, err := b.store.Snapshot(ctx)
	if err != nil {
		b.logger.Error("bot: snapshot failed", slog.String("error", err.Error()))
		return
	}

	var entries []knowledge.Entry
	for _, e := range snap.Entries {
		if strings.EqualFold(e.Category, category) {
			entries = append(entries, e)
		}
	}

	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID,
		formatCategoryQuestions(category, entries))
	edit.ParseMode = tgbotapi.ModeMarkdown
	b.send(edit)
}

func (b *Bot) recordUnanswered(user, question string) {
	if err := b.unanswered.Append(time.Now(), user, question); err != nil {
		b.logger.Warn("bot: unanswered log failed", slog.String("error", err.Error()))
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.send(msg)
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.sender.Send(c); err != nil {
		b.logger.Error("bot: send failed", slog.String("error", err.Error()))
	}
}

func username(msg *tgbotapi.Message) string {
	if msg.From == nil || msg.From.UserName == "" {
		return "unknown"
	}
	return msg.From.UserName
}
