// Package telegram serves the chatbot over the Telegram Bot API using long
// polling.
package telegram

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jwalitptl/medbot/internal/model"
	"github.com/jwalitptl/medbot/internal/repository"
	"github.com/jwalitptl/medbot/internal/service/chat"
	"github.com/jwalitptl/medbot/internal/service/composer"
	"github.com/jwalitptl/medbot/pkg/logger"
)

// maxMessageRunes is Telegram's limit for one text message.
const maxMessageRunes = 4096

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Responder interface {
	Respond(ctx context.Context, message, userID string) chat.Reply
}

type Config struct {
	// PollTimeout is the long-poll timeout in seconds.
	PollTimeout  int
	Workers      int
	ReplyTimeout time.Duration
}

type Bot struct {
	api     API
	service Responder
	history repository.HistoryRepository
	cfg     Config
	log     *logger.Logger
}

// NewAPI connects to Telegram with token.
func NewAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return api, nil
}

// New builds a bot. history may be nil, in which case /clear only resets
// the greeting.
func New(api API, service Responder, history repository.HistoryRepository, cfg Config, log *logger.Logger) *Bot {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Bot{
		api:     api,
		service: service,
		history: history,
		cfg:     cfg,
		log:     log,
	}
}

// Run handles updates until ctx is cancelled, then waits for in-flight
// replies.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout
	updates := b.api.GetUpdatesChan(u)

	sem := make(chan struct{}, b.cfg.Workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				b.api.StopReceivingUpdates()
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate answers one update. Non-message updates are ignored.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.ReplyTimeout)
	defer cancel()

	userID := UserID(msg)
	var text string
	if msg.IsCommand() {
		text = b.command(ctx, msg, userID)
	} else {
		text = b.reply(ctx, msg, userID)
	}
	if text == "" {
		return
	}

	for _, part := range split(text, maxMessageRunes) {
		out := tgbotapi.NewMessage(msg.Chat.ID, part)
		if _, err := b.api.Send(out); err != nil {
			b.log.Error(err, "failed to send telegram message", "chat_id", msg.Chat.ID)
			return
		}
	}
}

func (b *Bot) command(ctx context.Context, msg *tgbotapi.Message, userID string) string {
	switch msg.Command() {
	case "start":
		return composer.Welcome + "\n\n" + composer.Examples
	case "help":
		return composer.Help
	case "clear":
		if b.history != nil {
			if _, err := b.history.DeleteByUser(ctx, userID); err != nil {
				b.log.Error(err, "failed to clear chat history", "user_id", userID)
				return composer.Unavailable("chat history")
			}
		}
		return composer.HistoryCleared
	default:
		return composer.Help
	}
}

func (b *Bot) reply(ctx context.Context, msg *tgbotapi.Message, userID string) string {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		if len(msg.Photo) > 0 {
			return composer.ImageSoon
		}
		return ""
	}

	if _, err := b.api.Send(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)); err != nil {
		b.log.Debug("failed to send typing action", "error", err.Error())
	}

	reply := b.service.Respond(ctx, text, userID)
	if b.history != nil {
		turn := model.NewChatTurn(userID, text, reply.Text, reply.Intent)
		if err := b.history.Append(ctx, turn); err != nil {
			b.log.Warn("failed to append chat history", "user_id", userID, "error", err.Error())
		}
	}
	return reply.Text
}

// UserID is the prediction log user for a Telegram message.
func UserID(msg *tgbotapi.Message) string {
	if msg.From != nil {
		return "telegram:" + strconv.FormatInt(msg.From.ID, 10)
	}
	return "telegram:chat:" + strconv.FormatInt(msg.Chat.ID, 10)
}

// split breaks text into parts of at most limit runes, preferring line
// breaks.
func split(text string, limit int) []string {
	var parts []string
	for utf8.RuneCountInString(text) > limit {
		runes := []rune(text)
		cut := limit
		if i := strings.LastIndex(string(runes[:limit]), "\n"); i > 0 {
			cut = utf8.RuneCountInString(string(runes[:limit])[:i])
		}
		parts = append(parts, string(runes[:cut]))
		text = strings.TrimLeft(string(runes[cut:]), "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
