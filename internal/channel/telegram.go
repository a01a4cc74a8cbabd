// Package channel provides the Telegram surface for serve mode.
package channel

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/stellarlinkco/scout/internal/config"
	"github.com/stellarlinkco/scout/internal/research"
)

// Answerer is the research entry point the channel feeds questions into.
type Answerer interface {
	Answer(ctx context.Context, question string) (research.Answer, error)
}

// TelegramBot interface for mocking telegram bot API
type TelegramBot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetSelf() tgbotapi.User
}

type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return w.bot.GetUpdatesChan(config)
}

func (w *tgBotWrapper) StopReceivingUpdates() {
	w.bot.StopReceivingUpdates()
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates TelegramBot instances (allows mocking)
type BotFactory func(token, apiEndpoint string, client *http.Client) (TelegramBot, error)

var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

type TelegramChannel struct {
	token      string
	allowFrom  map[string]bool
	proxy      string
	answerer   Answerer
	bot        TelegramBot
	botFactory BotFactory
	cancel     context.CancelFunc
}

func NewTelegramChannel(cfg config.TelegramConfig, answerer Answerer) (*TelegramChannel, error) {
	return NewTelegramChannelWithFactory(cfg, answerer, defaultBotFactory)
}

// NewTelegramChannelWithFactory creates a TelegramChannel with a custom bot
// factory (for testing).
func NewTelegramChannelWithFactory(cfg config.TelegramConfig, answerer Answerer, factory BotFactory) (*TelegramChannel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}

	allow := make(map[string]bool, len(cfg.AllowFrom))
	for _, id := range cfg.AllowFrom {
		allow[strings.TrimSpace(id)] = true
	}

	return &TelegramChannel{
		token:      cfg.Token,
		allowFrom:  allow,
		proxy:      cfg.Proxy,
		answerer:   answerer,
		botFactory: factory,
	}, nil
}

// IsAllowed reports whether the sender may ask questions. An empty
// allow-list admits everyone.
func (t *TelegramChannel) IsAllowed(senderID string) bool {
	if len(t.allowFrom) == 0 {
		return true
	}
	return t.allowFrom[senderID]
}

func (t *TelegramChannel) initBot() error {
	client := http.DefaultClient
	if t.proxy != "" {
		proxyURL, err := url.Parse(t.proxy)
		if err != nil {
			return fmt.Errorf("parse proxy url: %w", err)
		}
		client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	bot, err := t.botFactory(t.token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	t.bot = bot
	log.Printf("[telegram] authorized as @%s", bot.GetSelf().UserName)
	return nil
}

func (t *TelegramChannel) Start(ctx context.Context) error {
	if err := t.initBot(); err != nil {
		return err
	}

	ctx, t.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case update := <-updates:
				if update.Message == nil {
					continue
				}
				t.handleMessage(ctx, update.Message)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Printf("[telegram] polling started")
	return nil
}

func (t *TelegramChannel) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	senderID := strconv.FormatInt(msg.From.ID, 10)

	if !t.IsAllowed(senderID) {
		log.Printf("[telegram] rejected message from %s (%s)", senderID, msg.From.UserName)
		return
	}

	question := strings.TrimSpace(msg.Text)
	if question == "" {
		return
	}

	answer, err := t.answerer.Answer(ctx, question)
	if err != nil {
		log.Printf("[telegram] answer failed for %s: %v", senderID, err)
		t.reply(msg.Chat.ID, "Sorry, I could not answer that question.")
		return
	}

	t.reply(msg.Chat.ID, FormatAnswer(answer))
}

// FormatAnswer renders an answer with its citation list for a chat reply.
func FormatAnswer(answer research.Answer) string {
	var b strings.Builder
	b.WriteString(answer.Text)
	if len(answer.Citations) > 0 {
		b.WriteString("\n\nSources:")
		for i, c := range answer.Citations {
			title := c.Title
			if title == "" {
				title = c.URL
			}
			fmt.Fprintf(&b, "\n%d. %s", i+1, title)
			if c.URL != "" && c.Title != "" {
				fmt.Fprintf(&b, " - %s", c.URL)
			}
		}
	}
	return b.String()
}

func (t *TelegramChannel) reply(chatID int64, content string) {
	// Telegram caps messages at 4096 chars
	const maxLen = 4000
	for len(content) > 0 {
		chunk := content
		if len(chunk) > maxLen {
			idx := strings.LastIndex(chunk[:maxLen], "\n")
			if idx > 0 {
				chunk = chunk[:idx]
			} else {
				chunk = chunk[:maxLen]
			}
		}
		content = content[len(chunk):]

		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			log.Printf("[telegram] send failed: %v", err)
			return
		}
	}
}

func (t *TelegramChannel) Stop() error {
	if t.cancel != nil {
		t.cancel()
	}
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	log.Printf("[telegram] stopped")
	return nil
}

// SetBot sets the bot (for testing)
func (t *TelegramChannel) SetBot(bot TelegramBot) {
	t.bot = bot
}
