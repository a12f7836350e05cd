// Package transport connects the bot to Telegram through the Bot API.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xaenox/relay-bot/internal/models"
	"github.com/xaenox/relay-bot/internal/session"
	"go.uber.org/zap"
)

// Handler receives inbound messages. Calls are sequential.
type Handler func(ctx context.Context, msg *models.Message)

// Config configures a Telegram client.
type Config struct {
	// Token is the stored session token. When empty, or once rejected, the
	// login prompter is asked for a new one.
	Token       string
	Endpoint    string
	HTTPClient  *http.Client
	PollTimeout int
	CacheSize   int
}

// Telegram implements the chat transport on top of tgbotapi.
type Telegram struct {
	cfg    Config
	logger *zap.Logger
	cache  *messageCache

	mu    sync.RWMutex
	token string
	api   *tgbotapi.BotAPI
}

func NewTelegram(cfg Config, logger *zap.Logger) *Telegram {
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Telegram{
		cfg:    cfg,
		logger: logger,
		cache:  newMessageCache(cfg.CacheSize),
		token:  cfg.Token,
	}
}

// Authenticate connects with the current token. The phone number is not used
// by the Bot API; the prompter's code is taken as the bot token when none is
// stored. A rejected token is forgotten so the next attempt prompts again.
func (t *Telegram) Authenticate(ctx context.Context, phone string, prompter session.Prompter) (string, error) {
	t.mu.RLock()
	token := t.token
	t.mu.RUnlock()

	if token == "" {
		code, err := prompter.RequestCode(ctx)
		if err != nil {
			return "", fmt.Errorf("requesting login code: %w", err)
		}
		token = code
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, t.cfg.Endpoint, t.cfg.HTTPClient)
	if err != nil {
		err = classifyAuthError(err)
		if errors.Is(err, session.ErrInvalidCode) {
			t.mu.Lock()
			t.token = ""
			t.mu.Unlock()
		}
		return "", err
	}

	t.mu.Lock()
	t.token = token
	t.api = api
	t.mu.Unlock()

	t.logger.Info("Authorized on account", zap.String("username", api.Self.UserName))
	return token, nil
}

// Self returns the authenticated account's username.
func (t *Telegram) Self() string {
	api, err := t.client()
	if err != nil {
		return ""
	}
	return api.Self.UserName
}

// Subscribe long-polls for updates and hands every message that passes filter
// to handler until ctx is done.
func (t *Telegram) Subscribe(ctx context.Context, filter models.Filter, handler Handler) error {
	api, err := t.client()
	if err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.cfg.PollTimeout
	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			raw := update.Message
			if raw == nil {
				raw = update.ChannelPost
			}
			if raw == nil {
				continue
			}

			msg := t.convert(raw, api.Self.ID)
			if msg == nil {
				t.logger.Warn("Dropping message without chat", zap.Int("update_id", update.UpdateID))
				continue
			}
			if !filter.Allows(msg) {
				continue
			}
			handler(ctx, msg)
		}
	}
}

// ResolveEntity looks up chat metadata.
func (t *Telegram) ResolveEntity(ctx context.Context, conv models.Conversation) (*models.Entity, error) {
	api, err := t.client()
	if err != nil {
		return nil, err
	}

	chat, err := api.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: conv.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("get chat %d: %w", conv.ID, err)
	}

	return &models.Entity{
		ID:        chat.ID,
		Title:     chat.Title,
		Username:  chat.UserName,
		FirstName: chat.FirstName,
		LastName:  chat.LastName,
	}, nil
}

// FetchMessage returns a recently seen message. The Bot API has no history
// lookup, so only messages that passed through this client are available.
func (t *Telegram) FetchMessage(ctx context.Context, conv models.Conversation, id int) (*models.Message, error) {
	msg, ok := t.cache.get(conv.ID, id)
	if !ok {
		return nil, fmt.Errorf("chat %d message %d: %w", conv.ID, id, ErrMessageNotFound)
	}
	return msg, nil
}

// SendMessage posts text to conv, optionally as a reply.
func (t *Telegram) SendMessage(ctx context.Context, conv models.Conversation, text string, replyTo int) error {
	api, err := t.client()
	if err != nil {
		return err
	}

	out := tgbotapi.NewMessage(conv.ID, text)
	out.ReplyToMessageID = replyTo

	sent, err := api.Send(out)
	if err != nil {
		return fmt.Errorf("send message to %d: %w", conv.ID, err)
	}
	if msg := t.convert(&sent, api.Self.ID); msg != nil {
		t.cache.put(msg)
	}
	return nil
}

func (t *Telegram) client() (*tgbotapi.BotAPI, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.api == nil {
		return nil, ErrNotConnected
	}
	return t.api, nil
}

// convert maps a Bot API message, caching it and its reply target.
func (t *Telegram) convert(raw *tgbotapi.Message, selfID int64) *models.Message {
	msg := convertMessage(raw, selfID)
	if msg == nil {
		return nil
	}
	if raw.ReplyToMessage != nil {
		t.cache.put(convertMessage(raw.ReplyToMessage, selfID))
	}
	t.cache.put(msg)
	return msg
}

func convertMessage(raw *tgbotapi.Message, selfID int64) *models.Message {
	if raw == nil || raw.Chat == nil {
		return nil
	}

	msg := &models.Message{
		ID:           raw.MessageID,
		Conversation: conversationOf(raw.Chat),
		Text:         raw.Text,
		Forwarded:    raw.ForwardDate != 0 || raw.ForwardFrom != nil || raw.ForwardFromChat != nil,
	}
	if msg.Text == "" {
		msg.Text = raw.Caption
	}
	if raw.Date != 0 {
		msg.Date = time.Unix(int64(raw.Date), 0).UTC()
	}
	if raw.ReplyToMessage != nil {
		msg.ReplyToID = raw.ReplyToMessage.MessageID
	}

	switch {
	case raw.From != nil:
		msg.Sender = &models.Sender{
			ID:        raw.From.ID,
			Username:  raw.From.UserName,
			FirstName: raw.From.FirstName,
			LastName:  raw.From.LastName,
		}
		msg.Outgoing = raw.From.ID == selfID
	case raw.SenderChat != nil:
		msg.Sender = &models.Sender{
			ID:       raw.SenderChat.ID,
			Username: raw.SenderChat.UserName,
		}
	}
	return msg
}

func conversationOf(chat *tgbotapi.Chat) models.Conversation {
	switch {
	case chat.IsPrivate():
		return models.DirectChat(chat.ID)
	case chat.IsGroup(), chat.IsSuperGroup():
		return models.GroupChat(chat.ID)
	case chat.IsChannel():
		return models.Channel(chat.ID)
	default:
		return models.Conversation{Kind: models.ConversationKind(chat.Type), ID: chat.ID}
	}
}
