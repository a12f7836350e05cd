package bot

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/relay-bot/internal/command"
	"github.com/xaenox/relay-bot/internal/entity"
	"github.com/xaenox/relay-bot/internal/models"
	"github.com/xaenox/relay-bot/internal/msglog"
	"github.com/xaenox/relay-bot/internal/transport"
	"go.uber.org/zap"
)

// Transport is what the bot needs from the chat connection.
type Transport interface {
	entity.Lookup
	command.MessageFetcher
	Subscribe(ctx context.Context, filter models.Filter, handler transport.Handler) error
	SendMessage(ctx context.Context, conv models.Conversation, text string, replyTo int) error
}

// Dispatcher answers parsed commands. It reports failures inside the answer.
type Dispatcher interface {
	Dispatch(ctx context.Context, key models.CommandKey, content, contextText string) string
}

// ContextSource provides the shared model context sent with every command.
type ContextSource interface {
	Load(ctx context.Context) (string, error)
}

// Config wires a Bot.
type Config struct {
	Transport   Transport
	Grammar     *command.Grammar
	Dispatcher  Dispatcher
	Context     ContextSource
	Log         *msglog.Buffer
	OwnUsername string
	Logger      *zap.Logger
	Now         func() time.Time
}

// Bot routes inbound messages: every message is logged, command messages
// are answered in the same conversation.
type Bot struct {
	transport  Transport
	resolver   *entity.Resolver
	grammar    *command.Grammar
	replies    *command.ReplyResolver
	dispatcher Dispatcher
	context    ContextSource
	log        *msglog.Buffer
	logger     *zap.Logger
	now        func() time.Time
}

func New(cfg Config) *Bot {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Bot{
		transport:  cfg.Transport,
		resolver:   entity.NewResolver(cfg.Transport, cfg.Logger),
		grammar:    cfg.Grammar,
		replies:    command.NewReplyResolver(cfg.Grammar, cfg.Transport, cfg.OwnUsername, cfg.Logger),
		dispatcher: cfg.Dispatcher,
		context:    cfg.Context,
		log:        cfg.Log,
		logger:     cfg.Logger,
		now:        now,
	}
}

// Start subscribes to incoming, non-forwarded messages and blocks until ctx
// is done or the subscription fails.
func (b *Bot) Start(ctx context.Context) error {
	for _, o := range b.grammar.Overlaps() {
		b.logger.Warn("Ambiguous command prefixes, first configured wins",
			zap.String("shorter", string(o.Shorter)),
			zap.String("longer", string(o.Longer)))
	}

	b.logger.Info("Listening for messages")
	return b.transport.Subscribe(ctx, models.Filter{IncomingOnly: true, ExcludeForwards: true}, b.HandleMessage)
}

// HandleMessage processes one inbound message.
func (b *Bot) HandleMessage(ctx context.Context, msg *models.Message) {
	logger := b.logger.With(
		zap.String("event_id", uuid.New().String()),
		zap.Int("message_id", msg.ID))

	if err := msg.Conversation.Validate(); err != nil {
		logger.Warn("Unable to determine the conversation for message", zap.Error(err))
		return
	}
	logger = logger.With(
		zap.String("kind", string(msg.Conversation.Kind)),
		zap.Int64("chat_id", msg.Conversation.ID))

	label := b.resolver.Resolve(ctx, msg.Conversation)
	if msg.Date.IsZero() {
		logger.Warn("Message has no date, using current time")
	}
	b.log.Record(label, models.NewMessageRecord(msg, b.now()))
	logger.Debug("Message recorded", zap.String("label", label))

	parsed, ok := b.grammar.Parse(msg.Text)
	if !ok && msg.IsReply() {
		parsed, ok = b.replies.Resolve(ctx, msg)
	}
	if !ok {
		return
	}

	b.answer(ctx, logger, msg, parsed)
}

func (b *Bot) answer(ctx context.Context, logger *zap.Logger, msg *models.Message, parsed models.ParsedCommand) {
	logger = logger.With(zap.String("command", string(parsed.Command)))

	spec, ok := b.grammar.Spec(parsed.Command)
	if !ok {
		logger.Error("Parsed command has no spec")
		return
	}

	answer := b.dispatcher.Dispatch(ctx, parsed.Command, parsed.Content, b.contextFor(ctx, logger, parsed))

	reply := spec.Prefix + " " + answer
	if err := b.transport.SendMessage(ctx, msg.Conversation, reply, msg.ID); err != nil {
		logger.Error("Failed to send automated reply", zap.Error(err))
		return
	}
	logger.Info("Automated reply sent")
}

// contextFor joins the shared context document with the content of the
// command a reply continues.
func (b *Bot) contextFor(ctx context.Context, logger *zap.Logger, parsed models.ParsedCommand) string {
	var parts []string
	if b.context != nil {
		shared, err := b.context.Load(ctx)
		if err != nil {
			logger.Warn("Failed to load model context", zap.Error(err))
		} else if s := strings.TrimSpace(shared); s != "" {
			parts = append(parts, s)
		}
	}
	if parsed.Context != "" {
		parts = append(parts, parsed.Context)
	}
	return strings.Join(parts, "\n\n")
}
