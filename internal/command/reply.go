package command

import (
	"context"

	"github.com/xaenox/relay-bot/internal/models"
	"go.uber.org/zap"
)

// MessageFetcher loads a single earlier message from a conversation.
type MessageFetcher interface {
	FetchMessage(ctx context.Context, conv models.Conversation, id int) (*models.Message, error)
}

// ReplyResolver continues command threads: a reply to one of our own command
// answers is treated as a follow-up to that command.
type ReplyResolver struct {
	grammar     *Grammar
	fetcher     MessageFetcher
	ownUsername string
	logger      *zap.Logger
}

func NewReplyResolver(grammar *Grammar, fetcher MessageFetcher, ownUsername string, logger *zap.Logger) *ReplyResolver {
	return &ReplyResolver{
		grammar:     grammar,
		fetcher:     fetcher,
		ownUsername: ownUsername,
		logger:      logger,
	}
}

// Resolve inspects the message msg replies to. When that message was sent by
// our own account and parses as a command, the result uses msg's text as the
// new content and the earlier command's content as context.
func (r *ReplyResolver) Resolve(ctx context.Context, msg *models.Message) (models.ParsedCommand, bool) {
	if !msg.IsReply() {
		return models.ParsedCommand{}, false
	}

	prior, err := r.fetcher.FetchMessage(ctx, msg.Conversation, msg.ReplyToID)
	if err != nil {
		r.logger.Error("Failed to fetch replied message",
			zap.Error(err),
			zap.Int64("chat_id", msg.Conversation.ID),
			zap.Int("reply_to_id", msg.ReplyToID))
		return models.ParsedCommand{}, false
	}
	if prior == nil || prior.Sender == nil || prior.Sender.Username != r.ownUsername {
		return models.ParsedCommand{}, false
	}

	parsed, ok := r.grammar.Parse(prior.Text)
	if !ok {
		return models.ParsedCommand{}, false
	}

	r.logger.Debug("Reply continues command thread",
		zap.String("command", string(parsed.Command)),
		zap.Int("reply_to_id", msg.ReplyToID))

	return models.ParsedCommand{
		Command: parsed.Command,
		Content: msg.Text,
		Context: parsed.Content,
	}, true
}
