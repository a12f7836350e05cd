package models

import (
	"fmt"
	"strconv"
)

// ConversationKind tags the variant of a Conversation.
type ConversationKind string

const (
	DirectConversation  ConversationKind = "direct"
	GroupConversation   ConversationKind = "group"
	ChannelConversation ConversationKind = "channel"
)

// Conversation identifies where a message lives: a direct chat with a user, a
// group chat, or a channel.
type Conversation struct {
	Kind ConversationKind `json:"kind"`
	ID   int64            `json:"id"`
}

// DirectChat returns the conversation with a single user.
func DirectChat(id int64) Conversation {
	return Conversation{Kind: DirectConversation, ID: id}
}

// GroupChat returns a group chat conversation.
func GroupChat(id int64) Conversation {
	return Conversation{Kind: GroupConversation, ID: id}
}

// Channel returns a broadcast channel conversation.
func Channel(id int64) Conversation {
	return Conversation{Kind: ChannelConversation, ID: id}
}

// Validate returns an error when the conversation cannot be routed.
func (c Conversation) Validate() error {
	switch c.Kind {
	case DirectConversation, GroupConversation, ChannelConversation:
	default:
		return fmt.Errorf("unknown conversation kind %q", c.Kind)
	}
	if c.ID == 0 {
		return fmt.Errorf("conversation %s has no id", c.Kind)
	}
	return nil
}

// String renders the numeric id, which doubles as the fallback label.
func (c Conversation) String() string {
	return strconv.FormatInt(c.ID, 10)
}
