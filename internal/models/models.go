package models

import (
	"strconv"
	"time"
)

// Sender describes the author of a message as reported by the transport.
type Sender struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Message is an inbound (or fetched) chat message in transport-neutral form.
type Message struct {
	ID           int          `json:"id"`
	Conversation Conversation `json:"conversation"`
	Date         time.Time    `json:"date"`
	Text         string       `json:"text"`
	Sender       *Sender      `json:"sender,omitempty"`
	ReplyToID    int          `json:"reply_to_id,omitempty"`
	Outgoing     bool         `json:"outgoing"`
	Forwarded    bool         `json:"forwarded"`
}

// IsReply reports whether the message replies to an earlier one.
func (m *Message) IsReply() bool {
	return m.ReplyToID != 0
}

// MessageRecord is the persisted log form of a message. SenderID is kept as a
// decimal string so large identifiers survive JSON round trips unchanged.
type MessageRecord struct {
	MessageID       int    `json:"messageId"`
	Date            string `json:"date"`
	Text            string `json:"text"`
	SenderID        string `json:"senderId,omitempty"`
	SenderUsername  string `json:"senderUsername,omitempty"`
	SenderFirstName string `json:"senderFirstName,omitempty"`
	SenderLastName  string `json:"senderLastName,omitempty"`
}

// NewMessageRecord builds the log record for msg. A zero message date is
// replaced by fallback.
func NewMessageRecord(msg *Message, fallback time.Time) MessageRecord {
	date := msg.Date
	if date.IsZero() {
		date = fallback
	}

	rec := MessageRecord{
		MessageID: msg.ID,
		Date:      date.UTC().Format(time.RFC3339Nano),
		Text:      msg.Text,
	}
	if msg.Sender != nil {
		rec.SenderID = strconv.FormatInt(msg.Sender.ID, 10)
		rec.SenderUsername = msg.Sender.Username
		rec.SenderFirstName = msg.Sender.FirstName
		rec.SenderLastName = msg.Sender.LastName
	}
	return rec
}

// BucketKey identifies one log bucket: a conversation label on a calendar day.
type BucketKey struct {
	Label string
	Date  string // YYYY-MM-DD, UTC
}

// NewBucketKey returns the key for label on the UTC calendar day of t.
func NewBucketKey(label string, t time.Time) BucketKey {
	return BucketKey{Label: label, Date: t.UTC().Format("2006-01-02")}
}

// Filename is the `<label>-<date>.json` name used by file based sinks.
func (k BucketKey) Filename() string {
	return k.Label + "-" + k.Date + ".json"
}

// Entity holds the metadata the transport reports for a conversation peer.
type Entity struct {
	ID        int64
	Title     string
	Username  string
	FirstName string
	LastName  string
}

// Filter selects which inbound events a subscription delivers.
type Filter struct {
	IncomingOnly    bool
	ExcludeForwards bool
}

// Allows reports whether msg passes the filter.
func (f Filter) Allows(msg *Message) bool {
	if f.IncomingOnly && msg.Outgoing {
		return false
	}
	if f.ExcludeForwards && msg.Forwarded {
		return false
	}
	return true
}
