package transport

import (
	"sync"

	"github.com/xaenox/relay-bot/internal/models"
)

type messageKey struct {
	chatID    int64
	messageID int
}

// messageCache remembers the most recent messages so replies can be traced
// back to the message they answer. Oldest entries are evicted first.
type messageCache struct {
	mu    sync.Mutex
	limit int
	items map[messageKey]*models.Message
	order []messageKey
}

func newMessageCache(limit int) *messageCache {
	if limit <= 0 {
		limit = 1000
	}
	return &messageCache{
		limit: limit,
		items: make(map[messageKey]*models.Message, limit),
	}
}

func (c *messageCache) put(msg *models.Message) {
	if msg == nil {
		return
	}
	key := messageKey{chatID: msg.Conversation.ID, messageID: msg.ID}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; !ok {
		c.order = append(c.order, key)
	}
	c.items[key] = msg

	for len(c.order) > c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.items, oldest)
	}
}

func (c *messageCache) get(chatID int64, messageID int) (*models.Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg, ok := c.items[messageKey{chatID: chatID, messageID: messageID}]
	return msg, ok
}

func (c *messageCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
