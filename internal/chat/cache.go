// Package chat holds the client-side chat state: the message/user cache
// and the per-feature stores (stars, pins, blocks, auto-delete, read
// markers, reports) that mutate it optimistically.
package chat

import (
	"sort"
	"sync"
	"time"
)

// Message is one chat message as the client sees it.
type Message struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Starred   bool      `json:"starred"`
	Pinned    bool      `json:"pinned"`
	Reported  bool      `json:"reported"`
}

// User is one chat participant.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Online   bool   `json:"online"`
	Blocked  bool   `json:"blocked"`
	Reported bool   `json:"reported"`
}

// AutoDeleteSettings controls server-side expiry of old messages.
type AutoDeleteSettings struct {
	Enabled  bool `json:"enabled" yaml:"enabled"`
	TTLHours int  `json:"ttl_hours" yaml:"ttl_hours"`
}

// Cache is the in-memory chat state shared by the feature stores and the
// UI. All access is through its methods; reads return copies.
type Cache struct {
	mu         sync.RWMutex
	messages   map[string]Message
	users      map[string]User
	lastRead   map[string]string
	autoDelete AutoDeleteSettings
}

// NewCache builds an empty cache.
func NewCache() *Cache {
	return &Cache{
		messages: make(map[string]Message),
		users:    make(map[string]User),
		lastRead: make(map[string]string),
	}
}

// UpsertMessage inserts or replaces a message.
func (c *Cache) UpsertMessage(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[m.ID] = m
}

// UpsertUser inserts or replaces a user.
func (c *Cache) UpsertUser(u User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[u.ID] = u
}

// Message returns one message by id.
func (c *Cache) Message(id string) (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.messages[id]
	return m, ok
}

// User returns one user by id.
func (c *Cache) User(id string) (User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	return u, ok
}

// Messages returns all messages, oldest first.
func (c *Cache) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, 0, len(c.messages))
	for _, m := range c.messages {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Users returns all users sorted by name.
func (c *Cache) Users() []User {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]User, 0, len(c.users))
	for _, u := range c.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// StarredMessages returns the starred messages, oldest first.
func (c *Cache) StarredMessages() []Message {
	return c.filterMessages(func(m Message) bool { return m.Starred })
}

// PinnedMessages returns the pinned messages, oldest first.
func (c *Cache) PinnedMessages() []Message {
	return c.filterMessages(func(m Message) bool { return m.Pinned })
}

func (c *Cache) filterMessages(keep func(Message) bool) []Message {
	var out []Message
	for _, m := range c.Messages() {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

// SetStarred updates the star flag. Unknown ids are ignored.
func (c *Cache) SetStarred(id string, starred bool) {
	c.updateMessage(id, func(m *Message) { m.Starred = starred })
}

// SetPinned updates the pin flag. Unknown ids are ignored.
func (c *Cache) SetPinned(id string, pinned bool) {
	c.updateMessage(id, func(m *Message) { m.Pinned = pinned })
}

// MarkMessageReported flags a message as reported.
func (c *Cache) MarkMessageReported(id string) {
	c.updateMessage(id, func(m *Message) { m.Reported = true })
}

func (c *Cache) updateMessage(id string, update func(*Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.messages[id]; ok {
		update(&m)
		c.messages[id] = m
	}
}

// SetBlocked updates the blocked flag on a user. Unknown ids are ignored.
func (c *Cache) SetBlocked(id string, blocked bool) {
	c.updateUser(id, func(u *User) { u.Blocked = blocked })
}

// SetOnline updates a user's presence.
func (c *Cache) SetOnline(id string, online bool) {
	c.updateUser(id, func(u *User) { u.Online = online })
}

// MarkUserReported flags a user as reported.
func (c *Cache) MarkUserReported(id string) {
	c.updateUser(id, func(u *User) { u.Reported = true })
}

func (c *Cache) updateUser(id string, update func(*User)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := c.users[id]; ok {
		update(&u)
		c.users[id] = u
	}
}

// RemoveMessages drops the given messages, ignoring unknown ids.
func (c *Cache) RemoveMessages(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.messages, id)
	}
}

// SetAutoDelete replaces the auto-delete settings.
func (c *Cache) SetAutoDelete(s AutoDeleteSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoDelete = s
}

// AutoDelete returns the current auto-delete settings.
func (c *Cache) AutoDelete() AutoDeleteSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.autoDelete
}

// SetLastRead advances the read marker for a channel.
func (c *Cache) SetLastRead(channelID, messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRead[channelID] = messageID
}

// LastRead returns the read marker for a channel.
func (c *Cache) LastRead(channelID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.lastRead[channelID]
	return id, ok
}
