// Package chat implements the messaging feature: the conversation list,
// message threads, and recipient selection, all backed by the shared
// query cache.
package chat

import (
	"strconv"
	"time"

	"github.com/moatasem1234/madrasati/internal/cache"
)

// Cache tag types provided by chat queries.
const (
	TagConversation = "Conversation"
	TagMessage      = "Message"
)

// Role types of chat participants.
const (
	RoleParent  = "parent"
	RoleTeacher = "teacher"
)

// User is the account behind a message sender.
type User struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Participant is the counter-party of a conversation.
type Participant struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // "parent" or "teacher"
}

// Sender describes who wrote a message.
type Sender struct {
	Name string `json:"name"`
	User User   `json:"user"`
	Type string `json:"type"`
}

// Message is one chat message. IsMine from the server is advisory; the
// thread controller recomputes it against the current principal.
type Message struct {
	ID             int    `json:"id"`
	ConversationID int    `json:"conversation_id"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
	Sender         Sender `json:"sender"`
	IsMine         bool   `json:"is_mine"`
}

// Time parses the message timestamp. Zero time on unparseable input.
func (m Message) Time() time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, m.CreatedAt); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// Conversation is one entry of the conversation list. UnreadCount is
// authoritative from the backend.
type Conversation struct {
	ID            int         `json:"id"`
	Title         string      `json:"title"`
	Participant   Participant `json:"participant"`
	LastMessage   *Message    `json:"last_message"`
	UnreadCount   int         `json:"unread_count"`
	LastMessageAt string      `json:"last_message_at"`
}

// ConversationRef is the result of starting a new conversation.
type ConversationRef struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// ConversationsKey is the cache key for the conversation-list query.
func ConversationsKey() cache.Key {
	return cache.Key{Endpoint: "chat/conversations"}
}

// MessagesKey is the cache key for one conversation's message-list query.
func MessagesKey(conversationID int) cache.Key {
	return cache.Key{Endpoint: "chat/messages", Params: strconv.Itoa(conversationID)}
}

// MessageTag scopes the Message tag to one conversation.
func MessageTag(conversationID int) cache.Tag {
	return cache.Tag{Type: TagMessage, ID: strconv.Itoa(conversationID)}
}

// ConversationTag is the unscoped Conversation tag.
func ConversationTag() cache.Tag {
	return cache.Tag{Type: TagConversation}
}
