package chat

import (
	"context"
	"fmt"

	"github.com/moatasem1234/madrasati/internal/api"
)

// Default pagination for the message-list query.
const (
	defaultPage    = 1
	defaultPerPage = 50
)

// Client issues chat requests through the transport client. Controllers
// never use it directly for queries; they go through the cache store.
type Client struct {
	api *api.Client
}

// NewClient creates a chat client.
func NewClient(a *api.Client) *Client {
	return &Client{api: a}
}

type conversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

// ListConversations returns the principal's conversations in server order.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var resp conversationsResponse
	if err := c.api.Get(ctx, "/chat/conversations", &resp); err != nil {
		return nil, fmt.Errorf("chat: list conversations: %w", err)
	}
	return resp.Conversations, nil
}

// StartConversationParams names the counter-party for a new conversation.
type StartConversationParams struct {
	RecipientID   int    `json:"recipient_id"`
	RecipientType string `json:"recipient_type"` // "parent" or "teacher"
	Title         string `json:"title,omitempty"`
}

// StartConversation opens a new conversation with the given recipient.
func (c *Client) StartConversation(ctx context.Context, params StartConversationParams) (ConversationRef, error) {
	var ref ConversationRef
	if err := c.api.Post(ctx, "/chat/conversations", params, &ref); err != nil {
		return ConversationRef{}, fmt.Errorf("chat: start conversation: %w", err)
	}
	return ref, nil
}

type messagesResponse struct {
	Messages []Message `json:"messages"`
}

// ListMessages returns a page of a conversation's messages, newest first
// (server order).
func (c *Client) ListMessages(ctx context.Context, conversationID, page, perPage int) ([]Message, error) {
	if page <= 0 {
		page = defaultPage
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	path := fmt.Sprintf("/chat/conversations/%d/messages?page=%d&per_page=%d", conversationID, page, perPage)
	var resp messagesResponse
	if err := c.api.Get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("chat: list messages for %d: %w", conversationID, err)
	}
	return resp.Messages, nil
}

// SendMessage posts a new message to a conversation.
func (c *Client) SendMessage(ctx context.Context, conversationID int, content string) (Message, error) {
	path := fmt.Sprintf("/chat/conversations/%d/messages", conversationID)
	var msg Message
	if err := c.api.Post(ctx, path, map[string]string{"content": content}, &msg); err != nil {
		return Message{}, fmt.Errorf("chat: send message to %d: %w", conversationID, err)
	}
	return msg, nil
}

// MarkRead records that the principal has seen a conversation's messages.
func (c *Client) MarkRead(ctx context.Context, conversationID int) error {
	path := fmt.Sprintf("/chat/conversations/%d/read", conversationID)
	if err := c.api.Patch(ctx, path, nil); err != nil {
		return fmt.Errorf("chat: mark read %d: %w", conversationID, err)
	}
	return nil
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, messageID int) error {
	path := fmt.Sprintf("/chat/messages/%d", messageID)
	if err := c.api.Delete(ctx, path, nil); err != nil {
		return fmt.Errorf("chat: delete message %d: %w", messageID, err)
	}
	return nil
}

// UnreadCount returns the number of unread messages in a conversation.
func (c *Client) UnreadCount(ctx context.Context, conversationID int) (int, error) {
	path := fmt.Sprintf("/chat/unread-count/%d", conversationID)
	var count int
	if err := c.api.Get(ctx, path, &count); err != nil {
		return 0, fmt.Errorf("chat: unread count %d: %w", conversationID, err)
	}
	return count, nil
}
