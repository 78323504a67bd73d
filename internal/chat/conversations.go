package chat

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/moatasem1234/madrasati/internal/cache"
)

// previewLimit is the maximum preview length in runes before truncation.
const previewLimit = 30

// ConversationItem is one rendered row of the conversation list.
type ConversationItem struct {
	ID              int
	Title           string
	ParticipantName string
	Preview         string // last-message text, truncated
	Badge           string // unread count, empty when zero
	LastMessageAt   string
}

// ConversationList drives the conversation-list view. Every activation
// forces a refetch so unread counts are current.
type ConversationList struct {
	store  *cache.Store
	client *Client
	log    zerolog.Logger

	mu  sync.Mutex
	sub *cache.Subscription
}

// NewConversationList creates the controller.
func NewConversationList(store *cache.Store, client *Client, log zerolog.Logger) *ConversationList {
	return &ConversationList{store: store, client: client, log: log}
}

// Activate subscribes to the conversation-list query and forces a refetch,
// regardless of cache freshness. Safe to call on every view re-entry.
func (l *ConversationList) Activate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sub == nil {
		l.sub = l.store.Subscribe(ConversationsKey(),
			[]cache.Tag{ConversationTag()},
			func(ctx context.Context) (any, error) {
				return l.client.ListConversations(ctx)
			})
	}
	l.store.Refetch(ConversationsKey())
}

// Updates exposes the underlying change-notification channel. Activate
// must have been called first.
func (l *ConversationList) Updates() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sub == nil {
		return nil
	}
	return l.sub.Updates()
}

// Items waits for the list to settle and returns the rendered rows in
// server order. A fetch error with a previously cached value returns both.
func (l *ConversationList) Items(ctx context.Context) ([]ConversationItem, error) {
	l.mu.Lock()
	sub := l.sub
	l.mu.Unlock()
	if sub == nil {
		return nil, fmt.Errorf("chat: conversation list not activated")
	}

	res, err := sub.Wait(ctx)
	if err != nil {
		return nil, err
	}
	items := renderConversations(res.Value)
	if res.Err != nil {
		return items, fmt.Errorf("chat: load conversations: %w", res.Err)
	}
	return items, nil
}

// Close abandons the subscription.
func (l *ConversationList) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sub != nil {
		l.sub.Close()
		l.sub = nil
	}
}

// renderConversations converts the cached payload into view rows.
func renderConversations(value any) []ConversationItem {
	conversations, ok := value.([]Conversation)
	if !ok {
		return nil
	}
	items := make([]ConversationItem, 0, len(conversations))
	for _, c := range conversations {
		item := ConversationItem{
			ID:              c.ID,
			Title:           c.Title,
			ParticipantName: c.Participant.Name,
			LastMessageAt:   c.LastMessageAt,
		}
		if c.UnreadCount > 0 {
			item.Badge = strconv.Itoa(c.UnreadCount)
		}
		if c.LastMessage != nil {
			item.Preview = truncatePreview(c.LastMessage.Content)
		}
		items = append(items, item)
	}
	return items
}

// truncatePreview limits preview text to previewLimit runes plus an
// ellipsis. Counted in runes so Arabic text truncates at character
// boundaries.
func truncatePreview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewLimit {
		return s
	}
	return string(runes[:previewLimit]) + "…"
}
