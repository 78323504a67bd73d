package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/moatasem1234/madrasati/internal/api"
	"github.com/moatasem1234/madrasati/internal/cache"
	"github.com/moatasem1234/madrasati/internal/session"
)

// MessageView is one rendered message. Mine governs alignment only.
type MessageView struct {
	ID         int
	SenderName string
	Content    string
	Time       time.Time
	Mine       bool
}

// Thread drives one conversation's message view: history, sending,
// deletion, and the entry read receipt.
type Thread struct {
	store          *cache.Store
	client         *Client
	sessions       *session.Store
	log            zerolog.Logger
	conversationID int

	mu    sync.Mutex
	input string
	sub   *cache.Subscription
}

// NewThread creates the controller for one conversation.
func NewThread(store *cache.Store, client *Client, sessions *session.Store, log zerolog.Logger, conversationID int) *Thread {
	return &Thread{
		store:          store,
		client:         client,
		sessions:       sessions,
		log:            log,
		conversationID: conversationID,
	}
}

// Activate issues the read receipt and subscribes to the message history.
// The receipt is fire-and-forget: its failure is logged, never surfaced,
// and may complete after the history has already rendered.
func (t *Thread) Activate() {
	go func() {
		_, err := t.store.Mutate(context.Background(), func(ctx context.Context) (any, error) {
			return nil, t.client.MarkRead(ctx, t.conversationID)
		}, MessageTag(t.conversationID), ConversationTag())
		if err != nil {
			t.log.Warn().Err(err).
				Int("conversation_id", t.conversationID).
				Msg("failed to mark conversation read")
		}
	}()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sub == nil {
		t.sub = t.store.Subscribe(MessagesKey(t.conversationID),
			[]cache.Tag{MessageTag(t.conversationID)},
			func(ctx context.Context) (any, error) {
				return t.client.ListMessages(ctx, t.conversationID, defaultPage, defaultPerPage)
			})
	}
}

// Updates exposes the message-list change channel. Activate must have been
// called first.
func (t *Thread) Updates() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sub == nil {
		return nil
	}
	return t.sub.Updates()
}

// Input returns the pending message text.
func (t *Thread) Input() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.input
}

// SetInput replaces the pending message text.
func (t *Thread) SetInput(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.input = s
}

// Send submits the pending input as a new message. Whitespace-only input
// fails with a validation error before any network call and leaves the
// input unchanged. On success the input is cleared and the history is
// refetched; on failure the input is preserved for retry.
func (t *Thread) Send(ctx context.Context) error {
	t.mu.Lock()
	content := t.input
	t.mu.Unlock()

	if strings.TrimSpace(content) == "" {
		return &api.ValidationError{Msg: "message content is required"}
	}

	_, err := t.store.Mutate(ctx, func(ctx context.Context) (any, error) {
		return t.client.SendMessage(ctx, t.conversationID, content)
	}, MessageTag(t.conversationID), ConversationTag())
	if err != nil {
		return fmt.Errorf("chat: send: %w", err)
	}

	t.mu.Lock()
	t.input = ""
	t.mu.Unlock()

	// The tag invalidation above already covers this; the explicit refetch
	// is redundant but safe.
	t.store.Refetch(MessagesKey(t.conversationID))
	return nil
}

// Delete removes a message and refreshes the history and conversation list.
func (t *Thread) Delete(ctx context.Context, messageID int) error {
	_, err := t.store.Mutate(ctx, func(ctx context.Context) (any, error) {
		return nil, t.client.DeleteMessage(ctx, messageID)
	}, MessageTag(t.conversationID), ConversationTag())
	if err != nil {
		return fmt.Errorf("chat: delete message %d: %w", messageID, err)
	}
	return nil
}

// UnreadCount fetches the conversation's current unread count.
func (t *Thread) UnreadCount(ctx context.Context) (int, error) {
	return t.client.UnreadCount(ctx, t.conversationID)
}

// Messages waits for the history to settle and returns it in chronological
// order (the server sends newest first; rendering inverts it).
func (t *Thread) Messages(ctx context.Context) ([]MessageView, error) {
	t.mu.Lock()
	sub := t.sub
	t.mu.Unlock()
	if sub == nil {
		return nil, fmt.Errorf("chat: thread not activated")
	}

	res, err := sub.Wait(ctx)
	if err != nil {
		return nil, err
	}
	views := t.renderMessages(res.Value)
	if res.Err != nil {
		return views, fmt.Errorf("chat: load messages: %w", res.Err)
	}
	return views, nil
}

// Close abandons the subscription.
func (t *Thread) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sub != nil {
		t.sub.Close()
		t.sub = nil
	}
}

// renderMessages inverts server order and computes ownership. A message is
// mine exactly when its sender's user ID equals the principal's ID.
func (t *Thread) renderMessages(value any) []MessageView {
	messages, ok := value.([]Message)
	if !ok {
		return nil
	}
	principal := t.sessions.Principal()

	views := make([]MessageView, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		views = append(views, MessageView{
			ID:         m.ID,
			SenderName: m.Sender.User.Name,
			Content:    m.Content,
			Time:       m.Time(),
			Mine:       principal != nil && m.Sender.User.ID == principal.ID,
		})
	}
	return views
}
