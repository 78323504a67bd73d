package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/moatasem1234/madrasati/internal/api"
	"github.com/moatasem1234/madrasati/internal/cache"
	"github.com/moatasem1234/madrasati/internal/directory"
	"github.com/moatasem1234/madrasati/internal/session"
)

// Candidate is one eligible counter-party.
type Candidate struct {
	ID   int
	Name string
}

// RecipientPicker drives the start-conversation view: it lists the
// counter-party directory for the principal's role and stages a recipient.
type RecipientPicker struct {
	store  *cache.Store
	client *Client
	dir    *directory.Client
	log    zerolog.Logger

	role string // resolved principal role: "parent" or "teacher"

	mu          sync.Mutex
	recipientID int
	staged      bool
	sub         *cache.Subscription
}

// ResolveRole returns the principal's chat role. When a principal holds
// both roles, parent takes precedence; the rule is fixed rather than
// dependent on the order of the server's role collection.
func ResolveRole(p *session.Principal) (string, error) {
	if p.HasRole(RoleParent) {
		return RoleParent, nil
	}
	if p.HasRole(RoleTeacher) {
		return RoleTeacher, nil
	}
	return "", fmt.Errorf("chat: principal holds neither parent nor teacher role")
}

// complementRole returns the counter-party role.
func complementRole(role string) string {
	if role == RoleParent {
		return RoleTeacher
	}
	return RoleParent
}

// NewRecipientPicker creates the controller for the given principal.
func NewRecipientPicker(store *cache.Store, client *Client, dir *directory.Client, principal *session.Principal, log zerolog.Logger) (*RecipientPicker, error) {
	role, err := ResolveRole(principal)
	if err != nil {
		return nil, err
	}
	return &RecipientPicker{store: store, client: client, dir: dir, log: log, role: role}, nil
}

// Role returns the principal's resolved role.
func (p *RecipientPicker) Role() string { return p.role }

// RecipientType returns the role of the counter-party list being offered.
func (p *RecipientPicker) RecipientType() string { return complementRole(p.role) }

// Candidates returns the eligible counter-parties: teachers for a parent
// principal, parents for a teacher principal.
func (p *RecipientPicker) Candidates(ctx context.Context) ([]Candidate, error) {
	p.mu.Lock()
	if p.sub == nil {
		if p.role == RoleParent {
			p.sub = p.store.Subscribe(directory.TeachersKey(),
				[]cache.Tag{{Type: directory.TagTeacher}},
				func(ctx context.Context) (any, error) {
					return p.dir.ListTeachers(ctx)
				})
		} else {
			p.sub = p.store.Subscribe(directory.ParentsKey(),
				[]cache.Tag{{Type: directory.TagParent}},
				func(ctx context.Context) (any, error) {
					return p.dir.ListParents(ctx)
				})
		}
	}
	sub := p.sub
	p.mu.Unlock()

	res, err := sub.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, fmt.Errorf("chat: load recipients: %w", res.Err)
	}

	records, _ := res.Value.([]directory.Record)
	candidates := make([]Candidate, 0, len(records))
	for _, r := range records {
		candidates = append(candidates, Candidate{ID: r.ID, Name: r.User.Name})
	}
	return candidates, nil
}

// Select stages a recipient by directory record ID.
func (p *RecipientPicker) Select(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recipientID = id
	p.staged = true
}

// Selected returns the staged recipient, if any.
func (p *RecipientPicker) Selected() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recipientID, p.staged
}

// Start opens a conversation with the staged recipient. Without a staged
// recipient it fails with a validation error before any network call. On
// success the conversation-list tag is invalidated so the new conversation
// appears without a manual refresh; the caller decides whether to navigate
// into it.
func (p *RecipientPicker) Start(ctx context.Context, title string) (ConversationRef, error) {
	p.mu.Lock()
	recipientID, staged := p.recipientID, p.staged
	p.mu.Unlock()

	if !staged {
		return ConversationRef{}, &api.ValidationError{Msg: "a recipient is required"}
	}

	out, err := p.store.Mutate(ctx, func(ctx context.Context) (any, error) {
		return p.client.StartConversation(ctx, StartConversationParams{
			RecipientID:   recipientID,
			RecipientType: p.RecipientType(),
			Title:         title,
		})
	}, ConversationTag())
	if err != nil {
		return ConversationRef{}, fmt.Errorf("chat: start conversation: %w", err)
	}
	ref, _ := out.(ConversationRef)
	return ref, nil
}

// Close abandons the candidates subscription.
func (p *RecipientPicker) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sub != nil {
		p.sub.Close()
		p.sub = nil
	}
}
