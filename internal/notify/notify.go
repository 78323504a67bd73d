// Package notify watches the conversation list on a cron schedule and
// reports newly arrived unread messages, remembering the last observed
// counts between runs.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/moatasem1234/madrasati/internal/chat"
	"github.com/moatasem1234/madrasati/internal/state"
)

// Alert is one newly observed batch of unread messages in a conversation.
type Alert struct {
	ConversationID  int
	ParticipantName string
	UnreadCount     int
	NewMessages     int
}

// Watcher polls the conversation list and diffs unread counts against the
// persisted snapshots.
type Watcher struct {
	db     *gorm.DB
	client *chat.Client
	log    zerolog.Logger

	schedule string
}

// New creates a watcher with a 5-field cron schedule.
func New(db *gorm.DB, client *chat.Client, schedule string, log zerolog.Logger) *Watcher {
	return &Watcher{db: db, client: client, log: log, schedule: schedule}
}

// Run polls on the configured schedule until ctx is cancelled. An
// unparseable schedule is reported up front; individual poll failures are
// logged and the loop continues.
func (w *Watcher) Run(ctx context.Context) error {
	sched, err := parseSchedule(w.schedule)
	if err != nil {
		return err
	}
	timer := time.NewTimer(untilNext(sched))
	defer timer.Stop()

	w.log.Info().Str("schedule", w.schedule).Msg("watcher started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			alerts, err := w.Poll(ctx)
			if err != nil {
				w.log.Warn().Err(err).Msg("poll failed")
			}
			for _, a := range alerts {
				w.log.Info().
					Int("conversation_id", a.ConversationID).
					Str("participant", a.ParticipantName).
					Int("new_messages", a.NewMessages).
					Int("unread_count", a.UnreadCount).
					Msg("new messages")
			}
			timer.Reset(untilNext(sched))
		}
	}
}

// Poll fetches the conversation list once and returns the conversations
// whose unread count grew since the previous poll. Snapshots are updated
// for every conversation seen, including ones that only shrank.
func (w *Watcher) Poll(ctx context.Context) ([]Alert, error) {
	conversations, err := w.client.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("notify: poll: %w", err)
	}
	previous, err := state.LoadSnapshots(w.db)
	if err != nil {
		return nil, fmt.Errorf("notify: poll: %w", err)
	}

	var alerts []Alert
	for _, c := range conversations {
		prev := previous[c.ID].UnreadCount
		if c.UnreadCount > prev {
			alerts = append(alerts, Alert{
				ConversationID:  c.ID,
				ParticipantName: c.Participant.Name,
				UnreadCount:     c.UnreadCount,
				NewMessages:     c.UnreadCount - prev,
			})
		}
		err := state.SaveSnapshot(w.db, state.UnreadSnapshot{
			ConversationID:  c.ID,
			ParticipantName: c.Participant.Name,
			UnreadCount:     c.UnreadCount,
		})
		if err != nil {
			return alerts, err
		}
	}
	return alerts, nil
}
