package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mkale/payfeed/internal/domain"
	"github.com/mkale/payfeed/internal/store"
)

// Notifications manages notification records and their read state. The
// derivations below (fanoutFor*) are the single source of who gets told about
// likes, comments, and request resolutions; the mutating store calls persist
// them atomically with the triggering record.
type Notifications struct {
	store store.Store
	log   *slog.Logger
}

func NewNotifications(st store.Store, log *slog.Logger) *Notifications {
	return &Notifications{store: st, log: log}
}

// fanoutForLike notifies each participant of the liked transaction except the
// liker themselves.
func fanoutForLike(t *domain.Transaction, l *domain.Like, now time.Time) []domain.Notification {
	return notifyParticipants(t, l.UserID, now, func(n *domain.Notification) {
		n.LikeID = &l.ID
	})
}

// fanoutForComment notifies each participant except the commenter.
func fanoutForComment(t *domain.Transaction, c *domain.Comment, now time.Time) []domain.Notification {
	return notifyParticipants(t, c.UserID, now, func(n *domain.Notification) {
		n.CommentID = &c.ID
	})
}

// fanoutForResolution notifies the original requester (the sender of a
// request transaction) that their ask was resolved.
func fanoutForResolution(t *domain.Transaction, now time.Time) []domain.Notification {
	return []domain.Notification{{
		ID:            uuid.NewString(),
		UserID:        t.SenderID,
		TransactionID: t.ID,
		CreatedAt:     now,
		ModifiedAt:    now,
	}}
}

func notifyParticipants(t *domain.Transaction, exclude string, now time.Time, decorate func(*domain.Notification)) []domain.Notification {
	var out []domain.Notification
	for _, userID := range []string{t.SenderID, t.ReceiverID} {
		if userID == exclude {
			continue
		}
		n := domain.Notification{
			ID:            uuid.NewString(),
			UserID:        userID,
			TransactionID: t.ID,
			CreatedAt:     now,
			ModifiedAt:    now,
		}
		decorate(&n)
		out = append(out, n)
	}
	return out
}

// BulkCreate persists caller-supplied notification shells for userID. Every
// item is validated against the store before anything is written; a single
// bad reference fails the whole batch with nothing persisted.
func (s *Notifications) BulkCreate(ctx context.Context, userID string, items []domain.NotificationItem) ([]domain.Notification, error) {
	if len(items) == 0 {
		return []domain.Notification{}, nil
	}

	now := time.Now()
	ns := make([]domain.Notification, 0, len(items))
	for i, item := range items {
		if item.LikeID != nil && item.CommentID != nil {
			return nil, fmt.Errorf("%w: item %d references both a like and a comment", domain.ErrValidation, i)
		}
		if _, err := s.store.TransactionByID(ctx, item.TransactionID); err != nil {
			return nil, fmt.Errorf("item %d transaction %s: %w", i, item.TransactionID, err)
		}
		if item.LikeID != nil {
			if _, err := s.store.LikeByID(ctx, *item.LikeID); err != nil {
				return nil, fmt.Errorf("item %d like %s: %w", i, *item.LikeID, err)
			}
		}
		if item.CommentID != nil {
			if _, err := s.store.CommentByID(ctx, *item.CommentID); err != nil {
				return nil, fmt.Errorf("item %d comment %s: %w", i, *item.CommentID, err)
			}
		}
		ns = append(ns, domain.Notification{
			ID:            uuid.NewString(),
			UserID:        userID,
			TransactionID: item.TransactionID,
			LikeID:        item.LikeID,
			CommentID:     item.CommentID,
			CreatedAt:     now,
			ModifiedAt:    now,
		})
	}

	if err := s.store.CreateNotifications(ctx, ns); err != nil {
		return nil, err
	}
	s.log.Debug("notifications bulk created", "user", userID, "count", len(ns))
	return ns, nil
}

// MarkRead marks a notification read. Recipient only; marking an already-read
// notification is a no-op.
func (s *Notifications) MarkRead(ctx context.Context, actorID, notificationID string) error {
	n, err := s.store.NotificationByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != actorID {
		return fmt.Errorf("%w: notification %s does not belong to %s", domain.ErrUnauthorized, notificationID, actorID)
	}
	if n.IsRead {
		return nil
	}
	return s.store.UpdateNotificationRead(ctx, notificationID, true, time.Now())
}

// ListUnread returns the user's unread notifications in creation order.
func (s *Notifications) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	ns, err := s.store.UnreadNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ns == nil {
		ns = []domain.Notification{}
	}
	return ns, nil
}
