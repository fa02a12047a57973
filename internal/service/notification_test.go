package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mkale/payfeed/internal/domain"
	"github.com/mkale/payfeed/internal/store"
)

func TestBulkCreateNotifications(t *testing.T) {
	st := store.NewMemory()
	svc := NewNotifications(st, testLogger())
	social := NewSocial(st)
	ctx := context.Background()

	alice := newTestUser(t, st, "alice", "100")
	bob := newTestUser(t, st, "bob", "100")
	tx := newTestPayment(t, st, alice, bob, "10", domain.PrivacyPublic, timeNowMinus(t, 10))
	like, err := social.AddLike(ctx, bob.ID, tx.ID)
	if err != nil {
		t.Fatalf("add like: %v", err)
	}
	comment, err := social.AddComment(ctx, bob.ID, tx.ID, "hey")
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}

	before, err := st.UnreadNotifications(ctx, alice.ID)
	if err != nil {
		t.Fatalf("unread before: %v", err)
	}

	created, err := svc.BulkCreate(ctx, alice.ID, []domain.NotificationItem{
		{TransactionID: tx.ID},
		{TransactionID: tx.ID, LikeID: &like.ID},
		{TransactionID: tx.ID, CommentID: &comment.ID},
	})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created %d notifications, want 3", len(created))
	}
	for _, n := range created {
		if n.UserID != alice.ID {
			t.Errorf("notification recipient = %s, want %s", n.UserID, alice.ID)
		}
		if n.ID == "" || n.CreatedAt.IsZero() {
			t.Errorf("notification %+v missing id or timestamp", n)
		}
	}

	after, err := st.UnreadNotifications(ctx, alice.ID)
	if err != nil {
		t.Fatalf("unread after: %v", err)
	}
	if len(after) != len(before)+3 {
		t.Errorf("unread grew by %d, want 3", len(after)-len(before))
	}
}

func TestBulkCreateRejectsWholeBatch(t *testing.T) {
	st := store.NewMemory()
	svc := NewNotifications(st, testLogger())
	ctx := context.Background()

	alice := newTestUser(t, st, "alice", "100")
	bob := newTestUser(t, st, "bob", "100")
	tx := newTestPayment(t, st, alice, bob, "10", domain.PrivacyPublic, timeNowMinus(t, 10))

	// Second item references a transaction that does not exist; the valid
	// first item must not be persisted either.
	_, err := svc.BulkCreate(ctx, alice.ID, []domain.NotificationItem{
		{TransactionID: tx.ID},
		{TransactionID: "missing"},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("bulk create: err = %v, want ErrNotFound", err)
	}

	ns, err := st.UnreadNotifications(ctx, alice.ID)
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if len(ns) != 0 {
		t.Errorf("partial batch persisted: %d notifications written", len(ns))
	}

	// An item naming both a like and a comment is malformed.
	likeID, commentID := "l1", "c1"
	_, err = svc.BulkCreate(ctx, alice.ID, []domain.NotificationItem{
		{TransactionID: tx.ID, LikeID: &likeID, CommentID: &commentID},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("like+comment item: err = %v, want ErrValidation", err)
	}
}

func TestMarkRead(t *testing.T) {
	st := store.NewMemory()
	svc := NewNotifications(st, testLogger())
	social := NewSocial(st)
	ctx := context.Background()

	alice := newTestUser(t, st, "alice", "100")
	bob := newTestUser(t, st, "bob", "100")
	mallory := newTestUser(t, st, "mallory", "100")
	tx := newTestPayment(t, st, alice, bob, "10", domain.PrivacyPublic, timeNowMinus(t, 10))

	if _, err := social.AddLike(ctx, bob.ID, tx.ID); err != nil {
		t.Fatalf("add like: %v", err)
	}
	ns, err := svc.ListUnread(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(ns) != 1 {
		t.Fatalf("unread = %d, want 1", len(ns))
	}
	target := ns[0]

	// Only the recipient may mark it.
	if err := svc.MarkRead(ctx, mallory.ID, target.ID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("stranger markRead: err = %v, want ErrUnauthorized", err)
	}
	if err := svc.MarkRead(ctx, alice.ID, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing notification: err = %v, want ErrNotFound", err)
	}

	if err := svc.MarkRead(ctx, alice.ID, target.ID); err != nil {
		t.Fatalf("markRead: %v", err)
	}
	// Marking again is a no-op, not an error.
	if err := svc.MarkRead(ctx, alice.ID, target.ID); err != nil {
		t.Errorf("second markRead: %v", err)
	}

	ns, err = svc.ListUnread(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list unread after: %v", err)
	}
	if len(ns) != 0 {
		t.Errorf("unread after markRead = %d, want 0", len(ns))
	}
}

func TestListUnreadEmpty(t *testing.T) {
	st := store.NewMemory()
	svc := NewNotifications(st, testLogger())

	alice := newTestUser(t, st, "alice", "100")
	ns, err := svc.ListUnread(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if ns == nil {
		t.Fatal("unread list is nil, want empty slice")
	}
	if len(ns) != 0 {
		t.Errorf("unread = %d, want 0", len(ns))
	}
}
