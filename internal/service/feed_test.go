package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mkale/payfeed/internal/domain"
	"github.com/mkale/payfeed/internal/store"
)

func TestPublicFeedHidesPrivateTraffic(t *testing.T) {
	st := store.NewMemory()
	feed := NewFeed(st)
	ctx := context.Background()

	alice := newTestUser(t, st, "alice", "100")
	bob := newTestUser(t, st, "bob", "100")

	// Five transactions, oldest first; two of them private.
	newTestPayment(t, st, alice, bob, "1", domain.PrivacyPublic, timeNowMinus(t, 50))
	newTestPayment(t, st, alice, bob, "2", domain.PrivacyPrivate, timeNowMinus(t, 40))
	p3 := newTestPayment(t, st, alice, bob, "3", domain.PrivacyPublic, timeNowMinus(t, 30))
	newTestPayment(t, st, alice, bob, "4", domain.PrivacyPrivate, timeNowMinus(t, 20))
	p5 := newTestPayment(t, st, alice, bob, "5", domain.PrivacyPublic, timeNowMinus(t, 10))

	page, err := feed.Public(ctx, domain.FeedFilters{}, 1, 2)
	if err != nil {
		t.Fatalf("public feed: %v", err)
	}
	if len(page.Data) != 2 {
		t.Fatalf("page 1 size = %d, want 2", len(page.Data))
	}
	if page.Data[0].ID != p5.ID || page.Data[1].ID != p3.ID {
		t.Errorf("page 1 = [%s %s], want newest two public [%s %s]",
			page.Data[0].ID, page.Data[1].ID, p5.ID, p3.ID)
	}
	if page.TotalPages != 2 {
		t.Errorf("totalPages = %d, want 2", page.TotalPages)
	}
	if !page.HasNextPages {
		t.Error("hasNextPages = false, want true")
	}

	page2, err := feed.Public(ctx, domain.FeedFilters{}, 2, 2)
	if err != nil {
		t.Fatalf("public feed page 2: %v", err)
	}
	if len(page2.Data) != 1 {
		t.Fatalf("page 2 size = %d, want 1", len(page2.Data))
	}
	if page2.HasNextPages {
		t.Error("page 2 hasNextPages = true, want false")
	}
}

func TestOwnFeedIncludesPrivate(t *testing.T) {
	st := store.NewMemory()
	feed := NewFeed(st)
	ctx := context.Background()

	alice := newTestUser(t, st, "alice", "100")
	bob := newTestUser(t, st, "bob", "100")
	carol := newTestUser(t, st, "carol", "100")

	newTestPayment(t, st, alice, bob, "1", domain.PrivacyPrivate, timeNowMinus(t, 30))
	newTestPayment(t, st, bob, alice, "2", domain.PrivacyPublic, timeNowMinus(t, 20))
	newTestPayment(t, st, bob, carol, "3", domain.PrivacyPublic, timeNowMinus(t, 10))

	page, err := feed.Own(ctx, alice.ID, domain.FeedFilters{}, 1, 10)
	if err != nil {
		t.Fatalf("own feed: %v", err)
	}
	if len(page.Data) != 2 {
		t.Fatalf("own feed size = %d, want 2 (sent + received, private included)", len(page.Data))
	}
	for _, item := range page.Data {
		if item.SenderID != alice.ID && item.ReceiverID != alice.ID {
			t.Errorf("own feed leaked transaction %s not involving alice", item.ID)
		}
	}
}

func TestContactsFeedMergesAndDedups(t *testing.T) {
	st := store.NewMemory()
	feed := NewFeed(st)
	ctx := context.Background()

	alice := newTestUser(t, st, "alice", "100")
	bob := newTestUser(t, st, "bob", "100")
	carol := newTestUser(t, st, "carol", "100")
	dave := newTestUser(t, st, "dave", "100")

	// One direction only; the contact edge must behave symmetrically.
	newTestContact(t, st, alice.ID, bob.ID)

	// Between alice and her contact bob: reachable from both scans, must
	// appear exactly once.
	shared := newTestPayment(t, st, alice, bob, "1", domain.PrivacyContacts, timeNowMinus(t, 40))
	// Bob's traffic with a third party, visible to alice.
	bobSide := newTestPayment(t, st, bob, carol, "2", domain.PrivacyPublic, timeNowMinus(t, 30))
	// Bob's private traffic, never surfaced to a contact.
	newTestPayment(t, st, bob, carol, "3", domain.PrivacyPrivate, timeNowMinus(t, 20))
	// Unrelated users, not in alice's contact set.
	newTestPayment(t, st, carol, dave, "4", domain.PrivacyPublic, timeNowMinus(t, 10))

	page, err := feed.Contacts(ctx, alice.ID, domain.FeedFilters{}, 1, 10)
	if err != nil {
		t.Fatalf("contacts feed: %v", err)
	}
	ids := make(map[string]int)
	for _, item := range page.Data {
		ids[item.ID]++
	}
	if len(page.Data) != 2 {
		t.Fatalf("contacts feed size = %d, want 2: got %v", len(page.Data), ids)
	}
	if ids[shared.ID] != 1 {
		t.Errorf("shared transaction appeared %d times, want exactly 1", ids[shared.ID])
	}
	if ids[bobSide.ID] != 1 {
		t.Errorf("contact's public transaction missing from feed")
	}

	// The reverse direction sees alice's side too.
	bobPage, err := feed.Contacts(ctx, bob.ID, domain.FeedFilters{}, 1, 10)
	if err != nil {
		t.Fatalf("contacts feed for bob: %v", err)
	}
	found := false
	for _, item := range bobPage.Data {
		if item.ID == shared.ID {
			found = true
		}
	}
	if !found {
		t.Error("contact edge not symmetric: bob cannot see the shared transaction")
	}
}

func TestFeedFilters(t *testing.T) {
	st := store.NewMemory()
	feed := NewFeed(st)
	ctx := context.Background()

	alice := newTestUser(t, st, "alice", "100")
	bob := newTestUser(t, st, "bob", "100")

	newTestPayment(t, st, alice, bob, "5", domain.PrivacyPublic, timeNowMinus(t, 60))
	mid := newTestPayment(t, st, alice, bob, "25", domain.PrivacyPublic, timeNowMinus(t, 30))
	newTestPayment(t, st, alice, bob, "100", domain.PrivacyPublic, timeNowMinus(t, 5))

	min := decimal.NewFromInt(10)
	max := decimal.NewFromInt(50)
	page, err := feed.Public(ctx, domain.FeedFilters{AmountMin: &min, AmountMax: &max}, 1, 10)
	if err != nil {
		t.Fatalf("filtered feed: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].ID != mid.ID {
		t.Fatalf("amount window matched %d transactions, want only %s", len(page.Data), mid.ID)
	}

	begin := timeNowMinus(t, 45)
	end := timeNowMinus(t, 15)
	page, err = feed.Public(ctx, domain.FeedFilters{DateBegin: &begin, DateEnd: &end}, 1, 10)
	if err != nil {
		t.Fatalf("date filtered feed: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].ID != mid.ID {
		t.Fatalf("date window matched %d transactions, want only %s", len(page.Data), mid.ID)
	}
}

func TestFeedDecoration(t *testing.T) {
	st := store.NewMemory()
	feed := NewFeed(st)
	social := NewSocial(st)
	ctx := context.Background()

	alice := newTestUser(t, st, "alice", "100")
	bob := newTestUser(t, st, "bob", "100")
	carol := newTestUser(t, st, "carol", "100")

	tx := newTestPayment(t, st, alice, bob, "10", domain.PrivacyPublic, timeNowMinus(t, 20))
	bare := newTestPayment(t, st, alice, bob, "20", domain.PrivacyPublic, timeNowMinus(t, 10))

	if _, err := social.AddComment(ctx, carol.ID, tx.ID, "nice"); err != nil {
		t.Fatalf("add comment: %v", err)
	}
	if _, err := social.AddLike(ctx, carol.ID, tx.ID); err != nil {
		t.Fatalf("add like: %v", err)
	}

	page, err := feed.Public(ctx, domain.FeedFilters{}, 1, 10)
	if err != nil {
		t.Fatalf("public feed: %v", err)
	}

	var decorated, plain *domain.FeedItem
	for i := range page.Data {
		switch page.Data[i].ID {
		case tx.ID:
			decorated = &page.Data[i]
		case bare.ID:
			plain = &page.Data[i]
		}
	}
	if decorated == nil || plain == nil {
		t.Fatal("expected both transactions in the public feed")
	}

	if decorated.SenderName != alice.FirstName || decorated.ReceiverName != bob.FirstName {
		t.Errorf("display names = %q/%q, want %q/%q",
			decorated.SenderName, decorated.ReceiverName, alice.FirstName, bob.FirstName)
	}
	if len(decorated.Comments) != 1 || decorated.Comments[0].Content != "nice" {
		t.Errorf("comments = %+v, want the one comment", decorated.Comments)
	}
	if len(decorated.Likes) != 1 || decorated.Likes[0].UserID != carol.ID {
		t.Errorf("likes = %+v, want carol's like", decorated.Likes)
	}

	if plain.Comments == nil || plain.Likes == nil {
		t.Error("undecorated transaction must carry empty, non-nil comment and like slices")
	}
	if len(plain.Comments) != 0 || len(plain.Likes) != 0 {
		t.Errorf("plain transaction unexpectedly decorated: %d comments, %d likes",
			len(plain.Comments), len(plain.Likes))
	}
}
