package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkale/payfeed/internal/domain"
	"github.com/mkale/payfeed/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestUser(t *testing.T, st store.Store, username string, balance string) *domain.User {
	t.Helper()
	bal, err := decimal.NewFromString(balance)
	if err != nil {
		t.Fatalf("bad balance %q: %v", balance, err)
	}
	now := time.Now()
	u := &domain.User{
		ID:                  uuid.NewString(),
		Username:            username,
		FirstName:           username,
		Balance:             bal,
		DefaultPrivacyLevel: domain.PrivacyContacts,
		PasswordHash:        "x",
		CreatedAt:           now,
		ModifiedAt:          now,
	}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func newTestContact(t *testing.T, st store.Store, userID, contactUserID string) {
	t.Helper()
	err := st.CreateContact(context.Background(), &domain.Contact{
		ID:            uuid.NewString(),
		UserID:        userID,
		ContactUserID: contactUserID,
		CreatedAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
}

// timeNowMinus gives tests an explicit chronology for feed ordering.
func timeNowMinus(t *testing.T, minutes int) time.Time {
	t.Helper()
	return time.Now().Add(-time.Duration(minutes) * time.Minute)
}

// newTestPayment inserts a payment directly at the store layer with an
// explicit creation time, so feed-ordering tests control the chronology.
func newTestPayment(t *testing.T, st store.Store, sender, receiver *domain.User, amount string, privacy domain.PrivacyLevel, at time.Time) *domain.Transaction {
	t.Helper()
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("bad amount %q: %v", amount, err)
	}
	tx := domain.NewPayment(uuid.NewString(), sender.ID, receiver.ID, amt, sender.Balance, "test payment", privacy, at)
	if err := st.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return tx
}
