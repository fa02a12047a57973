// Package service holds the transaction ledger core, the feed composer, the
// notification fan-out, and their sibling user/social operations.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mkale/payfeed/internal/domain"
	"github.com/mkale/payfeed/internal/store"
)

// Ledger creates transactions and drives the request state machine.
type Ledger struct {
	store store.Store
	log   *slog.Logger
}

func NewLedger(st store.Store, log *slog.Logger) *Ledger {
	return &Ledger{store: st, log: log}
}

// CreateTransactionInput is the caller-facing payload for Create. Kind and
// PrivacyLevel arrive as raw strings and are normalized here; an empty
// PrivacyLevel falls back to the sender's default.
type CreateTransactionInput struct {
	Kind         string
	ReceiverID   string
	Amount       decimal.Decimal
	Description  string
	PrivacyLevel string
}

// Create validates the payload, snapshots the sender's balance into
// BalanceAtCompletion, and persists the new transaction. The balance is a
// read snapshot only; settlement is not the ledger core's job.
func (l *Ledger) Create(ctx context.Context, actorID string, in CreateTransactionInput) (*domain.Transaction, error) {
	kind, err := domain.ParseTransactionKind(in.Kind)
	if err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if actorID == in.ReceiverID {
		return nil, fmt.Errorf("%w: sender and receiver must differ", domain.ErrValidation)
	}

	sender, err := l.store.UserByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("sender %s: %w", actorID, err)
	}
	if _, err := l.store.UserByID(ctx, in.ReceiverID); err != nil {
		return nil, fmt.Errorf("receiver %s: %w", in.ReceiverID, err)
	}

	privacy := sender.DefaultPrivacyLevel
	if in.PrivacyLevel != "" {
		if privacy, err = domain.ParsePrivacyLevel(in.PrivacyLevel); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	var t *domain.Transaction
	if kind == domain.KindRequest {
		t = domain.NewRequest(uuid.NewString(), actorID, in.ReceiverID, in.Amount, sender.Balance, in.Description, privacy, now)
	} else {
		t = domain.NewPayment(uuid.NewString(), actorID, in.ReceiverID, in.Amount, sender.Balance, in.Description, privacy, now)
	}

	if err := l.store.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}

	l.log.Info("transaction created",
		"id", t.ID, "kind", t.Kind, "sender", t.SenderID, "receiver", t.ReceiverID,
		"amount", t.Amount.String())
	return t, nil
}

// Get returns one decorated transaction, applying the same visibility rule as
// the feeds: participants always see it, everyone else only per privacy level.
func (l *Ledger) Get(ctx context.Context, actorID, txID string) (*domain.FeedItem, error) {
	t, err := l.store.TransactionByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if err := l.checkVisibility(ctx, actorID, t); err != nil {
		return nil, err
	}

	items, err := decorate(ctx, l.store, []domain.Transaction{*t})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (l *Ledger) checkVisibility(ctx context.Context, actorID string, t *domain.Transaction) error {
	if t.Involves(actorID) || t.PrivacyLevel == domain.PrivacyPublic {
		return nil
	}
	if t.PrivacyLevel == domain.PrivacyContacts {
		contacts, err := l.store.ContactIDs(ctx, actorID)
		if err != nil {
			return err
		}
		for _, id := range contacts {
			if id == t.SenderID || id == t.ReceiverID {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: transaction %s is not visible to %s", domain.ErrUnauthorized, t.ID, actorID)
}

// ResolveRequest accepts or rejects a pending money request. Only the
// receiver (the user being asked) may resolve, and the transition is
// one-shot: the store guard lets exactly one of two racing resolutions
// through; the loser gets ErrInvalidState.
func (l *Ledger) ResolveRequest(ctx context.Context, actorID, txID, resolution string) (*domain.Transaction, error) {
	status, err := domain.ParseRequestStatus(resolution)
	if err != nil {
		return nil, err
	}
	if status == domain.RequestPending {
		return nil, fmt.Errorf("%w: resolution must be accepted or rejected", domain.ErrValidation)
	}

	t, err := l.store.TransactionByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !t.IsRequest() {
		return nil, fmt.Errorf("%w: transaction %s is not a request", domain.ErrInvalidState, txID)
	}
	if t.ReceiverID != actorID {
		return nil, fmt.Errorf("%w: only the receiver may resolve a request", domain.ErrUnauthorized)
	}
	if t.RequestStatus == nil || *t.RequestStatus != domain.RequestPending {
		return nil, fmt.Errorf("%w: request %s is not pending", domain.ErrInvalidState, txID)
	}

	now := time.Now()
	resolved, err := l.store.ResolveRequest(ctx, txID, status, now, fanoutForResolution(t, now))
	if err != nil {
		return nil, err
	}

	l.log.Info("request resolved", "id", txID, "resolution", status, "by", actorID)
	return resolved, nil
}

// PatchTransactionInput carries the fields a caller may patch. Anything else
// on the transaction is immutable after creation.
type PatchTransactionInput struct {
	Status        *string
	RequestStatus *string
	Description   *string
	PrivacyLevel  *string
}

// Patch applies a partial update restricted to the mutable fields.
// Participants only. A patched RequestStatus re-runs the request state
// machine: it must take a pending request to accepted or rejected, it goes
// through the same guarded transition (and fan-out) as ResolveRequest, and
// it cannot be combined with other field edits in the same patch.
func (l *Ledger) Patch(ctx context.Context, actorID, txID string, in PatchTransactionInput) error {
	t, err := l.store.TransactionByID(ctx, txID)
	if err != nil {
		return err
	}
	if !t.Involves(actorID) {
		return fmt.Errorf("%w: transaction %s does not involve %s", domain.ErrUnauthorized, txID, actorID)
	}

	var patch domain.TransactionPatch
	if in.Status != nil {
		status, err := domain.ParseTransactionStatus(*in.Status)
		if err != nil {
			return err
		}
		patch.Status = &status
	}
	if in.Description != nil {
		patch.Description = in.Description
	}
	if in.PrivacyLevel != nil {
		privacy, err := domain.ParsePrivacyLevel(*in.PrivacyLevel)
		if err != nil {
			return err
		}
		patch.PrivacyLevel = &privacy
	}

	var resolve *domain.RequestStatus
	if in.RequestStatus != nil {
		// A resolution is its own guarded transition; combining it with field
		// edits could leave the edits committed when the guard loses a race.
		if in.Status != nil || in.Description != nil || in.PrivacyLevel != nil {
			return fmt.Errorf("%w: requestStatus cannot be patched together with other fields", domain.ErrValidation)
		}
		status, err := domain.ParseRequestStatus(*in.RequestStatus)
		if err != nil {
			return err
		}
		if status == domain.RequestPending {
			return fmt.Errorf("%w: a request cannot return to pending", domain.ErrInvalidState)
		}
		if !t.IsRequest() {
			return fmt.Errorf("%w: transaction %s is not a request", domain.ErrInvalidState, txID)
		}
		if t.RequestStatus == nil || *t.RequestStatus != domain.RequestPending {
			return fmt.Errorf("%w: request %s is not pending", domain.ErrInvalidState, txID)
		}
		resolve = &status
	}

	if patch.Status != nil || patch.Description != nil || patch.PrivacyLevel != nil {
		if err := l.store.UpdateTransaction(ctx, txID, patch); err != nil {
			return err
		}
	}
	if resolve != nil {
		now := time.Now()
		if _, err := l.store.ResolveRequest(ctx, txID, *resolve, now, fanoutForResolution(t, now)); err != nil {
			return err
		}
	}
	return nil
}
