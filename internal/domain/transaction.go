package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind distinguishes a completed-intent payment from a money ask.
type TransactionKind string

const (
	KindPayment TransactionKind = "payment"
	KindRequest TransactionKind = "request"
)

// TransactionStatus is the payment lifecycle. Requests leave it empty until
// the settlement collaborator transitions them.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusComplete TransactionStatus = "complete"
)

// RequestStatus is the request lifecycle, set only when Kind is KindRequest.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// PrivacyLevel scopes who may see a transaction in the feeds.
type PrivacyLevel string

const (
	PrivacyPublic   PrivacyLevel = "public"
	PrivacyPrivate  PrivacyLevel = "private"
	PrivacyContacts PrivacyLevel = "contacts"
)

// Transaction is one ledger entry between two users.
//
// Two overlapping lifecycles share the struct: payments carry Status, requests
// carry RequestStatus. Illegal combinations are fenced by NewPayment and
// NewRequest; nothing else constructs a Transaction.
//
// Invariants: RequestResolvedAt is non-nil iff RequestStatus is accepted or
// rejected; BalanceAtCompletion is the sender's balance captured at creation
// and is never rewritten.
type Transaction struct {
	ID                  string            `json:"id"`
	Kind                TransactionKind   `json:"kind"`
	SenderID            string            `json:"senderId"`
	ReceiverID          string            `json:"receiverId"`
	Amount              decimal.Decimal   `json:"amount"`
	Description         string            `json:"description"`
	PrivacyLevel        PrivacyLevel      `json:"privacyLevel"`
	Status              TransactionStatus `json:"status,omitempty"`
	RequestStatus       *RequestStatus    `json:"requestStatus,omitempty"`
	RequestResolvedAt   *time.Time        `json:"requestResolvedAt,omitempty"`
	BalanceAtCompletion decimal.Decimal   `json:"balanceAtCompletion"`
	CreatedAt           time.Time         `json:"createdAt"`
	ModifiedAt          time.Time         `json:"modifiedAt"`
}

// NewPayment builds a payment transaction with the sender's balance snapshot.
func NewPayment(id, senderID, receiverID string, amount, balance decimal.Decimal, description string, privacy PrivacyLevel, now time.Time) *Transaction {
	return &Transaction{
		ID:                  id,
		Kind:                KindPayment,
		SenderID:            senderID,
		ReceiverID:          receiverID,
		Amount:              amount,
		Description:         description,
		PrivacyLevel:        privacy,
		Status:              StatusPending,
		BalanceAtCompletion: balance,
		CreatedAt:           now,
		ModifiedAt:          now,
	}
}

// NewRequest builds a request transaction awaiting resolution by the receiver.
func NewRequest(id, senderID, receiverID string, amount, balance decimal.Decimal, description string, privacy PrivacyLevel, now time.Time) *Transaction {
	pending := RequestPending
	return &Transaction{
		ID:                  id,
		Kind:                KindRequest,
		SenderID:            senderID,
		ReceiverID:          receiverID,
		Amount:              amount,
		Description:         description,
		PrivacyLevel:        privacy,
		RequestStatus:       &pending,
		BalanceAtCompletion: balance,
		CreatedAt:           now,
		ModifiedAt:          now,
	}
}

// IsRequest reports whether the transaction is a money ask.
func (t *Transaction) IsRequest() bool { return t.Kind == KindRequest }

// Involves reports whether userID is the sender or the receiver.
func (t *Transaction) Involves(userID string) bool {
	return t.SenderID == userID || t.ReceiverID == userID
}

// TransactionPatch carries the mutable fields of a transaction. Nil means
// leave the field unchanged. RequestResolvedAt is stamped by the core when a
// patched RequestStatus leaves pending; callers cannot set it directly.
type TransactionPatch struct {
	Status            *TransactionStatus
	RequestStatus     *RequestStatus
	RequestResolvedAt *time.Time
	Description       *string
	PrivacyLevel      *PrivacyLevel
}

// ParseTransactionKind normalizes a caller-supplied kind.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch k := TransactionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPayment, KindRequest:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown transaction kind %q", ErrValidation, s)
	}
}

// ParseTransactionStatus normalizes a caller-supplied payment status.
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch st := TransactionStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusComplete:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
	}
}

// ParseRequestStatus normalizes a caller-supplied request status.
func ParseRequestStatus(s string) (RequestStatus, error) {
	switch st := RequestStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case RequestPending, RequestAccepted, RequestRejected:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown request status %q", ErrValidation, s)
	}
}

// ParsePrivacyLevel normalizes a caller-supplied privacy level.
func ParsePrivacyLevel(s string) (PrivacyLevel, error) {
	switch p := PrivacyLevel(strings.ToLower(strings.TrimSpace(s))); p {
	case PrivacyPublic, PrivacyPrivate, PrivacyContacts:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown privacy level %q", ErrValidation, s)
	}
}
