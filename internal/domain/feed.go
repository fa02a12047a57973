package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeedItem is a transaction decorated for the feeds: sender/receiver display
// fields plus the nested comments and likes.
type FeedItem struct {
	Transaction
	SenderName     string    `json:"senderName"`
	SenderAvatar   string    `json:"senderAvatar,omitempty"`
	ReceiverName   string    `json:"receiverName"`
	ReceiverAvatar string    `json:"receiverAvatar,omitempty"`
	Comments       []Comment `json:"comments"`
	Likes          []Like    `json:"likes"`
}

// FeedFilters narrows a feed. Empty/nil fields are ignored. Status values are
// normalized to the canonical enums before they reach the composer.
type FeedFilters struct {
	Status        TransactionStatus
	RequestStatus RequestStatus
	AmountMin     *decimal.Decimal
	AmountMax     *decimal.Decimal
	DateBegin     *time.Time
	DateEnd       *time.Time
}

// Match reports whether a transaction passes all set filters.
func (f FeedFilters) Match(t *Transaction) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.RequestStatus != "" && (t.RequestStatus == nil || *t.RequestStatus != f.RequestStatus) {
		return false
	}
	if f.AmountMin != nil && t.Amount.LessThan(*f.AmountMin) {
		return false
	}
	if f.AmountMax != nil && t.Amount.GreaterThan(*f.AmountMax) {
		return false
	}
	if f.DateBegin != nil && t.CreatedAt.Before(*f.DateBegin) {
		return false
	}
	if f.DateEnd != nil && t.CreatedAt.After(*f.DateEnd) {
		return false
	}
	return true
}

// Page is one slice of an ordered sequence plus its paging metadata.
type Page[T any] struct {
	Data         []T  `json:"data"`
	Page         int  `json:"page"`
	Limit        int  `json:"limit"`
	TotalPages   int  `json:"totalPages"`
	HasNextPages bool `json:"hasNextPages"`
}
