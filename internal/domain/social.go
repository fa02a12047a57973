package domain

import "time"

// Comment is a user remark on a transaction. Comments are append-only.
type Comment struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"createdAt"`
	ModifiedAt    time.Time `json:"modifiedAt"`
}

// Like marks that a user liked a transaction. At most one like may exist per
// (UserID, TransactionID) pair; the store enforces the uniqueness.
type Like struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	CreatedAt     time.Time `json:"createdAt"`
}
