package domain

import "time"

// Notification tells a user that something happened to one of their
// transactions. TransactionID is always set; LikeID or CommentID additionally
// points at the triggering like or comment (at most one of the two).
// Notifications are only ever mutated by the recipient marking them read.
type Notification struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	TransactionID string    `json:"transactionId"`
	LikeID        *string   `json:"likeId,omitempty"`
	CommentID     *string   `json:"commentId,omitempty"`
	IsRead        bool      `json:"isRead"`
	CreatedAt     time.Time `json:"createdAt"`
	ModifiedAt    time.Time `json:"modifiedAt"`
}

// NotificationItem is one caller-supplied shell for bulk creation. Each item
// must reference an existing transaction and, when set, an existing like or
// comment.
type NotificationItem struct {
	TransactionID string  `json:"transactionId"`
	LikeID        *string `json:"likeId,omitempty"`
	CommentID     *string `json:"commentId,omitempty"`
}
