// Package store holds the narrow persistence contract the core reads and
// writes through, plus its Postgres and in-memory implementations.
package store

import (
	"context"
	"time"

	"github.com/mkale/payfeed/internal/domain"
)

// Store is the ledger store adapter. Every call is atomic: the composite
// mutations (CreateComment, CreateLike, ResolveRequest) persist the primary
// record together with its fan-out notifications, or nothing at all.
//
// Scans return newest-first ordering where noted; the ordering must be stable
// so that repeated pagination over the same data yields identical slices.
type Store interface {
	// Users
	CreateUser(ctx context.Context, u *domain.User) error
	UserByID(ctx context.Context, id string) (*domain.User, error)
	UserByUsername(ctx context.Context, username string) (*domain.User, error)
	UsersByIDs(ctx context.Context, ids []string) (map[string]domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	SearchUsers(ctx context.Context, q string) ([]domain.User, error)
	// UpdateUser applies a partial update; a username collision returns
	// domain.ErrConflict.
	UpdateUser(ctx context.Context, id string, patch domain.UserPatch) error

	// Contacts
	CreateContact(ctx context.Context, c *domain.Contact) error
	// ContactIDs returns the symmetric contact set of userID: every user that
	// appears with userID in a contact row, in either direction, deduplicated.
	ContactIDs(ctx context.Context, userID string) ([]string, error)

	// Transactions
	CreateTransaction(ctx context.Context, t *domain.Transaction) error
	TransactionByID(ctx context.Context, id string) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, patch domain.TransactionPatch) error
	// ResolveRequest performs the guarded pending→resolved transition. It only
	// succeeds when the row is still request-pending; a lost race returns
	// domain.ErrInvalidState. The fan-out notifications are inserted in the
	// same atomic step.
	ResolveRequest(ctx context.Context, id string, status domain.RequestStatus, at time.Time, fanout []domain.Notification) (*domain.Transaction, error)
	// TransactionsForUser returns transactions where userID is sender or
	// receiver, any privacy level, newest first.
	TransactionsForUser(ctx context.Context, userID string) ([]domain.Transaction, error)
	// TransactionsForContacts returns non-private transactions where the
	// sender or receiver is one of contactIDs, newest first.
	TransactionsForContacts(ctx context.Context, contactIDs []string) ([]domain.Transaction, error)
	// PublicTransactions returns all public transactions, newest first.
	PublicTransactions(ctx context.Context) ([]domain.Transaction, error)

	// Comments and likes
	CreateComment(ctx context.Context, c *domain.Comment, fanout []domain.Notification) error
	CommentsByTransactionIDs(ctx context.Context, ids []string) (map[string][]domain.Comment, error)
	// CreateLike enforces at most one like per (user, transaction); a
	// duplicate returns domain.ErrConflict and inserts nothing.
	CreateLike(ctx context.Context, l *domain.Like, fanout []domain.Notification) error
	LikeByID(ctx context.Context, id string) (*domain.Like, error)
	LikesByTransactionIDs(ctx context.Context, ids []string) (map[string][]domain.Like, error)

	// Notifications
	CreateNotifications(ctx context.Context, ns []domain.Notification) error
	NotificationByID(ctx context.Context, id string) (*domain.Notification, error)
	UpdateNotificationRead(ctx context.Context, id string, isRead bool, at time.Time) error
	// UnreadNotifications returns unread notifications for userID in creation
	// order.
	UnreadNotifications(ctx context.Context, userID string) ([]domain.Notification, error)
	CommentByID(ctx context.Context, id string) (*domain.Comment, error)

	Close()
}
