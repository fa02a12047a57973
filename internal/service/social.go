package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkale/payfeed/internal/domain"
	"github.com/mkale/payfeed/internal/store"
)

// Social handles comments and likes on transactions.
type Social struct {
	store store.Store
}

func NewSocial(st store.Store) *Social {
	return &Social{store: st}
}

// AddComment appends a comment to a transaction and fans out a notification
// to every participant except the commenter, atomically with the comment.
func (s *Social) AddComment(ctx context.Context, userID, txID, content string) (*domain.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: comment content is required", domain.ErrValidation)
	}
	t, err := s.store.TransactionByID(ctx, txID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	comment := &domain.Comment{
		ID:            uuid.NewString(),
		TransactionID: txID,
		UserID:        userID,
		Content:       content,
		CreatedAt:     now,
		ModifiedAt:    now,
	}

	if err := s.store.CreateComment(ctx, comment, fanoutForComment(t, comment, now)); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns the comments of a transaction in creation order.
func (s *Social) ListComments(ctx context.Context, txID string) ([]domain.Comment, error) {
	if _, err := s.store.TransactionByID(ctx, txID); err != nil {
		return nil, err
	}
	byTx, err := s.store.CommentsByTransactionIDs(ctx, []string{txID})
	if err != nil {
		return nil, err
	}
	comments := byTx[txID]
	if comments == nil {
		comments = []domain.Comment{}
	}
	return comments, nil
}

// AddLike records a like and fans out a notification to the participants who
// are not the liker. A second like on the same transaction by the same user
// is rejected with ErrConflict; the store's uniqueness constraint backs the
// check, so concurrent duplicates cannot slip through.
func (s *Social) AddLike(ctx context.Context, userID, txID string) (*domain.Like, error) {
	t, err := s.store.TransactionByID(ctx, txID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	like := &domain.Like{
		ID:            uuid.NewString(),
		TransactionID: txID,
		UserID:        userID,
		CreatedAt:     now,
	}

	if err := s.store.CreateLike(ctx, like, fanoutForLike(t, like, now)); err != nil {
		return nil, err
	}
	return like, nil
}
