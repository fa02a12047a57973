package service

import (
	"context"
	"sort"

	"github.com/mkale/payfeed/internal/domain"
	"github.com/mkale/payfeed/internal/store"
)

// Feed composes the three privacy-scoped transaction views. Privacy is
// enforced here at the query layer: the store scans are already scoped, and
// nothing a caller passes in filters can widen them.
type Feed struct {
	store store.Store
}

func NewFeed(st store.Store) *Feed {
	return &Feed{store: st}
}

// Own returns every transaction the user sent or received, any privacy level,
// newest first.
func (f *Feed) Own(ctx context.Context, userID string, filters domain.FeedFilters, page, limit int) (domain.Page[domain.FeedItem], error) {
	txs, err := f.store.TransactionsForUser(ctx, userID)
	if err != nil {
		return domain.Page[domain.FeedItem]{}, err
	}
	return f.compose(ctx, txs, filters, page, limit)
}

// Contacts returns the non-private traffic of the user's symmetric contact
// set merged with the user's own transactions, newest first, deduplicated by
// transaction id.
func (f *Feed) Contacts(ctx context.Context, userID string, filters domain.FeedFilters, page, limit int) (domain.Page[domain.FeedItem], error) {
	contactIDs, err := f.store.ContactIDs(ctx, userID)
	if err != nil {
		return domain.Page[domain.FeedItem]{}, err
	}
	contactTxs, err := f.store.TransactionsForContacts(ctx, contactIDs)
	if err != nil {
		return domain.Page[domain.FeedItem]{}, err
	}
	ownTxs, err := f.store.TransactionsForUser(ctx, userID)
	if err != nil {
		return domain.Page[domain.FeedItem]{}, err
	}

	merged := make([]domain.Transaction, 0, len(contactTxs)+len(ownTxs))
	seen := make(map[string]bool, len(contactTxs)+len(ownTxs))
	for _, t := range append(contactTxs, ownTxs...) {
		if !seen[t.ID] {
			seen[t.ID] = true
			merged = append(merged, t)
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		}
		return merged[i].ID < merged[j].ID
	})

	return f.compose(ctx, merged, filters, page, limit)
}

// Public returns all public transactions, newest first.
func (f *Feed) Public(ctx context.Context, filters domain.FeedFilters, page, limit int) (domain.Page[domain.FeedItem], error) {
	txs, err := f.store.PublicTransactions(ctx)
	if err != nil {
		return domain.Page[domain.FeedItem]{}, err
	}
	return f.compose(ctx, txs, filters, page, limit)
}

func (f *Feed) compose(ctx context.Context, txs []domain.Transaction, filters domain.FeedFilters, page, limit int) (domain.Page[domain.FeedItem], error) {
	filtered := txs[:0:0]
	for _, t := range txs {
		if filters.Match(&t) {
			filtered = append(filtered, t)
		}
	}

	items, err := decorate(ctx, f.store, filtered)
	if err != nil {
		return domain.Page[domain.FeedItem]{}, err
	}
	return Paginate(items, page, limit), nil
}

// decorate attaches sender/receiver display fields and the nested comments
// and likes. Everything is batch-fetched by id set; no per-row queries.
func decorate(ctx context.Context, st store.Store, txs []domain.Transaction) ([]domain.FeedItem, error) {
	txIDs := make([]string, 0, len(txs))
	userIDSet := make(map[string]bool, len(txs)*2)
	for _, t := range txs {
		txIDs = append(txIDs, t.ID)
		userIDSet[t.SenderID] = true
		userIDSet[t.ReceiverID] = true
	}
	userIDs := make([]string, 0, len(userIDSet))
	for id := range userIDSet {
		userIDs = append(userIDs, id)
	}

	comments, err := st.CommentsByTransactionIDs(ctx, txIDs)
	if err != nil {
		return nil, err
	}
	likes, err := st.LikesByTransactionIDs(ctx, txIDs)
	if err != nil {
		return nil, err
	}
	users, err := st.UsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	items := make([]domain.FeedItem, 0, len(txs))
	for _, t := range txs {
		item := domain.FeedItem{
			Transaction: t,
			Comments:    comments[t.ID],
			Likes:       likes[t.ID],
		}
		if item.Comments == nil {
			item.Comments = []domain.Comment{}
		}
		if item.Likes == nil {
			item.Likes = []domain.Like{}
		}
		if sender, ok := users[t.SenderID]; ok {
			item.SenderName = sender.FirstName
			item.SenderAvatar = sender.Avatar
		}
		if receiver, ok := users[t.ReceiverID]; ok {
			item.ReceiverName = receiver.FirstName
			item.ReceiverAvatar = receiver.Avatar
		}
		items = append(items, item)
	}
	return items, nil
}
