package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mkale/payfeed/internal/domain"
)

// Memory is an in-memory Store with the same observable behavior as Postgres.
// It backs the tests and local runs without a database.
type Memory struct {
	mu sync.Mutex

	users         map[string]domain.User
	contacts      []domain.Contact
	transactions  map[string]domain.Transaction
	comments      map[string]domain.Comment
	likes         map[string]domain.Like
	likePairs     map[string]bool // userID + "\x00" + transactionID
	notifications map[string]domain.Notification

	// seq breaks created-at ties so newest-first ordering stays stable even
	// when two rows land on the same clock reading.
	seq    map[string]int64
	nextSq int64
}

func NewMemory() *Memory {
	return &Memory{
		users:         make(map[string]domain.User),
		transactions:  make(map[string]domain.Transaction),
		comments:      make(map[string]domain.Comment),
		likes:         make(map[string]domain.Like),
		likePairs:     make(map[string]bool),
		notifications: make(map[string]domain.Notification),
		seq:           make(map[string]int64),
	}
}

func (m *Memory) Close() {}

func (m *Memory) stamp(id string) {
	m.nextSq++
	m.seq[id] = m.nextSq
}

// --- Users ---

func (m *Memory) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return fmt.Errorf("%w: username %q already taken", domain.ErrConflict, u.Username)
		}
	}
	m.users[u.ID] = *u
	m.stamp(u.ID)
	return nil
}

func (m *Memory) UserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (m *Memory) UserByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) UsersByIDs(_ context.Context, ids []string) (map[string]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make(map[string]domain.User, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			users[id] = u
		}
	}
	return users, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *Memory) SearchUsers(_ context.Context, q string) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(q)
	var users []domain.User
	for _, u := range m.users {
		if strings.Contains(strings.ToLower(u.Username), needle) ||
			strings.Contains(strings.ToLower(u.FirstName), needle) ||
			strings.Contains(strings.ToLower(u.LastName), needle) ||
			strings.EqualFold(u.Email, q) || u.PhoneNumber == q {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *Memory) UpdateUser(_ context.Context, id string, patch domain.UserPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if patch.Username != nil {
		for otherID, other := range m.users {
			if otherID != id && other.Username == *patch.Username {
				return fmt.Errorf("%w: username %q already taken", domain.ErrConflict, *patch.Username)
			}
		}
		u.Username = *patch.Username
	}
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.PhoneNumber != nil {
		u.PhoneNumber = *patch.PhoneNumber
	}
	if patch.Avatar != nil {
		u.Avatar = *patch.Avatar
	}
	if patch.DefaultPrivacyLevel != nil {
		u.DefaultPrivacyLevel = *patch.DefaultPrivacyLevel
	}
	u.ModifiedAt = time.Now()
	m.users[id] = u
	return nil
}

// --- Contacts ---

func (m *Memory) CreateContact(_ context.Context, c *domain.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.contacts {
		if existing.UserID == c.UserID && existing.ContactUserID == c.ContactUserID {
			return fmt.Errorf("%w: contact already exists", domain.ErrConflict)
		}
	}
	m.contacts = append(m.contacts, *c)
	return nil
}

func (m *Memory) ContactIDs(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var ids []string
	for _, c := range m.contacts {
		var other string
		switch userID {
		case c.UserID:
			other = c.ContactUserID
		case c.ContactUserID:
			other = c.UserID
		default:
			continue
		}
		if !seen[other] {
			seen[other] = true
			ids = append(ids, other)
		}
	}
	return ids, nil
}

// --- Transactions ---

func (m *Memory) CreateTransaction(_ context.Context, t *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = *t
	m.stamp(t.ID)
	return nil
}

func (m *Memory) TransactionByID(_ context.Context, id string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &t, nil
}

func (m *Memory) UpdateTransaction(_ context.Context, id string, patch domain.TransactionPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return domain.ErrNotFound
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.RequestStatus != nil {
		rs := *patch.RequestStatus
		t.RequestStatus = &rs
	}
	if patch.RequestResolvedAt != nil {
		at := *patch.RequestResolvedAt
		t.RequestResolvedAt = &at
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.PrivacyLevel != nil {
		t.PrivacyLevel = *patch.PrivacyLevel
	}
	t.ModifiedAt = time.Now()
	m.transactions[id] = t
	return nil
}

func (m *Memory) ResolveRequest(_ context.Context, id string, status domain.RequestStatus, at time.Time, fanout []domain.Notification) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	if t.Kind != domain.KindRequest || t.RequestStatus == nil || *t.RequestStatus != domain.RequestPending {
		return nil, fmt.Errorf("%w: request %s is not pending", domain.ErrInvalidState, id)
	}
	t.RequestStatus = &status
	t.RequestResolvedAt = &at
	t.ModifiedAt = at
	m.transactions[id] = t
	m.insertNotificationsLocked(fanout)
	return &t, nil
}

func (m *Memory) TransactionsForUser(_ context.Context, userID string) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanTransactionsLocked(func(t *domain.Transaction) bool {
		return t.Involves(userID)
	}), nil
}

func (m *Memory) TransactionsForContacts(_ context.Context, contactIDs []string) ([]domain.Transaction, error) {
	if len(contactIDs) == 0 {
		return nil, nil
	}
	set := make(map[string]bool, len(contactIDs))
	for _, id := range contactIDs {
		set[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanTransactionsLocked(func(t *domain.Transaction) bool {
		return t.PrivacyLevel != domain.PrivacyPrivate && (set[t.SenderID] || set[t.ReceiverID])
	}), nil
}

func (m *Memory) PublicTransactions(_ context.Context) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanTransactionsLocked(func(t *domain.Transaction) bool {
		return t.PrivacyLevel == domain.PrivacyPublic
	}), nil
}

// scanTransactionsLocked filters and orders newest first, insertion sequence
// breaking created-at ties.
func (m *Memory) scanTransactionsLocked(match func(*domain.Transaction) bool) []domain.Transaction {
	var txs []domain.Transaction
	for _, t := range m.transactions {
		if match(&t) {
			txs = append(txs, t)
		}
	}
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.After(txs[j].CreatedAt)
		}
		return m.seq[txs[i].ID] > m.seq[txs[j].ID]
	})
	return txs
}

// --- Comments and likes ---

func (m *Memory) CreateComment(_ context.Context, c *domain.Comment, fanout []domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[c.ID] = *c
	m.stamp(c.ID)
	m.insertNotificationsLocked(fanout)
	return nil
}

func (m *Memory) CommentByID(_ context.Context, id string) (*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (m *Memory) CommentsByTransactionIDs(_ context.Context, ids []string) (map[string][]domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	out := make(map[string][]domain.Comment)
	for _, c := range m.comments {
		if set[c.TransactionID] {
			out[c.TransactionID] = append(out[c.TransactionID], c)
		}
	}
	for txID := range out {
		cs := out[txID]
		sort.Slice(cs, func(i, j int) bool { return m.seq[cs[i].ID] < m.seq[cs[j].ID] })
		out[txID] = cs
	}
	return out, nil
}

func (m *Memory) CreateLike(_ context.Context, l *domain.Like, fanout []domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pair := l.UserID + "\x00" + l.TransactionID
	if m.likePairs[pair] {
		return fmt.Errorf("%w: transaction already liked", domain.ErrConflict)
	}
	m.likePairs[pair] = true
	m.likes[l.ID] = *l
	m.stamp(l.ID)
	m.insertNotificationsLocked(fanout)
	return nil
}

func (m *Memory) LikeByID(_ context.Context, id string) (*domain.Like, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.likes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &l, nil
}

func (m *Memory) LikesByTransactionIDs(_ context.Context, ids []string) (map[string][]domain.Like, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	out := make(map[string][]domain.Like)
	for _, l := range m.likes {
		if set[l.TransactionID] {
			out[l.TransactionID] = append(out[l.TransactionID], l)
		}
	}
	for txID := range out {
		ls := out[txID]
		sort.Slice(ls, func(i, j int) bool { return m.seq[ls[i].ID] < m.seq[ls[j].ID] })
		out[txID] = ls
	}
	return out, nil
}

// --- Notifications ---

func (m *Memory) insertNotificationsLocked(ns []domain.Notification) {
	for _, n := range ns {
		m.notifications[n.ID] = n
		m.stamp(n.ID)
	}
}

func (m *Memory) CreateNotifications(_ context.Context, ns []domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertNotificationsLocked(ns)
	return nil
}

func (m *Memory) NotificationByID(_ context.Context, id string) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &n, nil
}

func (m *Memory) UpdateNotificationRead(_ context.Context, id string, isRead bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	n.IsRead = isRead
	n.ModifiedAt = at
	m.notifications[id] = n
	return nil
}

func (m *Memory) UnreadNotifications(_ context.Context, userID string) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ns []domain.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			ns = append(ns, n)
		}
	}
	sort.Slice(ns, func(i, j int) bool { return m.seq[ns[i].ID] < m.seq[ns[j].ID] })
	return ns, nil
}
