package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkale/payfeed/internal/domain"
)

const uniqueViolation = "23505"

// Postgres implements Store over a pgx connection pool.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Postgres{db: pool}, nil
}

func (s *Postgres) Close() {
	s.db.Close()
}

// --- Users ---

const userColumns = `id, username, first_name, last_name, email, phone_number, avatar,
	balance, default_privacy_level, password_hash, created_at, modified_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.PhoneNumber,
		&u.Avatar, &u.Balance, &u.DefaultPrivacyLevel, &u.PasswordHash, &u.CreatedAt, &u.ModifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Postgres) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, username, first_name, last_name, email, phone_number, avatar,
		                    balance, default_privacy_level, password_hash, created_at, modified_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.Username, u.FirstName, u.LastName, u.Email, u.PhoneNumber, u.Avatar,
		u.Balance, u.DefaultPrivacyLevel, u.PasswordHash, u.CreatedAt, u.ModifiedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username %q already taken", domain.ErrConflict, u.Username)
	}
	return err
}

func (s *Postgres) UserByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Postgres) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (s *Postgres) UsersByIDs(ctx context.Context, ids []string) (map[string]domain.User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make(map[string]domain.User, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users[u.ID] = *u
	}
	return users, rows.Err()
}

func (s *Postgres) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *Postgres) SearchUsers(ctx context.Context, q string) ([]domain.User, error) {
	pattern := "%" + strings.ToLower(q) + "%"
	rows, err := s.db.Query(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE lower(username) LIKE $1 OR lower(first_name) LIKE $1 OR lower(last_name) LIKE $1
		    OR lower(email) = lower($2) OR phone_number = $2
		 ORDER BY username`,
		pattern, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *Postgres) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) error {
	sets := []string{"modified_at = now()"}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Username != nil {
		add("username", *patch.Username)
	}
	if patch.FirstName != nil {
		add("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		add("last_name", *patch.LastName)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.PhoneNumber != nil {
		add("phone_number", *patch.PhoneNumber)
	}
	if patch.Avatar != nil {
		add("avatar", *patch.Avatar)
	}
	if patch.DefaultPrivacyLevel != nil {
		add("default_privacy_level", string(*patch.DefaultPrivacyLevel))
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username already taken", domain.ErrConflict)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func collectUsers(rows pgx.Rows) ([]domain.User, error) {
	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// --- Contacts ---

func (s *Postgres) CreateContact(ctx context.Context, c *domain.Contact) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO contacts (id, user_id, contact_user_id, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.UserID, c.ContactUserID, c.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: contact already exists", domain.ErrConflict)
	}
	return err
}

func (s *Postgres) ContactIDs(ctx context.Context, userID string) ([]string, error) {
	// Either direction counts: the stored relation is directional but read
	// symmetrically.
	rows, err := s.db.Query(ctx,
		`SELECT contact_user_id FROM contacts WHERE user_id = $1
		 UNION
		 SELECT user_id FROM contacts WHERE contact_user_id = $1`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Transactions ---

const transactionColumns = `id, kind, sender_id, receiver_id, amount, description, privacy_level,
	status, request_status, request_resolved_at, balance_at_completion, created_at, modified_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t             domain.Transaction
		status        *string
		requestStatus *string
	)
	err := row.Scan(&t.ID, &t.Kind, &t.SenderID, &t.ReceiverID, &t.Amount, &t.Description,
		&t.PrivacyLevel, &status, &requestStatus, &t.RequestResolvedAt, &t.BalanceAtCompletion,
		&t.CreatedAt, &t.ModifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if status != nil {
		t.Status = domain.TransactionStatus(*status)
	}
	if requestStatus != nil {
		rs := domain.RequestStatus(*requestStatus)
		t.RequestStatus = &rs
	}
	return &t, nil
}

func (s *Postgres) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	var status *string
	if t.Status != "" {
		v := string(t.Status)
		status = &v
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO transactions (id, kind, sender_id, receiver_id, amount, description,
		                           privacy_level, status, request_status, request_resolved_at,
		                           balance_at_completion, created_at, modified_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.Kind, t.SenderID, t.ReceiverID, t.Amount, t.Description,
		t.PrivacyLevel, status, (*string)(t.RequestStatus), t.RequestResolvedAt,
		t.BalanceAtCompletion, t.CreatedAt, t.ModifiedAt)
	return err
}

func (s *Postgres) TransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return scanTransaction(s.db.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

func (s *Postgres) UpdateTransaction(ctx context.Context, id string, patch domain.TransactionPatch) error {
	sets := []string{"modified_at = now()"}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.RequestStatus != nil {
		add("request_status", string(*patch.RequestStatus))
	}
	if patch.RequestResolvedAt != nil {
		add("request_resolved_at", *patch.RequestResolvedAt)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.PrivacyLevel != nil {
		add("privacy_level", string(*patch.PrivacyLevel))
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Postgres) ResolveRequest(ctx context.Context, id string, status domain.RequestStatus, at time.Time, fanout []domain.Notification) (*domain.Transaction, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// Guarded transition: only one of two racing resolutions can match the
	// request_status = 'pending' predicate.
	resolved, err := scanTransaction(tx.QueryRow(ctx,
		`UPDATE transactions
		 SET request_status = $2, request_resolved_at = $3, modified_at = $3
		 WHERE id = $1 AND kind = 'request' AND request_status = 'pending'
		 RETURNING `+transactionColumns, id, string(status), at))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, s.classifyResolveMiss(ctx, id)
		}
		return nil, err
	}

	if err := insertNotifications(ctx, tx, fanout); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("tx commit failed: %w", err)
	}
	return resolved, nil
}

// classifyResolveMiss distinguishes a missing row from a lost transition race.
func (s *Postgres) classifyResolveMiss(ctx context.Context, id string) error {
	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM transactions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: transaction %s", domain.ErrNotFound, id)
	}
	return fmt.Errorf("%w: request %s is not pending", domain.ErrInvalidState, id)
}

func (s *Postgres) TransactionsForUser(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE sender_id = $1 OR receiver_id = $1
		 ORDER BY created_at DESC, id`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (s *Postgres) TransactionsForContacts(ctx context.Context, contactIDs []string) ([]domain.Transaction, error) {
	if len(contactIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE privacy_level <> 'private'
		   AND (sender_id = ANY($1) OR receiver_id = ANY($1))
		 ORDER BY created_at DESC, id`,
		contactIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func (s *Postgres) PublicTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE privacy_level = 'public'
		 ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// --- Comments and likes ---

func (s *Postgres) CreateComment(ctx context.Context, c *domain.Comment, fanout []domain.Notification) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO comments (id, transaction_id, user_id, content, created_at, modified_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.TransactionID, c.UserID, c.Content, c.CreatedAt, c.ModifiedAt)
	if err != nil {
		return err
	}

	if err := insertNotifications(ctx, tx, fanout); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Postgres) CommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	var c domain.Comment
	err := s.db.QueryRow(ctx,
		`SELECT id, transaction_id, user_id, content, created_at, modified_at
		 FROM comments WHERE id = $1`, id).
		Scan(&c.ID, &c.TransactionID, &c.UserID, &c.Content, &c.CreatedAt, &c.ModifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Postgres) CommentsByTransactionIDs(ctx context.Context, ids []string) (map[string][]domain.Comment, error) {
	comments := make(map[string][]domain.Comment)
	if len(ids) == 0 {
		return comments, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, transaction_id, user_id, content, created_at, modified_at
		 FROM comments WHERE transaction_id = ANY($1)
		 ORDER BY created_at, id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.TransactionID, &c.UserID, &c.Content, &c.CreatedAt, &c.ModifiedAt); err != nil {
			return nil, err
		}
		comments[c.TransactionID] = append(comments[c.TransactionID], c)
	}
	return comments, rows.Err()
}

func (s *Postgres) CreateLike(ctx context.Context, l *domain.Like, fanout []domain.Notification) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO likes (id, transaction_id, user_id, created_at) VALUES ($1, $2, $3, $4)`,
		l.ID, l.TransactionID, l.UserID, l.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: transaction already liked", domain.ErrConflict)
		}
		return err
	}

	if err := insertNotifications(ctx, tx, fanout); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Postgres) LikeByID(ctx context.Context, id string) (*domain.Like, error) {
	var l domain.Like
	err := s.db.QueryRow(ctx,
		`SELECT id, transaction_id, user_id, created_at FROM likes WHERE id = $1`, id).
		Scan(&l.ID, &l.TransactionID, &l.UserID, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (s *Postgres) LikesByTransactionIDs(ctx context.Context, ids []string) (map[string][]domain.Like, error) {
	likes := make(map[string][]domain.Like)
	if len(ids) == 0 {
		return likes, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, transaction_id, user_id, created_at
		 FROM likes WHERE transaction_id = ANY($1)
		 ORDER BY created_at, id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.Like
		if err := rows.Scan(&l.ID, &l.TransactionID, &l.UserID, &l.CreatedAt); err != nil {
			return nil, err
		}
		likes[l.TransactionID] = append(likes[l.TransactionID], l)
	}
	return likes, rows.Err()
}

// --- Notifications ---

func insertNotifications(ctx context.Context, tx pgx.Tx, ns []domain.Notification) error {
	for _, n := range ns {
		_, err := tx.Exec(ctx,
			`INSERT INTO notifications (id, user_id, transaction_id, like_id, comment_id, is_read, created_at, modified_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			n.ID, n.UserID, n.TransactionID, n.LikeID, n.CommentID, n.IsRead, n.CreatedAt, n.ModifiedAt)
		if err != nil {
			return fmt.Errorf("notification insert failed: %w", err)
		}
	}
	return nil
}

func (s *Postgres) CreateNotifications(ctx context.Context, ns []domain.Notification) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertNotifications(ctx, tx, ns); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Postgres) NotificationByID(ctx context.Context, id string) (*domain.Notification, error) {
	var n domain.Notification
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, transaction_id, like_id, comment_id, is_read, created_at, modified_at
		 FROM notifications WHERE id = $1`, id).
		Scan(&n.ID, &n.UserID, &n.TransactionID, &n.LikeID, &n.CommentID, &n.IsRead, &n.CreatedAt, &n.ModifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (s *Postgres) UpdateNotificationRead(ctx context.Context, id string, isRead bool, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET is_read = $2, modified_at = $3 WHERE id = $1`,
		id, isRead, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Postgres) UnreadNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, transaction_id, like_id, comment_id, is_read, created_at, modified_at
		 FROM notifications WHERE user_id = $1 AND NOT is_read
		 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ns []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.TransactionID, &n.LikeID, &n.CommentID, &n.IsRead, &n.CreatedAt, &n.ModifiedAt); err != nil {
			return nil, err
		}
		ns = append(ns, n)
	}
	return ns, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
