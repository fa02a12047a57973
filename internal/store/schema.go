package store

import (
	"context"
	"fmt"
)

// Schema is the Postgres DDL for the ledger. EnsureSchema applies it on boot;
// every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id                    TEXT PRIMARY KEY,
    username              TEXT NOT NULL UNIQUE,
    first_name            TEXT NOT NULL DEFAULT '',
    last_name             TEXT NOT NULL DEFAULT '',
    email                 TEXT NOT NULL DEFAULT '',
    phone_number          TEXT NOT NULL DEFAULT '',
    avatar                TEXT NOT NULL DEFAULT '',
    balance               NUMERIC(14,2) NOT NULL DEFAULT 0,
    default_privacy_level TEXT NOT NULL DEFAULT 'contacts'
        CHECK (default_privacy_level IN ('public','private','contacts')),
    password_hash         TEXT NOT NULL,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    modified_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contacts (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL REFERENCES users(id),
    contact_user_id TEXT NOT NULL REFERENCES users(id),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (user_id, contact_user_id)
);

CREATE TABLE IF NOT EXISTS transactions (
    id                    TEXT PRIMARY KEY,
    kind                  TEXT NOT NULL CHECK (kind IN ('payment','request')),
    sender_id             TEXT NOT NULL REFERENCES users(id),
    receiver_id           TEXT NOT NULL REFERENCES users(id),
    amount                NUMERIC(14,2) NOT NULL CHECK (amount > 0),
    description           TEXT NOT NULL DEFAULT '',
    privacy_level         TEXT NOT NULL
        CHECK (privacy_level IN ('public','private','contacts')),
    status                TEXT
        CHECK (status IN ('pending','complete')),
    request_status        TEXT
        CHECK (request_status IN ('pending','accepted','rejected')),
    request_resolved_at   TIMESTAMPTZ,
    balance_at_completion NUMERIC(14,2) NOT NULL,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    modified_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transactions_sender   ON transactions (sender_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_receiver ON transactions (receiver_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_privacy  ON transactions (privacy_level, created_at DESC);

CREATE TABLE IF NOT EXISTS comments (
    id             TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL REFERENCES transactions(id),
    user_id        TEXT NOT NULL REFERENCES users(id),
    content        TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    modified_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_comments_transaction ON comments (transaction_id);

CREATE TABLE IF NOT EXISTS likes (
    id             TEXT PRIMARY KEY,
    transaction_id TEXT NOT NULL REFERENCES transactions(id),
    user_id        TEXT NOT NULL REFERENCES users(id),
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (user_id, transaction_id)
);

CREATE INDEX IF NOT EXISTS idx_likes_transaction ON likes (transaction_id);

CREATE TABLE IF NOT EXISTS notifications (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL REFERENCES users(id),
    transaction_id TEXT NOT NULL REFERENCES transactions(id),
    like_id        TEXT REFERENCES likes(id),
    comment_id     TEXT REFERENCES comments(id),
    is_read        BOOLEAN NOT NULL DEFAULT FALSE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    modified_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications (user_id, created_at) WHERE NOT is_read;
`

// EnsureSchema applies the schema to the connected database.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
