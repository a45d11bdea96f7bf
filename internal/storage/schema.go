package storage

import (
	"context"
	"fmt"
)

// Schema is the full database schema. cmd/init-db applies it; the
// gateway itself never migrates.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id            BIGSERIAL PRIMARY KEY,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_lower_idx
    ON accounts (LOWER(email));

CREATE TABLE IF NOT EXISTS api_keys (
    id         BIGSERIAL PRIMARY KEY,
    account_id BIGINT NOT NULL REFERENCES accounts(id),
    name       TEXT NOT NULL,
    key_hash   TEXT NOT NULL,
    prefix     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS provider_keys (
    id            BIGSERIAL PRIMARY KEY,
    account_id    BIGINT NOT NULL REFERENCES accounts(id),
    provider      TEXT NOT NULL,
    encrypted_key TEXT NOT NULL,
    label         TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS model_aliases (
    id                    BIGSERIAL PRIMARY KEY,
    account_id            BIGINT NOT NULL REFERENCES accounts(id),
    alias                 TEXT NOT NULL,
    target_model          TEXT NOT NULL,
    provider_key_id       BIGINT NOT NULL REFERENCES provider_keys(id),
    fallback_alias_id     BIGINT REFERENCES model_aliases(id),
    use_light_model       BOOLEAN NOT NULL DEFAULT FALSE,
    light_model_threshold INTEGER,
    light_model           TEXT,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (account_id, alias)
);

CREATE TABLE IF NOT EXISTS provider_models (
    provider  TEXT NOT NULL,
    model_id  TEXT NOT NULL,
    UNIQUE (provider, model_id)
);

CREATE TABLE IF NOT EXISTS usage_records (
    id                UUID PRIMARY KEY,
    account_id        BIGINT NOT NULL REFERENCES accounts(id),
    alias_id          BIGINT REFERENCES model_aliases(id),
    request_id        UUID NOT NULL,
    prompt_tokens     INTEGER NOT NULL DEFAULT 0,
    completion_tokens INTEGER NOT NULL DEFAULT 0,
    succeeded         BOOLEAN NOT NULL DEFAULT TRUE,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS usage_records_account_idx
    ON usage_records (account_id, created_at);
`

// ApplySchema creates all tables if they do not exist
func (db *DB) ApplySchema(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
