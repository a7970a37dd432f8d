package app

import "serotonyl.ru/rating-bot/internal/db/postgres"

// SQL-миграции встроены в код для упрощения деплоя.
var migrations = []postgres.Migration{
	{Version: 1, Name: "members", SQL: migration001Members},
	{Version: 2, Name: "rating_accounts", SQL: migration002RatingAccounts},
	{Version: 3, Name: "rating_transfers", SQL: migration003RatingTransfers},
	{Version: 4, Name: "rating_given", SQL: migration004RatingGiven},
}

var migration001Members = `
CREATE TABLE IF NOT EXISTS members (
    user_id BIGINT PRIMARY KEY,
    username VARCHAR(255) NOT NULL DEFAULT '',
    first_name VARCHAR(255) NOT NULL DEFAULT '',
    last_name VARCHAR(255) NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_members_username ON members(username);
`

var migration002RatingAccounts = `
CREATE TABLE IF NOT EXISTS rating_accounts (
    chat_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    total_rating BIGINT NOT NULL DEFAULT 0,
    plus_remaining BIGINT NOT NULL DEFAULT 0,
    minus_free_remaining BIGINT NOT NULL DEFAULT 0,
    last_reset_day VARCHAR(10) NOT NULL DEFAULT '',
    warned_today BOOLEAN NOT NULL DEFAULT FALSE,
    shamed_today BOOLEAN NOT NULL DEFAULT FALSE,
    given_total BIGINT NOT NULL DEFAULT 0,
    taken_total BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (chat_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_rating_accounts_total ON rating_accounts(chat_id, total_rating DESC);
`

var migration003RatingTransfers = `
CREATE TABLE IF NOT EXISTS rating_transfers (
    id BIGINT PRIMARY KEY,
    chat_id BIGINT NOT NULL,
    giver_id BIGINT NOT NULL,
    receiver_id BIGINT NOT NULL,
    amount BIGINT NOT NULL,
    source VARCHAR(16) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_rating_transfers_pair ON rating_transfers(chat_id, giver_id, receiver_id);
CREATE INDEX IF NOT EXISTS idx_rating_transfers_receiver_time ON rating_transfers(chat_id, receiver_id, created_at);
CREATE INDEX IF NOT EXISTS idx_rating_transfers_created_at ON rating_transfers(created_at);
`

var migration004RatingGiven = `
CREATE TABLE IF NOT EXISTS rating_given (
    chat_id BIGINT NOT NULL,
    giver_id BIGINT NOT NULL,
    receiver_id BIGINT NOT NULL,
    amount BIGINT NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (chat_id, giver_id, receiver_id)
);
`
