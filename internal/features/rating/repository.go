// Package rating (repository.go) хранит рейтинг в PostgreSQL.
// Таблицы: rating_accounts, rating_transfers, rating_given.
package rating

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/rating-bot/internal/common"
)

// querier: общее подмножество pgxpool.Pool и pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository: хранилище рейтинга в PostgreSQL.
type Repository struct {
	pgReader
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий рейтинга.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{pgReader: pgReader{q: db}, db: db}
}

// InTx открывает транзакцию и берёт advisory-lock на чат, чтобы
// несколько инстансов бота не перемешали операции одного чата.
func (r *Repository) InTx(ctx context.Context, scopeID int64, fn func(tx Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, scopeID); err != nil {
		return fmt.Errorf("ошибка блокировки чата: %w", err)
	}

	if err := fn(&pgTx{pgReader{q: tx}}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgReader struct {
	q querier
}

const accountColumns = `chat_id, user_id, total_rating, plus_remaining, minus_free_remaining,
	last_reset_day, warned_today, shamed_today, given_total, taken_total, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.ScopeID, &a.UserID, &a.TotalRating, &a.PlusRemaining, &a.MinusFreeRemaining,
		&a.LastResetDay, &a.WarnedToday, &a.ShamedToday, &a.GivenTotal, &a.TakenTotal,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r pgReader) getAccount(ctx context.Context, scopeID, userID int64, forUpdate bool) (*Account, error) {
	query := `SELECT ` + accountColumns + ` FROM rating_accounts WHERE chat_id = $1 AND user_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	a, err := scanAccount(r.q.QueryRow(ctx, query, scopeID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrAccountNotFound
		}
		return nil, fmt.Errorf("ошибка чтения счёта (chat_id=%d, user_id=%d): %w", scopeID, userID, err)
	}
	return a, nil
}

func (r pgReader) GetAccount(ctx context.Context, scopeID, userID int64) (*Account, error) {
	return r.getAccount(ctx, scopeID, userID, false)
}

func (r pgReader) ListAccounts(ctx context.Context, scopeID int64) ([]*Account, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+accountColumns+` FROM rating_accounts WHERE chat_id = $1 ORDER BY user_id`, scopeID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса счетов: %w", err)
	}
	defer rows.Close()

	var out []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

func (r pgReader) GivenBalance(ctx context.Context, scopeID, giverID, receiverID int64) (int64, error) {
	var amount int64
	err := r.q.QueryRow(ctx, `
		SELECT amount FROM rating_given
		WHERE chat_id = $1 AND giver_id = $2 AND receiver_id = $3
	`, scopeID, giverID, receiverID).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения выданного: %w", err)
	}
	return amount, nil
}

// whereTransfers строит WHERE для фильтра журнала с плейсхолдерами $N.
func whereTransfers(f TransferFilter) (string, []any) {
	conds := []string{"chat_id = $1"}
	args := []any{f.ScopeID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.GiverID != nil {
		add("giver_id = $%d", *f.GiverID)
	}
	if f.ReceiverID != nil {
		add("receiver_id = $%d", *f.ReceiverID)
	}
	if !f.Since.IsZero() {
		add("created_at >= $%d", f.Since)
	}
	if !f.Until.IsZero() {
		add("created_at < $%d", f.Until)
	}
	switch f.Sign {
	case SignPositive:
		conds = append(conds, "amount > 0")
	case SignNegative:
		conds = append(conds, "amount < 0")
	}
	return strings.Join(conds, " AND "), args
}

func (r pgReader) SumTransfers(ctx context.Context, f TransferFilter) (int64, error) {
	where, args := whereTransfers(f)
	var sum int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM rating_transfers WHERE `+where, args...,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("ошибка суммирования переводов: %w", err)
	}
	return sum, nil
}

func (r pgReader) AggregateTransfers(ctx context.Context, f TransferFilter, by GroupBy) ([]Aggregate, error) {
	col := "giver_id"
	if by == ByReceiver {
		col = "receiver_id"
	}
	where, args := whereTransfers(f)
	rows, err := r.q.Query(ctx,
		`SELECT `+col+`, SUM(amount) FROM rating_transfers WHERE `+where+
			` GROUP BY `+col+` ORDER BY `+col, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка агрегации переводов: %w", err)
	}
	defer rows.Close()

	var out []Aggregate
	for rows.Next() {
		var a Aggregate
		if err := rows.Scan(&a.UserID, &a.Sum); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

func (r pgReader) ListScopes(ctx context.Context, since time.Time) ([]int64, error) {
	rows, err := r.q.Query(ctx,
		`SELECT DISTINCT chat_id FROM rating_transfers WHERE created_at >= $1 ORDER BY chat_id`, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса чатов: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// pgTx: запись в рамках открытой транзакции. Счета читаются с FOR UPDATE.
type pgTx struct {
	pgReader
}

func (t *pgTx) GetAccount(ctx context.Context, scopeID, userID int64) (*Account, error) {
	return t.getAccount(ctx, scopeID, userID, true)
}

func (t *pgTx) SaveAccount(ctx context.Context, a *Account) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO rating_accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (chat_id, user_id) DO UPDATE
		SET total_rating = EXCLUDED.total_rating,
		    plus_remaining = EXCLUDED.plus_remaining,
		    minus_free_remaining = EXCLUDED.minus_free_remaining,
		    last_reset_day = EXCLUDED.last_reset_day,
		    warned_today = EXCLUDED.warned_today,
		    shamed_today = EXCLUDED.shamed_today,
		    given_total = EXCLUDED.given_total,
		    taken_total = EXCLUDED.taken_total,
		    updated_at = EXCLUDED.updated_at
	`,
		a.ScopeID, a.UserID, a.TotalRating, a.PlusRemaining, a.MinusFreeRemaining,
		a.LastResetDay, a.WarnedToday, a.ShamedToday, a.GivenTotal, a.TakenTotal,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения счёта: %w", err)
	}
	return nil
}

func (t *pgTx) SetGivenBalance(ctx context.Context, scopeID, giverID, receiverID, amount int64) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO rating_given (chat_id, giver_id, receiver_id, amount, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (chat_id, giver_id, receiver_id) DO UPDATE
		SET amount = EXCLUDED.amount, updated_at = NOW()
	`, scopeID, giverID, receiverID, amount)
	if err != nil {
		return fmt.Errorf("ошибка записи выданного: %w", err)
	}
	return nil
}

func (t *pgTx) AppendTransfer(ctx context.Context, tr *Transfer) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO rating_transfers (id, chat_id, giver_id, receiver_id, amount, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, tr.ID, tr.ScopeID, tr.GiverID, tr.ReceiverID, tr.Amount, string(tr.Source), tr.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи перевода: %w", err)
	}
	return nil
}
