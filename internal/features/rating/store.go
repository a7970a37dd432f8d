package rating

import (
	"context"
	"time"
)

// Sign: фильтр по знаку суммы перевода.
type Sign int

const (
	SignAny Sign = iota
	SignPositive
	SignNegative
)

// TransferFilter: условия выборки из журнала. Нулевые поля не фильтруют.
type TransferFilter struct {
	ScopeID    int64
	GiverID    *int64
	ReceiverID *int64
	Since      time.Time // включительно
	Until      time.Time // не включительно
	Sign       Sign
}

func (f TransferFilter) match(t *Transfer) bool {
	if t.ScopeID != f.ScopeID {
		return false
	}
	if f.GiverID != nil && t.GiverID != *f.GiverID {
		return false
	}
	if f.ReceiverID != nil && t.ReceiverID != *f.ReceiverID {
		return false
	}
	if !f.Since.IsZero() && t.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !t.CreatedAt.Before(f.Until) {
		return false
	}
	switch f.Sign {
	case SignPositive:
		return t.Amount > 0
	case SignNegative:
		return t.Amount < 0
	}
	return true
}

// GroupBy: по какому участнику группировать суммы.
type GroupBy int

const (
	ByGiver GroupBy = iota
	ByReceiver
)

// Aggregate: сумма переводов одного участника.
type Aggregate struct {
	UserID int64
	Sum    int64
}

// Reader: чтение состояния рейтинга.
type Reader interface {
	// GetAccount возвращает common.ErrAccountNotFound, если счёта нет.
	GetAccount(ctx context.Context, scopeID, userID int64) (*Account, error)
	ListAccounts(ctx context.Context, scopeID int64) ([]*Account, error)
	// GivenBalance: сколько giver ещё может забрать у receiver за счёт выданного.
	GivenBalance(ctx context.Context, scopeID, giverID, receiverID int64) (int64, error)
	SumTransfers(ctx context.Context, f TransferFilter) (int64, error)
	AggregateTransfers(ctx context.Context, f TransferFilter, by GroupBy) ([]Aggregate, error)
	// ListScopes: чаты, в которых были переводы начиная с since.
	ListScopes(ctx context.Context, since time.Time) ([]int64, error)
}

// Tx: запись внутри одной транзакции хранилища.
type Tx interface {
	Reader
	SaveAccount(ctx context.Context, a *Account) error
	SetGivenBalance(ctx context.Context, scopeID, giverID, receiverID, amount int64) error
	AppendTransfer(ctx context.Context, t *Transfer) error
}

// Store: хранилище рейтинга. Всё, что записано внутри fn, фиксируется
// вместе, а при ошибке fn не фиксируется ничего.
type Store interface {
	Reader
	InTx(ctx context.Context, scopeID int64, fn func(tx Tx) error) error
}

func int64Ptr(v int64) *int64 { return &v }
