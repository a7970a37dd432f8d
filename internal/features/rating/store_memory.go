package rating

import (
	"context"
	"sort"
	"sync"
	"time"

	"serotonyl.ru/rating-bot/internal/common"
)

type accountKey struct{ scope, user int64 }

type givenKey struct{ scope, giver, receiver int64 }

// MemoryStore держит всё в памяти процесса. Для тестов и STORAGE_DRIVER=memory.
type MemoryStore struct {
	mu        sync.RWMutex
	accounts  map[accountKey]Account
	given     map[givenKey]int64
	transfers []Transfer
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[accountKey]Account),
		given:    make(map[givenKey]int64),
	}
}

// memState: общий код чтения для самого хранилища и для транзакции.
type memState struct {
	accounts  func(k accountKey) (Account, bool)
	allAccts  func(scopeID int64) []Account
	given     func(k givenKey) int64
	transfers func(fn func(t *Transfer))
}

func (s *MemoryStore) view() memState {
	return memState{
		accounts: func(k accountKey) (Account, bool) {
			a, ok := s.accounts[k]
			return a, ok
		},
		allAccts: func(scopeID int64) []Account {
			var out []Account
			for k, a := range s.accounts {
				if k.scope == scopeID {
					out = append(out, a)
				}
			}
			return out
		},
		given: func(k givenKey) int64 { return s.given[k] },
		transfers: func(fn func(t *Transfer)) {
			for i := range s.transfers {
				fn(&s.transfers[i])
			}
		},
	}
}

func (m memState) getAccount(scopeID, userID int64) (*Account, error) {
	a, ok := m.accounts(accountKey{scopeID, userID})
	if !ok {
		return nil, common.ErrAccountNotFound
	}
	return &a, nil
}

func (m memState) listAccounts(scopeID int64) []*Account {
	accts := m.allAccts(scopeID)
	out := make([]*Account, 0, len(accts))
	for i := range accts {
		out = append(out, &accts[i])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (m memState) sum(f TransferFilter) int64 {
	var total int64
	m.transfers(func(t *Transfer) {
		if f.match(t) {
			total += t.Amount
		}
	})
	return total
}

func (m memState) aggregate(f TransferFilter, by GroupBy) []Aggregate {
	sums := make(map[int64]int64)
	m.transfers(func(t *Transfer) {
		if !f.match(t) {
			return
		}
		id := t.GiverID
		if by == ByReceiver {
			id = t.ReceiverID
		}
		sums[id] += t.Amount
	})
	out := make([]Aggregate, 0, len(sums))
	for id, sum := range sums {
		out = append(out, Aggregate{UserID: id, Sum: sum})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (m memState) scopes(since time.Time) []int64 {
	seen := make(map[int64]struct{})
	m.transfers(func(t *Transfer) {
		if since.IsZero() || !t.CreatedAt.Before(since) {
			seen[t.ScopeID] = struct{}{}
		}
	})
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *MemoryStore) GetAccount(_ context.Context, scopeID, userID int64) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().getAccount(scopeID, userID)
}

func (s *MemoryStore) ListAccounts(_ context.Context, scopeID int64) ([]*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().listAccounts(scopeID), nil
}

func (s *MemoryStore) GivenBalance(_ context.Context, scopeID, giverID, receiverID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.given[givenKey{scopeID, giverID, receiverID}], nil
}

func (s *MemoryStore) SumTransfers(_ context.Context, f TransferFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().sum(f), nil
}

func (s *MemoryStore) AggregateTransfers(_ context.Context, f TransferFilter, by GroupBy) ([]Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().aggregate(f, by), nil
}

func (s *MemoryStore) ListScopes(_ context.Context, since time.Time) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view().scopes(since), nil
}

// InTx выполняет fn под эксклюзивной блокировкой. Записи копятся в буфере
// и применяются только если fn вернула nil.
func (s *MemoryStore) InTx(_ context.Context, _ int64, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:    s,
		accounts: make(map[accountKey]Account),
		given:    make(map[givenKey]int64),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for k, a := range tx.accounts {
		s.accounts[k] = a
	}
	for k, v := range tx.given {
		s.given[k] = v
	}
	s.transfers = append(s.transfers, tx.transfers...)
	return nil
}

// memTx видит свои незафиксированные записи поверх состояния хранилища.
type memTx struct {
	store     *MemoryStore
	accounts  map[accountKey]Account
	given     map[givenKey]int64
	transfers []Transfer
}

func (t *memTx) view() memState {
	base := t.store.view()
	return memState{
		accounts: func(k accountKey) (Account, bool) {
			if a, ok := t.accounts[k]; ok {
				return a, true
			}
			return base.accounts(k)
		},
		allAccts: func(scopeID int64) []Account {
			merged := make(map[int64]Account)
			for _, a := range base.allAccts(scopeID) {
				merged[a.UserID] = a
			}
			for k, a := range t.accounts {
				if k.scope == scopeID {
					merged[k.user] = a
				}
			}
			out := make([]Account, 0, len(merged))
			for _, a := range merged {
				out = append(out, a)
			}
			return out
		},
		given: func(k givenKey) int64 {
			if v, ok := t.given[k]; ok {
				return v
			}
			return base.given(k)
		},
		transfers: func(fn func(tr *Transfer)) {
			base.transfers(fn)
			for i := range t.transfers {
				fn(&t.transfers[i])
			}
		},
	}
}

func (t *memTx) GetAccount(_ context.Context, scopeID, userID int64) (*Account, error) {
	return t.view().getAccount(scopeID, userID)
}

func (t *memTx) ListAccounts(_ context.Context, scopeID int64) ([]*Account, error) {
	return t.view().listAccounts(scopeID), nil
}

func (t *memTx) GivenBalance(_ context.Context, scopeID, giverID, receiverID int64) (int64, error) {
	return t.view().given(givenKey{scopeID, giverID, receiverID}), nil
}

func (t *memTx) SumTransfers(_ context.Context, f TransferFilter) (int64, error) {
	return t.view().sum(f), nil
}

func (t *memTx) AggregateTransfers(_ context.Context, f TransferFilter, by GroupBy) ([]Aggregate, error) {
	return t.view().aggregate(f, by), nil
}

func (t *memTx) ListScopes(_ context.Context, since time.Time) ([]int64, error) {
	return t.view().scopes(since), nil
}

func (t *memTx) SaveAccount(_ context.Context, a *Account) error {
	t.accounts[accountKey{a.ScopeID, a.UserID}] = *a
	return nil
}

func (t *memTx) SetGivenBalance(_ context.Context, scopeID, giverID, receiverID, amount int64) error {
	t.given[givenKey{scopeID, giverID, receiverID}] = amount
	return nil
}

func (t *memTx) AppendTransfer(_ context.Context, tr *Transfer) error {
	t.transfers = append(t.transfers, *tr)
	return nil
}
