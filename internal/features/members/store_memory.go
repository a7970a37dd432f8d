package members

import (
	"context"
	"fmt"
	"sync"
	"time"

	"serotonyl.ru/rating-bot/internal/common"
)

// MemoryStore: участники в памяти процесса.
type MemoryStore struct {
	mu      sync.RWMutex
	members map[int64]Member
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{members: make(map[int64]Member)}
}

func (s *MemoryStore) Upsert(_ context.Context, m *Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := s.members[m.UserID]
	if !ok {
		existing = Member{UserID: m.UserID, CreatedAt: now}
	}
	existing.Username = m.Username
	existing.FirstName = m.FirstName
	existing.LastName = m.LastName
	existing.UpdatedAt = now
	s.members[m.UserID] = existing
	return nil
}

func (s *MemoryStore) GetByUserID(_ context.Context, userID int64) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[userID]
	if !ok {
		return nil, fmt.Errorf("участник не найден (user_id=%d): %w", userID, common.ErrUserNotFound)
	}
	return &m, nil
}
