// Package members (service.go) содержит бизнес-логику управления участниками.
package members

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rating-bot/internal/common"
)

// Service управляет участниками чата.
type Service struct {
	repo Store
}

// NewService создаёт новый сервис участников.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// EnsureMember гарантирует, что пользователь есть в базе и его имя актуально.
// Если ничего не изменилось: в базу не пишем.
func (s *Service) EnsureMember(ctx context.Context, userID int64, username, firstName, lastName string) error {
	existing, err := s.repo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrUserNotFound) {
		return err
	}
	if existing != nil && existing.sameInfo(username, firstName, lastName) {
		return nil
	}

	if err := s.repo.Upsert(ctx, &Member{
		UserID:    userID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
	}); err != nil {
		return fmt.Errorf("ошибка регистрации участника: %w", err)
	}

	if existing == nil {
		log.WithFields(log.Fields{
			"user_id":  userID,
			"username": username,
		}).Info("Новый участник зарегистрирован")
	} else {
		log.WithField("user_id", userID).Debug("Данные участника обновлены")
	}
	return nil
}

// GetByUserID возвращает участника по его Telegram user ID.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// DisplayName: имя для лидербордов. Неизвестных показываем как id<user_id>.
func (s *Service) DisplayName(ctx context.Context, userID int64) string {
	m, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, common.ErrUserNotFound) {
			log.WithError(err).WithField("user_id", userID).Warn("Не удалось получить имя участника")
		}
		return fmt.Sprintf("id%d", userID)
	}
	return m.DisplayName()
}
