// Package admin (service.go) содержит логику аутентификации и сессий.
package admin

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rating-bot/internal/common"
)

// Service управляет входом администраторов.
type Service struct {
	passwordHash string
	sessionTTL   time.Duration
	isAdmin      func(userID int64) bool
	now          func() time.Time

	sessions cmap.ConcurrentMap[string, Session]
	attempts cmap.ConcurrentMap[string, *loginAttempts]
}

// NewService создаёт сервис админ-панели. Пустой passwordHash выключает панель.
func NewService(passwordHash string, sessionTTL time.Duration, isAdmin func(int64) bool) *Service {
	if sessionTTL <= 0 {
		sessionTTL = time.Hour
	}
	return &Service{
		passwordHash: passwordHash,
		sessionTTL:   sessionTTL,
		isAdmin:      isAdmin,
		now:          time.Now,
		sessions:     cmap.New[Session](),
		attempts:     cmap.New[*loginAttempts](),
	}
}

func key(userID int64) string { return strconv.FormatInt(userID, 10) }

// Login проверяет пароль и открывает сессию.
// Не больше 5 неудачных попыток в час.
func (s *Service) Login(userID int64, password string) (*Session, error) {
	if s.passwordHash == "" {
		return nil, common.ErrAdminDisabled
	}
	if !s.isAdmin(userID) {
		return nil, common.ErrNotAdmin
	}

	now := s.now()
	if s.recentFailures(userID, now) >= maxFailedAttempts {
		log.WithField("user_id", userID).Warn("Вход в админку заблокирован: лимит попыток")
		return nil, common.ErrTooManyAttempts
	}

	if !VerifyPassword(password, s.passwordHash) {
		s.recordFailure(userID, now)
		log.WithField("user_id", userID).Warn("Неверный пароль администратора")
		return nil, common.ErrWrongPassword
	}

	s.attempts.Remove(key(userID))
	session := Session{
		Token:           uuid.NewString(),
		UserID:          userID,
		AuthenticatedAt: now,
		ExpiresAt:       now.Add(s.sessionTTL),
	}
	s.sessions.Set(key(userID), session)

	log.WithFields(log.Fields{
		"user_id":    userID,
		"expires_at": session.ExpiresAt,
	}).Info("Администратор авторизован")
	return &session, nil
}

// Authorize возвращает активную сессию администратора.
func (s *Service) Authorize(userID int64) (*Session, error) {
	if !s.isAdmin(userID) {
		return nil, common.ErrNotAdmin
	}
	session, ok := s.sessions.Get(key(userID))
	if !ok {
		return nil, common.ErrSessionExpired
	}
	if !s.now().Before(session.ExpiresAt) {
		s.sessions.Remove(key(userID))
		return nil, common.ErrSessionExpired
	}
	return &session, nil
}

// Logout закрывает сессию.
func (s *Service) Logout(userID int64) {
	s.sessions.Remove(key(userID))
}

func (s *Service) recentFailures(userID int64, now time.Time) int {
	a, ok := s.attempts.Get(key(userID))
	if !ok {
		return 0
	}
	n := 0
	for _, t := range a.failures {
		if now.Sub(t) < attemptsWindow {
			n++
		}
	}
	return n
}

func (s *Service) recordFailure(userID int64, now time.Time) {
	s.attempts.Upsert(key(userID), nil, func(exist bool, old, _ *loginAttempts) *loginAttempts {
		kept := &loginAttempts{}
		if exist {
			for _, t := range old.failures {
				if now.Sub(t) < attemptsWindow {
					kept.failures = append(kept.failures, t)
				}
			}
		}
		kept.failures = append(kept.failures, now)
		return kept
	})
}
