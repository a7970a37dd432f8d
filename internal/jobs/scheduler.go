// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание дайджеста за сутки.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Digester рассылает итоги дня.
type Digester interface {
	SendDigest(ctx context.Context, day time.Time) error
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	digester Digester
	spec     string
	loc      *time.Location
}

// NewScheduler создаёт планировщик в часовом поясе рейтинга.
func NewScheduler(digester Digester, spec string, loc *time.Location) *Scheduler {
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(
			cron.Recover(cron.PrintfLogger(log.StandardLogger())),
			cron.SkipIfStillRunning(cron.DiscardLogger),
		),
	)
	return &Scheduler{cron: c, digester: digester, spec: spec, loc: loc}
}

// Start регистрирует задачи и запускает cron.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		day := time.Now().In(s.loc)
		log.WithField("day", day.Format("2006-01-02")).Info("[CRON] Дайджест за сутки")
		if err := s.digester.SendDigest(ctx, day); err != nil {
			log.WithError(err).Error("[CRON] Ошибка дайджеста")
		}
	})
	if err != nil {
		return fmt.Errorf("некорректное расписание DIGEST_CRON %q: %w", s.spec, err)
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"spec":     s.spec,
		"timezone": s.loc.String(),
	}).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт текущую задачу.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
