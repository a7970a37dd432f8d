package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rating-bot/internal/config"
	"serotonyl.ru/rating-bot/internal/db/postgres"
	"serotonyl.ru/rating-bot/internal/db/sqlite"
	"serotonyl.ru/rating-bot/internal/features/members"
	"serotonyl.ru/rating-bot/internal/features/rating"
)

// storage: хранилища фич поверх выбранного драйвера.
type storage struct {
	rating  rating.Store
	members members.Store
	close   func()
}

// openStorage подключается к базе по STORAGE_DRIVER и применяет схему.
func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		if err := postgres.RunMigrations(ctx, pool, migrations); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка миграций: %w", err)
		}
		return &storage{
			rating:  rating.NewRepository(pool),
			members: members.NewRepository(pool),
			close:   pool.Close,
		}, nil

	case config.DriverSQLite:
		models := append(rating.SQLiteModels(), members.SQLiteModels()...)
		db, err := sqlite.Open(cfg.SQLitePath, models...)
		if err != nil {
			return nil, err
		}
		return &storage{
			rating:  rating.NewGormRepository(db),
			members: members.NewGormRepository(db),
			close:   func() { sqlite.Close(db) },
		}, nil

	case config.DriverMemory:
		log.Warn("STORAGE_DRIVER=memory: рейтинг не переживёт перезапуск")
		return &storage{
			rating:  rating.NewMemoryStore(),
			members: members.NewMemoryStore(),
			close:   func() {},
		}, nil
	}
	return nil, fmt.Errorf("неизвестный STORAGE_DRIVER %q", cfg.StorageDriver)
}

// Migrate применяет схему и закрывает соединение (команда migrate).
func Migrate(ctx context.Context, cfg *config.Config) error {
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	st.close()
	log.WithField("driver", cfg.StorageDriver).Info("Схема базы актуальна")
	return nil
}
