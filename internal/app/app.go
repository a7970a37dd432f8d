// Package app инициализирует все компоненты приложения.
// app.go собирает хранилище, сервисы, обработчики, HTTP API и планировщик.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"serotonyl.ru/rating-bot/internal/bot"
	"serotonyl.ru/rating-bot/internal/bot/filters"
	"serotonyl.ru/rating-bot/internal/bot/middleware"
	"serotonyl.ru/rating-bot/internal/common"
	"serotonyl.ru/rating-bot/internal/config"
	"serotonyl.ru/rating-bot/internal/features/admin"
	"serotonyl.ru/rating-bot/internal/features/members"
	"serotonyl.ru/rating-bot/internal/features/rating"
	"serotonyl.ru/rating-bot/internal/httpapi"
	"serotonyl.ru/rating-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	HTTP      *httpapi.Server
	BotAPI    *tgbotapi.BotAPI

	cfg     *config.Config
	storage *storage
	redis   *redis.Client
	limiter *middleware.RateLimiter
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен: компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}
	loc := common.LoadLocation(cfg.AppTimezone)

	// === 1. Хранилище ===
	st, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.storage = st

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = log.IsLevelEnabled(log.TraceLevel)
	a.BotAPI = botAPI
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Сервисы ===
	rules := rating.RulesFromConfig(cfg)
	ledger, err := rating.NewLedger(st.rating, rules, loc, cfg.NodeID)
	if err != nil {
		a.Close()
		return nil, err
	}
	reports := rating.NewReports(st.rating, rules, loc)
	memberService := members.NewService(st.members)
	adminService := admin.NewService(cfg.AdminPasswordHash, cfg.AdminSessionTTL, cfg.IsAdmin)

	// === 4. Обработчики ===
	ratingHandler := rating.NewHandler(ledger, reports, memberService, botAPI,
		cfg.RatingTopLimit, cfg.FeatureLaughEnabled, cfg.RatingLaughPoints)
	memberHandler := members.NewHandler(memberService)
	adminHandler := admin.NewHandler(adminService, ledger, botAPI)

	// === 5. Фильтры и лимиты ===
	chatFilter := filters.NewChatFilter(cfg.AllowedChatIDs)
	limiter := a.newLimiter(ctx)

	// === 6. Собираем бота ===
	a.Bot = bot.New(botAPI, bot.Options{
		BotUsername:    botAPI.Self.UserName,
		MaxInflight:    cfg.BotMaxInflight,
		UpdateTimeout:  cfg.BotUpdateTimeoutSeconds,
		AdminAvailable: cfg.AdminPasswordHash != "" && len(cfg.AdminIDs) > 0,
	}, chatFilter, limiter, memberHandler, ratingHandler, adminHandler)

	// === 7. HTTP API ===
	if cfg.FeatureHTTPEnabled {
		if cfg.AppEnv != "development" {
			gin.SetMode(gin.ReleaseMode)
		}
		engine := httpapi.NewEngine(httpapi.NewRatings(reports, memberService, cfg.RatingTopLimit))
		a.HTTP = httpapi.NewServer(cfg.HTTPAddr, engine)
	}

	// === 8. Планировщик задач ===
	if cfg.FeatureDigestEnabled {
		a.Scheduler = jobs.NewScheduler(ratingHandler, cfg.DigestCron, loc)
	}

	return a, nil
}

// newLimiter выбирает Redis, если он задан и отвечает, иначе лимит в памяти.
func (a *App) newLimiter(ctx context.Context) middleware.Limiter {
	if a.cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("Redis недоступен, rate limit будет в памяти")
			_ = rdb.Close()
		} else {
			log.WithField("addr", a.cfg.RedisAddr).Info("Rate limit через Redis")
			a.redis = rdb
			return middleware.NewRedisRateLimiter(rdb, a.cfg.RateLimitRequests, a.cfg.RateLimitWindow)
		}
	}
	a.limiter = middleware.NewRateLimiter(a.cfg.RateLimitRequests, a.cfg.RateLimitWindow)
	return a.limiter
}

// Run запускает бота, HTTP API и планировщик. Блокируется до отмены ctx
// или до первой ошибки любого из компонентов.
func (a *App) Run(ctx context.Context) error {
	if a.Scheduler != nil {
		if err := a.Scheduler.Start(ctx); err != nil {
			return err
		}
		defer a.Scheduler.Stop()
	}

	eg, groupCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		a.Bot.Start(groupCtx)
		if groupCtx.Err() == nil {
			return errors.New("polling Telegram остановлен")
		}
		return nil
	})
	if a.HTTP != nil {
		eg.Go(func() error {
			return a.HTTP.Run(groupCtx)
		})
	}
	return eg.Wait()
}

// Close освобождает ресурсы.
func (a *App) Close() {
	if a.limiter != nil {
		a.limiter.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия Redis")
		}
	}
	if a.storage != nil {
		a.storage.close()
	}
}
