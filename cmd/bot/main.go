// Package main содержит точку входа бота.
// Команды: run (по умолчанию), migrate, hash-password.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"serotonyl.ru/rating-bot/internal/app"
	"serotonyl.ru/rating-bot/internal/config"
	"serotonyl.ru/rating-bot/internal/features/admin"
)

func main() {
	setupLogging()

	cliApp := &cli.App{
		Name:  "rating-bot",
		Usage: "Telegram-бот социального рейтинга",

		// По умолчанию: запуск бота
		Action: run,

		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "запустить бота",
				Action: run,
			},
			{
				Name:   "migrate",
				Usage:  "применить схему базы и выйти",
				Action: migrate,
			},
			{
				Name:      "hash-password",
				Usage:     "посчитать Argon2id хеш для ADMIN_PASSWORD_HASH",
				ArgsUsage: "<пароль>",
				Action:    hashPassword,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.WithError(err).Fatal("Бот завершился с ошибкой")
	}
}

func run(c *cli.Context) error {
	log.Info("=== Бот запускается ===")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Отменяем контекст по Ctrl+C и docker stop
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("не удалось инициализировать приложение: %w", err)
	}
	defer application.Close()

	log.Info("=== Бот готов к работе ===")
	if err := application.Run(ctx); err != nil {
		return err
	}

	log.Info("=== Бот остановлен ===")
	return nil
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return app.Migrate(c.Context, cfg)
}

func hashPassword(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("использование: rating-bot hash-password <пароль>", 1)
	}
	hash, err := admin.HashPassword(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level, err := log.ParseLevel(cfg.AppLogLevel)
	if err == nil {
		log.SetLevel(level)
	}
	if cfg.AppEnv == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	return cfg, nil
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
}
