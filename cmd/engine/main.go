// Package main - точка входа движка прогрессии и достижений.
//
// Движок ведёт XP-леджер, аватары навыков, стрики и квартальные счётчики
// сотрудников, оценивает достижения и строит рейтинги. Внешние системы
// (HR-платформа, кошелёк монет, доставка уведомлений) остаются за границей
// процесса и подключаются через интерфейсы application-слоя.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries/EventHandlers)
// - Infrastructure: реализация репозиториев, кеш рейтинга, шина событий
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	// Application layer
	"github.com/browo-hub/progression-engine/internal/application/command"
	"github.com/browo-hub/progression-engine/internal/application/eventhandler"
	"github.com/browo-hub/progression-engine/internal/application/query"

	// Domain layer
	"github.com/browo-hub/progression-engine/internal/domain/achievement"
	"github.com/browo-hub/progression-engine/internal/domain/leaderboard"
	"github.com/browo-hub/progression-engine/internal/domain/progression"
	"github.com/browo-hub/progression-engine/internal/domain/shared"

	// Infrastructure layer
	"github.com/browo-hub/progression-engine/internal/infrastructure/messaging"
	"github.com/browo-hub/progression-engine/internal/infrastructure/persistence/memory"
	"github.com/browo-hub/progression-engine/internal/infrastructure/persistence/postgres"
	rediscache "github.com/browo-hub/progression-engine/internal/infrastructure/persistence/redis"

	"github.com/browo-hub/progression-engine/config"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Создаём корневой контекст с возможностью отмены
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запускаем приложение
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting progression engine",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"storage", cfg.App.Storage,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ИНИЦИАЛИЗАЦИЯ ХРАНИЛИЩА
	// ─────────────────────────────────────────────────────────────────────────
	var (
		ledgerRepo  progression.LedgerRepository
		avatarRepo  progression.AvatarRepository
		trackerRepo progression.TrackerRepository
		unlockRepo  achievement.UnlockRepository
		lbSnapshots leaderboard.SnapshotRepository
	)

	switch cfg.App.Storage {
	case config.StoragePostgres:
		log.Info("connecting to database...")
		dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()

		if err := dbConn.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		log.Info("database connection established")

		if cfg.Database.RunMigrations {
			log.Info("checking database migrations...")
			migrator := postgres.NewMigrator(dbConn)
			if err := migrator.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("database schema is up to date")
		}

		ledgerRepo = postgres.NewLedgerRepository(dbConn)
		avatarRepo = postgres.NewAvatarRepository(dbConn)
		trackerRepo = postgres.NewTrackerRepository(dbConn)
		unlockRepo = postgres.NewUnlockRepository(dbConn)
		lbSnapshots = postgres.NewSnapshotRepository(dbConn)

	case config.StorageMemory:
		log.Info("using in-memory storage")
		ledgerRepo = memory.NewLedgerRepository()
		avatarRepo = memory.NewAvatarRepository()
		trackerRepo = memory.NewTrackerRepository()
		unlockRepo = memory.NewUnlockRepository()
		lbSnapshots = memory.NewSnapshotRepository()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (кеш рейтинга, опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var lbCache leaderboard.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := rediscache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}

		redisClient, err := rediscache.NewClient(ctx, redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, leaderboard cache disabled", "error", err)
		} else {
			defer func() {
				log.Info("closing Redis connection...")
				_ = redisClient.Close()
			}()
			lbCache = rediscache.NewLeaderboardCache(redisClient)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ДОМЕННЫЕ ПРАВИЛА ИЗ КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	curve := progression.NewCurve(cfg.Gamification.CurveBaseXP, cfg.Gamification.CurveMultiplier)
	rates := command.XPRates{
		TrainingCompleted: cfg.Gamification.XPTrainingCompleted,
		PunctualCheckin:   cfg.Gamification.XPPunctualCheckin,
		FeedbackGiven:     cfg.Gamification.XPFeedbackGiven,
		DailyLogin:        cfg.Gamification.XPDailyLogin,
		CoinsEarnedRate:   cfg.Gamification.XPCoinsEarnedRate,
	}
	catalog := achievement.DefaultCatalog()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ ОБРАБОТЧИКОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application handlers...")

	// Кошелёк монет живёт во внешней системе. Без него денежные награды
	// логируются и пропускаются.
	applyEvent := command.NewApplyEventHandler(
		ledgerRepo, avatarRepo, trackerRepo,
		catalog, unlockRepo,
		eventBus, nil,
		curve, rates, log,
	)

	getAvatar := query.NewGetAvatarHandler(avatarRepo, curve)
	getLeaderboard := query.NewGetLeaderboardHandler(avatarRepo, lbCache, lbSnapshots, log)
	getAchievements := query.NewGetUserAchievementsHandler(catalog, unlockRepo)
	getHistory := query.NewGetXPHistoryHandler(ledgerRepo)
	getSummary := query.NewGetSummaryHandler(
		avatarRepo, trackerRepo, ledgerRepo,
		catalog, unlockRepo, lbCache,
		curve, log,
	)

	_ = applyEvent
	_ = getAvatar
	_ = getLeaderboard
	_ = getAchievements
	_ = getHistory
	_ = getSummary

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ПОДПИСКА ОБРАБОТЧИКОВ СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	if lbCache != nil {
		xpProjection := eventhandler.NewOnXPGrantedHandler(avatarRepo, lbCache, curve, log)
		if err := eventBus.Subscribe(shared.EventXPGranted, xpProjection.AsEventHandler()); err != nil {
			return fmt.Errorf("failed to subscribe leaderboard projection: %w", err)
		}
	}

	relay := eventhandler.NewNotificationRelay(logNotifier{log: log}, log)
	if err := eventBus.SubscribeAll(relay.AsEventHandler()); err != nil {
		return fmt.Errorf("failed to subscribe notification relay: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("progression engine is running")

	// Ожидаем сигнал завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// logNotifier пишет уведомления в лог. Реальная доставка (почта, мессенджер)
// живёт во внешней системе и подключается вместо него.
type logNotifier struct {
	log *slog.Logger
}

func (n logNotifier) Notify(_ context.Context, userID, kind, message string) error {
	n.log.Info("notification", "user_id", userID, "kind", kind, "message", message)
	return nil
}

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Observability.LogLevel),
	}

	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Observability.LogFormat, "text") {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
