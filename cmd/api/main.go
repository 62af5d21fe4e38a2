package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/xl-support/helpdesk/internal/api/http"
	"github.com/xl-support/helpdesk/internal/api/http/handlers"
	"github.com/xl-support/helpdesk/internal/auth"
	"github.com/xl-support/helpdesk/internal/config"
	"github.com/xl-support/helpdesk/internal/events"
	"github.com/xl-support/helpdesk/internal/observability"
	"github.com/xl-support/helpdesk/internal/persistence"
	"github.com/xl-support/helpdesk/internal/repository"
	"github.com/xl-support/helpdesk/internal/repository/memrepo"
	"github.com/xl-support/helpdesk/internal/service"
	"github.com/xl-support/helpdesk/internal/worker"
)

type flags struct {
	envFile        string
	migrateOnly    bool
	skipMigrations bool
}

func main() {
	os.Exit(runMain(os.Args[1:], observability.NewLogger))
}

// runMain returns the process exit code so deferred cleanup and the final
// logger flush always run before the process exits.
func runMain(args []string, newLogger func(config.LoggerConfig) (*zap.Logger, error)) int {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	var envFiles []string
	if opts.envFile != "" {
		envFiles = append(envFiles, opts.envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	logger, err := newLogger(cfg.Logger)
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, opts, logger); err != nil {
		logger.Error("helpdesk exited", zap.Error(err))
		return 1
	}
	return 0
}

func parseFlags(args []string) (flags, error) {
	var opts flags
	fs := pflag.NewFlagSet("helpdesk-api", pflag.ContinueOnError)
	fs.StringVar(&opts.envFile, "env-file", "", "load environment variables from this file (default: .env if present)")
	fs.BoolVar(&opts.migrateOnly, "migrate-only", false, "apply database migrations and exit")
	fs.BoolVar(&opts.skipMigrations, "skip-migrations", false, "do not apply database migrations at startup")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.migrateOnly && opts.skipMigrations {
		return opts, errors.New("--migrate-only and --skip-migrations are mutually exclusive")
	}
	return opts, nil
}

type stores struct {
	users    repository.UserRepository
	tickets  repository.TicketRepository
	userLogs repository.UserLogRepository
	history  repository.TicketHistoryRepository
}

func run(cfg *config.Config, opts flags, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if pg.Configured() && (opts.migrateOnly || (cfg.Postgres.RunMigrations && !opts.skipMigrations)) {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}
	if opts.migrateOnly {
		if !pg.Configured() {
			return errors.New("--migrate-only requires POSTGRES_DSN")
		}
		logger.Info("migrations applied; exiting")
		return nil
	}

	var repos stores
	if pg.Configured() {
		pool := pg.PoolHandle()
		repos = stores{
			users:    repository.NewUserRepository(pool),
			tickets:  repository.NewTicketRepository(pool),
			userLogs: repository.NewUserLogRepository(pool),
			history:  repository.NewTicketHistoryRepository(pool),
		}
	} else {
		mem := memrepo.New()
		repos = stores{
			users:    mem.Users(),
			tickets:  mem.Tickets(),
			userLogs: mem.UserLogs(),
			history:  mem.TicketHistory(),
		}
	}

	readiness := map[string]handlers.Pinger{}
	if pg.Configured() {
		readiness["postgres"] = pg
	}

	var sessions auth.SessionStore
	if cfg.Redis.Addr != "" {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		sessions = auth.NewRedisSessionStore(redis.Client, redis.KeyPrefix)
		readiness["redis"] = redis
	} else {
		logger.Warn("REDIS_ADDR empty; session revocations are kept in memory")
		sessions = auth.NewMemorySessionStore()
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger))

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:    repos.users,
		UserLogRepo: repos.userLogs,
		Sessions:    sessions,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.tickets,
		UserRepo:    repos.users,
		HistoryRepo: repos.history,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:  repos.tickets,
		UserRepo:    repos.users,
		HistoryRepo: repos.history,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.Tokens(), authService.Sessions(), repos.users)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), cfg.App.CORSOrigins)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService),
		Admin:          handlers.NewAdminHandler(authService, ticketService, assignmentService, metrics),
		AuthMiddleware: authMiddleware,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.Bool("postgres", pg.Configured()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber listen: %w", err)
	case sig := <-shutdownSignal():
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	return app.ShutdownWithTimeout(10 * time.Second)
}

func shutdownSignal() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
