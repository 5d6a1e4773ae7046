package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"accounts/internal/config"
	"accounts/internal/handler"
	"accounts/internal/infra/db"
	infraRepo "accounts/internal/infra/repository"
	"accounts/internal/logger"
	"accounts/internal/mail"
	"accounts/internal/repository"
	"accounts/internal/security"
	"accounts/internal/server"
	"accounts/internal/token"
	"accounts/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	//.envは無くてもよい（環境変数が優先）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg.DatabaseURL, !cfg.IsProduction())
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)

	tickets, closeTickets, err := newResetTicketStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeTickets()

	//usecaseに渡す部品
	hasher, err := security.NewPasswordHasher(cfg.PasswordHasher, cfg.BcryptCost)
	if err != nil {
		return err
	}
	tokens := token.NewManager(token.Config{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		ResetTTL:      cfg.ResetTTL,
	})
	mailer := mail.New(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFromEmail,
		UseTLS:   cfg.SMTPUseTLS,
	}, cfg.FrontendURL(), log)
	clock := usecase.SystemClock()

	//Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, tickets, hasher, tokens, mailer, usecase.NewGoroutineRunner(log), clock, log)
	userUC := usecase.NewUserUsecase(userRepo, infraRepo.NewTxManagerGorm(gormDB), hasher, clock, cfg.IsProduction(), log)

	//Handler生成
	authH := handler.NewAuthHandler(authUC, tokens.AccessTTL(), tokens.RefreshTTL(), cfg.CookieSecure)
	userH := handler.NewUserHandler(userUC, authUC)

	e := server.New(server.Options{FrontendURL: cfg.FrontendURL(), Logger: log}, authH, userH)
	return server.Start(ctx, e, ":"+cfg.Port, log)
}

// REDIS_URLがあればRedis、なければプロセス内メモリ
func newResetTicketStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.ResetTicketStore, func(), error) {
	if cfg.RedisURL == "" {
		log.Info("reset tickets: in-memory store")
		return infraRepo.NewResetTicketMemoryStore(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("reset tickets: redis store", zap.String("addr", opts.Addr))
	return infraRepo.NewResetTicketRedisStore(client, cfg.ResetTTL), func() { _ = client.Close() }, nil
}
