package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	identity "github.com/mentorhub/identity"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := identity.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DBPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	if err := identity.CreateSchema(ctx, db); err != nil {
		return err
	}
	if err := identity.SeedAccessControl(ctx, db); err != nil {
		return err
	}

	repo := identity.NewRepositoryManager(db)
	repo.MustValidate()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
	})
	defer rdb.Close()

	queue := identity.NewRedisQueue(rdb,
		identity.WithQueueMaxAttempts(cfg.QueueMaxAttempts),
	)

	transport := identity.NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	mailer, err := identity.NewMailer("./templates", transport, cfg.MailFrom)
	if err != nil {
		return err
	}

	worker := identity.NewWorker(queue, mailer,
		identity.WithBackoffBase(cfg.QueueBackoffBase),
		identity.WithWorkerConcurrency(cfg.WorkerConcurrency),
	)
	waitWorkers := worker.Start(ctx)

	tokens := identity.NewTokenService([]byte(cfg.JWTSigningKey), cfg.TokenTTL, cfg.Issuer)

	auther := identity.NewAuthenticator(repo.Users(), tokens).
		WithStatsProvider(identity.NewStatsProvider(db))

	verification := identity.NewVerificationFlow(repo.Users(), queue, cfg.AppBaseURL)
	register := identity.NewRegisterUserHandler(repo, verification)

	controller := identity.NewAuthController(
		identity.WithControllerRepo(repo),
		identity.WithControllerAuther(auther),
		identity.WithControllerVerification(verification),
		identity.WithControllerRegister(register),
	)

	guard := identity.NewGuard(identity.GuardConfig{
		Tokens: tokens,
		Users:  repo.Users(),
	})

	app := fiber.New(fiber.Config{
		AppName: "identity",
	})

	controller.RegisterRoutes(app, guard)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.ServerAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if err := app.Shutdown(); err != nil {
		log.Printf("identity: shutdown error: %v", err)
	}

	waitWorkers()

	return nil
}
