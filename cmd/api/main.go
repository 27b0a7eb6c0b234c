package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookstore/internal/config"
	"bookstore/internal/handler"
	"bookstore/internal/infra/cache"
	"bookstore/internal/infra/db"
	"bookstore/internal/infra/messaging"
	infraRepo "bookstore/internal/infra/repository"
	"bookstore/internal/server"
	"bookstore/internal/usecase"
	auth "bookstore/internal/usecase/auth_usecase"
	"bookstore/internal/validator"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogger(cfg config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	//開発は見やすく、本番はJSON
	if cfg.IsProd() {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	// log.Ctx(ctx) でロガーが無いときに使う
	zerolog.DefaultContextLogger = &log.Logger
	return log.Logger
}

func main() {
	config.LoadDotEnv(".env", "../.env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger := setupLogger(cfg)

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("db connect")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	bookRepo := infraRepo.NewBookGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//イベント送信（RABBIT_URLが無ければ送らない）
	var publisher usecase.OrderEventPublisher = messaging.NoopPublisher{}
	if cfg.RabbitURL != "" {
		rb, err := messaging.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbit connect")
		}
		defer rb.Close()
		publisher = rb
	} else {
		log.Info().Msg("RABBIT_URL is empty; order events are not published")
	}

	clock := usecase.SystemClock{}

	//書籍詳細の読み取りキャッシュ
	var bookCache usecase.BookReadCache
	if cfg.BookCacheSize > 0 {
		bookCache = cache.NewBookCache(cfg.BookCacheSize, cfg.BookCacheTTL)
	}

	//bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := auth.NewBcryptPasswordHasher(12)
	verifier := auth.NewBcryptPasswordVerifier()
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authValidator := validator.NewAuthValidator(userRepo)

	//Usecase生成
	registerUC := auth.NewRegisterUserUsecase(txManager, authValidator, hasher)
	loginUC := auth.NewLoginUsecase(userRepo, authValidator, verifier, issuer, clock)
	bookUC := usecase.NewBookUsecase(bookRepo, categoryRepo, txManager, clock, bookCache)
	categoryUC := usecase.NewCategoryUsecase(categoryRepo, bookRepo, txManager, clock, bookCache)
	cartUC := usecase.NewCartUsecase(txManager)
	orderUC := usecase.NewOrderUsecase(txManager, publisher, clock)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, clock)

	//Handler生成
	e := server.New(cfg, logger)
	server.RegisterRoutes(e, cfg, userRepo, server.Handlers{
		Auth:          handler.NewAuthHandler(registerUC, loginUC),
		Book:          handler.NewBookHandler(bookUC),
		AdminBook:     handler.NewAdminBookHandler(bookUC),
		Category:      handler.NewCategoryHandler(categoryUC),
		AdminCategory: handler.NewAdminCategoryHandler(categoryUC),
		Cart:          handler.NewCartHandler(cartUC),
		Order:         handler.NewOrderHandler(orderUC, adminOrderUC),
		AdminOrder:    handler.NewAdminOrderHandler(adminOrderUC),
		AdminUser:     handler.NewAdminUserHandler(userRepo),
	})

	//Server起動
	addr := cfg.Port
	if addr != "" && addr[0] != ':' {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", addr).Str("env", cfg.GoEnv).Msg("server start")
	if err := server.Start(ctx, e, addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return
	}
	log.Info().Msg("server shutdown")
}
