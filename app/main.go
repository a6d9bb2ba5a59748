package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"example.com/mechstore/app/internal/config"
	domcart "example.com/mechstore/app/internal/domain/cart"
	"example.com/mechstore/app/internal/infra/persistence/memory"
	"example.com/mechstore/app/internal/infra/persistence/mysql"
	"example.com/mechstore/app/internal/infra/persistence/postgres"
	"example.com/mechstore/app/internal/infra/security"
	"example.com/mechstore/app/internal/infra/storefront"
	httpapi "example.com/mechstore/app/internal/interface/http"
	"example.com/mechstore/app/internal/pkg/logger"
	authuc "example.com/mechstore/app/internal/usecase/auth"
	cartuc "example.com/mechstore/app/internal/usecase/cart"
	checkoutuc "example.com/mechstore/app/internal/usecase/checkout"
	discountuc "example.com/mechstore/app/internal/usecase/discount"
	productuc "example.com/mechstore/app/internal/usecase/product"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(logger.Options{Service: "mechstore", Env: cfg.Environment, Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg.Store, zl)
	if err != nil {
		return err
	}
	defer closeRepo()

	client := storefront.NewClient(storefront.Config{
		BaseURL: cfg.Storefront.BaseURL,
		Timeout: cfg.Storefront.Timeout,
	}, zl.Named("storefront"))

	tokens := security.NewJWTService(cfg.JWTSecret, 24*time.Hour)
	authSvc := authuc.NewService(tokens)
	discountSvc := discountuc.NewService(client, zl.Named("discount"))

	cartSvc := cartuc.NewService(cartuc.Dependencies{
		Repository: repo,
		Products:   client,
		Servers: cartuc.ServerCartFunc(func(token string) cartuc.ServerCart {
			return client.WithToken(token)
		}),
		Discounts:       discountSvc,
		Logger:          zl.Named("cart"),
		UpstreamTimeout: cfg.Storefront.Timeout,
	})

	checkoutSvc := checkoutuc.NewService(checkoutuc.Dependencies{
		Carts:     cartSvc,
		Discounts: discountSvc,
		Payments: checkoutuc.PaymentGatewayFunc(func(token string) checkoutuc.PaymentInitiator {
			return client.WithToken(token)
		}),
		Logger:             zl.Named("checkout"),
		RevalidateDiscount: cfg.Checkout.RevalidateDiscount,
		UpstreamTimeout:    cfg.Storefront.Timeout,
	})

	api := httpapi.NewAPI(httpapi.Dependencies{
		AuthService:     authSvc,
		CartService:     cartSvc,
		CheckoutService: checkoutSvc,
		ProductService:  productuc.NewService(client, cfg.Storefront.Timeout),
		Logger:          zl.Named("http"),
		PriceDecimals:   cfg.Checkout.PriceDecimals,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info("listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		zl.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openRepository(ctx context.Context, cfg config.StoreConfig, zl *zap.Logger) (domcart.Repository, func(), error) {
	switch cfg.Driver {
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("mysql open: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("mysql ping: %w", err)
		}
		repo := mysql.NewCartRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("mysql schema: %w", err)
		}
		return repo, func() { _ = db.Close() }, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("pg connect: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pg ping: %w", err)
		}
		repo := postgres.NewCartRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pg schema: %w", err)
		}
		return repo, pool.Close, nil

	default:
		zl.Warn("using in-memory cart store; sessions are lost on restart")
		return memory.NewSessionRepository(), func() {}, nil
	}
}
