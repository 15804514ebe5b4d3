package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpadp "loan-ledger/internal/adapter/http"
	ledgermw "loan-ledger/internal/adapter/middleware"
	"loan-ledger/internal/adapter/repository/mysql"
	"loan-ledger/internal/config"
	"loan-ledger/internal/infrastructure/cache"
	"loan-ledger/internal/infrastructure/db"
	"loan-ledger/internal/infrastructure/logger"
	"loan-ledger/internal/infrastructure/tracing"
	contractUC "loan-ledger/internal/usecase/contract"
	"loan-ledger/internal/usecase/listing"
	loanUC "loan-ledger/internal/usecase/loan"
	repaymentUC "loan-ledger/internal/usecase/repayment"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracing(ctx, cfg.OTELServiceName, cfg.OTELEndpoint, zl)
	if err != nil {
		zl.Fatal("tracing", zap.Error(err))
	}

	gdb, err := db.OpenGorm(cfg.DBDriver, cfg.DSN(), zl)
	if err != nil {
		zl.Fatal("database", zap.Error(err))
	}
	if err := mysql.AutoMigrate(gdb); err != nil {
		zl.Fatal("auto-migrate", zap.Error(err))
	}
	rdb, err := cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB, zl)
	if err != nil {
		zl.Fatal("redis", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	policy := cfg.Policy()
	tx := mysql.NewGormUoW(gdb)
	loans := mysql.NewLoanRepository(gdb)
	repayments := mysql.NewRepaymentRepository(gdb)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Logger(), middleware.Recover())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	httpadp.RegisterRoutes(e, httpadp.Handlers{
		Health:    httpadp.NewHandler(cfg.OTELServiceName),
		Loans:     httpadp.NewLoanHandler(loanUC.NewUsecase(tx, loans, policy, zl), zl),
		Repayment: httpadp.NewRepaymentHandler(repaymentUC.NewUsecase(tx, repayments, policy, zl), zl),
		Contract:  httpadp.NewContractHandler(contractUC.NewUsecase(tx, zl), zl),
		Listing:   httpadp.NewListingHandler(listing.NewUsecase(loans, repayments, policy, zl), zl),
	}, ledgermw.IdempotencyMiddleware(rdb, cfg.IdempotencyTTL(), zl))

	addr := ":" + cfg.AppPort
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("db_driver", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		zl.Warn("server shutdown", zap.Error(err))
	}
	if err := shutdownTracing(sctx); err != nil {
		zl.Warn("tracing shutdown", zap.Error(err))
	}
}
