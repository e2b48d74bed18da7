// Command recordd serves the user record REST API backed by MySQL.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/gamehub/identity/internal/config"
	"github.com/gamehub/identity/internal/credential"
	"github.com/gamehub/identity/internal/limiter"
	"github.com/gamehub/identity/internal/server/httpapi"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg := config.Load()

	addr := flag.String("addr", cfg.ListenAddr, "listen address")
	dsn := flag.String("dsn", cfg.MySQLDSN, "MySQL DSN")
	redisAddr := flag.String("redis", "", "Redis address for login rate limiting (empty disables)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
	)

	if *dsn == "" {
		logger.Fatal("missing MySQL DSN (--dsn or RECORDD_MYSQL_DSN)")
	}

	db, err := gorm.Open(mysql.Open(*dsn), &gorm.Config{})
	if err != nil {
		logger.Fatal("open mysql", zap.Error(err))
	}

	store, err := httpapi.NewGormStore(db)
	if err != nil {
		logger.Fatal("migrate users table", zap.Error(err))
	}

	var lim limiter.Limiter = limiter.Nop{}
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		lim = limiter.NewRedis(rdb, 15*time.Minute, 5, 15*time.Minute)
	}

	h := httpapi.NewHandler(store, credential.ByName(cfg.CredentialScheme), lim, logger)
	e := echo.New()
	e.HideBanner = true
	httpapi.Register(e, h, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr))
		errCh <- e.Start(*addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
