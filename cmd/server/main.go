package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"

	"github.com/iliyamo/access-control/internal/config"
	"github.com/iliyamo/access-control/internal/database"
	"github.com/iliyamo/access-control/internal/handler"
	"github.com/iliyamo/access-control/internal/queue"
	"github.com/iliyamo/access-control/internal/repository"
	"github.com/iliyamo/access-control/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	modules := repository.NewModuleRepo(db)
	perms := repository.NewPermissionRepo(db)
	tokens := repository.NewTokenRepo(db)
	stats := repository.NewStatsRepo(db)

	// Hourly by default: expired refresh tokens are dead weight once both
	// the JWT exp and the stored expiry have passed.
	cr := cron.New()
	if _, err := cr.AddFunc(cfg.SweepSchedule, func() {
		n, err := tokens.DeleteExpired(context.Background())
		if err != nil {
			log.Printf("token sweep: %v", err)
			return
		}
		if n > 0 {
			log.Printf("token sweep: removed %d expired refresh tokens", n)
		}
	}); err != nil {
		log.Fatalf("cron: %v", err)
	}
	cr.Start()
	defer cr.Stop()

	// The audit consumer drains the broker into logs/audit.log. It retries
	// with backoff internally; a missing broker only costs audit lines.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, router.Deps{
		Cfg:      cfg,
		RateCfg:  config.LoadRateLimitConfig(),
		CacheCfg: config.LoadCacheConfig(),
		Redis:    rdb,
		Users:    users,
		Roles:    roles,
		Auth:     handler.NewAuthHandler(cfg, users, roles, tokens, perms),
		Access:   handler.NewAccessHandler(users, perms),
		Admin:    handler.NewAdminHandler(cfg, users, roles, modules, perms, stats, tokens),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
