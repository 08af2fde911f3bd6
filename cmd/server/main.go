package main // Entry point package

import (
	"context" // Deadline for the startup bootstrap query
	"log"     // Logging library
	"time"    // Timeout durations

	"github.com/joho/godotenv"    // .env loader for local runs
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/cafeteria-dispatch-board/internal/config"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/database"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/handler"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/hub"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/middleware"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/queue"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/repository"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/router"
	"github.com/iliyamo/cafeteria-dispatch-board/internal/store"
)

// main is the application composition root. The box store and event hub
// are constructed once here and handed into the request layer; nothing
// else owns board state.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}
	cfg := config.Load()

	var (
		adminRepo *repository.AdminRepo
		tokenRepo *repository.TokenRepo
		auditRepo *repository.AuditRepo
	)
	if !cfg.DBDisabled {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatal(err)
		}
		if err := repository.InitSchema(db); err != nil {
			log.Fatal(err)
		}
		adminRepo = repository.NewAdminRepo(db)
		tokenRepo = repository.NewTokenRepo(db)
		auditRepo = repository.NewAuditRepo(db)

		if cfg.AdminEmail != "" && cfg.AdminPass != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			id, created, err := repository.EnsureAdmin(ctx, adminRepo, cfg.AdminEmail, cfg.AdminPass, cfg.BcryptCost)
			cancel()
			if err != nil {
				log.Fatalf("admin bootstrap: %v", err)
			}
			if created {
				log.Printf("admin bootstrap: created account %d for %s", id, cfg.AdminEmail)
			} else {
				log.Printf("admin bootstrap: account %d for %s already present", id, cfg.AdminEmail)
			}
		}
	} else {
		log.Println("database disabled; running with bootstrap admin password, no audit log")
	}

	boxStore := store.NewBoxStore()
	eventHub := hub.NewEventHub()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	boxHandler := handler.NewBoxHandler(boxStore, eventHub, auditRepo)
	authHandler := handler.NewAuthHandler(cfg, adminRepo, tokenRepo)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterBoard(e, boxHandler, cfg.JWTSecret, limiter)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)

	// Background consumer mirroring accepted writes into logs/box-changes.log.
	go func() {
		if err := queue.StartBoxChangeConsumer(); err != nil {
			log.Printf("box-consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
