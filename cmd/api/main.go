package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gorilla/sessions"

	"animal-collector-api/core"
)

func main() {
	cfg := core.Load()
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := core.RunMigrations(ctx, db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	catalogRepo := core.NewPgCatalogRepository(db)
	if n, err := core.ImportCatalog(ctx, catalogRepo, cfg.CatalogSeedPath); err != nil {
		log.Fatalf("failed to import catalog seed: %v", err)
	} else {
		log.Printf("catalog seed imported: %d animals", n)
	}

	redisClient, err := core.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer redisClient.Close()

	// Gorilla cookie store for session management.
	store := sessions.NewCookieStore([]byte(cfg.SessionKey))

	accountRepo := core.NewPgAccountRepository(db)
	captureRepo := core.NewPgCaptureRepository(db)
	cache := core.NewLeaderboardCache(redisClient)

	authService := core.NewAuthService(accountRepo)
	linker := core.NewExternalLinker(accountRepo, cfg.ProviderSecrets)
	collectionService := core.NewCollectionService(catalogRepo, captureRepo, accountRepo, cache)

	router := core.NewRouter(cfg, store, accountRepo, authService, linker, collectionService)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
