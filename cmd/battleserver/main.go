// Package main provides the battle server binary: a WebSocket service that
// runs turn-based battles against monsters.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Muggle-mew/Urba/internal/config"
	"github.com/Muggle-mew/Urba/internal/game/battle"
	"github.com/Muggle-mew/Urba/internal/game/monster"
	"github.com/Muggle-mew/Urba/internal/game/rng"
	"github.com/Muggle-mew/Urba/internal/gameserver"
	"github.com/Muggle-mew/Urba/internal/observability"
	"github.com/Muggle-mew/Urba/internal/server"
	"github.com/Muggle-mew/Urba/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	monstersDir := flag.String("monsters-dir", "", "monster YAML directory; overrides battle.content_dir")
	monstersFromDB := flag.Bool("monsters-from-db", false, "load monster templates from the database instead of YAML")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting battle server",
		zap.String("addr", cfg.Server.Addr()),
		zap.Duration("round_duration", cfg.Battle.RoundDuration),
	)

	// Connect to PostgreSQL for character persistence.
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	charRepo := postgres.NewCharacterRepository(pool.DB())

	// Monster templates come from YAML content by default; deployments that
	// manage monsters in the database switch the source with a flag.
	var monsters gameserver.MonsterSource
	if *monstersFromDB {
		monsters = postgres.NewMonsterRepository(pool.DB())
		logger.Info("monster templates served from database")
	} else {
		dir := cfg.Battle.ContentDir
		if *monstersDir != "" {
			dir = *monstersDir
		}
		templates, err := monster.LoadTemplates(dir)
		if err != nil {
			logger.Fatal("loading monster templates", zap.String("dir", dir), zap.Error(err))
		}
		catalog, err := monster.NewCatalog(templates)
		if err != nil {
			logger.Fatal("building monster catalog", zap.Error(err))
		}
		monsters = catalog
		logger.Info("monster templates loaded",
			zap.String("dir", dir),
			zap.Int("count", catalog.Len()),
		)
	}

	// Wire the battle engine.
	src := rng.NewCryptoSource()
	hub := gameserver.NewHub(logger)
	defaultReward := battle.Reward{
		Exp:   cfg.Battle.DefaultExpReward,
		Money: cfg.Battle.DefaultMoneyReward,
	}
	settler := battle.NewSettler(charRepo, defaultReward, cfg.Battle.SettlementTimeout, logger)
	registry := battle.NewRegistry(cfg.Battle.RoundDuration, src, hub, settler, logger)

	handler := gameserver.NewBattleHandler(registry, hub, charRepo, monsters, logger)

	mux := http.NewServeMux()
	mux.Handle("/battle", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Health(r.Context(), 2*time.Second); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: mux,
	}

	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("http", &server.FuncService{
		StartFn: func() error {
			logger.Info("http server listening", zap.String("addr", cfg.Server.Addr()))
			err := httpServer.ListenAndServe()
			if err == http.ErrServerClosed {
				return nil
			}
			return err
		},
		StopFn: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
		},
	})

	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			for {
				time.Sleep(30 * time.Second)
				if err := pool.Health(ctx, 5*time.Second); err != nil {
					logger.Warn("database health check failed", zap.Error(err))
				}
			}
		},
		StopFn: func() {
			pool.Close()
		},
	})

	logger.Info("battle server initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
