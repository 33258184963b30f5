package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	synchub "github.com/stolpe22/plano-jornada/internal/sync"
	"github.com/stolpe22/plano-jornada/pkg/database"
	"github.com/stolpe22/plano-jornada/pkg/logger"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

func main() {
	configPath := flag.String("config", utils.DefaultConfigPath(), "config file")
	flag.Parse()

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()
	if cfg.Log.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.MustOpen(database.FromSettings(cfg.Database), lg)
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		lg.Fatal("db migrate failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := synchub.NewHub(lg)
	feed := synchub.NewServer(cfg.API.SyncAddr, hub, lg)
	router, runner := newRouter(deps{base: ctx, cfg: cfg, db: db, hub: hub, log: lg})

	httpSrv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := feed.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		lg.Info("http api listening", "addr", cfg.API.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		lg.Info("shutdown signal received")
	case err := <-errCh:
		lg.Error("server error", "error", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown error", "error", err)
	}
	runner.Wait()
	wg.Wait()
	lg.Info("servers stopped")
}
