package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/stolpe22/plano-jornada/internal/catalog"
	"github.com/stolpe22/plano-jornada/internal/scraper"
	"github.com/stolpe22/plano-jornada/pkg/database"
	"github.com/stolpe22/plano-jornada/pkg/logger"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

// Credentials come from JORNADA_EMAIL and JORNADA_PASSWORD.
func main() {
	var (
		configPath = flag.String("config", utils.DefaultConfigPath(), "config file")
		csvOut     = flag.String("csv", "", "also write the crawled catalog to this CSV file")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, utils.LoadCredentials(), *csvOut, lg)
	stop()
	if err != nil {
		lg.Error("scraper failed", "error", err)
		lg.Sync()
		os.Exit(1)
	}
	lg.Sync()
}

func run(ctx context.Context, cfg utils.Config, creds utils.Credentials, csvOut string, lg *logger.Logger) error {
	if creds.Email == "" || creds.Password == "" {
		return errors.New("JORNADA_EMAIL and JORNADA_PASSWORD are required")
	}

	db, err := database.Open(database.FromSettings(cfg.Database))
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	runner := scraper.NewRunner(
		scraper.NewAuthenticator(cfg.Platform, lg),
		scraper.NewCrawler(cfg.Platform, lg),
		catalog.NewRepo(db),
		lg,
	)

	res, err := runner.Run(ctx, creds)
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	lg.Info("catalog replaced",
		"run", res.Run.ID,
		"tracks", res.Run.Tracks,
		"courses", res.Run.Courses,
		"lessons", res.Run.Lessons,
		"failed_units", res.Run.FailedUnits,
		"db", cfg.Database.Path,
	)

	if csvOut == "" {
		return nil
	}
	f, err := os.Create(csvOut)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := catalog.WriteCSV(f, res.Records); err != nil {
		_ = f.Close()
		return fmt.Errorf("write csv %s: %w", csvOut, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv %s: %w", csvOut, err)
	}
	lg.Info("catalog csv written", "path", csvOut, "rows", len(res.Records))
	return nil
}
