package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/stolpe22/plano-jornada/internal/catalog"
	"github.com/stolpe22/plano-jornada/internal/plan"
	"github.com/stolpe22/plano-jornada/pkg/database"
	"github.com/stolpe22/plano-jornada/pkg/logger"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

func main() {
	var (
		configPath = flag.String("config", utils.DefaultConfigPath(), "config file")
		planIn     = flag.String("plan", "", "study plan CSV (Trilha, Módulo, Carga Horária (h), Objetivo)")
		catalogIn  = flag.String("catalog", "", "flat catalog CSV as written by export-csv")
	)
	flag.Parse()

	if *planIn == "" && *catalogIn == "" {
		fmt.Fprintln(os.Stderr, "nothing to import: pass -plan and/or -catalog")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := database.MustOpen(database.FromSettings(cfg.Database), lg)
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		lg.Fatal("db migrate failed", "error", err)
	}

	if *catalogIn != "" {
		n, err := importCatalog(ctx, catalog.NewRepo(db), *catalogIn)
		if err != nil {
			lg.Fatal("import catalog failed", "path", *catalogIn, "error", err)
		}
		lg.Info("catalog imported", "path", *catalogIn, "rows", n)
	}
	if *planIn != "" {
		n, err := importPlan(ctx, plan.NewRepo(db), *planIn)
		if err != nil {
			lg.Fatal("import plan failed", "path", *planIn, "error", err)
		}
		lg.Info("plan imported", "path", *planIn, "entries", n)
	}
}

func importCatalog(ctx context.Context, repo *catalog.Repo, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	recs, err := catalog.ReadCSV(f)
	if err != nil {
		return 0, err
	}
	if err := repo.ReplaceAll(ctx, recs); err != nil {
		return 0, err
	}
	return len(recs), nil
}

func importPlan(ctx context.Context, repo *plan.Repo, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	entries, err := plan.ReadCSV(f)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, fmt.Errorf("%s has no rows", path)
	}
	saved, err := repo.Import(ctx, entries)
	if err != nil {
		return 0, err
	}
	return len(saved), nil
}
