package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
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
		outDir     = flag.String("out", "data", "output directory")
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
	defer lg.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.FromSettings(cfg.Database), lg)
	defer db.Close()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		lg.Fatal("create output dir", "dir", *outDir, "error", err)
	}

	recs, err := catalog.NewRepo(db).List(ctx, catalog.Filter{})
	if err != nil {
		lg.Warn("catalog not exported", "error", err)
	} else {
		path := filepath.Join(*outDir, "catalogo_jornada.csv")
		if err := writeFile(path, func(f *os.File) error { return catalog.WriteCSV(f, recs) }); err != nil {
			lg.Fatal("export catalog failed", "path", path, "error", err)
		}
		lg.Info("catalog exported", "path", path, "rows", len(recs))
	}

	entries, err := plan.NewRepo(db).List(ctx)
	if err != nil {
		lg.Warn("plan not exported", "error", err)
		return
	}
	path := filepath.Join(*outDir, plan.ExportFilename)
	if err := writeFile(path, func(f *os.File) error { return plan.WriteCSV(f, entries) }); err != nil {
		lg.Fatal("export plan failed", "path", path, "error", err)
	}
	lg.Info("plan exported", "path", path, "entries", len(entries))
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
