package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/stolpe22/plano-jornada/internal/catalog"
	"github.com/stolpe22/plano-jornada/internal/grpcserver"
	"github.com/stolpe22/plano-jornada/internal/plan"
	"github.com/stolpe22/plano-jornada/internal/search"
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

	db := database.MustOpen(database.FromSettings(cfg.Database), lg)
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		lg.Fatal("db migrate failed", "error", err)
	}

	listener, err := net.Listen("tcp", cfg.API.GrpcAddr)
	if err != nil {
		lg.Fatal("grpc listen failed", "addr", cfg.API.GrpcAddr, "error", err)
	}

	catalogRepo := catalog.NewRepo(db)
	svc := grpcserver.NewServer(
		search.NewSearcher(catalogRepo, cfg.Search, lg),
		catalogRepo,
		plan.NewRepo(db),
	)

	grpcServer := grpc.NewServer()
	grpcserver.Register(grpcServer, svc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	lg.Info("grpc server listening", "addr", cfg.API.GrpcAddr)
	if err := grpcServer.Serve(listener); err != nil {
		lg.Fatal("grpc server stopped", "error", err)
	}
}
