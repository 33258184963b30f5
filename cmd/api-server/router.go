package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/stolpe22/plano-jornada/internal/auth"
	"github.com/stolpe22/plano-jornada/internal/catalog"
	"github.com/stolpe22/plano-jornada/internal/plan"
	"github.com/stolpe22/plano-jornada/internal/reconcile"
	"github.com/stolpe22/plano-jornada/internal/scraper"
	"github.com/stolpe22/plano-jornada/internal/search"
	synchub "github.com/stolpe22/plano-jornada/internal/sync"
	"github.com/stolpe22/plano-jornada/pkg/logger"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

type deps struct {
	base context.Context
	cfg  utils.Config
	db   *sql.DB
	hub  *synchub.Hub
	log  *logger.Logger
}

func newRouter(d deps) (*gin.Engine, *scraper.Runner) {
	if d.log == nil {
		d.log = logger.Nop()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLog(d.log))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	corsCfg := cors.Config{
		AllowOrigins:     d.cfg.API.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowAllOrigins, corsCfg.AllowCredentials = true, false
	}
	router.Use(cors.New(corsCfg))

	router.GET("/ws", synchub.WSHandler(d.hub, d.cfg.API.AllowedOrigins, d.log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": d.cfg.Database.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := d.hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := d.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Auth
	tokens := auth.TokenService{
		Secret:   []byte(d.cfg.API.JWTSecret),
		Issuer:   d.cfg.API.JWTIssuer,
		Duration: d.cfg.API.JWTTTL,
	}
	auth.NewHandler(d.cfg.API.OperatorPasswordHash, tokens, d.log).RegisterRoutes(router.Group("/auth"))
	guard := auth.AuthMiddleware(tokens)

	// Catalog and search (public)
	catalogRepo := catalog.NewRepo(d.db)
	catalogGroup := router.Group("/catalog")
	catalog.NewHandler(catalogRepo, d.log).RegisterRoutes(catalogGroup)
	searcher := search.NewSearcher(catalogRepo, d.cfg.Search, d.log)
	search.NewHandler(searcher, search.NewFilterStore([]byte(d.cfg.API.SessionSecret)), d.log).RegisterRoutes(catalogGroup)

	// Plan
	planSvc := plan.NewService(plan.NewRepo(d.db), catalogRepo, reconcile.New(d.cfg.Match), d.log)
	planGroup := router.Group("/plan")
	plan.NewHandler(planSvc, d.log).RegisterRoutes(planGroup, planGroup.Group("", guard))

	// Crawl
	runner := scraper.NewRunner(
		scraper.NewAuthenticator(d.cfg.Platform, d.log),
		scraper.NewCrawler(d.cfg.Platform, d.log, scraper.WithProgress(d.hub)),
		catalogRepo,
		d.log,
	)
	crawlGroup := router.Group("/crawl")
	scraper.NewHandler(d.base, runner).RegisterRoutes(crawlGroup, crawlGroup.Group("", guard))

	return router, runner
}

func requestLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start).String(),
		)
	}
}
