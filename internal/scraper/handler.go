package scraper

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stolpe22/plano-jornada/pkg/utils"
)

type Handler struct {
	Runner *Runner
	// Base outlives single requests; background crawls run under it.
	Base context.Context
}

func NewHandler(base context.Context, runner *Runner) *Handler {
	return &Handler{Runner: runner, Base: base}
}

func (h *Handler) RegisterRoutes(read, write *gin.RouterGroup) {
	read.GET("/status", h.status) // GET /crawl/status
	write.POST("", h.start)       // POST /crawl
}

type crawlReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) start(c *gin.Context) {
	var req crawlReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	creds := utils.Credentials{Email: strings.TrimSpace(req.Email), Password: req.Password}
	if creds.Email == "" || creds.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	err := h.Runner.Start(h.Base, creds)
	if errors.Is(err, ErrCrawlRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "crawl not started"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"running": h.Runner.Running()})
}
