package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/stolpe22/plano-jornada/pkg/database"
	"github.com/stolpe22/plano-jornada/pkg/logger"
	"github.com/stolpe22/plano-jornada/pkg/models"
)

type Handler struct {
	Repo *Repo
	Log  *logger.Logger
}

func NewHandler(repo *Repo, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{Repo: repo, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)                  // GET /catalog
	rg.GET("/tracks", h.tracks)         // GET /catalog/tracks
	rg.GET("/export", h.export)         // GET /catalog/export
	rg.GET("/runs/latest", h.latestRun) // GET /catalog/runs/latest
}

func (h *Handler) list(c *gin.Context) {
	f := Filter{
		Tracks: TracksParam(c),
		Limit:  parseInt(c.Query("limit"), 50),
		Offset: parseInt(c.Query("offset"), 0),
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}

	total, err := h.Repo.Count(c.Request.Context(), f)
	if err != nil && !errors.Is(err, database.ErrStoreUnavailable) {
		h.Log.Error("count catalog", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	items, err := h.Repo.List(c.Request.Context(), f)
	if err != nil && !errors.Is(err, database.ErrStoreUnavailable) {
		h.Log.Error("list catalog", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	if items == nil {
		items = []models.LessonRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  f.Limit,
		"offset": f.Offset,
		"items":  items,
	})
}

func (h *Handler) tracks(c *gin.Context) {
	tracks, err := h.Repo.Tracks(c.Request.Context())
	if err != nil && !errors.Is(err, database.ErrStoreUnavailable) {
		h.Log.Error("list tracks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tracks failed"})
		return
	}
	if tracks == nil {
		tracks = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

func (h *Handler) export(c *gin.Context) {
	recs, err := h.Repo.List(c.Request.Context(), Filter{Tracks: TracksParam(c)})
	if err != nil && !errors.Is(err, database.ErrStoreUnavailable) {
		h.Log.Error("export catalog", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="catalogo_jornada.csv"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := WriteCSV(c.Writer, recs); err != nil {
		h.Log.Error("write catalog csv", "error", err)
	}
}

func (h *Handler) latestRun(c *gin.Context) {
	run, err := h.Repo.LatestRun(c.Request.Context())
	if err != nil && !errors.Is(err, database.ErrStoreUnavailable) {
		h.Log.Error("latest run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "run lookup failed"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no crawl yet"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// TracksParam reads tracks=A&tracks=B or tracks=A,B.
func TracksParam(c *gin.Context) []string {
	tracks := c.QueryArray("tracks")
	if len(tracks) == 1 && strings.Contains(tracks[0], ",") {
		tracks = strings.Split(tracks[0], ",")
	}
	out := tracks[:0]
	for _, t := range tracks {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
