package search

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stolpe22/plano-jornada/internal/catalog"
	"github.com/stolpe22/plano-jornada/pkg/logger"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

type Handler struct {
	Searcher *Searcher
	Filters  *FilterStore
	Log      *logger.Logger
}

func NewHandler(s *Searcher, fs *FilterStore, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{Searcher: s, Filters: fs, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)           // GET /catalog/search?q=&tracks=&sensitivity=
	rg.GET("/filters", h.getFilters)      // GET /catalog/filters
	rg.PUT("/filters", h.putFilters)      // PUT /catalog/filters
	rg.DELETE("/filters", h.resetFilters) // DELETE /catalog/filters
}

// search uses explicit query parameters when given and the session filters
// otherwise.
func (h *Handler) search(c *gin.Context) {
	f := h.Filters.Load(c.Request)
	if v, ok := c.GetQuery("q"); ok {
		f.Text = v
	}
	if tracks := catalog.TracksParam(c); len(tracks) > 0 {
		f.Tracks = tracks
		f.SelectAll = false
	}
	if v := c.Query("sensitivity"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sensitivity must be an integer"})
			return
		}
		f.Sensitivity = n
	}

	q, ok := f.Query()
	if !ok {
		c.JSON(http.StatusOK, Results{Hits: []Hit{}})
		return
	}
	res, err := h.Searcher.Search(c.Request.Context(), q)
	if err != nil {
		h.Log.Error("search failed", "query", q.Text, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) getFilters(c *gin.Context) {
	c.JSON(http.StatusOK, h.Filters.Load(c.Request))
}

func (h *Handler) putFilters(c *gin.Context) {
	f := DefaultFilters()
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filters"})
		return
	}
	if err := h.Filters.Save(c.Writer, c.Request, f); err != nil {
		h.Log.Error("save filters", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	f.Sensitivity = utils.ClampSensitivity(f.Sensitivity)
	c.JSON(http.StatusOK, f)
}

func (h *Handler) resetFilters(c *gin.Context) {
	f := h.Filters.Load(c.Request)
	f.Reset()
	if err := h.Filters.Save(c.Writer, c.Request, f); err != nil {
		h.Log.Error("reset filters", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset failed"})
		return
	}
	c.JSON(http.StatusOK, f)
}
