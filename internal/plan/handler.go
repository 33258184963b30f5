package plan

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/stolpe22/plano-jornada/pkg/database"
	"github.com/stolpe22/plano-jornada/pkg/logger"
	"github.com/stolpe22/plano-jornada/pkg/models"
)

const maxUpload = 8 << 20

type Handler struct {
	Repo    *Repo
	Service *Service
	Log     *logger.Logger
}

func NewHandler(svc *Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{Repo: svc.Plan, Service: svc, Log: log}
}

// RegisterRoutes mounts the read-only routes on rg and the mutating ones on
// write, which is expected to carry the auth middleware.
func (h *Handler) RegisterRoutes(rg, write *gin.RouterGroup) {
	rg.GET("", h.list)              // GET /plan
	rg.GET("/progress", h.progress) // GET /plan/progress
	rg.GET("/export", h.export)     // GET /plan/export
	rg.GET("/:id", h.get)           // GET /plan/:id

	write.POST("/import", h.importCSV)            // POST /plan/import
	write.POST("/reconcile", h.reconcile)         // POST /plan/reconcile
	write.PATCH("/:id/completed", h.setCompleted) // PATCH /plan/:id/completed
}

func (h *Handler) list(c *gin.Context) {
	entries, err := h.Repo.List(c.Request.Context())
	if err != nil && !errors.Is(err, database.ErrStoreUnavailable) {
		h.Log.Error("list plan", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	if entries == nil {
		entries = []models.PlanEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"total": len(entries), "items": entries})
}

func (h *Handler) progress(c *gin.Context) {
	p, err := h.Repo.Progress(c.Request.Context())
	if err != nil && !errors.Is(err, database.ErrStoreUnavailable) {
		h.Log.Error("plan progress", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "progress failed"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) export(c *gin.Context) {
	entries, err := h.Repo.List(c.Request.Context())
	if err != nil && !errors.Is(err, database.ErrStoreUnavailable) {
		h.Log.Error("export plan", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := WriteCSV(c.Writer, entries); err != nil {
		h.Log.Error("write plan csv", "error", err)
	}
}

// importCSV accepts either a multipart "file" field or a raw CSV body.
func (h *Handler) importCSV(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload)

	var (
		entries []models.PlanEntry
		err     error
	)
	if fh, ferr := c.FormFile("file"); ferr == nil {
		f, oerr := fh.Open()
		if oerr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
			return
		}
		defer f.Close()
		entries, err = ReadCSV(f)
	} else {
		entries, err = ReadCSV(c.Request.Body)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan has no rows"})
		return
	}

	saved, err := h.Repo.Import(c.Request.Context(), entries)
	if err != nil {
		h.Log.Error("import plan", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}
	h.Log.Info("plan imported", "entries", len(saved))
	c.JSON(http.StatusCreated, gin.H{"total": len(saved), "items": saved})
}

func (h *Handler) reconcile(c *gin.Context) {
	entries, sum, err := h.Service.Reconcile(c.Request.Context())
	switch {
	case errors.Is(err, ErrNoPlan), errors.Is(err, ErrNoCatalog):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.Log.Error("reconcile plan", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconcile failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": sum, "message": sum.String(), "items": entries})
}

type completedReq struct {
	Completed *bool `json:"completed"`
}

func (h *Handler) get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	e, err := h.Repo.Get(c.Request.Context(), id)
	if err != nil {
		h.Log.Error("get plan entry", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if e == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) setCompleted(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req completedReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Completed == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "completed required"})
		return
	}

	err = h.Repo.SetCompleted(c.Request.Context(), id, *req.Completed)
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	case err != nil:
		h.Log.Error("set completed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "completed": *req.Completed})
}
