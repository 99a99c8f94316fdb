package server

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agenthands/cardleads/internal/config"
	"github.com/agenthands/cardleads/internal/core"
	"github.com/agenthands/cardleads/internal/core/extraction"
	"github.com/agenthands/cardleads/internal/core/model"
	"github.com/agenthands/cardleads/internal/export"
	"github.com/agenthands/cardleads/internal/images"
	"github.com/agenthands/cardleads/internal/llm"
	"github.com/agenthands/cardleads/internal/logging"
	"github.com/agenthands/cardleads/internal/ocr"
	"github.com/agenthands/cardleads/internal/store"
)

// Syncer pushes export rows to a remote spreadsheet.
type Syncer interface {
	Sync(ctx context.Context, header []string, rows [][]string) (int, error)
}

type Server struct {
	Pipeline  *core.Pipeline
	Images    images.Store
	Sheets    Syncer
	SyncToken string
	MaxUpload int64
	Logger    *zap.Logger
}

// NewServer wires every component from cfg. The returned close func releases
// the store.
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, func(), error) {
	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	closeStore := func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}

	imgs, err := images.NewStore(cfg.Images)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	ocrProvider, err := ocr.New(ctx, cfg, logger)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	llmClient, err := llm.NewClient(ctx, cfg.LLM, logger)
	switch {
	case errors.Is(err, llm.ErrNoProvider):
		logger.Info("no llm provider configured, using heuristic extraction")
		llmClient = nil
	case err != nil:
		closeStore()
		return nil, nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	extractor := extraction.NewExtractor(llmClient, cfg.Extraction, logger)
	s := &Server{
		Pipeline:  core.NewPipeline(st, imgs, ocrProvider, extractor, logger),
		Images:    imgs,
		SyncToken: cfg.Sheets.SyncToken,
		MaxUpload: int64(cfg.Images.MaxUploadMB) << 20,
		Logger:    logger,
	}

	syncer, err := export.NewSheetsSyncer(ctx, cfg.Sheets)
	switch {
	case errors.Is(err, export.ErrSheetsNotConfigured):
		logger.Info("google sheets sync disabled")
	case err != nil:
		logger.Warn("google sheets sync unavailable", zap.Error(err))
	default:
		s.Sheets = syncer
	}

	return s, closeStore, nil
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(s.Logger))

	r.GET("/healthz", s.Health)
	r.POST("/cards", s.UploadCard)
	r.POST("/extract", s.Extract)
	r.GET("/stages", s.Stages)

	r.GET("/leads", s.ListLeads)
	r.POST("/leads", s.SaveLead)
	r.GET("/export/leads.csv", s.ExportCSV)
	r.GET("/export/leads.xlsx", s.ExportXLSX)
	r.GET("/leads/:id", s.GetLead)
	r.PATCH("/leads/:id/stage", s.UpdateStage)
	r.PATCH("/leads/:id/status", s.UpdateStatus)
	r.PATCH("/leads/:id/notes", s.UpdateNotes)

	r.POST("/sheets/sync", s.SyncSheets)

	return r
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) UploadCard(c *gin.Context) {
	file, err := c.FormFile("card")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing card file"})
		return
	}
	if s.MaxUpload > 0 && file.Size > s.MaxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Card image too large"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable card file"})
		return
	}
	defer f.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable card file"})
		return
	}

	path, err := s.Images.Put(c.Request.Context(), buf.Bytes())
	if errors.Is(err, images.ErrNotImage) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.Logger.Error("failed to store card image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store card image"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"card_image_path": path})
}

type ExtractRequest struct {
	CardImagePath string `json:"card_image_path" binding:"required"`
}

func (s *Server) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		msg := "Invalid request body"
		c.JSON(http.StatusBadRequest, model.ExtractResult{
			Extracted:       model.EmptyDraft(""),
			UncertainFields: []string{},
			Error:           &msg,
		})
		return
	}
	c.JSON(http.StatusOK, s.Pipeline.Extract(c.Request.Context(), req.CardImagePath))
}

func (s *Server) Stages(c *gin.Context) {
	stages, err := s.Pipeline.Stages(c.Request.Context())
	if err != nil {
		s.internalError(c, "Failed to load stages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": stages})
}

func filterFrom(c *gin.Context) core.Filter {
	return core.Filter{StageID: c.Query("stage_id"), Query: c.Query("q")}
}

func (s *Server) ListLeads(c *gin.Context) {
	leads, err := s.Pipeline.List(c.Request.Context(), filterFrom(c))
	if err != nil {
		s.internalError(c, "Failed to load leads", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": leads})
}

type SaveLeadRequest struct {
	Lead            model.Draft `json:"lead"`
	RawOCRText      string      `json:"raw_ocr_text"`
	UncertainFields []string    `json:"uncertain_fields"`
}

func (s *Server) SaveLead(c *gin.Context) {
	var req SaveLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := s.Pipeline.Save(c.Request.Context(), req.Lead, req.RawOCRText, req.UncertainFields)
	var dup *core.DuplicateError
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, res)
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, gin.H{"error": "Lead already exists", "duplicate": dup.Existing})
	case errors.Is(err, core.ErrStageRequired), errors.Is(err, core.ErrUnknownStage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.internalError(c, "Failed to save lead", err)
	}
}

func (s *Server) GetLead(c *gin.Context) {
	lead, err := s.Pipeline.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.leadError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

type stageRequest struct {
	StageID string `json:"stage_id"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func (s *Server) UpdateStage(c *gin.Context) {
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	lead, err := s.Pipeline.UpdateStage(c.Request.Context(), c.Param("id"), req.StageID)
	s.respondLead(c, lead, err)
}

func (s *Server) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	lead, err := s.Pipeline.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	s.respondLead(c, lead, err)
}

func (s *Server) UpdateNotes(c *gin.Context) {
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	lead, err := s.Pipeline.UpdateNotes(c.Request.Context(), c.Param("id"), req.Notes)
	s.respondLead(c, lead, err)
}

func (s *Server) respondLead(c *gin.Context, lead model.Lead, err error) {
	if err != nil {
		s.leadError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

func (s *Server) leadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
	case errors.Is(err, core.ErrStageRequired), errors.Is(err, core.ErrUnknownStage), errors.Is(err, core.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.internalError(c, "Failed to update lead", err)
	}
}

func (s *Server) ExportCSV(c *gin.Context) {
	rows, err := s.Pipeline.Export(c.Request.Context(), filterFrom(c), export.DisplayDateLayout)
	if err != nil {
		s.internalError(c, "Failed to export leads", err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, export.Header, rows); err != nil {
		s.internalError(c, "Failed to export leads", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="leads.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) ExportXLSX(c *gin.Context) {
	rows, err := s.Pipeline.Export(c.Request.Context(), filterFrom(c), export.DisplayDateLayout)
	if err != nil {
		s.internalError(c, "Failed to export leads", err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, export.Header, rows); err != nil {
		s.internalError(c, "Failed to export leads", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="leads.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

type SyncRequest struct {
	StageID string `json:"stage_id"`
}

func (s *Server) SyncSheets(c *gin.Context) {
	if s.SyncToken != "" {
		token := c.GetHeader("X-Sync-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.SyncToken)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false})
			return
		}
	}
	if s.Sheets == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Google Sheets sync is not configured"})
		return
	}

	var req SyncRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false})
			return
		}
	}

	rows, err := s.Pipeline.SyncRows(c.Request.Context(), req.StageID, export.SheetsDateLayout)
	if err != nil {
		s.Logger.Error("failed to build sheet rows", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}

	n, err := s.Sheets.Sync(c.Request.Context(), export.Header, rows)
	if err != nil {
		s.Logger.Error("sheets sync failed", zap.Error(err))
		body := gin.H{"success": false, "message": err.Error()}
		var syncErr *export.SyncError
		if errors.As(err, &syncErr) && syncErr.ServiceAccount != "" {
			body["service_account"] = syncErr.ServiceAccount
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "rows_written": n})
}

func (s *Server) internalError(c *gin.Context, msg string, err error) {
	s.Logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
