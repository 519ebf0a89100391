package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lanshare/lanshare/internal/models"
	"github.com/lanshare/lanshare/pkg/config"
	"github.com/lanshare/lanshare/pkg/store"
	"github.com/lanshare/lanshare/pkg/telemetry"
)

// Server represents the HTTP server
type Server struct {
	config    *config.Config
	logger    *logrus.Logger
	files     *store.FileStore
	texts     *store.TextStore
	engine    *gin.Engine
	server    *http.Server
	startTime time.Time
}

// New creates a new server instance
func New(cfg *config.Config, logger *logrus.Logger) (*Server, error) {
	files, err := store.NewFileStore(cfg.Storage.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file store: %w", err)
	}
	texts := store.NewTextStore(cfg.Storage.TextFile, logger)

	// Set gin mode based on log level
	if logger.Level == logrus.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create gin engine
	engine := gin.New()
	engine.SetHTMLTemplate(indexTemplate)

	// Add middleware
	engine.Use(gin.Recovery())
	engine.Use(ginLogger(logger))

	// Add OpenTelemetry middleware if telemetry is enabled
	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware("lanshare"))
	}

	engine.Use(bodyLimit(cfg.Server.MaxBodyBytes))

	server := &Server{
		config:    cfg,
		logger:    logger,
		files:     files,
		texts:     texts,
		engine:    engine,
		startTime: time.Now(),
	}

	// Setup routes
	server.setupRoutes()

	return server, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler: s.engine,
	}

	s.logger.Infof("Starting server on %s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Engine returns the gin engine for testing purposes
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Index page
	s.engine.GET("/", s.handleIndex)

	// Health check
	s.engine.GET("/alive", s.handleAlive)

	// Server info
	s.engine.GET("/server-info", s.handleServerInfo)

	// File operations
	s.engine.POST("/upload", s.handleUpload)
	s.engine.GET("/download/:filename", s.handleDownload)
	s.engine.POST("/delete/:filename", s.handleDelete)

	// Text operations
	s.engine.POST("/text", s.handleAddText)
	s.engine.DELETE("/text/:id", s.handleRemoveText)
	s.engine.POST("/clear-texts", s.handleClearTexts)
}

// handleIndex renders the combined file and text listing. Store read errors
// degrade to empty lists so the page itself never fails.
func (s *Server) handleIndex(c *gin.Context) {
	files, err := s.files.List(c.Request.Context())
	if err != nil {
		s.logger.Warnf("Failed to list files for index: %v", err)
	}
	texts, err := s.texts.LoadAll(c.Request.Context())
	if err != nil {
		s.logger.Warnf("Failed to load texts for index: %v", err)
	}

	c.HTML(http.StatusOK, "index", gin.H{
		"Files": files,
		"Texts": texts,
	})
}

// handleAlive handles health check requests
func (s *Server) handleAlive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleServerInfo handles server info requests
func (s *Server) handleServerInfo(c *gin.Context) {
	ctx := c.Request.Context()

	files, err := s.files.List(ctx)
	if err != nil {
		s.logger.Warnf("Failed to list files for server info: %v", err)
	}
	texts, err := s.texts.LoadAll(ctx)
	if err != nil {
		s.logger.Warnf("Failed to load texts for server info: %v", err)
	}

	var diskStats models.DiskStats
	if usage, err := disk.Usage(s.files.Dir()); err != nil {
		s.logger.Warnf("Failed to get disk usage: %v", err)
	} else {
		diskStats = models.DiskStats{
			Total:   usage.Total,
			Used:    usage.Used,
			Free:    usage.Free,
			Percent: usage.UsedPercent,
		}
	}

	c.JSON(http.StatusOK, models.ServerInfoResponse{
		Uptime:    time.Since(s.startTime).Seconds(),
		FileCount: len(files),
		TextCount: len(texts),
		UploadDir: s.files.Dir(),
		Disk:      diskStats,
	})
}

// handleUpload handles multipart file uploads
func (s *Server) handleUpload(c *gin.Context) {
	tracer := otel.Tracer("lanshare")
	ctx, span := tracer.Start(c.Request.Context(), "handle_upload")
	defer span.End()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		span.RecordError(err)
		// A part with an empty filename parses as a plain form value, not
		// a file, so it lands here rather than in the Filename check below.
		if form := c.Request.MultipartForm; form != nil && len(form.Value["file"]) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no file selected"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file"})
		return
	}
	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file selected"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to read upload: %v", err)})
		return
	}
	defer src.Close()

	finalName, err := s.files.Save(ctx, fileHeader.Filename, src)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, store.ErrInvalidName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filename"})
			return
		}
		s.logger.Errorf("Failed to save %s: %v", fileHeader.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to save file: %v", err)})
		return
	}

	span.SetAttributes(attribute.String("file.name", finalName))
	if s.config.Telemetry.Enabled {
		telemetry.ReportJSON(ctx, s.logger, "file_upload", map[string]interface{}{
			"filename": finalName,
			"size":     fileHeader.Size,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "filename": finalName})
}

// handleDownload streams a stored file back as an attachment
func (s *Server) handleDownload(c *gin.Context) {
	tracer := otel.Tracer("lanshare")
	ctx, span := tracer.Start(c.Request.Context(), "handle_download")
	defer span.End()

	name := c.Param("filename")
	f, info, err := s.files.Open(ctx, name)
	if err != nil {
		span.RecordError(err)
		// Invalid names (traversal attempts included) report the same way
		// as missing files, without touching the filesystem.
		if errors.Is(err, store.ErrInvalidName) || errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to open file: %v", err)})
		return
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	escaped := url.PathEscape(name)
	c.DataFromReader(http.StatusOK, info.Size(), contentType, f, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, escaped, escaped),
	})
}

// handleDelete removes a stored file
func (s *Server) handleDelete(c *gin.Context) {
	tracer := otel.Tracer("lanshare")
	ctx, span := tracer.Start(c.Request.Context(), "handle_delete")
	defer span.End()

	name := c.Param("filename")
	if err := s.files.Delete(ctx, name); err != nil {
		span.RecordError(err)
		if errors.Is(err, store.ErrInvalidName) || errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to delete file: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleAddText stores a new text snippet
func (s *Server) handleAddText(c *gin.Context) {
	tracer := otel.Tracer("lanshare")
	ctx, span := tracer.Start(c.Request.Context(), "handle_add_text")
	defer span.End()

	var req models.AddTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "no content"})
		return
	}

	snippet, err := s.texts.Add(ctx, req.Content)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, store.ErrEmptyContent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no content"})
			return
		}
		s.logger.Errorf("Failed to add text: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to add text: %v", err)})
		return
	}

	if s.config.Telemetry.Enabled {
		telemetry.ReportJSON(ctx, s.logger, "text_added", map[string]interface{}{
			"id": snippet.ID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleRemoveText removes a snippet by id; a nonexistent id is a no-op
func (s *Server) handleRemoveText(c *gin.Context) {
	tracer := otel.Tracer("lanshare")
	ctx, span := tracer.Start(c.Request.Context(), "handle_remove_text")
	defer span.End()

	if err := s.texts.Remove(ctx, c.Param("id")); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to remove text: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleClearTexts empties the text store
func (s *Server) handleClearTexts(c *gin.Context) {
	tracer := otel.Tracer("lanshare")
	ctx, span := tracer.Start(c.Request.Context(), "handle_clear_texts")
	defer span.End()

	if err := s.texts.Clear(ctx); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to clear texts: %v", err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// bodyLimit rejects requests larger than max bytes. Declared sizes are
// refused up front; chunked bodies are capped while being read.
func bodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > max {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}

// ginLogger creates a gin logger middleware using logrus
func ginLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// Process request
		c.Next()

		// Calculate latency
		latency := time.Since(start)

		// Get status code
		statusCode := c.Writer.Status()

		// Build log entry
		entry := logger.WithFields(logrus.Fields{
			"status":     statusCode,
			"method":     c.Request.Method,
			"path":       path,
			"ip":         c.ClientIP(),
			"latency":    latency,
			"user_agent": c.Request.UserAgent(),
		})

		if raw != "" {
			entry = entry.WithField("query", raw)
		}

		// Log based on status code
		if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request completed")
		}
	}
}
