package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tripnote/tripnote/config"
	"github.com/tripnote/tripnote/internal/extract"
	"github.com/tripnote/tripnote/internal/ingest"
	"github.com/tripnote/tripnote/internal/provider"
	"github.com/tripnote/tripnote/internal/session"
)

// Run wires the pipeline and serves the HTTP API. It fails fast on a
// missing provider credential so a misconfiguration surfaces at boot
// instead of as a network error on the first upload.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	llm, err := provider.New(cfg.LLM)
	if err != nil {
		return fmt.Errorf("provider not configured: %w", err)
	}

	engineLogger := log.New(log.Writer(), "[EXTRACT] ", log.LstdFlags)
	engine := extract.NewEngine(llm, cfg.LLM.MaxGroundingChars, engineLogger)
	extractor := ingest.NewPDFExtractor()
	sessionLogger := log.New(log.Writer(), "[SESSION] ", log.LstdFlags)

	registry := NewRegistry(func() *session.Session {
		return session.New(llm, engine, extractor, sessionLogger)
	})

	h := &SessionsHandler{
		Registry:       registry,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Logger:         baseLogger,
	}
	api := e.Group("/api")
	h.Register(api.Group("/sessions"))

	log.Printf("listening on %s", cfg.Server.Address)
	return e.Start(cfg.Server.Address)
}
