package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dougsko/audiohal/pkg/config"
	"github.com/dougsko/audiohal/pkg/engine"
	"github.com/dougsko/audiohal/pkg/logging"
)

// Daemon ties the core engine to the HTTP API
type Daemon struct {
	config *config.Config
	log    *logging.ComponentLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	coreEngine *engine.CoreEngine
	router     *gin.Engine
	webServer  *http.Server
}

// NewDaemon creates a new daemon instance
func NewDaemon(cfg *config.Config, logger *logging.Logger, opts ...engine.Option) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		config:     cfg,
		log:        logger.Component("daemon"),
		ctx:        ctx,
		cancel:     cancel,
		coreEngine: engine.NewCoreEngine(cfg, cfg.API.UnixSocket, logger, opts...),
	}
	d.router = d.setupRouter()
	d.webServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Web.BindAddress, cfg.Web.Port),
		Handler: d.router,
	}
	return d
}

// Start starts the engine and the web server
func (d *Daemon) Start() error {
	if err := d.coreEngine.Start(); err != nil {
		return fmt.Errorf("failed to start core engine: %w", err)
	}

	if d.config.Web.Port == 0 {
		return nil
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.log.Infof("starting web server on %s", d.webServer.Addr)
		if err := d.webServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.log.Errorf("web server error: %v", err)
		}
	}()

	return nil
}

// Stop stops the daemon gracefully
func (d *Daemon) Stop() error {
	d.log.Infof("stopping daemon")
	d.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.webServer.Shutdown(ctx); err != nil {
		d.log.Warnf("web server shutdown error: %v", err)
	}

	err := d.coreEngine.Stop()
	d.wg.Wait()
	return err
}

func (d *Daemon) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), d.requestLogger())

	api := router.Group("/api/v1")
	{
		api.GET("/status", d.handleGetStatus)
		api.POST("/route", d.handleUpdateRoute)
		api.POST("/route/option", d.handleUpdateRouteOption)
		api.GET("/history", d.handleGetHistory)
		api.GET("/devices", d.handleGetDevices)
		api.GET("/config", d.handleGetConfig)
		api.GET("/ws", d.handleEventsWebSocket)
	}

	return router
}

// requestLogger sends gin request lines through the daemon logger
func (d *Daemon) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		d.log.WithFields(logging.Fields{
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debugf("%s %s", c.Request.Method, c.Request.URL.Path)
	}
}
