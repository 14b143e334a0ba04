// Package web provides the gateway's HTTP server: routing, middleware,
// TLS serving and background job scheduling.
package web

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/mhsanaei/xui-gateway/config"
	"github.com/mhsanaei/xui-gateway/logger"
	"github.com/mhsanaei/xui-gateway/util/common"
	"github.com/mhsanaei/xui-gateway/web/controller"
	"github.com/mhsanaei/xui-gateway/web/job"
	"github.com/mhsanaei/xui-gateway/web/middleware"
	"github.com/mhsanaei/xui-gateway/web/network"
	"github.com/mhsanaei/xui-gateway/web/service"
	"github.com/mhsanaei/xui-gateway/xui"
)

const shutdownTimeout = 10 * time.Second

// Server is the gateway HTTP server together with its scheduled jobs.
type Server struct {
	cfg *config.Config

	httpServer *http.Server
	listener   net.Listener
	panel      *xui.Client
	vpn        *service.VPNService

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

func NewServer(cfg *config.Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	panel := xui.New(xui.Options{
		BaseURL:   cfg.Panel.BaseURL,
		Username:  cfg.Panel.Username,
		Password:  cfg.Panel.Password,
		Timeout:   cfg.Panel.RequestTimeout(),
		VerifySSL: cfg.Panel.VerifySSL,
	})
	return &Server{
		cfg:    cfg,
		panel:  panel,
		vpn:    service.NewVPNService(panel),
		ctx:    ctx,
		cancel: cancel,
	}
}

// NewRouter builds the gin engine serving the REST API on top of vpn.
func NewRouter(cfg *config.Config, vpn *service.VPNService) *gin.Engine {
	engine := newEngine(cfg)
	controller.NewAPIController(&engine.RouterGroup, vpn, cfg.Server.APIKey, cfg.Debug)
	return engine
}

func newEngine(cfg *config.Config) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		middleware.Recovery(cfg.Debug),
		middleware.RequestLogger(),
		middleware.Metrics(),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Server.Metrics {
		engine.GET("/metrics", middleware.LocalOnly(), gin.WrapH(promhttp.Handler()))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})
	return engine
}

func (s *Server) startTask() error {
	spec := s.cfg.Jobs.OrphanSweep
	if spec == "" {
		return nil
	}
	if _, err := s.cron.AddJob(spec, job.NewOrphanMetadataJob(s.vpn, s.cfg.Jobs.OrphanPrune)); err != nil {
		return err
	}
	logger.Infof("orphan metadata sweep scheduled at %q, prune=%v", spec, s.cfg.Jobs.OrphanPrune)
	return nil
}

// Start binds the listener and serves in the background.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	s.cron = cron.New()
	s.cron.Start()

	engine := NewRouter(s.cfg, s.vpn)

	listener, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return err
	}

	if s.cfg.Server.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(s.cfg.Server.CertFile, s.cfg.Server.KeyFile)
		if err != nil {
			_ = listener.Close()
			return err
		}
		listener = network.NewRedirectListener(listener)
		listener = tls.NewListener(listener, &tls.Config{Certificates: []tls.Certificate{cert}})
		logger.Info("Gateway running HTTPS on", listener.Addr())
	} else {
		logger.Info("Gateway running HTTP on", listener.Addr())
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped:", err)
		}
	}()

	return s.startTask()
}

// Stop shuts the server down and releases the panel session. Requests
// still waiting on the panel see their context cancelled.
func (s *Server) Stop() error {
	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
	var err1, err2, err3 error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err1 = s.httpServer.Shutdown(ctx)
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			err2 = err
		}
	}
	err3 = s.panel.Close()
	return common.Combine(err1, err2, err3)
}
