package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/ImOpaque/GensTools-sub000/pkg/logger"
	"github.com/ImOpaque/GensTools-sub000/pkg/web/metrics"
	"github.com/ImOpaque/GensTools-sub000/pkg/web/middleware"
	"github.com/ImOpaque/GensTools-sub000/pkg/web/validator"
)

// Server Web 服务核心结构，实现 app.Server
type Server struct {
	engine  *gin.Engine
	config  *Config
	logger  logger.Logger
	limiter *middleware.RateLimiter

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// Option Server 选项
type Option func(*serverOptions)

type serverOptions struct {
	metrics *metrics.HTTP
}

// WithMetrics 挂载 HTTP 指标中间件
func WithMetrics(m *metrics.HTTP) Option {
	return func(o *serverOptions) {
		o.metrics = m
	}
}

// NewServer 创建 Web 服务
func NewServer(cfg *Config, l logger.Logger, opts ...Option) (*Server, error) {
	newCfg, err := MergeConfig(cfg)
	if err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.Default()
	}
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	gin.SetMode(newCfg.Mode)
	validator.Init()

	engine := gin.New()
	engine.Use(middleware.Logger(l.Named("web.access")))
	engine.Use(middleware.Recovery(l.Named("web.recovery")))
	if o.metrics != nil {
		engine.Use(middleware.Metrics(o.metrics))
	}
	if newCfg.CORS.Enabled {
		engine.Use(middleware.CORS(&newCfg.CORS))
	}

	s := &Server{
		engine: engine,
		config: newCfg,
		logger: l.Named("web.server"),
	}
	if newCfg.RateLimit.RequestsPerSecond > 0 {
		s.limiter = middleware.NewRateLimiter(l.Named("web.ratelimit"), &newCfg.RateLimit)
		engine.Use(middleware.RateLimit(s.limiter))
	}
	return s, nil
}

// Router 返回 Gin 引擎，用于注册路由
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Handler 返回 http.Handler 接口
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr 实际监听地址（Start 之后可用）
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start 监听端口并在后台提供服务
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return ErrServerAlreadyStarted
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:        s.engine,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	srv := s.server
	go func() {
		var err error
		if s.config.TLS() {
			s.logger.Info("starting https server", "addr", ln.Addr().String())
			err = srv.ServeTLS(ln, s.config.CertFile, s.config.KeyFile)
		} else {
			s.logger.Info("starting http server", "addr", ln.Addr().String())
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server stopped unexpectedly", "error", err)
		}
	}()
	return nil
}

// Stop 优雅关闭，等待进行中的请求完成（受 ShutdownTimeout 约束）
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return ErrServerNotStarted
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if s.limiter != nil {
		_ = s.limiter.Close()
	}
	s.logger.Info("server exited")
	return nil
}
