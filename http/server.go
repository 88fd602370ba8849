// Package http 提供预测服务的HTTP服务器
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server HTTP服务器
type Server struct {
	server *http.Server
	config ServerConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	MaxConnections int
	AllowedOrigins []string
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		MaxConnections: 100,
		AllowedOrigins: []string{"*"},
	}
}

// 请求体上限
const maxRequestBytes = 1 << 20

// NewServer 创建HTTP服务器
func NewServer(config ServerConfig) *Server {
	mux := http.NewServeMux()

	// 注册所有处理器
	RegisterHandlers(mux)
	RegisterTrainingHandlers(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/ws/training", handleTrainingWS)

	// 创建中间件链
	chain := Chain(
		RecoveryMiddleware,
		LoggerMiddleware,
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		TimeoutMiddleware(config.Timeout),
		ConcurrencyLimitMiddleware(config.MaxConnections),
		RequestSizeMiddleware(maxRequestBytes),
		GzipMiddleware,
	)

	// 包装处理器
	handler := chain(mux)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", config.Port),
			Handler:      handler,
			ReadTimeout:  config.Timeout,
			WriteTimeout: config.Timeout,
			IdleTimeout:  120 * time.Second,
		},
		config: config,
	}
}

// handleTrainingWS 训练进度WebSocket入口
func handleTrainingWS(w http.ResponseWriter, r *http.Request) {
	if progressHub == nil {
		respondError(w, http.StatusServiceUnavailable, "progress hub not running")
		return
	}
	progressHub.HandleWebSocket(w, r)
}

// Start 启动服务器
func (s *Server) Start() error {
	logger.Infow("starting HTTP server", "addr", s.server.Addr)
	logger.Infow("training progress endpoint", "url", fmt.Sprintf("ws://localhost%s/api/ws/training", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Infow("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}
