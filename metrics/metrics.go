// Package metrics exposes the Prometheus registry over HTTP.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// Server 指标 HTTP 服务
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// NewServer 在 /metrics 上挂载 handler，并提供 /healthz 存活探针。
func NewServer(addr string, handler http.Handler) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Start 监听端口并在后台提供服务；监听失败时立即返回错误。
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	go func() {
		_ = s.srv.Serve(ln)
	}()
	return nil
}

// Addr 实际监听地址（端口为 0 时由系统分配）。
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.srv.Addr
	}
	return s.ln.Addr().String()
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
