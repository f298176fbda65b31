package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Server API服务器
type Server struct {
	router *gin.Engine
	srv    *http.Server
}

// NewServer 创建新的API服务器
func NewServer(port string, readTimeout, writeTimeout time.Duration) *Server {
	router := gin.New()

	// 设置中间件
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	return &Server{
		router: router,
		srv:    srv,
	}
}

// SetupRoutes 设置路由
func (s *Server) SetupRoutes(handlers *Handlers) {
	// 健康检查
	s.router.GET("/health", handlers.HealthCheck)
	s.router.GET("/ready", handlers.ReadinessCheck)

	// API v1 路由组
	v1 := s.router.Group("/api/v1")
	{
		// 藏品管理接口
		v1.GET("/collections", handlers.ListCollections)
		v1.POST("/collections", handlers.CreateCollection)
		v1.PUT("/collections/:id", handlers.UpdateCollection)
		v1.DELETE("/collections/:id", handlers.DeleteCollection)

		// 提醒历史接口
		v1.GET("/alerts/history", handlers.GetAlertHistory)

		// 即时查价接口
		v1.POST("/check", handlers.ManualCheck)
		v1.GET("/availability", handlers.CheckAvailability)
	}
}

// Router 底层gin路由
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start 在后台goroutine中启动服务器
func (s *Server) Start() {
	go func() {
		log.Printf("API服务器启动在 %s\n", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("启动服务器失败: %v\n", err)
		}
	}()
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		log.Printf("API服务器关闭失败: %v\n", err)
		return
	}
	log.Println("API服务器已关闭")
}
