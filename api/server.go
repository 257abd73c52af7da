// Package api exposes render jobs over HTTP with gin.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ByLCY/versereel/jobs"
	"github.com/ByLCY/versereel/pipeline"
	"github.com/ByLCY/versereel/quran"
	"github.com/ByLCY/versereel/scene"
)

// Server 接收渲染请求并交给工作池异步执行。
type Server struct {
	svc  *pipeline.Service
	pool *scene.Pool
	log  *zap.Logger

	// 请求返回后任务仍在运行，使用独立于请求的根 context
	base context.Context
}

func NewServer(ctx context.Context, svc *pipeline.Service, pool *scene.Pool, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, pool: pool, log: log, base: ctx}
}

// Router constructs a gin engine with the registered routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", handleHealth)
	v1 := r.Group("/v1")
	v1.GET("/reciters", handleReciters)
	v1.POST("/renders", s.handleCreate)
	v1.GET("/renders/:id", s.handleGet)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func handleReciters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reciters": quran.Reciters, "default": quran.DefaultReciter})
}

func (s *Server) handleCreate(c *gin.Context) {
	var req pipeline.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// 远程请求只能引用配置目录中的文件
	req, job, err := s.svc.Admit(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	go s.execute(req)

	c.Header("Location", "/v1/renders/"+job.ID)
	c.JSON(http.StatusAccepted, gin.H{"id": job.ID, "state": job.State})
}

func (s *Server) execute(req pipeline.Request) {
	done, err := s.pool.Submit(s.base, func(ctx context.Context) error {
		_, err := s.svc.Run(ctx, req)
		return err
	})
	if err != nil {
		s.log.Error("render not scheduled", zap.String("job", req.ID), zap.Error(err))
		s.svc.Jobs().Update(context.WithoutCancel(s.base), req.ID, jobs.Fail("queue", err))
		return
	}
	<-done
}

func (s *Server) handleGet(c *gin.Context) {
	job, err := s.svc.Jobs().Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, jobs.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}
