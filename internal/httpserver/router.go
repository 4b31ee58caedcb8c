package httpserver

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"taskreminder/internal/handler"
	"taskreminder/pkg/metrics"
	"taskreminder/pkg/mq"
	"taskreminder/pkg/trace"
)

type Handlers struct {
	Tasks         *handler.TaskHandler
	Notifications *handler.NotificationHandler
	Auth          *handler.AuthHandler
}

func NewRouter(h Handlers, jwtSecret string, logger *zap.Logger, db *pgxpool.Pool, consumer *mq.Consumer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// request logging with trace propagation
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		traceID := c.GetHeader(trace.HeaderName())
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName(), traceID)

		c.Next()

		latency := time.Since(start)
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), latency)
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("trace_id", traceID),
		)
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if consumer != nil && !consumer.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/auth/register", h.Auth.Register)
	r.POST("/auth/login", h.Auth.Login)

	api := r.Group("/api", AuthMiddleware(jwtSecret))
	{
		api.GET("/tasks", h.Tasks.ListTasks)
		api.POST("/tasks", h.Tasks.CreateTask)
		api.PUT("/tasks/:id", h.Tasks.UpdateTask)
		api.POST("/tasks/:id/toggle", h.Tasks.ToggleTask)
		api.DELETE("/tasks/:id", h.Tasks.DeleteTask)
		api.DELETE("/tasks", h.Tasks.ClearTasks)
		api.POST("/tasks/import", h.Tasks.ImportTasks)
		api.GET("/tasks/day/:date", h.Tasks.TasksForDay)
		api.GET("/tasks/counts", h.Tasks.Counts)
		api.GET("/calendar/:year/:month", h.Tasks.Calendar)
		api.GET("/notifications/permission", h.Notifications.GetPermission)
		api.POST("/notifications/permission", h.Notifications.SetPermission)
	}

	return r
}
