package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine with every route registered
func NewRouter(h *Handler, adminPassword string, corsOrigins []string, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.Use(cors.New(corsConfig(corsOrigins)))

	router.GET("/", h.Info)
	router.GET("/health", h.Health)
	router.GET("/constitution", h.Constitution)
	router.GET("/system-prompt", h.SystemPrompt)
	router.GET("/weather", h.Weather)
	router.GET("/status", h.Status)
	router.POST("/check", h.DailyCheck)
	router.POST("/decide", h.Decide)
	router.POST("/act", h.Act)
	router.GET("/log", h.Log)
	router.GET("/tasks", h.ListTasks)
	router.POST("/tasks", h.AddTask)
	router.GET("/learnings", h.Learnings)
	router.GET("/feedback", h.Feedback)
	router.POST("/feedback", h.AddFeedback)

	admin := router.Group("/admin")
	admin.Use(AdminAuth(adminPassword, logger))
	{
		admin.GET("/inbox", h.Inbox)
		admin.POST("/inbox/:id/read", h.MarkRead)
		admin.POST("/send", h.SendEmail)
		admin.POST("/learnings", h.AddLearning)
		admin.POST("/process-task", h.ProcessTask)
		admin.POST("/tasks/:id/status", h.UpdateTaskStatus)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// requestLogger logs each request through zap
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
