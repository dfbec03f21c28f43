package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/clubdeck/clubdeck/internal/handlers"
	"github.com/clubdeck/clubdeck/internal/middleware"
	"github.com/clubdeck/clubdeck/internal/types"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws", middleware.AuthMiddleware(), handlers.FeedSocket)

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.CreateUser)
			auth.POST("/login", handlers.LoginUser)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
		}

		notifications := api.Group("/notifications", middleware.AuthMiddleware())
		{
			notifications.GET("", handlers.GetFeed)
			notifications.POST("", handlers.SendNotification)
			notifications.POST("/read-all", handlers.MarkAllRead)
			notifications.POST("/:id/read", handlers.MarkRead)
		}

		push := api.Group("/push", middleware.AuthMiddleware())
		{
			push.GET("/vapid-key", handlers.GetVAPIDKey)
			push.POST("/subscription", handlers.SaveSubscription)
			push.DELETE("/subscription", handlers.DeleteSubscription)
			push.POST("/test", handlers.TestPush)
		}

		announcements := api.Group("/announcements", middleware.AuthMiddleware(), middleware.AdminOnly())
		{
			announcements.POST("", handlers.CreateAnnouncement)
		}
	}

	return r
}
