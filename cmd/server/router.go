package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dating-api/internal/auth"
	"github.com/dating-api/internal/cache"
	"github.com/dating-api/internal/config"
	"github.com/dating-api/internal/middleware"
	"github.com/dating-api/internal/models"
	"github.com/dating-api/internal/photo"
	"github.com/dating-api/internal/users"
)

// imageStore is the remote photo store plus its breaker state for /health.
type imageStore interface {
	photo.AssetStore
	State() string
}

type pinger interface {
	Ping(ctx context.Context) error
}

type app struct {
	cfg     *config.Config
	log     logrus.FieldLogger
	db      pinger
	images  imageStore
	cache   cache.Cache
	metrics *middleware.Metrics

	auth   *auth.Service
	users  *users.Service
	photos *photo.Service
}

type appStore interface {
	models.Store
	pinger
}

func newApp(cfg *config.Config, log logrus.FieldLogger, st appStore, images imageStore, c cache.Cache) *app {
	return &app{
		cfg:     cfg,
		log:     log,
		db:      st,
		images:  images,
		cache:   c,
		metrics: middleware.NewMetrics(),
		auth:    auth.NewService(st, cfg.Auth, log),
		users:   users.NewService(st, cfg.Paging.DefaultSize, cfg.Paging.MaxSize, log),
		photos:  photo.NewService(st, images, c, log),
	}
}

func newRouter(a *app) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = 8 << 20

	router.Use(middleware.RecoveryMiddleware(a.log))
	router.Use(middleware.LoggerMiddleware(a.log))
	router.Use(a.metrics.Middleware())

	if a.cfg.Server.EnableCORS {
		router.Use(middleware.CORSMiddleware())
	}

	router.GET("/health", handleHealth(a.db, a.images))
	router.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", handleRegister(a.auth))
		authGroup.POST("/login", handleLogin(a.auth))
	}

	usersGroup := api.Group("/users")
	usersGroup.Use(middleware.AuthMiddleware(a.auth))
	usersGroup.Use(middleware.ActivityMiddleware(a.users, a.cache, a.cfg.Activity.TouchInterval, a.log))
	{
		usersGroup.GET("", handleListUsers(a.users))
		usersGroup.GET("/:id", handleGetUser(a.users))
		usersGroup.PUT("/:id", handleUpdateUser(a.users))
		usersGroup.POST("/:id/like/:recipientId", handleLikeUser(a.users))

		usersGroup.GET("/:id/photos", handleListPhotos(a.photos))
		usersGroup.GET("/:id/photos/:photoId", handleGetPhoto(a.photos))
		usersGroup.POST("/:id/photos", handleAddPhoto(a.photos, a.cfg.Storage.MaxUploadSize))
		usersGroup.POST("/:id/photos/:photoId/setMain", handleSetMainPhoto(a.photos))
		usersGroup.DELETE("/:id/photos/:photoId", handleDeletePhoto(a.photos))
	}

	return router
}

func handleHealth(db pinger, images imageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		database := "ok"
		if err := db.Ping(ctx); err != nil {
			_ = c.Error(err)
			status = http.StatusServiceUnavailable
			database = "unavailable"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}

		c.JSON(status, gin.H{
			"status":      state,
			"time":        time.Now().Unix(),
			"database":    database,
			"image_store": images.State(),
		})
	}
}
