package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/formation-admin-api/api/swagger"
	"github.com/noah-isme/formation-admin-api/internal/middleware"
	"github.com/noah-isme/formation-admin-api/internal/models"
	"github.com/noah-isme/formation-admin-api/pkg/config"
	"github.com/noah-isme/formation-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/formation-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/formation-admin-api/pkg/middleware/requestid"
)

func (a *app) router(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/health", a.probes.Health)
	r.GET("/ready", a.probes.Ready)
	r.GET("/metrics", a.probes.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	staff := []models.Role{models.RoleCoordinator, models.RoleAdmin}
	everyone := append([]models.Role{models.RoleTrainer}, staff...)
	manage := middleware.RequireRoles(staff...)
	read := middleware.RequireRoles(everyone...)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", a.authHandler.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(a.auth))
	secured.GET("/auth/me", a.authHandler.Me)

	sessions := secured.Group("/sessions")
	sessions.GET("", read, a.sessions.List)
	sessions.GET("/export", manage, a.sessions.Export)
	sessions.GET("/trainer/:trainerId", middleware.RequireSelfOrRoles("trainerId", staff...), a.sessions.ForTrainer)
	sessions.GET("/:id", read, a.sessions.Get)
	sessions.POST("", manage, a.sessions.Create)
	sessions.PUT("/:id", manage, a.sessions.Update)
	sessions.DELETE("/:id", manage, a.sessions.Delete)
	sessions.POST("/:id/trainers", manage, a.sessions.Assign)
	sessions.DELETE("/:id/trainers", manage, a.sessions.Clear)
	sessions.GET("/:id/trainers/:trainerId", read, a.sessions.IsAssigned)
	sessions.POST("/:id/trainers/:trainerId", manage, a.sessions.AssignByPath)
	sessions.DELETE("/:id/trainers/:trainerId", manage, a.sessions.Remove)

	admin := secured.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/users", a.admin.Users)
	admin.POST("/users", a.admin.CreateUser)
	admin.DELETE("/users/:id", a.admin.DeleteUser)
	admin.GET("/trainers", a.admin.Trainers)
	admin.GET("/coordinators", a.admin.Coordinators)

	secured.GET("/metrics/snapshot", middleware.RequireRoles(models.RoleAdmin), a.probes.Snapshot)

	return r
}
