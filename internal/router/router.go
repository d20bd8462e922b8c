package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/Sai-Yarlagadda/grading-14763/internal/handler"
	"github.com/Sai-Yarlagadda/grading-14763/internal/middleware"
	"github.com/Sai-Yarlagadda/grading-14763/internal/service"
	"github.com/Sai-Yarlagadda/grading-14763/pkg/config"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ReportHandler  *handler.ReportHandler
	GradingHandler *handler.GradingHandler
	MetricsHandler *handler.MetricsHandler
	AuthService    *service.AuthService
	Metrics        *service.MetricsService
}

// Register wires the HTTP routes into the gin engine.
func Register(r *gin.Engine, cfg *config.Config, deps Dependencies) {
	r.Use(middleware.Metrics(deps.Metrics))

	if deps.MetricsHandler != nil {
		r.GET("/health", deps.MetricsHandler.Health)
		r.GET("/ready", deps.MetricsHandler.Ready)
		r.GET("/metrics", deps.MetricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix, middleware.WithResponseMeta())

	// The signed token is the credential for downloads.
	if deps.ReportHandler != nil {
		api.GET("/export/:token", deps.ReportHandler.DownloadReport)
	}

	guarded := api.Group("", middleware.JWT(deps.AuthService))
	if deps.ReportHandler != nil {
		guarded.POST("/reports", deps.ReportHandler.GenerateReport)
		guarded.GET("/reports/:id", deps.ReportHandler.ReportStatus)
	}
	if deps.GradingHandler != nil {
		guarded.POST("/penalty/check", deps.GradingHandler.CheckPenalty)
		guarded.POST("/assignments", deps.GradingHandler.AssignGraders)
	}
	if deps.MetricsHandler != nil {
		guarded.GET("/metrics/summary", deps.MetricsHandler.Summary)
	}
}
