package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"portfolio/api/metrics"
	"portfolio/api/middleware"
	"portfolio/api/utils"
)

type RouterConfig struct {
	Analytics  *AnalyticsHandlers
	Auth       *AuthHandlers
	JWTManager *utils.JWTManager
	ServiceKey string
	FEOrigin   string
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry
}

// NewRouter wires middleware and routes. Auth may be nil, in which case the
// signup/login/profile routes are not registered.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(cfg.Metrics.Middleware())
	r.Use(middleware.CORSMiddleware(cfg.FEOrigin))

	if cfg.Registry != nil {
		r.GET("/metrics", metrics.Handler(cfg.Registry))
	}

	api := r.Group("/api")
	{
		api.GET("/health", HealthCheck)
		api.POST("/analytics/track", cfg.Analytics.TrackPageView)

		if cfg.Auth != nil {
			api.POST("/signup", cfg.Auth.Signup)
			api.POST("/login", cfg.Auth.Login)
			api.POST("/logout", cfg.Auth.Logout)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthRequired(cfg.JWTManager, cfg.ServiceKey))
		{
			if cfg.Auth != nil {
				protected.GET("/profile", cfg.Auth.Profile)
			}

			analyticsGroup := protected.Group("/analytics")
			analyticsGroup.Use(middleware.AdminRequired())
			{
				analyticsGroup.GET("/overview", cfg.Analytics.GetOverview)
				analyticsGroup.GET("/pages", cfg.Analytics.GetPageStats)
				analyticsGroup.GET("/referrers", cfg.Analytics.GetReferrerStats)
				analyticsGroup.GET("/traffic", cfg.Analytics.GetTrafficPatterns)
				analyticsGroup.GET("/devices", cfg.Analytics.GetDeviceStats)
				analyticsGroup.DELETE("/reset", cfg.Analytics.ResetAnalytics)
			}
		}
	}

	return r
}
