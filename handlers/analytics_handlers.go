// handlers/analytics_handlers.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio/api/metrics"
	"portfolio/api/middleware"
	"portfolio/api/models"
	"portfolio/api/store"
	"portfolio/api/utils"
)

// PageViewArchiver receives every recorded page view. *store.Archiver
// implements it.
type PageViewArchiver interface {
	Enqueue(event models.PageViewEvent) bool
}

type AnalyticsHandlers struct {
	AnalyticsStore *store.AnalyticsStore
	Archiver       PageViewArchiver
	Metrics        *metrics.Metrics
}

// NewAnalyticsHandlers builds the handlers. archiver may be nil.
func NewAnalyticsHandlers(s *store.AnalyticsStore, archiver PageViewArchiver, m *metrics.Metrics) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		AnalyticsStore: s,
		Archiver:       archiver,
		Metrics:        m,
	}
}

// TrackPageView records a page view. The visitor key is the client IP; the
// user agent falls back to the request header.
func (h *AnalyticsHandlers) TrackPageView(c *gin.Context) {
	var req models.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Debug("error binding page view JSON", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: page is required"})
		return
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = c.Request.UserAgent()
	}

	event, err := h.AnalyticsStore.RecordPageView(models.PageViewInput{
		Page:             req.Page,
		Referrer:         req.Referrer,
		UserAgent:        userAgent,
		ScreenResolution: req.ScreenResolution,
		Timezone:         req.Timezone,
		VisitorKey:       c.ClientIP(),
	})
	if err != nil {
		if errors.Is(err, store.ErrEmptyPage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: page is required"})
			return
		}
		slog.Error("error recording page view", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record page view"})
		return
	}

	h.Metrics.PageViewRecorded()
	if h.Archiver != nil {
		h.Archiver.Enqueue(event)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AnalyticsHandlers) GetOverview(c *gin.Context) {
	c.JSON(http.StatusOK, h.AnalyticsStore.GetOverview())
}

func (h *AnalyticsHandlers) GetPageStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.AnalyticsStore.GetPageStats())
}

func (h *AnalyticsHandlers) GetReferrerStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.AnalyticsStore.GetReferrerStats())
}

// GetTrafficPatterns accepts period=daily|hourly; other values mean daily.
func (h *AnalyticsHandlers) GetTrafficPatterns(c *gin.Context) {
	period := c.DefaultQuery("period", utils.PeriodDaily)
	c.JSON(http.StatusOK, h.AnalyticsStore.GetTrafficPatterns(period))
}

func (h *AnalyticsHandlers) GetDeviceStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.AnalyticsStore.GetDeviceStats())
}

// ResetAnalytics wipes all analytics state. Routed behind AdminRequired.
func (h *AnalyticsHandlers) ResetAnalytics(c *gin.Context) {
	h.AnalyticsStore.Reset()
	slog.Warn("analytics reset by admin", "email", c.GetString(middleware.ContextUserEmail))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Analytics data reset"})
}
