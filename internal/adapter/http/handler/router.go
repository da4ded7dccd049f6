package handler

import (
	"picksearch-partner-api/internal/adapter/http/middleware"
	"picksearch-partner-api/internal/core/ports"
	"picksearch-partner-api/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PartnerSvc     ports.PartnerService
	SurveySvc      ports.SurveyService
	DeliverySvc    ports.DeliveryAdminService // nil = admin delivery endpoints disabled
	RateLimiter    ports.RateLimiter          // nil = rate limiting disabled
	AuditSvc       ports.AuditService         // nil = audit logging disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.MaxBodySize(1 << 20))

	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	partner := v1.Group("/partners/:partner_id", middleware.PartnerScope())

	webhookHandler := NewWebhookHandler(deps.PartnerSvc)
	webhook := partner.Group("/webhook")
	{
		webhook.GET("", rl("webhook_read"), webhookHandler.GetConfig)
		webhook.PUT("", rl("webhook_write"), webhookHandler.UpdateURL)
		webhook.POST("/rotate-secret", rl("webhook_write"), webhookHandler.RotateSecret)
		webhook.POST("/test", rl("webhook_test"), webhookHandler.SendTest)
	}

	surveyHandler := NewSurveyHandler(deps.SurveySvc)
	surveys := partner.Group("/surveys/:survey_id", rl("surveys"))
	{
		surveys.POST("/deploy", surveyHandler.Deploy)
		surveys.POST("/pause", surveyHandler.Pause)
		surveys.POST("/resume", surveyHandler.Resume)
		surveys.POST("/cancel", surveyHandler.Cancel)
		surveys.GET("/stats", surveyHandler.Stats)
	}

	if deps.DeliverySvc != nil {
		deliveryHandler := NewDeliveryHandler(deps.DeliverySvc)
		deliveries := v1.Group("/admin/webhook-deliveries", rl("admin"))
		{
			deliveries.GET("", deliveryHandler.List)
			deliveries.GET("/:id", deliveryHandler.Get)
			deliveries.POST("/:id/replay", deliveryHandler.Replay)
		}
	}

	return r
}
