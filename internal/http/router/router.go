package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nickhealDD/ghas-jira-sync/internal/http/handler/webhook"
)

type RouterConfig struct {
	Repository    string
	WebhookSecret string
}

func SetupRoutes(router *gin.Engine, trigger webhook.Trigger, deliveries webhook.DeliveryTracker, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	webhookHandler := webhook.NewGitHubWebhookHandler(cfg.WebhookSecret, cfg.Repository, trigger, deliveries)
	router.Group("/webhooks").POST("/github", webhookHandler.HandleEvent)
}
