package webhook

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v66/github"
)

// Trigger is the part of the sync worker the handler needs.
type Trigger interface {
	Trigger(reason string) bool
}

type GitHubWebhookHandler struct {
	secret     []byte
	repository string
	trigger    Trigger
	deliveries DeliveryTracker
}

// NewGitHubWebhookHandler accepts events for repository ("owner/name") only.
func NewGitHubWebhookHandler(secret, repository string, trigger Trigger, deliveries DeliveryTracker) *GitHubWebhookHandler {
	return &GitHubWebhookHandler{
		secret:     []byte(secret),
		repository: repository,
		trigger:    trigger,
		deliveries: deliveries,
	}
}

func (h *GitHubWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	payload, err := github.ValidatePayload(c.Request, h.secret)
	if err != nil {
		slog.WarnContext(ctx, "rejected github webhook", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	eventType := github.WebHookType(c.Request)
	deliveryID := github.DeliveryID(c.Request)

	if deliveryID != "" {
		seen, err := h.deliveries.MarkSeen(ctx, deliveryID)
		if err != nil {
			// Best effort; a repeated sync finds the tickets it already filed.
			slog.WarnContext(ctx, "delivery dedup unavailable", "error", err, "delivery_id", deliveryID)
		} else if seen {
			c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
			return
		}
	}

	if eventType == "ping" {
		c.JSON(http.StatusOK, gin.H{"status": "pong"})
		return
	}

	if !isAlertEvent(eventType) {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "message": "event type not supported"})
		return
	}

	event, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	repo, action := eventRepository(event)
	if !strings.EqualFold(repo, h.repository) {
		slog.InfoContext(ctx, "ignoring alert event for another repository",
			"event", eventType,
			"repository", repo)
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "message": "repository not configured"})
		return
	}

	queued := h.trigger.Trigger(fmt.Sprintf("%s.%s", eventType, action))
	slog.InfoContext(ctx, "github alert webhook accepted",
		"event", eventType,
		"action", action,
		"delivery_id", deliveryID,
		"queued", queued)

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "queued": queued})
}

func isAlertEvent(eventType string) bool {
	switch eventType {
	case "code_scanning_alert", "dependabot_alert", "secret_scanning_alert":
		return true
	}
	return false
}

func eventRepository(event any) (repo, action string) {
	switch e := event.(type) {
	case *github.CodeScanningAlertEvent:
		return e.GetRepo().GetFullName(), e.GetAction()
	case *github.DependabotAlertEvent:
		return e.GetRepo().GetFullName(), e.GetAction()
	case *github.SecretScanningAlertEvent:
		return e.GetRepo().GetFullName(), e.GetAction()
	}
	return "", ""
}
