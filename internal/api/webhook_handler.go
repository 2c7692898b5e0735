package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"EventSync/internal/config"
	"EventSync/internal/interfaces"
	"EventSync/internal/model"
	"EventSync/internal/repository"
	"EventSync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SecretHeader carries the shared secret on webhook deliveries.
const SecretHeader = "X-Webhook-Secret"

// WebhookHandler receives deliveries from the upstream event platform.
type WebhookHandler struct {
	cfg        *config.Config
	logger     *logrus.Logger
	gate       *service.FreshnessGate
	dispatcher *service.BatchDispatcher
	deliveries interfaces.DeliveryLog
}

// NewWebhookHandler wires the repositories and synchronizers onto db.
func NewWebhookHandler(db *gorm.DB, logger *logrus.Logger, cfg *config.Config) *WebhookHandler {
	mappings := repository.NewMappingRepository(db, cfg.Webhook.CreateRetries)
	topics := repository.NewTopicRepository(db)
	identities := repository.NewUserRepository(db)
	invitees := repository.NewInviteeRepository(db)

	composer := service.NewContentComposer(logger)
	tagEngine := service.NewTagRuleEngine(logger)
	events := service.NewEventSynchronizer(mappings, topics, identities, composer, tagEngine, cfg, logger)
	attendees := service.NewAttendeeSynchronizer(mappings, topics, identities, invitees, logger)

	return &WebhookHandler{
		cfg:        cfg,
		logger:     logger,
		gate:       service.NewFreshnessGate(mappings, logger),
		dispatcher: service.NewBatchDispatcher(events, attendees, logger),
		deliveries: repository.NewDeliveryLogRepository(db),
	}
}

// Receive handles POST /webhooks/events.
//
// Response contract: 404 for deliveries with no handled batch type and for
// stale replays, 503 when no secret is configured, 401 on secret mismatch,
// 400 for empty deliveries, 200/207/500 depending on how many items
// succeeded.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.logger.WithError(err).Error("read webhook body failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty payload"})
		return
	}

	var delivery model.Envelope
	if len(body) > 0 {
		if err := json.Unmarshal(body, &delivery); err != nil {
			h.logger.WithError(err).Error("decode webhook payload failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
			return
		}
	}

	// A non-empty delivery with no recognized batch type is not ours.
	if len(delivery) > 0 && !hasHandledBatch(delivery) {
		c.Status(http.StatusNotFound)
		return
	}

	if !h.authenticate(c) {
		return
	}

	ctx := c.Request.Context()

	if err := h.gate.Check(ctx, delivery); err != nil {
		if errors.Is(err, service.ErrStaleDelivery) {
			h.recordDelivery(c, body, repository.DeliveryStale, 0, 0)
			c.Status(http.StatusNotFound)
			return
		}
		h.logger.WithError(err).Error("freshness gate failed")
	}

	if len(delivery) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty payload"})
		return
	}

	results, itemErrs := h.dispatcher.Process(ctx, delivery)
	if results == nil {
		results = []interface{}{}
	}

	switch {
	case len(itemErrs) > 0 && len(results) == 0:
		h.recordDelivery(c, body, repository.DeliveryFailed, 0, len(itemErrs))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"errors":  itemErrs,
		})
	case len(itemErrs) > 0:
		h.recordDelivery(c, body, repository.DeliveryPartial, len(results), len(itemErrs))
		c.JSON(http.StatusMultiStatus, gin.H{
			"success":   true,
			"processed": len(results),
			"topics":    results,
			"errors":    itemErrs,
		})
	default:
		h.recordDelivery(c, body, repository.DeliveryProcessed, len(results), 0)
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"processed": len(results),
			"topics":    results,
		})
	}
}

// authenticate verifies the shared secret with a constant-time compare.
// Writes the error response itself and reports whether to continue.
func (h *WebhookHandler) authenticate(c *gin.Context) bool {
	secret := h.cfg.Webhook.Secret
	if secret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Webhook not configured"})
		return false
	}

	provided := c.GetHeader(SecretHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return false
	}
	return true
}

// recordDelivery writes the audit row; failures are logged, never fatal.
func (h *WebhookHandler) recordDelivery(c *gin.Context, body []byte, outcome string, processed, errored int) {
	if err := h.deliveries.Record(c.Request.Context(), body, outcome, processed, errored); err != nil {
		h.logger.WithError(err).Warn("record webhook delivery failed")
	}
}

func hasHandledBatch(delivery model.Envelope) bool {
	for _, batch := range delivery {
		if batch.Type.Handled() {
			return true
		}
	}
	return false
}

// RecoveryHandler converts an unhandled panic into the generic 500 shape.
// Last-resort safety net, not a designed error path.
func RecoveryHandler(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Errorf("webhook error: %v", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": recoveredMessage(recovered),
		})
	})
}

func recoveredMessage(recovered interface{}) string {
	switch v := recovered.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return "internal error"
	}
}
