package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stripe caps event payloads well below this.
const maxWebhookBodyBytes = 1 << 20

func (s *Server) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ack, err := s.purchaseSvc.HandleConfirmationEvent(
		c.Request.Context(),
		payload,
		c.GetHeader("Stripe-Signature"),
		s.webhookSecrets(),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("stripe_event_type", ack.EventType)

	c.String(http.StatusOK, "ok")
}

func (s *Server) StripeWebhookLiveness(c *gin.Context) {
	c.String(http.StatusOK, "Webhook endpoint is alive")
}

// webhookSecrets reads the hot-reloaded set so rotation needs no restart.
func (s *Server) webhookSecrets() []string {
	if s.market != nil {
		if secrets := s.market.Get().WebhookSecrets; len(secrets) > 0 {
			return secrets
		}
	}
	return s.cfg.Stripe.WebhookSecrets
}
