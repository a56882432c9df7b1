package server

import (
	"errors"
	"io"
	"net/http"

	billingdomain "github.com/akadahq/akada/internal/billing/domain"
	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

// ReceiveGatewayWebhook answers with bare status codes and no body,
// which is what the gateway's delivery contract expects. The signature
// check runs over the raw bytes before any decoding.
func (s *Server) ReceiveGatewayWebhook(c *gin.Context) {
	rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	err = s.billingSvc.ReceiveWebhook(c.Request.Context(), rawBody, c.GetHeader("X-Gateway-Signature"))
	if errors.Is(err, billingdomain.ErrSignatureMismatch) {
		c.Status(http.StatusUnauthorized)
		return
	}
	if err != nil {
		// Transient storage failure; a non-2xx makes the gateway
		// redeliver, which the apply routine absorbs idempotently.
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusOK)
}
