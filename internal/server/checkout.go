package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/flashmarket/internal/checkout/domain"
)

type createCheckoutRequest struct {
	ListingID  string `json:"listingId"`
	DeckID     string `json:"deckId"`
	BuyerUID   string `json:"buyerUid"`
	BuyerEmail string `json:"buyerEmail"`
}

func (s *Server) CreateCheckoutSession(c *gin.Context) {
	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, checkoutdomain.ErrValidation)
		return
	}
	c.Set("listing_id", strings.TrimSpace(req.ListingID))

	resp, err := s.checkoutSvc.CreateSession(c.Request.Context(), checkoutdomain.CreateSessionRequest{
		ListingID:    req.ListingID,
		DeckID:       req.DeckID,
		BuyerUID:     req.BuyerUID,
		BuyerEmail:   req.BuyerEmail,
		OriginHeader: c.GetHeader("Origin"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": resp.URL, "session_id": resp.SessionID})
}

func (s *Server) CheckoutMethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Use POST"})
}
