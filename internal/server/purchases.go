package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListPurchases(c *gin.Context) {
	items, err := s.purchaseSvc.ListByBuyer(c.Request.Context(), c.Query("buyerUid"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": items})
}

func (s *Server) GetOwnership(c *gin.Context) {
	owned, err := s.purchaseSvc.HasPurchase(c.Request.Context(), c.Query("buyerUid"), c.Query("deckId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owned": owned})
}
