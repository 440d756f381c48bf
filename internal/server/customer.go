package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/flashmarket/internal/customer/domain"
)

type ensureCustomerRequest struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

func (s *Server) EnsureCustomer(c *gin.Context) {
	var req ensureCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	customer, err := s.customerSvc.EnsureCustomer(c.Request.Context(), customerdomain.EnsureCustomerRequest{
		UID:   req.UID,
		Email: req.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"customerId": customer.CustomerID})
}
