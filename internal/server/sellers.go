package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/flashmarket/internal/observability/logger"
	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
	sellerdomain "github.com/smallbiznis/flashmarket/internal/seller/domain"
	"go.uber.org/zap"
)

const (
	sellerCallbackPath = "/api/sellers/oauth/callback"
	sellerDecksPath    = "/seller/decks"
)

func (s *Server) AuthorizeSeller(c *gin.Context) {
	target, err := s.sellerSvc.AuthorizeURL(c.Request.Context(), sellerdomain.AuthorizeRequest{
		UID:         c.Query("uid"),
		Email:       c.Query("email"),
		RedirectURI: s.requestOrigin(c) + sellerCallbackPath,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

// SellerOAuthCallback always lands the seller back on their decks page;
// failures travel in the stripe_error query parameter.
func (s *Server) SellerOAuthCallback(c *gin.Context) {
	if oauthErr := strings.TrimSpace(c.Query("error")); oauthErr != "" {
		logger.FromContext(c.Request.Context()).Warn("stripe connect oauth denied",
			zap.String("error", oauthErr),
			zap.String("error_description", c.Query("error_description")),
		)
		s.redirectToDecks(c, "stripe_error", oauthErr)
		return
	}

	code := strings.TrimSpace(c.Query("code"))
	state := strings.TrimSpace(c.Query("state"))
	if code == "" || state == "" {
		s.redirectToDecks(c, "stripe_error", "missing_code_or_state")
		return
	}

	if _, err := s.sellerSvc.CompleteOAuth(c.Request.Context(), code, state); err != nil {
		s.redirectToDecks(c, "stripe_error", callbackErrorMessage(err))
		return
	}
	s.redirectToDecks(c, "connected", "1")
}

func (s *Server) GetPayoutAccount(c *gin.Context) {
	uid := strings.TrimSpace(c.Param("uid"))
	account, err := s.sellerSvc.GetPayoutAccount(c.Request.Context(), uid)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if account == nil {
		account = &sellerdomain.PayoutAccount{UID: uid}
	}

	c.JSON(http.StatusOK, gin.H{
		"uid":               account.UID,
		"onboarded":         account.Onboarded(),
		"stripe_account_id": account.StripeAccountID,
		"connected_at":      account.ConnectedAt,
	})
}

func (s *Server) ListSellerListings(c *gin.Context) {
	items, err := s.listingSvc.ListBySeller(c.Request.Context(), c.Param("uid"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": items})
}

func (s *Server) redirectToDecks(c *gin.Context, key, value string) {
	c.Redirect(http.StatusFound, s.siteURL()+sellerDecksPath+"?"+key+"="+url.QueryEscape(value))
}

func callbackErrorMessage(err error) string {
	var gwErr *paymentdomain.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Error()
	}
	switch {
	case errors.Is(err, sellerdomain.ErrMissingCode), errors.Is(err, sellerdomain.ErrInvalidUID):
		return "missing_code_or_state"
	default:
		return "callback_failed"
	}
}

// requestOrigin prefers the configured site URL over the inbound host.
func (s *Server) requestOrigin(c *gin.Context) string {
	if site := s.siteURL(); site != "" {
		return site
	}
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
