package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/flashmarket/internal/checkout/domain"
	customerdomain "github.com/smallbiznis/flashmarket/internal/customer/domain"
	listingdomain "github.com/smallbiznis/flashmarket/internal/listing/domain"
	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
	purchasedomain "github.com/smallbiznis/flashmarket/internal/purchase/domain"
	sellerdomain "github.com/smallbiznis/flashmarket/internal/seller/domain"
	"github.com/smallbiznis/flashmarket/pkg/docstore"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// checkoutMessages are shown to buyers as-is.
var checkoutMessages = map[error]string{
	checkoutdomain.ErrValidation:         "Missing fields: need { listingId, buyerUid, buyerEmail }",
	checkoutdomain.ErrNotFound:           "Listing not found",
	checkoutdomain.ErrInvalidState:       "Listing is not active",
	checkoutdomain.ErrMalformedRecord:    "Listing missing fields",
	checkoutdomain.ErrConflict:           "Listing/deck mismatch",
	checkoutdomain.ErrSellerNotOnboarded: "Seller not connected to Stripe (no stripeAccountId)",
	checkoutdomain.ErrInvalidPrice:       "Invalid price on listing (set price or priceCents)",
}

var validationErrs = []error{
	ErrInvalidRequest,
	listingdomain.ErrInvalidSeller,
	listingdomain.ErrInvalidDeck,
	listingdomain.ErrInvalidID,
	listingdomain.ErrInvalidPrice,
	listingdomain.ErrMissingPrice,
	listingdomain.ErrPriceLocked,
	listingdomain.ErrSellerNotConnected,
	sellerdomain.ErrInvalidUID,
	sellerdomain.ErrMissingCode,
	purchasedomain.ErrInvalidBuyer,
	purchasedomain.ErrInvalidDeck,
	customerdomain.ErrInvalidUID,
	customerdomain.ErrInvalidEmail,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if status, payload, ok := mapCheckoutError(err); ok {
		return status, payload
	}

	if code, ok := validationErrorCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var gwErr *paymentdomain.GatewayError
	var persistErr *purchasedomain.PersistenceError
	switch {
	case errors.Is(err, paymentdomain.ErrSignatureInvalid):
		return http.StatusBadRequest, errorPayload{
			Type:    "signature_invalid",
			Message: "webhook signature verification failed",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.As(err, &gwErr):
		return http.StatusBadGateway, errorPayload{
			Type:    "gateway_error",
			Message: gwErr.Error(),
		}
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError, errorPayload{
			Type:    "persistence_error",
			Message: "failed to record purchase",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func mapCheckoutError(err error) (int, errorPayload, bool) {
	for target, message := range checkoutMessages {
		if !errors.Is(err, target) {
			continue
		}
		status := http.StatusBadRequest
		if target == checkoutdomain.ErrNotFound {
			status = http.StatusNotFound
		}
		return status, errorPayload{Type: target.Error(), Message: message}, true
	}
	return 0, errorPayload{}, false
}

// classifyErrorForLog feeds error_type and error_code on the request log.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationErrorCode(err error) (string, bool) {
	for _, target := range validationErrs {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, listingdomain.ErrNotFound),
		errors.Is(err, docstore.ErrNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if strings.HasPrefix(code, "missing_") {
		return strings.TrimPrefix(code, "missing_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "price_locked":
		return "unpublish the listing before changing its price"
	case "seller_not_connected":
		return "connect a Stripe account before publishing"
	default:
		return "invalid value"
	}
}
