package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

type ChargeMode string

const (
	// ChargeModeDestination creates the session on the platform account and
	// transfers the proceeds minus the application fee to the seller.
	ChargeModeDestination ChargeMode = "destination"
	// ChargeModeDirect creates the session on the seller's connected
	// account; the seller carries processor fees and disputes.
	ChargeModeDirect ChargeMode = "direct"
)

const (
	EventTypeCheckoutSessionCompleted = "checkout.session.completed"
)

type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// CheckoutSessionParams is everything the processor needs to host one
// payment. Metadata is the only record of intent until the confirmation
// event arrives.
type CheckoutSessionParams struct {
	Mode           string
	Currency       string
	LineItem       LineItem
	SuccessURL     string
	CancelURL      string
	CustomerEmail  string
	Metadata       map[string]string
	ApplicationFee int64
	Destination    string
	ChargeMode     ChargeMode
	IdempotencyKey string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type ConnectAuthorizeParams struct {
	State       string
	Email       string
	RedirectURI string
}

// Event is the envelope of a verified processor webhook.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Created int64     `json:"created"`
	Account string    `json:"account"`
	Data    EventData `json:"data"`
}

type EventData struct {
	Object json.RawMessage `json:"object"`
}

// GatewayError carries the processor's message back to the caller.
type GatewayError struct {
	Operation string
	Message   string
	Err       error
}

func (e *GatewayError) Error() string {
	message := strings.TrimSpace(e.Message)
	if message == "" {
		return "gateway_error"
	}
	return message
}

func (e *GatewayError) Unwrap() error { return e.Err }

var (
	ErrInvalidConfig    = errors.New("invalid_config")
	ErrSignatureInvalid = errors.New("signature_invalid")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
)
