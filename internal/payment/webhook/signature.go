package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	paymentdomain "github.com/smallbiznis/flashmarket/internal/payment/domain"
)

// DefaultTolerance bounds replay of a captured delivery.
const DefaultTolerance = 5 * time.Minute

// ConstructEvent verifies a Stripe-Signature header against each secret in
// turn and decodes the event. Any mismatch, stale timestamp or missing
// input is ErrSignatureInvalid.
func ConstructEvent(payload []byte, header string, secrets []string, now time.Time, tolerance time.Duration) (paymentdomain.Event, error) {
	if err := VerifySignature(payload, header, secrets, now, tolerance); err != nil {
		return paymentdomain.Event{}, err
	}

	var event paymentdomain.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return paymentdomain.Event{}, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" || strings.TrimSpace(event.Type) == "" {
		return paymentdomain.Event{}, paymentdomain.ErrInvalidEvent
	}
	return event, nil
}

func VerifySignature(payload []byte, header string, secrets []string, now time.Time, tolerance time.Duration) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return paymentdomain.ErrSignatureInvalid
	}
	timestamp, signatures, err := parseStripeSignature(header)
	if err != nil {
		return paymentdomain.ErrSignatureInvalid
	}

	if tolerance > 0 {
		unix, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return paymentdomain.ErrSignatureInvalid
		}
		if now.Sub(time.Unix(unix, 0)).Abs() > tolerance {
			return paymentdomain.ErrSignatureInvalid
		}
	}

	for _, secret := range secrets {
		secret = strings.TrimSpace(secret)
		if secret == "" {
			continue
		}
		expected := sign(secret, timestamp, payload)
		for _, signature := range signatures {
			if hmac.Equal([]byte(signature), []byte(expected)) {
				return nil
			}
		}
	}
	return paymentdomain.ErrSignatureInvalid
}

// SignatureHeader produces a header Stripe would send for payload.
func SignatureHeader(secret string, payload []byte, ts time.Time) string {
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, sign(secret, timestamp, payload))
}

func sign(secret, timestamp string, payload []byte) string {
	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	return hex.EncodeToString(mac.Sum(nil))
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}
