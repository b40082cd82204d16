package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"givepool/internal/domain"
)

// WebhookEvent is the provider's settlement callback payload.
type WebhookEvent struct {
	Type        string `json:"type"`
	ProviderRef string `json:"reference"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

// VerifySignature checks the webhook body against the shared-secret HMAC in
// the X-Signature header. An unset secret fails closed.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	provided := strings.TrimPrefix(signature, "sha256=")
	return hmac.Equal([]byte(expected), []byte(provided))
}

// SignBody computes the signature header value for a payload. Tests and the
// provider simulator use it; verification uses VerifySignature.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// ParseWebhook decodes a verified webhook body.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("payments: decode webhook: %w", err)
	}
	if ev.Type == "" || ev.ProviderRef == "" {
		return nil, fmt.Errorf("payments: webhook missing type or reference")
	}
	return &ev, nil
}

// StatusFor maps a webhook event type onto the donation lifecycle. The
// second return is false for event types this service does not handle.
func StatusFor(eventType string) (domain.DonationStatus, bool) {
	switch eventType {
	case "payment.completed":
		return domain.DonationStatusCompleted, true
	case "payment.failed":
		return domain.DonationStatusFailed, true
	case "payment.refunded":
		return domain.DonationStatusRefunded, true
	}
	return "", false
}
