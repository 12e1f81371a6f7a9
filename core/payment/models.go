package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/manabi/lms/core"
)

// Order statuses
const (
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusFailed   = "failed"
	StatusRefunded = "refunded"
)

// SignatureHeader carries the hex HMAC-SHA256 of a webhook body.
const SignatureHeader = "X-Payment-Signature"

// Webhook event types
const (
	EventSucceeded = "payment.succeeded"
	EventFailed    = "payment.failed"
)

type Order struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	CourseID    string     `json:"course_id"`
	Amount      int64      `json:"amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	ProviderRef string     `json:"provider_ref"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PaidAt      *time.Time `json:"paid_at"`
}

type Checkout struct {
	CourseID string `json:"course_id" validate:"required"`
}

func (co *Checkout) Validate() error {
	co.CourseID = core.CleanString(co.CourseID)
	return core.Validate.Struct(co)
}

// WebhookEvent is the payload posted by the payment provider.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type" validate:"required"`
	Data struct {
		OrderID     string `json:"order_id"`
		ProviderRef string `json:"provider_ref"`
	} `json:"data"`
}

type GetFilter struct {
	ID          string
	ProviderRef string
}

type QueryFilter struct {
	UserID        string
	Status        string
	CreatedBefore time.Time
}

func (qf QueryFilter) Match(o Order) bool {
	return (qf.UserID == "" || o.UserID == qf.UserID) &&
		(qf.Status == "" || o.Status == qf.Status) &&
		(qf.CreatedBefore.IsZero() || o.CreatedAt.Before(qf.CreatedBefore))
}

// Sign returns the hex encoded HMAC-SHA256 of payload.
func Sign(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks sig against payload in constant time.
func VerifySignature(secret string, payload []byte, sig string) bool {
	if secret == "" || sig == "" {
		return false
	}
	expected, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write(payload)
	return hmac.Equal(h.Sum(nil), expected)
}
