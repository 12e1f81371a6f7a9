package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignature(t *testing.T) {
	payload := []byte(`{"type":"payment.succeeded"}`)
	sig := Sign("whsec", payload)

	assert.Len(t, sig, 64)
	assert.True(t, VerifySignature("whsec", payload, sig))
	assert.False(t, VerifySignature("other", payload, sig))
	assert.False(t, VerifySignature("whsec", []byte(`{"type":"payment.failed"}`), sig))
	assert.False(t, VerifySignature("whsec", payload, "not-hex"))
	assert.False(t, VerifySignature("whsec", payload, ""))
	assert.False(t, VerifySignature("", payload, Sign("", payload)))
}

func TestQueryFilter_Match(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	o := Order{UserID: "u1", Status: StatusPending, CreatedAt: now}

	assert.True(t, QueryFilter{}.Match(o))
	assert.True(t, QueryFilter{UserID: "u1", Status: StatusPending}.Match(o))
	assert.False(t, QueryFilter{UserID: "u2"}.Match(o))
	assert.False(t, QueryFilter{Status: StatusPaid}.Match(o))
	assert.True(t, QueryFilter{CreatedBefore: now.Add(time.Second)}.Match(o))
	assert.False(t, QueryFilter{CreatedBefore: now}.Match(o))
}
