package identitysvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manabi/lms/core"
)

func TestLocalVerifier(t *testing.T) {
	conf := core.NewTestConfig()
	v := NewLocalVerifier(conf)
	ident := core.Identity{UID: "uid-1", Email: "amy@test.jp", EmailVerified: true, Name: "Amy"}

	token, err := v.Issue(ident)
	require.NoError(t, err)

	got, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, ident, got)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "tampered", token: token + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			assert.Equal(t, core.ErrInvalidToken, err)
		})
	}

	t.Run("other secret", func(t *testing.T) {
		other := core.NewTestConfig()
		other.SecretKey = "other"
		_, err := NewLocalVerifier(other).Verify(context.Background(), token)
		assert.Equal(t, core.ErrInvalidToken, err)
	})

	t.Run("expired", func(t *testing.T) {
		core.NowFunc = func() time.Time { return time.Now().UTC().Add(-2 * conf.LocalTokenTTL) }
		defer func() { core.NowFunc = func() time.Time { return time.Now().UTC() } }()

		old, err := v.Issue(ident)
		require.NoError(t, err)
		_, err = v.Verify(context.Background(), old)
		assert.Equal(t, core.ErrInvalidToken, err)
	})
}
