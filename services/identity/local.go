package identitysvc

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/manabi/lms/core"
)

// Claims represents the identity claims transmitted via a locally signed JWT.
type Claims struct {
	jwt.StandardClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
}

// LocalVerifier issues and verifies HS256 tokens signed with the app secret key.
type LocalVerifier struct {
	issuer    string
	secretKey []byte
	ttl       time.Duration
}

var _ core.IdentityVerifier = (*LocalVerifier)(nil) // interface compliance check

func NewLocalVerifier(conf *core.Config) *LocalVerifier {
	return &LocalVerifier{
		issuer:    conf.AppName,
		secretKey: []byte(conf.SecretKey),
		ttl:       conf.LocalTokenTTL,
	}
}

// Issue generates a signed token asserting ident.
func (v *LocalVerifier) Issue(ident core.Identity) (string, error) {
	now := core.NowFunc()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    v.issuer,
			Subject:   ident.UID,
			ExpiresAt: now.Add(v.ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email:         ident.Email,
		EmailVerified: ident.EmailVerified,
		Name:          ident.Name,
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (v *LocalVerifier) Verify(_ context.Context, token string) (core.Identity, error) {
	claims := new(Claims)
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secretKey, nil
	})
	if err != nil || !tok.Valid || claims.Subject == "" || !claims.VerifyIssuer(v.issuer, true) {
		return core.Identity{}, core.ErrInvalidToken
	}
	return core.Identity{
		UID:           claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}
