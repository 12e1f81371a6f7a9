// Package identitysvc verifies bearer tokens: Firebase ID tokens in QA/PROD, locally signed JWTs in DEV/TEST.
package identitysvc

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/manabi/lms/core"
)

type FirebaseVerifier struct {
	client *auth.Client
}

var _ core.IdentityVerifier = (*FirebaseVerifier)(nil) // interface compliance check

func NewFirebaseVerifier(ctx context.Context, conf *core.Config) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if conf.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.Firebase.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: conf.Firebase.ProjectID}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase auth")
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (core.Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return core.Identity{}, core.ErrInvalidToken
	}
	ident := core.Identity{UID: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		ident.Email = email
	}
	if verified, ok := tok.Claims["email_verified"].(bool); ok {
		ident.EmailVerified = verified
	}
	if name, ok := tok.Claims["name"].(string); ok {
		ident.Name = name
	}
	return ident, nil
}
