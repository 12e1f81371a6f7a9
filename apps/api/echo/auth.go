package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/user"
)

const (
	bearerPrefix   = "Bearer "
	contextUserKey = "user"
)

// authMiddleware verifies the bearer token and stores the provisioned user in the context.
func authMiddleware(verifier core.IdentityVerifier, svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
				return errMissingToken
			}
			token := strings.TrimSpace(header[len(bearerPrefix):])
			if token == "" {
				return errMissingToken
			}

			reqCtx := ctx.Request().Context()
			ident, err := verifier.Verify(reqCtx, token)
			if err != nil {
				if errors.Cause(err) == core.ErrInvalidToken {
					return errInvalidToken
				}
				return errors.Wrap(err, "verifying token")
			}

			usr, err := svc.Provision(reqCtx, ident)
			if err != nil {
				return errors.Wrap(err, "provisioning user")
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}
