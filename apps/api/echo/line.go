package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/pkg/errors"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/user"
	"github.com/manabi/lms/services/messaging"
)

const lineWelcomeText = "Welcome to %s! To receive study reminders here, open your profile " +
	"settings and link this LINE account with the code %s (valid for %d minutes)."

type lineApi struct {
	gateway messagingsvc.Gateway
	userSvc *user.Service
	logger  core.Logger
	appName string
}

func registerLineAPI(g *echo.Group, gateway messagingsvc.Gateway, userSvc *user.Service, logger core.Logger, appName string) {
	api := lineApi{gateway: gateway, userSvc: userSvc, logger: logger, appName: appName}
	g.POST("/line/webhook", api.webhook)
}

func (api *lineApi) webhook(ctx echo.Context) error {
	events, err := api.gateway.ParseEvents(ctx.Request())
	if err != nil {
		if errors.Cause(err) == messagingsvc.ErrInvalidSignature {
			return errBadSignature
		}
		return core.NewValidationError(errors.New("malformed webhook payload"))
	}

	reqCtx := ctx.Request().Context()
	for _, evt := range events {
		if evt.Source == nil || evt.Source.UserID == "" {
			continue
		}
		switch evt.Type {
		case linebot.EventTypeFollow:
			code, err := api.userSvc.IssueLineLinkCode(reqCtx, evt.Source.UserID)
			if err != nil {
				return errors.Wrap(err, "issuing LINE link code")
			}
			text := fmt.Sprintf(lineWelcomeText, api.appName, code, int(user.LineLinkCodeTTL.Minutes()))
			if err := api.gateway.Reply(reqCtx, evt.ReplyToken, text); err != nil {
				api.logger.Error("replying to LINE follow event", err)
			}
		case linebot.EventTypeUnfollow:
			if err := api.userSvc.UnlinkLine(reqCtx, evt.Source.UserID); err != nil {
				return errors.Wrap(err, "unlinking LINE account")
			}
		}
	}
	return respond(ctx, http.StatusOK, nil)
}
