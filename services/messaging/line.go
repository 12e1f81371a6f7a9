// Package messagingsvc pushes notifications to LINE and parses LINE webhook deliveries.
package messagingsvc

import (
	"context"
	"net/http"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/pkg/errors"

	"github.com/manabi/lms/core"
)

// ErrInvalidSignature is returned by ParseEvents when the X-Line-Signature header does not match.
var ErrInvalidSignature = linebot.ErrInvalidSignature

// Gateway is the LINE channel of the app.
type Gateway interface {
	core.Notifier
	// ParseEvents verifies the webhook signature of r and decodes its events.
	ParseEvents(r *http.Request) ([]*linebot.Event, error)
	Reply(ctx context.Context, replyToken, text string) error
}

type LineService struct {
	client *linebot.Client
}

var _ Gateway = (*LineService)(nil) // interface compliance check

func NewLineService(conf *core.Config) (*LineService, error) {
	client, err := linebot.New(conf.Line.ChannelSecret, conf.Line.ChannelToken)
	if err != nil {
		return nil, errors.Wrap(err, "creating LINE client")
	}
	return &LineService{client: client}, nil
}

func (svc *LineService) Notify(ctx context.Context, to string, text string) error {
	if to == "" {
		return nil
	}
	if _, err := svc.client.PushMessage(to, linebot.NewTextMessage(text)).WithContext(ctx).Do(); err != nil {
		return errors.Wrap(err, "pushing LINE message")
	}
	return nil
}

func (svc *LineService) ParseEvents(r *http.Request) ([]*linebot.Event, error) {
	return svc.client.ParseRequest(r)
}

func (svc *LineService) Reply(ctx context.Context, replyToken, text string) error {
	if _, err := svc.client.ReplyMessage(replyToken, linebot.NewTextMessage(text)).WithContext(ctx).Do(); err != nil {
		return errors.Wrap(err, "replying LINE message")
	}
	return nil
}
