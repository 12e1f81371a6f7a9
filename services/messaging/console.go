package messagingsvc

import (
	"context"
	"net/http"
	"sync"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/pkg/errors"

	"github.com/manabi/lms/core"
)

const (
	devChannelSecret = "dev-channel-secret"
	devChannelToken  = "dev-channel-token"
)

// Message is a text the console gateway would have sent.
type Message struct {
	To   string // LINE user id, or the reply token of a reply
	Text string
}

// ConsoleService logs messages instead of sending them. Webhook signatures are still verified.
type ConsoleService struct {
	client *linebot.Client
	logger core.Logger

	mu   sync.Mutex
	sent []Message
}

var _ Gateway = (*ConsoleService)(nil) // interface compliance check

func NewConsoleService(conf *core.Config, logger core.Logger) (*ConsoleService, error) {
	secret, token := conf.Line.ChannelSecret, conf.Line.ChannelToken
	if secret == "" {
		secret = devChannelSecret
	}
	if token == "" {
		token = devChannelToken
	}
	client, err := linebot.New(secret, token)
	if err != nil {
		return nil, errors.Wrap(err, "creating LINE client")
	}
	return &ConsoleService{client: client, logger: logger}, nil
}

func (svc *ConsoleService) record(to, text string) {
	svc.mu.Lock()
	svc.sent = append(svc.sent, Message{To: to, Text: text})
	svc.mu.Unlock()
	svc.logger.Debug("LINE message", map[string]interface{}{"to": to, "text": text})
}

func (svc *ConsoleService) Notify(_ context.Context, to string, text string) error {
	if to == "" {
		return nil
	}
	svc.record(to, text)
	return nil
}

func (svc *ConsoleService) ParseEvents(r *http.Request) ([]*linebot.Event, error) {
	return svc.client.ParseRequest(r)
}

func (svc *ConsoleService) Reply(_ context.Context, replyToken, text string) error {
	svc.record(replyToken, text)
	return nil
}

// Sent returns a copy of the recorded messages.
func (svc *ConsoleService) Sent() []Message {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]Message(nil), svc.sent...)
}

func (svc *ConsoleService) Reset() {
	svc.mu.Lock()
	svc.sent = nil
	svc.mu.Unlock()
}
