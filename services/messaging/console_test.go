package messagingsvc

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http/httptest"
	"testing"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manabi/lms/core"
	logsvc "github.com/manabi/lms/services/logger"
)

func newConsole(t *testing.T) *ConsoleService {
	conf := core.NewTestConfig()
	svc, err := NewConsoleService(conf, logsvc.NewRollbarLogger(zerolog.Nop(), conf))
	require.NoError(t, err)
	return svc
}

func TestConsoleService_Notify(t *testing.T) {
	svc := newConsole(t)

	require.NoError(t, svc.Notify(context.Background(), "", "ignored"))
	require.NoError(t, svc.Notify(context.Background(), "U1", "hello"))

	assert.Equal(t, []Message{{To: "U1", Text: "hello"}}, svc.Sent())
}

func TestConsoleService_ParseEvents(t *testing.T) {
	svc := newConsole(t)
	body := []byte(`{"destination":"x","events":[{"type":"follow","replyToken":"rt","timestamp":1,"source":{"type":"user","userId":"U1"}}]}`)

	mac := hmac.New(sha256.New, []byte(devChannelSecret))
	_, _ = mac.Write(body)
	req := httptest.NewRequest("POST", "/api/line/webhook", bytes.NewReader(body))
	req.Header.Set("X-Line-Signature", base64.StdEncoding.EncodeToString(mac.Sum(nil)))

	events, err := svc.ParseEvents(req)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, linebot.EventTypeFollow, events[0].Type)
	assert.Equal(t, "U1", events[0].Source.UserID)

	bad := httptest.NewRequest("POST", "/api/line/webhook", bytes.NewReader(body))
	bad.Header.Set("X-Line-Signature", "nope")
	_, err = svc.ParseEvents(bad)
	assert.Equal(t, ErrInvalidSignature, err)
}
