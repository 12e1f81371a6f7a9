package logsvc

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manabi/lms/core"
	"github.com/manabi/lms/core/user"
)

func TestRollbarLogger_fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(zerolog.New(&buf), core.NewTestConfig())

	usr := user.User{ID: "u1", Name: "Amy", Email: "amy@test.jp"}
	logger.Error("pushing LINE message", errors.New("boom"), map[string]interface{}{"course_id": "c1"}, usr)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "pushing LINE message", line["message"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "c1", line["course_id"])
	assert.Equal(t, "u1", line["user_id"])
}
