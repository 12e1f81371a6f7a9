package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/manabi/lms/apps/api/echo"
	"github.com/manabi/lms/tests"
)

func setup(t *testing.T) (*testutil.App, Server) {
	app := testutil.NewApp(t)
	deps := &Deps{
		Conf:          app.Conf,
		Logger:        app.Logger,
		Identity:      app.Identity,
		Line:          app.Line,
		UserSvc:       app.UserSvc,
		CourseSvc:     app.CourseSvc,
		EnrollmentSvc: app.EnrollmentSvc,
		ProgressSvc:   app.ProgressSvc,
		AssignmentSvc: app.AssignmentSvc,
		QuizSvc:       app.QuizSvc,
		PaymentSvc:    app.PaymentSvc,
	}
	return app, NewServer("" /* addr */, nil /* shutdown */, deps)
}

// envelope is the shape of every API answer.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

type page struct {
	Items      json.RawMessage `json:"items"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte // compared as JSON when set
	wantErr  string // compared to the error message when set
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do serves one request and decodes the envelope.
func do(t *testing.T, srv Server, method, path, token string, data ...[]byte) (*httptest.ResponseRecorder, envelope) {
	req, rec := newAuthRequest(method, path, token, data...)
	srv.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec, env
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, data json.RawMessage, v interface{}) {
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode(%s) failed: %v", data, err)
	}
}

func decodePage(t *testing.T, data json.RawMessage, items interface{}) page {
	var p page
	decode(t, data, &p)
	if items != nil {
		decode(t, p.Items, items)
	}
	return p
}

func errMessage(t *testing.T, env envelope) string {
	var msg string
	if err := json.Unmarshal(env.Error, &msg); err != nil {
		return string(env.Error) // field errors
	}
	return msg
}

func runHTTPTests(t *testing.T, srv Server, tests []httpTest) {
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, srv, tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec, env)
		})
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder, env envelope) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	assert.Equal(t, rec.Code < http.StatusBadRequest, env.Success)
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), string(env.Data))
	}
	if tt.wantErr != "" {
		assert.Contains(t, errMessage(t, env), tt.wantErr)
	}
}

func TestServer_basics(t *testing.T) {
	_, srv := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Manabi API!", rec.Body.String())

	runHTTPTests(t, srv, []httpTest{
		{
			name: "health", method: http.MethodGet, path: "/api/health",
			wantCode: http.StatusOK, wantData: []byte(`{"status":"ok","build":"test"}`),
		},
		{
			name: "unknown route", method: http.MethodGet, path: "/api/nope",
			wantCode: http.StatusNotFound, wantErr: "Not Found",
		},
		{
			name: "missing token", method: http.MethodGet, path: "/api/users/me",
			wantCode: http.StatusUnauthorized, wantErr: "missing or malformed token",
		},
		{
			name: "bad token", method: http.MethodGet, path: "/api/users/me", token: "not-a-jwt",
			wantCode: http.StatusUnauthorized, wantErr: "invalid or expired token",
		},
	})

	req, rec = newRequest(http.MethodGet, "/metrics")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `manabi_http_requests_total{code="200",method="GET",route="/api/health"} 1`)
}

func TestServer_healthFailure(t *testing.T) {
	app := testutil.NewApp(t)
	srv := NewServer("", nil, &Deps{
		Conf:     app.Conf,
		Logger:   app.Logger,
		DBCheck:  func(_ context.Context) error { return errors.New("connection refused") },
		Identity: app.Identity,
		Line:     app.Line,
		UserSvc:  app.UserSvc,
	})

	rec, env := do(t, srv, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "db not ready", errMessage(t, env))
}

func ctx() context.Context {
	return context.Background()
}
