package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestWithLogger_LogsAndPropagatesRequestID(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	var seen string
	h := WithLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/hierarchy/api/nodes", nil))

	require.Equal(t, http.StatusCreated, rr.Code)
	require.NotEmpty(t, seen)
	require.Equal(t, seen, rr.Header().Get(RequestIDHeader))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, "request completed", entry.Message)
	require.Equal(t, http.StatusCreated, entry.Data["status-code"])
	require.Equal(t, seen, entry.Data["request-id"])
}

func TestWithLogger_RecoversPanics(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	h := WithLogger(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req-9")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, rr.Body.String(), "req-9")
	require.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestCors(t *testing.T) {
	h := Cors("https://app.example")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/hierarchy/api/stats", nil)
	req.Header.Set("Origin", "https://app.example")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, "https://app.example", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/hierarchy/api/stats", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
