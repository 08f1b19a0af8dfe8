package mw

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Tom8810/janso/internal/apperr"
	"github.com/Tom8810/janso/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestResponseCache(t *testing.T) {
	rc := NewResponseCache(time.Minute)
	calls := 0
	r := gin.New()
	r.GET("/api/parlors", rc.Middleware(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/api/parlors/:id", rc.Middleware(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusNotFound, gin.H{"error": "x"})
	})

	first := serve(r, httptest.NewRequest(http.MethodGet, "/api/parlors", nil))
	second := serve(r, httptest.NewRequest(http.MethodGet, "/api/parlors", nil))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, calls)

	rc.Flush()
	serve(r, httptest.NewRequest(http.MethodGet, "/api/parlors", nil))
	assert.Equal(t, 2, calls)

	// Errors are not cached.
	serve(r, httptest.NewRequest(http.MethodGet, "/api/parlors/p-404", nil))
	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/parlors/p-404", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 4, calls)
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 2, "X-Real-IP"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", ip)
		return serve(r, req)
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, request("10.0.0.1").Code)
	w := request("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, auth.CodeTooManyRequests, body.Code)
	assert.Equal(t, auth.MsgTooManyRequests, body.Error)

	assert.Equal(t, http.StatusOK, request("10.0.0.2").Code, "limits are per client")
}

type fakeAuthenticator map[string]string

func (f fakeAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return "", auth.ErrLoginRequired
}

func TestAuth(t *testing.T) {
	a := fakeAuthenticator{"good": "p-001"}
	handler := func(c *gin.Context) {
		id, ok := AccountID(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "ok": ok})
	}
	r := gin.New()
	r.GET("/required", Auth(a, true), handler)
	r.GET("/optional", Auth(a, false), handler)

	testCases := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"required without token", "/required", "", http.StatusUnauthorized, ""},
		{"required with bad token", "/required", "Bearer bad", http.StatusUnauthorized, ""},
		{"required with token", "/required", "Bearer good", http.StatusOK, `{"id":"p-001","ok":true}`},
		{"optional without token", "/optional", "", http.StatusOK, `{"id":"","ok":false}`},
		{"optional with bad token", "/optional", "Bearer bad", http.StatusUnauthorized, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := serve(r, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, w.Body.String())
			}
		})
	}
}

func TestAbortWithError_HidesCause(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		AbortWithError(c, apperr.Internal("雀荘データの取得に失敗しました", errors.New("pq: password authentication failed")))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"雀荘データの取得に失敗しました","code":"internal"}`, w.Body.String())
}

func TestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(Logger(logger))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "/ok", hook.LastEntry().Data["path"])
	assert.Equal(t, http.StatusOK, hook.LastEntry().Data["status"])

	serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
