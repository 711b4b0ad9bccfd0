package proxy_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/elearn-web/internal/errors"
	"github.com/jrsteele09/elearn-web/proxy"
	"github.com/stretchr/testify/require"
)

func TestProxy_ForwardsRequestVerbatim(t *testing.T) {
	var (
		gotPath  string
		gotQuery string
		gotAuth  string
		gotBody  string
		gotVerb  string
	)
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotVerb = r.Method
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"enr-1"}`))
	}))
	defer backend.Close()

	p, err := proxy.New(backend.URL)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/courses/go-101/enroll?coupon=SPRING", strings.NewReader(`{"plan":"monthly"}`))
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"id":"enr-1"}`, rec.Body.String())

	require.Equal(t, http.MethodPost, gotVerb)
	require.Equal(t, "/courses/go-101/enroll", gotPath)
	require.Equal(t, "coupon=SPRING", gotQuery)
	require.Equal(t, "Bearer abc.def.ghi", gotAuth)
	require.Equal(t, `{"plan":"monthly"}`, gotBody)
}

func TestProxy_RelaysErrorStatusUnchanged(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid or expired token","code":"INVALID_TOKEN"}`))
	}))
	defer backend.Close()

	p, err := proxy.New(backend.URL)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"message":"Invalid or expired token","code":"INVALID_TOKEN"}`, rec.Body.String())
}

func TestProxy_PrefixHandling(t *testing.T) {
	var gotPath string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer backend.Close()

	tests := []struct {
		prefix string
		in     string
		want   string
	}{
		{prefix: "/api", in: "/api", want: "/"},
		{prefix: "/api", in: "/api/blog/posts", want: "/blog/posts"},
		{prefix: "/api", in: "/apiary", want: "/apiary"},
		{prefix: "/bff/", in: "/bff/courses", want: "/courses"},
	}
	for _, tc := range tests {
		p, err := proxy.New(backend.URL, proxy.WithPrefix(tc.prefix))
		require.NoError(t, err)
		p.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.in, nil))
		require.Equal(t, tc.want, gotPath, tc.in)
	}
}

func TestProxy_BackendUnavailable(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	origin := backend.URL
	backend.Close()

	p, err := proxy.New(origin)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/courses", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body errors.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, errors.CodeBadGateway, body.Code)
	require.NotEmpty(t, body.Message)
}

func TestProxy_BackendTimeout(t *testing.T) {
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer backend.Close()
	defer close(release)

	p, err := proxy.New(backend.URL, proxy.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/slow", nil))
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)

	var body errors.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, errors.CodeGatewayTimeout, body.Code)
}

func TestNew_InvalidOrigin(t *testing.T) {
	_, err := proxy.New("localhost")
	require.Error(t, err)
	_, err = proxy.New("://bad")
	require.Error(t, err)
}
