package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"social-feed-app/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *session.Store {
	t.Helper()
	sess, err := session.NewStore(t.TempDir())
	require.NoError(t, err)
	return sess
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":1,"username":"me"}`))
	}))
	defer srv.Close()

	sess := newTestSession(t)
	require.NoError(t, sess.Set("tok-123"))
	c := New(srv.URL, time.Second, sess, nil)

	_, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth.Load())
}

func TestClient_UnauthenticatedWithoutToken(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	var authLost atomic.Bool
	c := New(srv.URL, time.Second, newTestSession(t), func() { authLost.Store(true) })

	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindUnauthenticated, KindOf(err))
	assert.True(t, authLost.Load())
	assert.Zero(t, requests.Load(), "no request may be issued without a token")
}

func TestClient_UnauthorizedClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sess := newTestSession(t)
	require.NoError(t, sess.Set("stale"))
	var authLost atomic.Bool
	c := New(srv.URL, time.Second, sess, func() { authLost.Store(true) })

	_, err := c.Feed(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.True(t, IsAuthFailure(err))
	assert.True(t, authLost.Load())

	_, hasToken := sess.Token()
	assert.False(t, hasToken)
}

func TestClient_DomainErrorCarriesDetailVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Email or username already exists"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, newTestSession(t), nil)

	err := c.Register(context.Background(), "a@b.c", "ann", "pw", nil)
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindDomain, apiErr.Kind)
	assert.Equal(t, "Email or username already exists", apiErr.Message)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestClient_DomainErrorGenericWithoutDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`oops`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, newTestSession(t), nil)

	err := c.Register(context.Background(), "a@b.c", "ann", "pw", nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindDomain, apiErr.Kind)
	assert.Equal(t, "Request failed (409)", apiErr.Message)
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	sess := newTestSession(t)
	require.NoError(t, sess.Set("tok"))
	c := New(srv.URL, time.Second, sess, nil)

	_, err := c.Feed(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Could not connect to the server", apiErr.Message)
}

func TestClient_LoginRejectionIsDomainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Incorrect email or password"}`))
	}))
	defer srv.Close()

	sess := newTestSession(t)
	var authLost atomic.Bool
	c := New(srv.URL, time.Second, sess, func() { authLost.Store(true) })

	err := c.Login(context.Background(), "a@b.c", "wrong-pw")
	require.Error(t, err)

	// A rejected credential carried no token, so it is a plain domain
	// rejection with the server's message, not session expiry.
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindDomain, apiErr.Kind)
	assert.Equal(t, "Incorrect email or password", apiErr.Message)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.False(t, authLost.Load(), "credential rejection must not trigger the re-login redirect")

	_, hasToken := sess.Token()
	assert.False(t, hasToken)
}

func TestClient_LoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/login", r.URL.Path)
		w.Write([]byte(`{"access_token":"fresh-token","token_type":"bearer"}`))
	}))
	defer srv.Close()

	sess := newTestSession(t)
	c := New(srv.URL, time.Second, sess, nil)

	require.NoError(t, c.Login(context.Background(), "a@b.c", "pw"))

	token, ok := sess.Token()
	require.True(t, ok)
	assert.Equal(t, "fresh-token", token)
}

func TestClient_Unfollow404Tolerated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not following"}`))
	}))
	defer srv.Close()

	sess := newTestSession(t)
	require.NoError(t, sess.Set("tok"))
	c := New(srv.URL, time.Second, sess, nil)

	assert.NoError(t, c.Unfollow(context.Background(), 42))
}

func TestClient_SearchEscapesQuery(t *testing.T) {
	var gotQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query().Get("query"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	sess := newTestSession(t)
	require.NoError(t, sess.Set("tok"))
	c := New(srv.URL, time.Second, sess, nil)

	users, err := c.SearchUsers(context.Background(), "ann smith&co")
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.Equal(t, "ann smith&co", gotQuery.Load())
}

func TestKindOf_NonAPIError(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(context.Canceled))
	assert.False(t, IsAuthFailure(context.Canceled))
}
