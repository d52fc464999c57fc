package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"social-feed-app/internal/api"
	"social-feed-app/internal/models"
	"social-feed-app/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEngine wires an engine against a fake server with a signed-in
// session.
func newTestEngine(t *testing.T, handler http.Handler) (*Engine, *session.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sess, err := session.NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, sess.Set("test-token"))

	client := api.New(srv.URL, 2*time.Second, sess, nil)
	return NewEngine(NewStore(), client), sess
}

func seedPost(e *Engine, p models.Post) {
	e.Store().LoadFeed([]models.Post{p})
}

func TestToggleLike_AppliedBeforeServerResponds(t *testing.T) {
	proceed := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-proceed
		w.WriteHeader(http.StatusOK)
	})

	e, _ := newTestEngine(t, handler)
	e.Store().SetCurrentUser(user(1, "me"))
	seedPost(e, post(7, user(10, "ann")))

	done := make(chan error, 1)
	go func() { done <- e.ToggleLike(context.Background(), 7) }()

	// The like must be visible while the request is still in flight.
	require.Eventually(t, func() bool {
		return e.Store().IsLikedBy(7, 1)
	}, time.Second, 5*time.Millisecond)

	close(proceed)
	require.NoError(t, <-done)
	assert.True(t, e.Store().IsLikedBy(7, 1))
}

func TestToggleLike_IdempotentPair(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	e, _ := newTestEngine(t, handler)
	e.Store().SetCurrentUser(user(1, "me"))
	seedPost(e, post(7, user(10, "ann")))

	require.NoError(t, e.ToggleLike(context.Background(), 7))
	assert.True(t, e.Store().IsLikedBy(7, 1))

	require.NoError(t, e.ToggleLike(context.Background(), 7))
	assert.False(t, e.Store().IsLikedBy(7, 1))
}

func TestToggleLike_RevertsOnDomainError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"post is locked"}`))
	})

	e, _ := newTestEngine(t, handler)
	e.Store().SetCurrentUser(user(1, "me"))
	seedPost(e, post(7, user(10, "ann")))

	err := e.ToggleLike(context.Background(), 7)
	require.Error(t, err)
	assert.Equal(t, api.KindDomain, api.KindOf(err))
	assert.False(t, e.Store().IsLikedBy(7, 1))

	got, _ := e.Store().Post(7)
	assert.Empty(t, got.Likes)
}

func TestToggleLike_UnauthorizedRevertsAndClearsSession(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	e, sess := newTestEngine(t, handler)
	e.Store().SetCurrentUser(user(1, "me"))
	p := post(7, user(10, "ann"))
	p.Likes = []models.Like{{User: user(2, "bob")}}
	seedPost(e, p)

	err := e.ToggleLike(context.Background(), 7)
	require.Error(t, err)
	assert.Equal(t, api.KindUnauthorized, api.KindOf(err))

	// Like set equals the pre-toggle snapshot.
	got, _ := e.Store().Post(7)
	require.Len(t, got.Likes, 1)
	assert.True(t, got.LikedBy(2))
	assert.False(t, got.LikedBy(1))

	_, hasToken := sess.Token()
	assert.False(t, hasToken)
}

func TestToggleLike_NetworkFailureReverts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	sess, err := session.NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, sess.Set("test-token"))
	e := NewEngine(NewStore(), api.New(srv.URL, time.Second, sess, nil))

	e.Store().SetCurrentUser(user(1, "me"))
	seedPost(e, post(7, user(10, "ann")))

	toggleErr := e.ToggleLike(context.Background(), 7)
	require.Error(t, toggleErr)
	assert.Equal(t, api.KindNetwork, api.KindOf(toggleErr))
	assert.False(t, e.Store().IsLikedBy(7, 1))
}

func TestToggleLike_RefusedWithoutIdentity(t *testing.T) {
	var requests atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	e, _ := newTestEngine(t, handler)
	seedPost(e, post(7, user(10, "ann")))

	err := e.ToggleLike(context.Background(), 7)
	require.Error(t, err)
	assert.Equal(t, api.KindPrecondition, api.KindOf(err))

	// No request issued, no local mutation.
	assert.Zero(t, requests.Load())
	got, _ := e.Store().Post(7)
	assert.Empty(t, got.Likes)
}

func TestSubmitComment_PrependsExactlyOneCommittedEntry(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":42,"text":"hi","author":{"id":1,"username":"me"}}`))
	})

	e, _ := newTestEngine(t, handler)
	e.Store().SetCurrentUser(user(1, "me"))
	p := post(7, user(10, "ann"))
	p.Comments = []models.Comment{{ID: 5, Text: "older", Author: user(10, "ann")}}
	seedPost(e, p)

	require.NoError(t, e.SubmitComment(context.Background(), 7, "hi"))

	got, _ := e.Store().Post(7)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, 42, got.Comments[0].ID)
	assert.Equal(t, "hi", got.Comments[0].Text)
	assert.Equal(t, "older", got.Comments[1].Text)
}

func TestSubmitComment_RevertsOnDomainError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"text is required"}`))
	})

	e, _ := newTestEngine(t, handler)
	e.Store().SetCurrentUser(user(1, "me"))
	p := post(7, user(10, "ann"))
	p.Comments = []models.Comment{{ID: 5, Text: "older", Author: user(10, "ann")}}
	seedPost(e, p)

	err := e.SubmitComment(context.Background(), 7, "")
	require.Error(t, err)

	got, _ := e.Store().Post(7)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, 5, got.Comments[0].ID)
}

func TestSubmitComment_OverlappingSubmissionsCommitSeparately(t *testing.T) {
	firstArrived := make(chan struct{})
	releaseFirst := make(chan struct{})
	var calls atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if calls.Add(1) == 1 {
			close(firstArrived)
			<-releaseFirst
		}
		id := 101
		if req.Text == "two" {
			id = 102
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":%d,"text":%q,"author":{"id":1,"username":"me"}}`, id, req.Text)
	})

	e, _ := newTestEngine(t, handler)
	e.Store().SetCurrentUser(user(1, "me"))
	seedPost(e, post(7, user(10, "ann")))

	done := make(chan error, 1)
	go func() { done <- e.SubmitComment(context.Background(), 7, "one") }()
	<-firstArrived

	// Second submission lands while the first is still in flight.
	require.NoError(t, e.SubmitComment(context.Background(), 7, "two"))

	close(releaseFirst)
	require.NoError(t, <-done)

	got, _ := e.Store().Post(7)
	require.Len(t, got.Comments, 2)
	assert.ElementsMatch(t, []int{101, 102},
		[]int{got.Comments[0].ID, got.Comments[1].ID})
	for _, c := range got.Comments {
		assert.Positive(t, c.ID, "no placeholder may survive reconciliation")
	}
}

func TestSubmitComment_RefusedWithoutIdentity(t *testing.T) {
	var requests atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	})

	e, _ := newTestEngine(t, handler)
	seedPost(e, post(7, user(10, "ann")))

	err := e.SubmitComment(context.Background(), 7, "hi")
	require.Error(t, err)
	assert.Equal(t, api.KindPrecondition, api.KindOf(err))
	assert.Zero(t, requests.Load())
}

func TestToggleFollow_RevertsOnDomainError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"cannot follow yourself"}`))
	})

	e, _ := newTestEngine(t, handler)
	assert.Empty(t, e.Store().FollowingIDs())

	err := e.ToggleFollow(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, api.KindDomain, api.KindOf(err))
	assert.Empty(t, e.Store().FollowingIDs())
}

func TestToggleFollow_FollowThenUnfollow(t *testing.T) {
	var method atomic.Value
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method.Store(r.Method)
		w.WriteHeader(http.StatusNoContent)
	})

	e, _ := newTestEngine(t, handler)

	require.NoError(t, e.ToggleFollow(context.Background(), 42))
	assert.True(t, e.Store().IsFollowing(42))
	assert.Equal(t, http.MethodPost, method.Load())

	require.NoError(t, e.ToggleFollow(context.Background(), 42))
	assert.False(t, e.Store().IsFollowing(42))
	assert.Equal(t, http.MethodDelete, method.Load())
}

func TestToggleFollow_Unfollow404IsSuccess(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not following"}`))
	})

	e, _ := newTestEngine(t, handler)
	e.Store().SetFollowing(42, true)

	require.NoError(t, e.ToggleFollow(context.Background(), 42))
	assert.False(t, e.Store().IsFollowing(42))
}

func TestRefresh_LastFullFetchWins(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":3,"description":"fresh","author":{"id":10,"username":"ann"},"likes":[],"comments":[]}]`))
	})

	e, _ := newTestEngine(t, handler)
	seedPost(e, post(1, user(10, "ann")))

	require.NoError(t, e.Refresh(context.Background()))

	posts := e.Store().Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, 3, posts[0].ID)
}

func TestRefresh_NotStartedTwiceInParallel(t *testing.T) {
	var requests atomic.Int64
	started := make(chan struct{})
	proceed := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		close(started)
		<-proceed
		w.Write([]byte(`[]`))
	})

	e, _ := newTestEngine(t, handler)

	done := make(chan error, 1)
	go func() { done <- e.Refresh(context.Background()) }()
	<-started

	// Second call while one is in flight is a no-op.
	require.NoError(t, e.Refresh(context.Background()))

	close(proceed)
	require.NoError(t, <-done)
	assert.Equal(t, int64(1), requests.Load())
}

func TestLoadCurrentUser(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1,"username":"me","location":"Berlin"}`))
	})

	e, _ := newTestEngine(t, handler)
	require.NoError(t, e.LoadCurrentUser(context.Background()))

	u, ok := e.Store().CurrentUser()
	require.True(t, ok)
	assert.Equal(t, 1, u.ID)
	assert.Equal(t, "me", u.Username)
}
