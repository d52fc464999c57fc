package feed

import (
	"context"
	"sync/atomic"

	"social-feed-app/internal/api"
	"social-feed-app/internal/models"

	"github.com/rs/zerolog/log"
)

// Engine ties the store to the API client and implements every
// state-changing user action as an optimistic mutation.
type Engine struct {
	store         *Store
	client        *api.Client
	refreshing    atomic.Bool
	placeholderID atomic.Int64
}

// NewEngine creates an engine over the given store and client.
func NewEngine(store *Store, client *api.Client) *Engine {
	return &Engine{store: store, client: client}
}

// Store exposes the state store for read-only rendering.
func (e *Engine) Store() *Store {
	return e.store
}

// Refresh replaces the feed with a full fetch. A refresh already in
// flight is not started twice; the second call is a no-op.
func (e *Engine) Refresh(ctx context.Context) error {
	if !e.refreshing.CompareAndSwap(false, true) {
		log.Debug().Msg("Feed refresh already in flight, skipping")
		return nil
	}
	defer e.refreshing.Store(false)

	posts, err := e.client.Feed(ctx)
	if err != nil {
		return err
	}
	e.store.LoadFeed(posts)
	return nil
}

// LoadCurrentUser fetches and stores the authenticated user's identity.
// Required before any action that needs to know who is acting.
func (e *Engine) LoadCurrentUser(ctx context.Context) error {
	user, err := e.client.Me(ctx)
	if err != nil {
		return err
	}
	e.store.SetCurrentUser(*user)
	return nil
}

// ToggleLike flips the current user's like on a post. The local like set
// changes immediately; on any failure it is restored to the snapshot.
// Refused outright when the identity has not loaded yet: no request, no
// local change.
func (e *Engine) ToggleLike(ctx context.Context, postID int) error {
	user, ok := e.store.CurrentUser()
	if !ok {
		log.Debug().Int("post_id", postID).Msg("Like refused, current user not loaded")
		return &api.Error{Kind: api.KindPrecondition, Message: "Current user not loaded"}
	}
	if _, exists := e.store.Post(postID); !exists {
		return &api.Error{Kind: api.KindPrecondition, Message: "Post not loaded"}
	}

	return Run(ctx, Mutation[struct{}]{
		Apply: func() func() {
			before, _ := e.store.PostLikes(postID)
			e.store.ToggleLike(postID, user)
			return func() { e.store.SetPostLikes(postID, before) }
		},
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, e.client.LikePost(ctx, postID)
		},
	})
}

// ToggleFollow flips the following relation with another user. Whether to
// follow or unfollow is decided once, from the state at call time.
func (e *Engine) ToggleFollow(ctx context.Context, userID int) error {
	wasFollowing := e.store.IsFollowing(userID)

	return Run(ctx, Mutation[struct{}]{
		Apply: func() func() {
			e.store.SetFollowing(userID, !wasFollowing)
			return func() { e.store.SetFollowing(userID, wasFollowing) }
		},
		Call: func(ctx context.Context) (struct{}, error) {
			if wasFollowing {
				return struct{}{}, e.client.Unfollow(ctx, userID)
			}
			return struct{}{}, e.client.Follow(ctx, userID)
		},
	})
}

// SubmitComment prepends the comment locally, then swaps in the server's
// committed entry on success so exactly one entry is added. Requires the
// current user's identity for the optimistic author.
func (e *Engine) SubmitComment(ctx context.Context, postID int, text string) error {
	user, ok := e.store.CurrentUser()
	if !ok {
		log.Debug().Int("post_id", postID).Msg("Comment refused, current user not loaded")
		return &api.Error{Kind: api.KindPrecondition, Message: "Current user not loaded"}
	}

	// Negative placeholder ids never collide with server-assigned ids,
	// and each in-flight submission gets its own so overlapping submits
	// on one post cannot commit over each other's placeholder.
	placeholder := models.Comment{ID: int(-e.placeholderID.Add(1)), Text: text, Author: user}

	return Run(ctx, Mutation[*models.Comment]{
		Apply: func() func() {
			before, _ := e.store.PostComments(postID)
			e.store.PrependComment(postID, placeholder)
			return func() { e.store.SetPostComments(postID, before) }
		},
		Call: func(ctx context.Context) (*models.Comment, error) {
			return e.client.CreateComment(ctx, postID, text)
		},
		Commit: func(c *models.Comment) {
			e.store.ReplaceComment(postID, placeholder.ID, *c)
		},
	})
}

// Logout clears all local state. The caller is responsible for clearing
// the session.
func (e *Engine) Logout() {
	e.store.Reset()
}
