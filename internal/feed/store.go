// Package feed holds the client-side feed state and the optimistic
// mutation engine that keeps it in sync with the server.
package feed

import (
	"sync"

	"social-feed-app/internal/models"
)

// Store is the single mutable owner of the feed collection, the current
// user's identity and the local following set. Everything handed out is a
// copy; callers never hold a reference into live state.
type Store struct {
	mu          sync.Mutex
	currentUser *models.User
	posts       []models.Post
	following   map[int]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{following: make(map[int]struct{})}
}

// SetCurrentUser records the authenticated user's identity.
func (s *Store) SetCurrentUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := u
	s.currentUser = &user
}

// CurrentUser returns the authenticated user and whether the identity has
// been loaded yet.
func (s *Store) CurrentUser() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentUser == nil {
		return models.User{}, false
	}
	return *s.currentUser, true
}

// LoadFeed replaces the whole collection with the server's posts. The last
// full fetch wins; there is no incremental merge across refreshes.
// Duplicate post ids and duplicate likes per user are dropped on the way in.
func (s *Store) LoadFeed(posts []models.Post) {
	clean := make([]models.Post, 0, len(posts))
	seen := make(map[int]struct{}, len(posts))
	for _, p := range posts {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		clean = append(clean, dedupePost(p))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = clean
}

// Posts returns a snapshot of the feed for rendering.
func (s *Store) Posts() []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Post, len(s.posts))
	for i := range s.posts {
		out[i] = clonePost(s.posts[i])
	}
	return out
}

// Post returns a snapshot of one post.
func (s *Store) Post(postID int) (models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.find(postID); p != nil {
		return clonePost(*p), true
	}
	return models.Post{}, false
}

// IsLikedBy reports whether the user likes the post. Always derived from
// the like set, never a cached flag.
func (s *Store) IsLikedBy(postID, userID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.find(postID); p != nil {
		return p.LikedBy(userID)
	}
	return false
}

// ToggleLike flips the user's membership in the post's like set: present
// entries are removed, absent ones added. Returns the new liked state and
// whether the post exists.
func (s *Store) ToggleLike(postID int, user models.User) (liked, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(postID)
	if p == nil {
		return false, false
	}
	for i, l := range p.Likes {
		if l.User.ID == user.ID {
			p.Likes = append(p.Likes[:i], p.Likes[i+1:]...)
			return false, true
		}
	}
	p.Likes = append(p.Likes, models.Like{User: user})
	return true, true
}

// PostLikes returns a copy of one post's like set, for snapshotting.
func (s *Store) PostLikes(postID int) ([]models.Like, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(postID)
	if p == nil {
		return nil, false
	}
	return append([]models.Like(nil), p.Likes...), true
}

// SetPostLikes restores one post's like set from a snapshot.
func (s *Store) SetPostLikes(postID int, likes []models.Like) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.find(postID); p != nil {
		p.Likes = append([]models.Like(nil), likes...)
	}
}

// PrependComment inserts a comment at the head of the post's comment list,
// keeping most-recent-first order.
func (s *Store) PrependComment(postID int, c models.Comment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(postID)
	if p == nil {
		return false
	}
	p.Comments = append([]models.Comment{c}, p.Comments...)
	return true
}

// ReplaceComment swaps the first comment with the given id for the
// server's committed entry. Used to merge a server-assigned comment over
// the optimistic placeholder without adding a second entry.
func (s *Store) ReplaceComment(postID, oldID int, c models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(postID)
	if p == nil {
		return
	}
	for i := range p.Comments {
		if p.Comments[i].ID == oldID {
			p.Comments[i] = c
			return
		}
	}
}

// PostComments returns a copy of one post's comment list, for snapshotting.
func (s *Store) PostComments(postID int) ([]models.Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.find(postID)
	if p == nil {
		return nil, false
	}
	return append([]models.Comment(nil), p.Comments...), true
}

// SetPostComments restores one post's comment list from a snapshot.
func (s *Store) SetPostComments(postID int, comments []models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.find(postID); p != nil {
		p.Comments = append([]models.Comment(nil), comments...)
	}
}

// IsFollowing reports whether the user id is in the local following set.
func (s *Store) IsFollowing(userID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.following[userID]
	return ok
}

// SetFollowing flips one user's membership in the following set.
func (s *Store) SetFollowing(userID int, following bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if following {
		s.following[userID] = struct{}{}
	} else {
		delete(s.following, userID)
	}
}

// FollowingIDs returns the ids currently followed.
func (s *Store) FollowingIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.following))
	for id := range s.following {
		ids = append(ids, id)
	}
	return ids
}

// Reset drops all state. Called on logout.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentUser = nil
	s.posts = nil
	s.following = make(map[int]struct{})
}

// find returns the live post with the given id. Caller holds s.mu.
func (s *Store) find(postID int) *models.Post {
	for i := range s.posts {
		if s.posts[i].ID == postID {
			return &s.posts[i]
		}
	}
	return nil
}

func clonePost(p models.Post) models.Post {
	p.Likes = append([]models.Like(nil), p.Likes...)
	p.Comments = append([]models.Comment(nil), p.Comments...)
	return p
}

// dedupePost drops repeated like entries for the same user id, keeping
// the first.
func dedupePost(p models.Post) models.Post {
	p = clonePost(p)
	seen := make(map[int]struct{}, len(p.Likes))
	likes := p.Likes[:0]
	for _, l := range p.Likes {
		if _, dup := seen[l.User.ID]; dup {
			continue
		}
		seen[l.User.ID] = struct{}{}
		likes = append(likes, l)
	}
	p.Likes = likes
	return p
}
