package models

// User represents a user in the system. The same shape is used for the
// authenticated user and for any referenced author, liker or commenter.
type User struct {
	ID       int     `json:"id"`
	Email    string  `json:"email,omitempty"`
	Username string  `json:"username"`
	Location *string `json:"location,omitempty"`
}

// Like is a (post, user) relation. A post's like list never contains two
// entries for the same user id.
type Like struct {
	User User `json:"user"`
}

// Comment represents a comment on a post. Comments are append-only.
type Comment struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Author User   `json:"author"`
}

// Post represents a feed post with its nested likes and comments.
// Comments are ordered most-recent-first.
type Post struct {
	ID          int       `json:"id"`
	Description string    `json:"description"`
	MediaURL    *string   `json:"media_url,omitempty"`
	Author      User      `json:"author"`
	Likes       []Like    `json:"likes"`
	Comments    []Comment `json:"comments"`
}

// LikedBy reports whether the given user likes the post. Like state is
// always derived from the like set, never cached on the post.
func (p *Post) LikedBy(userID int) bool {
	for _, l := range p.Likes {
		if l.User.ID == userID {
			return true
		}
	}
	return false
}

// LikeCount returns the number of distinct users that like the post.
func (p *Post) LikeCount() int {
	return len(p.Likes)
}
