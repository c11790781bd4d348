package reddit

// Post represents one search result from the content provider. Posts are
// transient; they survive only inside a serialized analysis result.
type Post struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	SelfText    string  `json:"selftext,omitempty"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Permalink   string  `json:"permalink"`
	CreatedUTC  float64 `json:"created_utc"`
}

// URL returns the canonical link to the post
func (x *Post) URL() string {
	return "https://www.reddit.com" + x.Permalink
}

// Ref returns the minimal reference carried by per-comment progress events
func (x *Post) Ref() *PostRef {
	return &PostRef{
		ID:     x.ID,
		Title:  x.Title,
		Author: x.Author,
	}
}

// PostRef identifies a post in a comment event without repeating its body
type PostRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Comment is one sub-item of a post. Deleted and removed comments are
// filtered out by the provider client.
type Comment struct {
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
}

// PostWithComments is the aggregate unit passed to the analyzer
type PostWithComments struct {
	Post     *Post      `json:"post"`
	Comments []*Comment `json:"comments"`
}
