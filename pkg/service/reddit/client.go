package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/threadlens-lab/threadlens/pkg/domain/interfaces"
	"github.com/threadlens-lab/threadlens/pkg/domain/model/errs"
	model "github.com/threadlens-lab/threadlens/pkg/domain/model/reddit"
	"github.com/threadlens-lab/threadlens/pkg/domain/types"
	"github.com/threadlens-lab/threadlens/pkg/utils/safe"
)

const (
	defaultAuthURL = "https://www.reddit.com/api/v1/access_token"
	defaultBaseURL = "https://oauth.reddit.com"

	// per-post comment fetch cap, matching the provider's page size
	commentFetchLimit = 100
)

// Client is a ContentProvider backed by the Reddit OAuth2 API (script grant)
type Client struct {
	httpClient *http.Client

	clientID     string
	clientSecret string
	username     string
	password     string
	userAgent    string
	authURL      string
	baseURL      string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var _ interfaces.ContentProvider = &Client{}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(x *Client) {
		x.httpClient = c
	}
}

func WithAuthURL(u string) Option {
	return func(x *Client) {
		x.authURL = u
	}
}

func WithBaseURL(u string) Option {
	return func(x *Client) {
		x.baseURL = u
	}
}

func New(clientID, clientSecret, username, password, userAgent string, opts ...Option) *Client {
	client := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		username:     username,
		password:     password,
		userAgent:    userAgent,
		authURL:      defaultAuthURL,
		baseURL:      defaultBaseURL,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a cached access token, refreshing it via the password grant
// when missing or near expiry.
func (x *Client) token(ctx context.Context) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.accessToken != "" && time.Now().Before(x.tokenExpiry.Add(-time.Minute)) {
		return x.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", x.username)
	form.Set("password", x.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", goerr.Wrap(err, "failed to build token request", goerr.T(errs.TagExternal))
	}
	req.SetBasicAuth(x.clientID, x.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", x.userAgent)

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "failed to request access token", goerr.T(errs.TagExternal))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", goerr.New("unexpected status from token endpoint",
			goerr.V("status", resp.StatusCode),
			goerr.T(errs.TagExternal))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", goerr.Wrap(err, "failed to decode token response", goerr.T(errs.TagExternal))
	}
	if token.AccessToken == "" {
		return "", goerr.New("empty access token in response", goerr.T(errs.TagExternal))
	}

	x.accessToken = token.AccessToken
	x.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	return x.accessToken, nil
}

func (x *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	token, err := x.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return goerr.Wrap(err, "failed to build request", goerr.V("endpoint", endpoint), goerr.T(errs.TagExternal))
	}
	req.Header.Set("Authorization", "bearer "+token)
	req.Header.Set("User-Agent", x.userAgent)

	resp, err := x.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "request failed", goerr.V("endpoint", endpoint), goerr.T(errs.TagExternal))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return goerr.New("unexpected status code",
			goerr.V("endpoint", endpoint),
			goerr.V("status", resp.StatusCode),
			goerr.T(errs.TagExternal))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerr.Wrap(err, "failed to decode response", goerr.V("endpoint", endpoint), goerr.T(errs.TagExternal))
	}
	return nil
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Search queries a subreddit for posts matching the keyword
func (x *Client) Search(ctx context.Context, scope, term string, limit int, sort types.SortOrder) ([]*model.Post, error) {
	params := url.Values{}
	params.Set("q", term)
	params.Set("restrict_sr", "true")
	params.Set("sort", sort.String())
	params.Set("limit", strconv.Itoa(limit))

	var result listing
	endpoint := fmt.Sprintf("%s/r/%s/search.json", x.baseURL, url.PathEscape(scope))
	if err := x.get(ctx, endpoint, params, &result); err != nil {
		return nil, err
	}

	posts := make([]*model.Post, 0, len(result.Data.Children))
	for _, child := range result.Data.Children {
		var post model.Post
		if err := json.Unmarshal(child.Data, &post); err != nil {
			return nil, goerr.Wrap(err, "failed to decode post", goerr.T(errs.TagExternal))
		}
		posts = append(posts, &post)
	}

	return posts, nil
}

// Comments fetches a post's comments, keeping only real comments (kind t1)
// and dropping deleted or removed bodies.
func (x *Client) Comments(ctx context.Context, scope, postID string) ([]*model.Comment, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(commentFetchLimit))

	// The comments endpoint returns a 2-element array: post data, then comments
	var result []listing
	endpoint := fmt.Sprintf("%s/r/%s/comments/%s.json", x.baseURL, url.PathEscape(scope), url.PathEscape(postID))
	if err := x.get(ctx, endpoint, params, &result); err != nil {
		return nil, err
	}
	if len(result) < 2 {
		return []*model.Comment{}, nil
	}

	var comments []*model.Comment
	for _, child := range result[1].Data.Children {
		if child.Kind != "t1" {
			continue
		}
		var comment model.Comment
		if err := json.Unmarshal(child.Data, &comment); err != nil {
			return nil, goerr.Wrap(err, "failed to decode comment", goerr.T(errs.TagExternal))
		}
		if comment.Body == "[deleted]" || comment.Body == "[removed]" {
			continue
		}
		comments = append(comments, &comment)
	}

	return comments, nil
}
