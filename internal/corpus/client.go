// Package corpus harvests questions and answers from the Q&A backend and
// turns them into the plain-text training dataset.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the backend API root used when none is configured.
const DefaultBaseURL = "http://localhost:5028/api"

// Post is a question on the platform.
type Post struct {
	ID       string
	Title    string
	Content  string
	Language string
	Status   string
}

// Comment is an answer to a post.
type Comment struct {
	UserID  string
	Content string
	Replies []Reply
}

// Reply is a response to an answer.
type Reply struct {
	UserID  string
	Content string
}

// Source lists posts and their comments.
type Source interface {
	ListPosts(ctx context.Context) ([]Post, error)
	ListComments(ctx context.Context, postID string) ([]Comment, error)
}

// Client reads the backend's post and comment endpoints.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient returns a Client for baseURL. Each request is bounded by timeout
// when it is positive.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// ListPosts fetches GET {base}/post.
func (c *Client) ListPosts(ctx context.Context) ([]Post, error) {
	arr, err := c.getArray(ctx, "/post")
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}
	posts := make([]Post, 0, len(arr))
	for _, v := range arr {
		posts = append(posts, Post{
			ID:       v.Get("id").String(),
			Title:    v.Get("title").String(),
			Content:  v.Get("content").String(),
			Language: stringOr(v.Get("language"), "other"),
			Status:   stringOr(v.Get("status"), "Open"),
		})
	}
	return posts, nil
}

// ListComments fetches GET {base}/comment/post/{id}.
func (c *Client) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	arr, err := c.getArray(ctx, "/comment/post/"+url.PathEscape(postID))
	if err != nil {
		return nil, fmt.Errorf("fetch comments for post %s: %w", postID, err)
	}
	comments := make([]Comment, 0, len(arr))
	for _, v := range arr {
		cm := Comment{
			UserID:  stringOr(v.Get("userId"), "unknown"),
			Content: v.Get("content").String(),
		}
		for _, r := range v.Get("replies").Array() {
			cm.Replies = append(cm.Replies, Reply{
				UserID:  stringOr(r.Get("userId"), "unknown"),
				Content: r.Get("content").String(),
			})
		}
		comments = append(comments, cm)
	}
	return comments, nil
}

func (c *Client) getArray(ctx context.Context, path string) ([]gjson.Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, errors.New("response is not a JSON array")
	}
	return parsed.Array(), nil
}

// stringOr returns v as a string, or def when v is missing or null.
func stringOr(v gjson.Result, def string) string {
	if v.Type == gjson.Null {
		return def
	}
	return v.String()
}
