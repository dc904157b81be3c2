package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"Quillpad/internal/core/posts"
	"Quillpad/internal/core/users"
)

const (
	defaultTimeout   = 60 * time.Second
	maxResponseBytes = 4 << 20
)

// ErrUnauthorized is returned when there is no session token or the server
// rejected it. The session token has been cleared; the user must log in again.
var ErrUnauthorized = errors.New("not logged in")

// APIError is a non-2xx reply decoded from the server's error body
type APIError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// IsAPIError reports whether err is an APIError with the given reason code
func IsAPIError(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Image is an attachment to send with a create or update
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Draft is the client-side input for creating or editing a post
type Draft struct {
	Image   *Image
	Title   string
	Content string
}

// Client talks to the blog HTTP API on behalf of a Session
type Client struct {
	httpClient *http.Client
	session    *Session
	baseURL    string
}

// NewClient creates an API client. httpClient may be nil.
func NewClient(baseURL string, session *Session, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		httpClient: httpClient,
		session:    session,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Session returns the session the client authenticates with
func (c *Client) Session() *Session {
	return c.session
}

// Register creates an account
func (c *Client) Register(ctx context.Context, username, password string) error {
	body, err := json.Marshal(users.RegisterRequest{Username: username, Password: password})
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/register", false, "application/json", bytes.NewReader(body), nil)
}

// Login exchanges credentials for a token and stores it in the session
func (c *Client) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(users.LoginRequest{Username: username, Password: password})
	if err != nil {
		return err
	}

	var resp users.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/login", false, "application/json", bytes.NewReader(body), &resp); err != nil {
		return err
	}
	if resp.Token == "" {
		return fmt.Errorf("login response carried no token")
	}
	return c.session.SetToken(resp.Token)
}

// Logout forgets the token. Tokens are stateless, so the server is not called.
func (c *Client) Logout() error {
	return c.session.Logout()
}

// ListPosts fetches one page of the caller's posts
func (c *Client) ListPosts(ctx context.Context, page, limit int) ([]posts.Post, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var result []posts.Post
	if err := c.do(ctx, http.MethodGet, "/posts?"+query.Encode(), true, "", nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// GetPost fetches a single post
func (c *Client) GetPost(ctx context.Context, id string) (*posts.Post, error) {
	var post posts.Post
	if err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(id), true, "", nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreatePost submits a new post
func (c *Client) CreatePost(ctx context.Context, draft Draft) (*posts.Post, error) {
	return c.sendDraft(ctx, http.MethodPost, "/posts", draft)
}

// UpdatePost replaces a post's title and content, and its image when draft has one
func (c *Client) UpdatePost(ctx context.Context, id string, draft Draft) (*posts.Post, error) {
	return c.sendDraft(ctx, http.MethodPut, "/posts/"+url.PathEscape(id), draft)
}

// DeletePost removes a post
func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(id), true, "", nil, nil)
}

func (c *Client) sendDraft(ctx context.Context, method, path string, draft Draft) (*posts.Post, error) {
	body, contentType, err := encodeDraft(draft)
	if err != nil {
		return nil, err
	}
	var post posts.Post
	if err := c.do(ctx, method, path, true, contentType, body, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func encodeDraft(draft Draft) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("title", draft.Title); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("content", draft.Content); err != nil {
		return nil, "", err
	}

	if draft.Image != nil {
		contentType := draft.Image.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(draft.Image.Data)
		}
		filename := draft.Image.Filename
		if filename == "" {
			filename = "image"
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(draft.Image.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// do sends the request and decodes a 2xx reply into out (when non-nil).
// authenticated requests carry the session token; a 401 on them clears it.
func (c *Client) do(ctx context.Context, method, path string, authenticated bool, contentType string, body io.Reader, out interface{}) error {
	var token string
	if authenticated {
		token = c.session.Token()
		if token == "" {
			return ErrUnauthorized
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if authenticated && resp.StatusCode == http.StatusUnauthorized {
		if err := c.session.Logout(); err != nil {
			slog.Warn("[CLIENT] failed to clear rejected token", "error", err)
		}
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
