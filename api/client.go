// Package api implements the REST half of the backend contract.
// All endpoints live under the /api prefix of the configured base URL;
// the push channel is the only surface outside of it.
package api

import (
	"bytes"
	"chatlink/domain"
	apperrors "chatlink/errors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	requestTimeout = 30 * time.Second
	maxErrorBody   = 4 << 10
)

// Client talks to the chat backend over HTTP. The bearer credential is
// instance state, set by the session service when a session starts and
// cleared when it ends. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		log:     log,
	}
}

// BaseURL returns the configured backend root, without the /api prefix.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) ClearToken() { c.SetToken("") }

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Login(ctx context.Context, username, password string) (domain.AuthResult, error) {
	payload := map[string]string{"username": username, "password": password}
	var res domain.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", payload, &res); err != nil {
		return domain.AuthResult{}, err
	}
	return res, nil
}

func (c *Client) Register(ctx context.Context, username, email, password string) (domain.AuthResult, error) {
	payload := map[string]string{"username": username, "email": email, "password": password}
	var res domain.AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/register", payload, &res); err != nil {
		return domain.AuthResult{}, err
	}
	return res, nil
}

func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (c *Client) Chats(ctx context.Context) ([]domain.Chat, error) {
	var chats []domain.Chat
	if err := c.do(ctx, http.MethodGet, "/chats", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// Messages fetches one page of a chat's history, oldest first.
// skip and limit map onto the backend's pagination; limit <= 0 leaves
// the server default in place.
func (c *Client) Messages(ctx context.Context, chatID string, skip, limit int) ([]domain.Message, error) {
	path := "/messages/" + url.PathEscape(chatID)
	query := url.Values{}
	if skip > 0 {
		query.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var messages []domain.Message
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) SendMessage(ctx context.Context, req domain.SendMessageRequest) (domain.Message, error) {
	var msg domain.Message
	if err := c.do(ctx, http.MethodPost, "/messages", req, &msg); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

func (c *Client) CreateChat(ctx context.Context, req domain.CreateChatRequest) (domain.Chat, error) {
	var chat domain.Chat
	if err := c.do(ctx, http.MethodPost, "/chats", req, &chat); err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

func (c *Client) SearchUsers(ctx context.Context, query string) ([]domain.User, error) {
	path := "/users/search?" + url.Values{"q": {query}}.Encode()
	var users []domain.User
	if err := c.do(ctx, http.MethodGet, path, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Upload posts one file as multipart form data. The detected content type
// travels in the part header; the backend echoes it back as file_type.
func (c *Client) Upload(ctx context.Context, name, contentType string, r io.Reader) (domain.FileUpload, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		return domain.FileUpload{}, err
	}
	if _, err = io.Copy(part, r); err != nil {
		return domain.FileUpload{}, err
	}
	if err = mw.Close(); err != nil {
		return domain.FileUpload{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &buf)
	if err != nil {
		return domain.FileUpload{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.FileUpload{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.FileUpload{}, c.statusError(resp)
	}
	var upload domain.FileUpload
	if err = json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		return domain.FileUpload{}, err
	}
	return upload, nil
}

// do executes one JSON round trip against the /api prefix.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api"+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// statusError maps backend failures onto the module's sentinel errors,
// preserving the human-readable detail string for the auth form path.
func (c *Client) statusError(resp *http.Response) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&payload)
	detail := payload.Detail
	if detail == "" {
		detail = resp.Status
	}
	c.log.Debug("Backend rejected request",
		"method", resp.Request.Method, "url", resp.Request.URL.Path, "status", resp.StatusCode)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidCredentials, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, detail)
	default:
		return fmt.Errorf("%w: %s (status %d)", apperrors.ErrBackend, detail, resp.StatusCode)
	}
}
