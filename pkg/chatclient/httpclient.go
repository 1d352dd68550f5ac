package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dealersense/chat-api/pkg/protocol"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Status     string `json:"status"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type User struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Location string `json:"location"`
}

type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient talks to the API mounted at baseURL, e.g. http://localhost:5001/api/v1.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

func (c *HTTPClient) Token() string {
	return c.token
}

// Login stores the returned token for later calls.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (User, error) {
	var out struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return User{}, err
	}
	c.token = out.Token

	return out.User, nil
}

func (c *HTTPClient) Me(ctx context.Context) (User, error) {
	var user User
	err := c.do(ctx, http.MethodGet, "/users/me", nil, &user)
	return user, err
}

func (c *HTTPClient) Contacts(ctx context.Context) ([]User, error) {
	var users []User
	err := c.do(ctx, http.MethodGet, "/users/contacts", nil, &users)
	return users, err
}

func (c *HTTPClient) History(ctx context.Context, roomID string) ([]protocol.Message, error) {
	var messages []protocol.Message
	err := c.do(ctx, http.MethodGet, "/chat/"+url.PathEscape(roomID), nil, &messages)
	return messages, err
}

// SendHTTP writes through the REST endpoint. The server broadcasts it like a socket send.
func (c *HTTPClient) SendHTTP(ctx context.Context, msg protocol.SendMessage) (protocol.Message, error) {
	var stored protocol.Message
	err := c.do(ctx, http.MethodPost, "/chat/send", msg, &stored)
	return stored, err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("json.Marshal -> %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext -> %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("c.client.Do -> %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("json.Decode -> %w", err)
	}

	return nil
}
