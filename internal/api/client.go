// Package api is the request/response half of the server interface. The
// push channel half lives in internal/push.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/platefront/platefront/internal/model"
)

const maxBodyBytes = 1 << 20

// ServerError is a structured failure the server asserted; its message is
// safe to surface on a form.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to the application server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for baseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type productsResponse struct {
	Products []model.Product         `json:"products"`
	Types    []model.ProductCategory `json:"types"`
}

// Products fetches the session's product reference set and the
// server-supplied category list.
func (c *Client) Products(ctx context.Context) ([]model.Product, []model.ProductCategory, error) {
	var resp productsResponse
	if err := c.get(ctx, "/products", &resp); err != nil {
		return nil, nil, err
	}
	return resp.Products, resp.Types, nil
}

// Orders fetches the initial order board snapshot.
func (c *Client) Orders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := c.get(ctx, "/orders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a session credential.
func (c *Client) Login(ctx context.Context, username, password string) (model.Credential, error) {
	var cred model.Credential
	err := c.post(ctx, "/users/login", loginRequest{Username: username, Password: password}, &cred)
	return cred, err
}

// Register creates an account and returns its session credential.
func (c *Client) Register(ctx context.Context, username, email, password string) (model.Credential, error) {
	var cred model.Credential
	err := c.post(ctx, "/users/register", registerRequest{Username: username, Email: email, Password: password}, &cred)
	return cred, err
}

type existsRequest struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// UsernameExists asks the server whether name is already taken.
func (c *Client) UsernameExists(ctx context.Context, name string) (bool, error) {
	var taken bool
	err := c.post(ctx, "/users/doesUsernameExist", existsRequest{Username: name}, &taken)
	return taken, err
}

// EmailExists asks the server whether addr is already registered.
func (c *Client) EmailExists(ctx context.Context, addr string) (bool, error) {
	var taken bool
	err := c.post(ctx, "/users/doesEmailExist", existsRequest{Email: addr}, &taken)
	return taken, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("cannot build request for %s: %w", path, err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("cannot marshal request for %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("cannot build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("cannot read response from %s: %w", req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ServerError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("cannot decode response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// errorMessage extracts a display string from an error body, which the
// server sends either as a bare string or as {"error": "..."}.
func errorMessage(raw []byte) string {
	var structured struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &structured); err == nil && structured.Error != "" {
		return structured.Error
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil && plain != "" {
		return plain
	}
	return strings.TrimSpace(string(raw))
}
