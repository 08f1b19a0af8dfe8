package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Tom8810/janso/internal/parlor"
)

// APIError is an error response of the parlor API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// HTTPBackend talks to the Read and Update endpoints of a janso server.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
	token   string
}

// NewHTTPBackend creates a backend for the server at baseURL. token, when
// set, is sent as a bearer token. A nil client means http.DefaultClient.
func NewHTTPBackend(baseURL string, client *http.Client, token string) *HTTPBackend {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPBackend{baseURL: strings.TrimRight(baseURL, "/"), client: client, token: token}
}

// Fetch calls GET /api/parlor?id=.
func (b *HTTPBackend) Fetch(ctx context.Context, parlorID string) (*parlor.Parlor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		b.baseURL+"/api/parlor?id="+url.QueryEscape(parlorID), nil)
	if err != nil {
		return nil, err
	}
	return b.do(req)
}

type updateBody struct {
	ID    string        `json:"id"`
	Rooms []parlor.Room `json:"rooms"`
}

// Save calls POST /api/parlor/update with the full room list.
func (b *HTTPBackend) Save(ctx context.Context, parlorID string, rooms []parlor.Room) (*parlor.Parlor, error) {
	if rooms == nil {
		rooms = []parlor.Room{}
	}
	body, err := json.Marshal(updateBody{ID: parlorID, Rooms: rooms})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/parlor/update", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(req)
}

func (b *HTTPBackend) do(req *http.Request) (*parlor.Parlor, error) {
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(data, &body) == nil {
			apiErr.Code, apiErr.Message = body.Code, body.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr
	}

	var p parlor.Parlor
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode parlor: %w", err)
	}
	if p.Rooms == nil {
		p.Rooms = []parlor.Room{}
	}
	return &p, nil
}
