package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/docsafe/internal/envelope"
	"github.com/golang-jwt/jwt/v5"
)

// HTTPClient talks to the DocSafe HTTP API. Safe for concurrent use; the
// access token is guarded so parallel uploads share one login.
type HTTPClient struct {
	baseURL string
	hc      *http.Client

	mu          sync.RWMutex
	accessToken string
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

type registerRequest struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

func (c *HTTPClient) Register(ctx context.Context, username string, salt, verifier []byte) error {
	return c.postJSON(ctx, "/api/users/register", registerRequest{
		Username: username, Salt: salt, Verifier: verifier,
	}, nil)
}

type saltResponse struct {
	Salt []byte `json:"salt"`
}

func (c *HTTPClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	var resp saltResponse
	path := "/api/users/salt?username=" + url.QueryEscape(username)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Salt, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Verifier []byte `json:"verifier"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

func (c *HTTPClient) Login(ctx context.Context, username string, verifier []byte) error {
	var resp loginResponse
	if err := c.postJSON(ctx, "/api/users/login", loginRequest{Username: username, Verifier: verifier}, &resp); err != nil {
		return err
	}

	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.mu.Unlock()
	return nil
}

// token returns the current access token, rejecting ahead of the request if
// it is missing or already expired, so callers get ErrUnauthorized without a
// round trip. The token is not signature-checked here; the server does that.
func (c *HTTPClient) token() (string, error) {
	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()

	if token == "" {
		return "", ErrNotLoggedIn
	}

	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return "", fmt.Errorf("%w: access token expired", ErrUnauthorized)
	}
	return token, nil
}

type createDocumentRequest struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type createDocumentResponse struct {
	DocumentID string `json:"document_id"`
	UploadURL  string `json:"upload_url"`
}

type documentResponse struct {
	DocumentInfo
	DownloadURL string `json:"download_url"`
}

func (c *HTTPClient) UploadDocument(ctx context.Context, name string, env *envelope.Envelope) (string, error) {
	blob, err := envelope.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	var created createDocumentResponse
	req := createDocumentRequest{Name: name, Size: int64(len(blob))}
	if err := c.postJSON(ctx, "/api/documents", req, &created); err != nil {
		return "", err
	}

	if err := c.putBlob(ctx, created.UploadURL, blob); err != nil {
		return "", err
	}

	if err := c.postJSON(ctx, "/api/documents/"+created.DocumentID+"/uploaded", nil, nil); err != nil {
		return "", err
	}

	return created.DocumentID, nil
}

func (c *HTTPClient) FetchDocument(ctx context.Context, documentID string) (*envelope.Envelope, error) {
	var doc documentResponse
	if err := c.getJSON(ctx, "/api/documents/"+documentID, &doc); err != nil {
		return nil, err
	}

	blob, err := c.getBlob(ctx, doc.DownloadURL)
	if err != nil {
		return nil, err
	}
	return envelope.Unmarshal(blob)
}

func (c *HTTPClient) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	var docs []DocumentInfo
	if err := c.getJSON(ctx, "/api/documents", &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path, out)
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, path, out)
}

// do sends an API request with the bearer token attached (except for the
// public auth endpoints) and decodes the JSON response.
func (c *HTTPClient) do(req *http.Request, path string, out any) error {
	if !isPublicPath(path) {
		token, err := c.token()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) putBlob(ctx context.Context, blobURL string, blob []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, blobURL, bytes.NewReader(blob))
	if err != nil {
		return err
	}
	req.ContentLength = int64(len(blob))

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	return statusError(resp.StatusCode)
}

func (c *HTTPClient) getBlob(ctx context.Context, blobURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, blobURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func isPublicPath(path string) bool {
	switch {
	case path == "/api/users/register", path == "/api/users/login":
		return true
	case len(path) >= len("/api/users/salt") && path[:len("/api/users/salt")] == "/api/users/salt":
		return true
	}
	return false
}

func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}
