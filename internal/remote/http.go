package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// TokenSource supplies the bearer token attached to every request.
// Implemented by the tenant session.
type TokenSource interface {
	Token() string
}

// staticToken adapts a fixed string to TokenSource. Useful in tests.
type staticToken string

func (s staticToken) Token() string { return string(s) }

// StaticToken returns a TokenSource that always yields tok.
func StaticToken(tok string) TokenSource { return staticToken(tok) }

// HTTPStore talks to the cloud document store over JSON/HTTP:
//
//	PUT    /v1/{collection}/{id}            full overwrite
//	GET    /v1/{collection}/{id}            single document
//	DELETE /v1/{collection}/{id}            idempotent delete
//	GET    /v1/{collection}?businessId=...  tenant-scoped query
//	POST   /v1/{collection}:purge           bounded batch delete
//	GET    /healthz                         reachability probe
type HTTPStore struct {
	base   string
	client *http.Client
	tokens TokenSource
}

// NewHTTPStore creates a client for the store at baseURL. If httpClient is
// nil a client with a 15 second timeout is used.
func NewHTTPStore(baseURL string, tokens TokenSource, httpClient *http.Client) *HTTPStore {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPStore{
		base:   trimSlash(baseURL),
		client: httpClient,
		tokens: tokens,
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

func (s *HTTPStore) docURL(collection, id string) string {
	return fmt.Sprintf("%s/v1/%s/%s", s.base, url.PathEscape(collection), url.PathEscape(id))
}

func (s *HTTPStore) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Content-Type", "application/json")
	if s.tokens != nil {
		if tok := s.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// drain discards and closes the response body so connections are reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

// Put implements Store.
func (s *HTTPStore) Put(ctx context.Context, collection string, doc Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.docURL(collection, doc.ID), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("put %s/%s: unexpected status %d", collection, doc.ID, resp.StatusCode)
	}
	return nil
}

// Get implements Store.
func (s *HTTPStore) Get(ctx context.Context, collection, id string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.docURL(collection, id), nil)
	if err != nil {
		return Document{}, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.do(req)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Document{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("get %s/%s: unexpected status %d", collection, id, resp.StatusCode)
	}

	var doc Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

// Delete implements Store. A 404 is treated as success.
func (s *HTTPStore) Delete(ctx context.Context, collection, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.docURL(collection, id), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.do(req)
	if err != nil {
		return err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("delete %s/%s: unexpected status %d", collection, id, resp.StatusCode)
	}
}

// QueryByBusiness implements Store.
func (s *HTTPStore) QueryByBusiness(ctx context.Context, collection, businessID string) ([]Document, error) {
	u := fmt.Sprintf("%s/v1/%s?businessId=%s", s.base, url.PathEscape(collection), url.QueryEscape(businessID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query %s: unexpected status %d", collection, resp.StatusCode)
	}

	var out struct {
		Documents []Document `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode query result: %w", err)
	}
	return out.Documents, nil
}

// DeleteBusiness implements Store.
func (s *HTTPStore) DeleteBusiness(ctx context.Context, collection, businessID string, limit int) (int, error) {
	body, err := json.Marshal(map[string]any{
		"businessId": businessID,
		"limit":      limit,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to encode purge request: %w", err)
	}

	u := fmt.Sprintf("%s/v1/%s:purge", s.base, url.PathEscape(collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("purge %s: unexpected status %d", collection, resp.StatusCode)
	}

	var out struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode purge result: %w", err)
	}
	return out.Deleted, nil
}

// Ping implements Store.
func (s *HTTPStore) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %s", ErrUnavailable, strconv.Itoa(resp.StatusCode))
	}
	return nil
}
