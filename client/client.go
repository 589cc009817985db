// Package client provides a Go client for the slot scheduler server. It
// implements the storage.Store interface over HTTP plus WebSocket, so a
// booking.Coordinator can run against a remote server exactly as it does
// against a local store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jeewonyang/TCSlotScheduler/internal/core"
	"github.com/jeewonyang/TCSlotScheduler/internal/storage"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
	APIKey  string
	Owner   string
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.APIKey = strings.TrimSpace(key)
	}
}

// WithOwner sets the display name asserted on cancellations issued
// through the plain Delete method.
func WithOwner(owner string) Option {
	return func(c *Client) {
		c.Owner = owner
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.HTTP = httpClient
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ storage.Store = (*Client)(nil)

type reservationsResponse struct {
	Reservations []core.Reservation `json:"reservations"`
}

type resourcesResponse struct {
	Resources []core.Resource `json:"resources"`
}

// errorResponse mirrors the server's error body; Conflicting is only set
// on overlap errors.
type errorResponse struct {
	Error       string           `json:"error"`
	Message     string           `json:"message"`
	Conflicting core.Reservation `json:"conflicting"`
}

func (c *Client) List(ctx context.Context) ([]core.Reservation, error) {
	resp, err := c.get(ctx, "/api/reservations")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	var out reservationsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode reservations: %w", err)
	}
	return out.Reservations, nil
}

func (c *Client) Insert(ctx context.Context, r core.Reservation) (core.Reservation, error) {
	body := map[string]any{
		"resource": r.Resource,
		"owner":    r.Owner,
		"start":    r.Start.Format(time.RFC3339Nano),
		"end":      r.End.Format(time.RFC3339Nano),
	}
	resp, err := c.postJSON(ctx, "/api/reservations", body)
	if err != nil {
		return core.Reservation{}, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return core.Reservation{}, decodeError(resp)
	}
	var out core.Reservation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return core.Reservation{}, fmt.Errorf("decode reservation: %w", err)
	}
	return out, nil
}

// Delete cancels by id asserting the client's configured Owner. The
// server re-checks ownership from the X-Owner header even when the
// caller's coordinator already did.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.DeleteAs(ctx, id, c.Owner)
}

// DeleteAs cancels by id asserting the given owner name.
func (c *Client) DeleteAs(ctx context.Context, id, owner string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/api/reservations/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	if owner != "" {
		req.Header.Set("X-Owner", owner)
	}
	c.setAuth(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

// Get fetches one reservation by id.
func (c *Client) Get(ctx context.Context, id string) (core.Reservation, error) {
	resp, err := c.get(ctx, "/api/reservations/"+url.PathEscape(id))
	if err != nil {
		return core.Reservation{}, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return core.Reservation{}, decodeError(resp)
	}
	var out core.Reservation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return core.Reservation{}, fmt.Errorf("decode reservation: %w", err)
	}
	return out, nil
}

// Resources fetches the server's closed resource set.
func (c *Client) Resources(ctx context.Context) ([]core.Resource, error) {
	resp, err := c.get(ctx, "/api/resources")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	var out resourcesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode resources: %w", err)
	}
	return out.Resources, nil
}

func decodeError(resp *http.Response) error {
	var body errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch resp.StatusCode {
	case http.StatusConflict:
		return &core.ConflictError{Conflicting: body.Conflicting}
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusForbidden:
		return core.ErrForbidden
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", core.ErrStoreUnavailable, body.Message)
	case http.StatusBadRequest:
		switch body.Error {
		case "invalid_interval":
			return core.ErrInvalidInterval
		case "empty_owner":
			return core.ErrEmptyOwner
		case "unknown_resource":
			return core.ErrUnknownResource
		}
	}
	if body.Message != "" {
		return errors.New(body.Message)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.setAuth(req)
	return c.HTTP.Do(req)
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)
	return c.HTTP.Do(req)
}

func (c *Client) setAuth(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}
