// Package remote is the HTTP client for the remote inventory endpoint.
//
// Every failure is a *types.PersistenceError: transport failures (including
// timeouts and cancelled contexts) are ErrNetworkFailure; non-2xx statuses
// and undecodable bodies are ErrRemoteRejected.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/greenmap/pkg/types"
)

// maxErrorBody bounds how much of a rejected response is read for its message.
const maxErrorBody = 4 << 10

// Client talks to one endpoint base URL.
type Client struct {
	base       *url.URL
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New returns a client for baseURL. timeout bounds every request; zero uses
// types.DefaultRemoteTimeout.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", types.ErrRemoteURLInvalid, baseURL)
	}
	if timeout <= 0 {
		timeout = types.DefaultRemoteTimeout
	}
	c := &Client{
		base:       u,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the endpoint URL.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpoint(params map[string]string) string {
	u := *c.base
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchPlants returns the remote plants, oldest first.
func (c *Client) FetchPlants(ctx context.Context) ([]types.Plant, error) {
	var body struct {
		Plants []types.Plant `json:"plants"`
	}
	if err := c.get(ctx, "fetch plants", types.CollectionPlants, &body); err != nil {
		return nil, err
	}
	// The endpoint lists newest first.
	slices.Reverse(body.Plants)
	return body.Plants, nil
}

// FetchLawns returns the remote lawns, oldest first.
func (c *Client) FetchLawns(ctx context.Context) ([]types.Lawn, error) {
	var body struct {
		Lawns []types.Lawn `json:"lawns"`
	}
	if err := c.get(ctx, "fetch lawns", types.CollectionLawns, &body); err != nil {
		return nil, err
	}
	slices.Reverse(body.Lawns)
	return body.Lawns, nil
}

// Fetch loads both collections concurrently. Either failure fails the fetch.
func (c *Client) Fetch(ctx context.Context) (types.Snapshot, error) {
	var snap types.Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		plants, err := c.FetchPlants(ctx)
		snap.Plants = plants
		return err
	})
	g.Go(func() error {
		lawns, err := c.FetchLawns(ctx)
		snap.Lawns = lawns
		return err
	})
	if err := g.Wait(); err != nil {
		return types.Snapshot{}, err
	}
	if snap.Plants == nil {
		snap.Plants = []types.Plant{}
	}
	if snap.Lawns == nil {
		snap.Lawns = []types.Lawn{}
	}
	return snap, nil
}

type upsertRequest struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// UpsertPlant creates or replaces p on the remote.
func (c *Client) UpsertPlant(ctx context.Context, p types.Plant) error {
	return c.post(ctx, "upsert plant "+p.ID, upsertRequest{Type: types.CollectionPlants.Singular(), Data: p})
}

// UpsertLawn creates or replaces l on the remote.
func (c *Client) UpsertLawn(ctx context.Context, l types.Lawn) error {
	return c.post(ctx, "upsert lawn "+l.ID, upsertRequest{Type: types.CollectionLawns.Singular(), Data: l})
}

// Delete removes one entity from the remote.
func (c *Client) Delete(ctx context.Context, coll types.Collection, id string) error {
	op := "delete " + coll.Singular() + " " + id
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.endpoint(map[string]string{"type": coll.Singular(), "id": id}), nil)
	if err != nil {
		return types.NewPersistenceError(op, types.ErrNetworkFailure, err)
	}
	return c.do(op, req, nil)
}

// Replace brings the remote to exactly snap: every entity in snap is
// upserted, then remote entities absent from snap are deleted.
func (c *Client) Replace(ctx context.Context, snap types.Snapshot) error {
	current, err := c.Fetch(ctx)
	if err != nil {
		return err
	}
	for _, p := range snap.Plants {
		if err := c.UpsertPlant(ctx, p); err != nil {
			return err
		}
	}
	for _, l := range snap.Lawns {
		if err := c.UpsertLawn(ctx, l); err != nil {
			return err
		}
	}

	keepPlants := make(map[string]bool, len(snap.Plants))
	for _, p := range snap.Plants {
		keepPlants[p.ID] = true
	}
	for _, p := range current.Plants {
		if !keepPlants[p.ID] {
			if err := c.Delete(ctx, types.CollectionPlants, p.ID); err != nil {
				return err
			}
		}
	}
	keepLawns := make(map[string]bool, len(snap.Lawns))
	for _, l := range snap.Lawns {
		keepLawns[l.ID] = true
	}
	for _, l := range current.Lawns {
		if !keepLawns[l.ID] {
			if err := c.Delete(ctx, types.CollectionLawns, l.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, op string, coll types.Collection, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint(map[string]string{"type": string(coll)}), nil)
	if err != nil {
		return types.NewPersistenceError(op, types.ErrNetworkFailure, err)
	}
	return c.do(op, req, dest)
}

func (c *Client) post(ctx context.Context, op string, payload upsertRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return types.NewPersistenceError(op, types.ErrRemoteRejected, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(nil), bytes.NewReader(body))
	if err != nil {
		return types.NewPersistenceError(op, types.ErrNetworkFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req, nil)
}

// do sends req and decodes a 2xx body into dest when dest is non-nil.
func (c *Client) do(op string, req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.NewPersistenceError(op, types.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.NewPersistenceError(op, types.ErrRemoteRejected, statusError(resp))
	}
	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return types.NewPersistenceError(op, types.ErrRemoteRejected,
			fmt.Errorf("decoding response (HTTP %d): %w", resp.StatusCode, err))
	}
	return nil
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("HTTP %d", resp.StatusCode)
}
