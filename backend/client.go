// ABOUTME: HTTP client for the live backup server's management API
// ABOUTME: Implements the bridge capability interfaces consumed by the router
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/backhaul/bridge"
	"github.com/harperreed/backhaul/models"
)

const (
	defaultUserAgent = "backhaul/0.1"
	requestTimeout   = 5 * time.Second
)

// Client talks to the backup server's HTTP API. It is context-aware, so
// routers should register it with bridge.CallAsync.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

// The router consumes the client through these capability interfaces.
var (
	_ bridge.ClientOps = (*Client)(nil)
	_ bridge.FileOps   = (*Client)(nil)
	_ bridge.StatusOps = (*Client)(nil)
)

// New builds a client for the given host:port or URL.
func New(addr string) (*Client, error) {
	base, err := parseBaseURL(addr)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// Bridge returns the client packaged as a router backend.
func (c *Client) Bridge() *bridge.Backend {
	return &bridge.Backend{
		Clients: c,
		Files:   c,
		Status:  c,
		Kind:    bridge.CallAsync,
	}
}

// ListClients retrieves all registered clients.
func (c *Client) ListClients(ctx context.Context) ([]models.Client, error) {
	var out []models.Client
	if err := c.do(ctx, http.MethodGet, &url.URL{Path: "/api/clients"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetClient retrieves one client.
func (c *Client) GetClient(ctx context.Context, id uuid.UUID) (models.Client, error) {
	var out models.Client
	rel := &url.URL{Path: "/api/clients/" + id.String()}
	if err := c.do(ctx, http.MethodGet, rel, &out); err != nil {
		return models.Client{}, err
	}
	return out, nil
}

// DisconnectClient asks the server to drop a client's connection.
func (c *Client) DisconnectClient(ctx context.Context, id uuid.UUID) (models.Client, error) {
	var out models.Client
	rel := &url.URL{Path: "/api/clients/" + id.String() + "/disconnect"}
	if err := c.do(ctx, http.MethodPost, rel, &out); err != nil {
		return models.Client{}, err
	}
	return out, nil
}

// DeleteClient removes a client and its data from the server.
func (c *Client) DeleteClient(ctx context.Context, id uuid.UUID) error {
	rel := &url.URL{Path: "/api/clients/" + id.String()}
	return c.do(ctx, http.MethodDelete, rel, nil)
}

// ListFiles retrieves files, optionally for a single client.
func (c *Client) ListFiles(ctx context.Context, clientID *uuid.UUID) ([]models.File, error) {
	rel := &url.URL{Path: "/api/files"}
	if clientID != nil {
		values := url.Values{}
		values.Set("client", clientID.String())
		rel.RawQuery = values.Encode()
	}
	var out []models.File
	if err := c.do(ctx, http.MethodGet, rel, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteFile removes one backed-up file.
func (c *Client) DeleteFile(ctx context.Context, id uuid.UUID) error {
	rel := &url.URL{Path: "/api/files/" + id.String()}
	return c.do(ctx, http.MethodDelete, rel, nil)
}

// VerifyFile asks the server to verify a file's integrity.
func (c *Client) VerifyFile(ctx context.Context, id uuid.UUID) (models.File, error) {
	var out models.File
	rel := &url.URL{Path: "/api/files/" + id.String() + "/verify"}
	if err := c.do(ctx, http.MethodPost, rel, &out); err != nil {
		return models.File{}, err
	}
	return out, nil
}

// RecordBackup registers a backup run of fileDelta files for a client.
func (c *Client) RecordBackup(ctx context.Context, clientID uuid.UUID, fileDelta int) (models.BackupOperation, error) {
	values := url.Values{}
	values.Set("files", strconv.Itoa(fileDelta))
	rel := &url.URL{Path: "/api/clients/" + clientID.String() + "/backups", RawQuery: values.Encode()}

	var out models.BackupOperation
	if err := c.do(ctx, http.MethodPost, rel, &out); err != nil {
		return models.BackupOperation{}, err
	}
	return out, nil
}

// ListOperations retrieves backup history, optionally for a single client.
func (c *Client) ListOperations(ctx context.Context, clientID *uuid.UUID) ([]models.BackupOperation, error) {
	rel := &url.URL{Path: "/api/operations"}
	if clientID != nil {
		values := url.Values{}
		values.Set("client", clientID.String())
		rel.RawQuery = values.Encode()
	}
	var out []models.BackupOperation
	if err := c.do(ctx, http.MethodGet, rel, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ServerStatus retrieves the server summary.
func (c *Client) ServerStatus(ctx context.Context) (models.ServerStatus, error) {
	var out models.ServerStatus
	if err := c.do(ctx, http.MethodGet, &url.URL{Path: "/api/status"}, &out); err != nil {
		return models.ServerStatus{}, err
	}
	return out, nil
}

// apiEnvelope matches servers that wrap payloads in the success/data/error
// shape. A nil Success means the body is a bare payload instead.
type apiEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) do(ctx context.Context, method string, rel *url.URL, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Servers may answer bare payloads or the enveloped shape; accept both.
	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Success != nil {
		if !*env.Success {
			if env.Error == "" {
				env.Error = "request failed"
			}
			return fmt.Errorf("api %s: %s", rel.Path, env.Error)
		}
		if dest == nil {
			return nil
		}
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
		return nil
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(addr string) (*url.URL, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return nil, fmt.Errorf("backend address is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse backend address %q: %w", addr, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
