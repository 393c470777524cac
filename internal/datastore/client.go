// Package datastore implements the DataStore against a remote JSON REST server.
package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/straye-as/lead-api/internal/domain"
	"go.uber.org/zap"
)

// ErrUnexpectedStatus is returned for any non-2xx response. A 404 on a single
// user or opportunity is reported as domain.NotFoundError instead.
var ErrUnexpectedStatus = errors.New("unexpected response status")

// Config holds the REST server connection settings
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the REST server exposing /users, /opportunities and /activities
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("datastore base URL is required")
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Ping checks that the server answers the users collection
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/users", nil, nil)
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.do(ctx, http.MethodGet, "/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) CreateUser(ctx context.Context, user *domain.User) error {
	return c.do(ctx, http.MethodPost, "/users", user, nil)
}

func (c *Client) UpdateUser(ctx context.Context, user *domain.User) error {
	return c.notFoundAs("user", user.ID, c.do(ctx, http.MethodPatch, userPath(user.ID), user, nil))
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.notFoundAs("user", id, c.do(ctx, http.MethodDelete, userPath(id), nil, nil))
}

func (c *Client) ListOpportunities(ctx context.Context) ([]domain.Opportunity, error) {
	var opps []domain.Opportunity
	if err := c.do(ctx, http.MethodGet, "/opportunities", nil, &opps); err != nil {
		return nil, err
	}
	return opps, nil
}

func (c *Client) CreateOpportunity(ctx context.Context, opp *domain.Opportunity) error {
	return c.do(ctx, http.MethodPost, "/opportunities", opp, nil)
}

func (c *Client) UpdateOpportunity(ctx context.Context, opp *domain.Opportunity) error {
	return c.notFoundAs("opportunity", opp.ID, c.do(ctx, http.MethodPatch, opportunityPath(opp.ID), opp, nil))
}

func (c *Client) DeleteOpportunity(ctx context.Context, id int64) error {
	return c.notFoundAs("opportunity", id, c.do(ctx, http.MethodDelete, opportunityPath(id), nil, nil))
}

func (c *Client) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	var activities []domain.Activity
	if err := c.do(ctx, http.MethodGet, "/activities", nil, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

func (c *Client) CreateActivity(ctx context.Context, activity *domain.Activity) error {
	return c.do(ctx, http.MethodPost, "/activities", activity, nil)
}

// errNotFound marks a 404 until the caller knows which resource was missing.
// Collection endpoints never answer 404, so there it stays an unexpected status.
var errNotFound = fmt.Errorf("%w: not found", ErrUnexpectedStatus)

func (c *Client) notFoundAs(resource string, id int64, err error) error {
	if errors.Is(err, errNotFound) {
		return &domain.NotFoundError{Resource: resource, ID: id}
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Datastore request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s %s returned 404", errNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s returned %d: %s", ErrUnexpectedStatus, method, path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

func userPath(id int64) string {
	return "/users/" + strconv.FormatInt(id, 10)
}

func opportunityPath(id int64) string {
	return "/opportunities/" + strconv.FormatInt(id, 10)
}
