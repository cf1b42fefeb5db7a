// Package odoo talks to an Odoo instance over its JSON-RPC endpoint.
package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

var ErrAuthenticationFailed = errors.New("odoo authentication failed, check the configured credentials")

const defaultLoginAttempts = 5

type Client struct {
	config     Config
	httpClient *http.Client

	uid       int64
	requestID atomic.Int64

	loginAttempts uint64
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLoginAttempts bounds how many times a failing login transport is retried
func WithLoginAttempts(attempts uint64) ClientOption {
	return func(c *Client) {
		c.loginAttempts = attempts
	}
}

// NewClient authenticates against Odoo before returning. A client is never handed out
// without a session, a failed login is returned as an error and should be treated as fatal.
func NewClient(ctx context.Context, config Config, opts ...ClientOption) (*Client, error) {
	client := &Client{
		config:        config,
		httpClient:    &http.Client{Timeout: config.Timeout},
		loginAttempts: defaultLoginAttempts,
	}

	for _, opt := range opts {
		opt(client)
	}
	if client.loginAttempts < 1 {
		client.loginAttempts = 1
	}

	retryBackoff := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), client.loginAttempts-1),
		ctx,
	)

	err := backoff.RetryNotify(func() error {
		err := client.authenticate(ctx)
		if errors.Is(err, ErrAuthenticationFailed) {
			return backoff.Permanent(err)
		}
		return err
	}, retryBackoff, func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("retry", wait.String()).Msg("Odoo login failed, retrying")
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", config.URL).Str("db", config.DB).Int64("uid", client.uid).Msg("Authenticated with Odoo")

	return client, nil
}

func (c *Client) UID() int64 {
	return c.uid
}

func (c *Client) authenticate(ctx context.Context) error {
	var result json.RawMessage
	err := c.call(ctx, "common", "login", []any{c.config.DB, c.config.Username, c.config.Password}, &result)
	if err != nil {
		return err
	}

	// Odoo answers false on bad credentials
	var uid int64
	if err := json.Unmarshal(result, &uid); err != nil || uid == 0 {
		return ErrAuthenticationFailed
	}

	c.uid = uid

	return nil
}

// ExecuteKW runs a model method through object.execute_kw and decodes its result into result
func (c *Client) ExecuteKW(ctx context.Context, model string, method string, args []any, kwargs map[string]any, result any) error {
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	return c.call(ctx, "object", "execute_kw", []any{
		c.config.DB, c.uid, c.config.Password, model, method, args, kwargs,
	}, result)
}

// Search returns the ids of model records matching domain
func (c *Client) Search(ctx context.Context, model string, domain []any) ([]int64, error) {
	if domain == nil {
		domain = []any{}
	}

	var ids []int64
	if err := c.ExecuteKW(ctx, model, "search", []any{domain}, nil, &ids); err != nil {
		return nil, err
	}

	return ids, nil
}

// Read fetches fields of the given records into result, which should be a pointer to a slice
func (c *Client) Read(ctx context.Context, model string, ids []int64, fields []string, result any) error {
	return c.ExecuteKW(ctx, model, "read", []any{ids}, map[string]any{"fields": fields}, result)
}

func (c *Client) call(ctx context.Context, service string, method string, args []any, result any) error {
	request := rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params: rpcParams{
			Service: service,
			Method:  method,
			Args:    args,
		},
		ID: c.requestID.Add(1),
	}

	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("encode %s.%s request: %w", service, method, err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", service, method, err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		io.Copy(io.Discard, httpResponse.Body)
		return fmt.Errorf("%s.%s: unexpected HTTP status %s", service, method, httpResponse.Status)
	}

	var response rpcResponse
	if err := json.NewDecoder(httpResponse.Body).Decode(&response); err != nil {
		return fmt.Errorf("decode %s.%s response: %w", service, method, err)
	}

	if response.Error != nil {
		return response.Error
	}

	if result == nil {
		return nil
	}

	if err := json.Unmarshal(response.Result, result); err != nil {
		return fmt.Errorf("decode %s.%s result: %w", service, method, err)
	}

	return nil
}
