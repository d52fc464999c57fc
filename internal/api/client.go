// Package api is the HTTP client for the feed backend. Every request goes
// through a single wrapper that attaches the bearer token and classifies
// the outcome, so the 401 session-expiry policy exists in exactly one place.
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

	"social-feed-app/internal/session"

	"github.com/rs/zerolog/log"
)

const genericConnectMessage = "Could not connect to the server"

// Client performs requests against the feed API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Store
	onAuthLost func()
}

// New creates a client. onAuthLost is invoked whenever an operation needs
// authentication and none is available, or the server rejects the token;
// the UI wires it to navigation into the login flow.
func New(baseURL string, timeout time.Duration, sess *session.Store, onAuthLost func()) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		session:    sess,
		onAuthLost: onAuthLost,
	}
}

// detailPayload is the error body shape the server produces on non-2xx.
type detailPayload struct {
	Detail string `json:"detail"`
}

// do issues one request and classifies the outcome. authed requests fail
// with KindUnauthenticated before any network traffic when no token is
// stored. A 401 clears the session before returning KindUnauthorized.
func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		token, ok := c.session.Token()
		if !ok {
			c.authLost()
			return &Error{Kind: KindUnauthenticated, Message: "Not signed in"}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.send(req, authed, out)
}

// send executes a prepared request. Split out so multipart uploads share
// the classification logic.
func (c *Client) send(req *http.Request, authed bool, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("path", req.URL.Path).Msg("Request transport failure")
		return &Error{Kind: KindNetwork, Message: genericConnectMessage, cause: err}
	}
	defer resp.Body.Close()

	// A 401 means session expiry only when the request carried a token.
	// On unauthenticated requests (login) it is a plain rejection and
	// falls through to the domain-error path with its detail intact.
	if resp.StatusCode == http.StatusUnauthorized && authed {
		c.session.Clear()
		c.authLost()
		return &Error{Kind: KindUnauthorized, Message: "Session expired", Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: genericConnectMessage, cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload detailPayload
		message := fmt.Sprintf("Request failed (%d)", resp.StatusCode)
		if json.Unmarshal(data, &payload) == nil && payload.Detail != "" {
			message = payload.Detail
		}
		return &Error{Kind: KindDomain, Message: message, Status: resp.StatusCode}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) authLost() {
	if c.onAuthLost != nil {
		c.onAuthLost()
	}
}
