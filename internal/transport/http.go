// SPDX-License-Identifier: Apache-2.0

// Package transport implements the mirror.PostQuery callable against a real
// GraphQL HTTP endpoint. The core (pkg/mirror) treats the network as an
// external collaborator: this is the default implementation a
// shippable CLI needs, the way pgroll's cmd/ package wires a real lib/pq
// connection behind its db.DB interface.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HTTP posts GraphQL queries to a single endpoint with bearer-token auth.
type HTTP struct {
	Endpoint string
	Token    string
	Client   *http.Client
}

// New builds an HTTP transport with a sane default client timeout.
func New(endpoint, token string) *HTTP {
	return &HTTP{
		Endpoint: endpoint,
		Token:    token,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   map[string]any `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// PostQuery implements mirror.PostQuery: posts body as a GraphQL query with
// variables, tagging the request with a fresh request id for server-side
// correlation, and returns the `data` field of the response.
func (h *HTTP) PostQuery(ctx context.Context, body string, variables map[string]any) (map[string]any, error) {
	reqID := uuid.NewString()

	payload, err := json.Marshal(graphqlRequest{Query: body, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encoding graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting graphql request %s: %w", reqID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading graphql response %s: %w", reqID, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graphql request %s: unexpected status %d: %s", reqID, resp.StatusCode, respBody)
	}

	var decoded graphqlResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("decoding graphql response %s: %w", reqID, err)
	}

	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("graphql request %s returned errors: %s", reqID, decoded.Errors[0].Message)
	}

	return decoded.Data, nil
}
