/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gojournal/internal/domain"
)

// beaconTimeout bounds the fire-and-forget teardown delivery; the caller
// never waits on it.
const beaconTimeout = 2 * time.Second

// Client is the HTTP client for the document backend API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a backend client. baseURL may include a trailing slash;
// it will be normalized.
func NewClient(baseURL string, token string) *Client {
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL: b,
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusConflict {
		var cr ConflictResponse
		if derr := json.NewDecoder(resp.Body).Decode(&cr); derr != nil {
			return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
		}
		return &ConflictError{ServerVersion: cr.ServerVersion, ClientVersion: cr.ClientVersion}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// LoadDocument fetches a document by id and hydrates the aggregate.
func (c *Client) LoadDocument(ctx context.Context, id string) (domain.Document, error) {
	var env DocumentEnvelope
	path := fmt.Sprintf("/api/documents/%s", url.PathEscape(id))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &env); err != nil {
		return domain.Document{}, err
	}
	return env.ToDocument(), nil
}

// SaveDocument transmits a save with the client's version expectation and
// returns the server's new version. A rejected expectation surfaces as a
// *ConflictError.
func (c *Client) SaveDocument(ctx context.Context, id string, req SaveRequest) (int64, error) {
	var resp SaveResponse
	path := fmt.Sprintf("/api/documents/%s", url.PathEscape(id))
	if err := c.doJSON(ctx, http.MethodPut, path, req, &resp); err != nil {
		return 0, err
	}
	return resp.Version, nil
}

// SendBeacon delivers a save payload fire-and-forget for session teardown.
// It returns as soon as the request is handed off; the execution context may
// be torn down right after the call, so no response is awaited.
func (c *Client) SendBeacon(id string, req SaveRequest) {
	buf, err := json.Marshal(req)
	if err != nil {
		return
	}
	target := fmt.Sprintf("%s/api/documents/%s/beacon", c.BaseURL, url.PathEscape(id))
	token := c.Token
	go func() {
		hreq, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(buf))
		if err != nil {
			return
		}
		hreq.Header.Set("Content-Type", "application/json")
		if token != "" {
			hreq.Header.Set("Authorization", "Bearer "+token)
		}
		cli := &http.Client{Timeout: beaconTimeout}
		resp, err := cli.Do(hreq)
		if err != nil {
			return
		}
		_ = resp.Body.Close()
	}()
}
