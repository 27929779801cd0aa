/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package photos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gallerybuilder/internal/layout"
)

// Client talks to the photo upload API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new API client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SetTimeout changes the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) { c.client.Timeout = d }

// Image is one uploaded image as the API reports it.
type Image struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Width      float64   `json:"width,omitempty"`
	Height     float64   `json:"height,omitempty"`
	ArweaveTx  string    `json:"arweaveTxId,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// UploadResponse is the reply to an upload.
type UploadResponse struct {
	Success bool   `json:"success"`
	Image   *Image `json:"image,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (c *Client) do(req *http.Request, dest any) error {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)
		if body.Error != "" {
			return fmt.Errorf("server %s %s: %s: %s", req.Method, req.URL.Path, resp.Status, body.Error)
		}
		return fmt.Errorf("server %s %s: %s", req.Method, req.URL.Path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

func (c *Client) endpoint(path string) (string, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// ListImages returns the uploaded images.
func (c *Client) ListImages(ctx context.Context) ([]Image, error) {
	u, err := c.endpoint("/images")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var list []Image
	if err := c.do(req, &list); err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return list, nil
}

// Photos implements Provider. Images without a URL are skipped; a missing
// title leaves the caption empty.
func (c *Client) Photos(ctx context.Context) ([]layout.PhotoItem, error) {
	imgs, err := c.ListImages(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]layout.PhotoItem, 0, len(imgs))
	for _, im := range imgs {
		if im.URL == "" {
			continue
		}
		out = append(out, layout.PhotoItem{ID: im.ID, Src: im.URL, Width: im.Width, Height: im.Height, Caption: im.Title})
	}
	return out, nil
}

// Upload sends one image as multipart form field "image".
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*Image, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	u, err := c.endpoint("/upload-images")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var res UploadResponse
	if err := c.do(req, &res); err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	if !res.Success || res.Image == nil {
		return nil, fmt.Errorf("upload %s: %s", filename, res.Error)
	}
	return res.Image, nil
}
