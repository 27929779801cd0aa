/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in, anonymous usage events and crash reports.
// Nothing is sent unless the user opted in and an endpoint is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	applog "gallerybuilder/internal/log"
	"gallerybuilder/internal/version"
)

// Event names emitted by the application.
const (
	LayoutSaved     = "layout_saved"
	LayoutDeleted   = "layout_deleted"
	GalleryRendered = "gallery_rendered"
	ExportFinished  = "export_finished"
)

const queueSize = 64

// Config controls the sender. FromEnv reads GB_TELEMETRY_OPT_IN,
// GB_TELEMETRY_URL, GB_CRASH_UPLOAD_URL, GB_TELEMETRY_TIMEOUT_MS and
// GB_TELEMETRY_DEBUG.
type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
	Debug     bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:     parseBool(os.Getenv("GB_TELEMETRY_OPT_IN")),
		EventsURL: strings.TrimSpace(os.Getenv("GB_TELEMETRY_URL")),
		CrashURL:  strings.TrimSpace(os.Getenv("GB_CRASH_UPLOAD_URL")),
		Timeout:   1500 * time.Millisecond,
		Debug:     os.Getenv("GB_TELEMETRY_DEBUG") != "",
	}
	if ms, err := strconv.Atoi(strings.TrimSpace(os.Getenv("GB_TELEMETRY_TIMEOUT_MS"))); err == nil && ms > 0 {
		cfg.Timeout = time.Duration(ms) * time.Millisecond
	}
	return cfg
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

type record struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client queues events and posts them from one background goroutine.
// A full queue drops events; callers never block.
type Client struct {
	cfg     Config
	log     *slog.Logger
	hc      *http.Client
	q       chan record
	pending atomic.Int64
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:  cfg,
		log:  applog.WithComponent("telemetry"),
		hc:   &http.Client{Timeout: cfg.Timeout},
		q:    make(chan record, queueSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go c.run()
	return c
}

// Enabled reports whether events will be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event enqueues a named event. props must not carry personal data.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	r := record{
		Name:    name,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
	if len(props) > 0 {
		r.Props = make(map[string]any, len(props))
		for k, v := range props {
			r.Props[k] = v
		}
	}
	c.pending.Add(1)
	select {
	case c.q <- r:
	default:
		c.pending.Add(-1)
		if c.cfg.Debug {
			c.log.Debug("telemetry queue full, event dropped", slog.String("event", name))
		}
	}
}

// Flush waits until queued events are sent or ctx is done.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for c.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-t.C:
		}
	}
}

// Close stops the sender. Queued events not yet sent are discarded.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Client) run() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		case r := <-c.q:
			c.post(c.cfg.EventsURL, "application/json", mustJSON(r))
			c.pending.Add(-1)
		}
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// props held something unencodable; send the envelope only
		if r, ok := v.(record); ok {
			r.Props = nil
			b, _ = json.Marshal(r)
		}
	}
	return b
}

func (c *Client) post(url, contentType string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.hc.Do(req)
	if err != nil {
		if c.cfg.Debug {
			c.log.Debug("telemetry post failed", slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.Debug {
		c.log.Debug("telemetry posted", slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts a crash report in the background when opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	b := append([]byte(nil), report...)
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", b)
}

var (
	defMu     sync.Mutex
	defClient *Client
)

func def() *Client {
	defMu.Lock()
	defer defMu.Unlock()
	if defClient == nil {
		defClient = New(FromEnv())
	}
	return defClient
}

// Install replaces the package default client, closing the previous one.
func Install(cfg Config) *Client {
	c := New(cfg)
	defMu.Lock()
	prev := defClient
	defClient = c
	defMu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return c
}

// Enabled reports whether the default client sends events.
func Enabled() bool { return def().Enabled() }

// Event enqueues an event on the default client.
func Event(name string, props map[string]any) { def().Event(name, props) }

// UploadCrash uploads through the default client.
func UploadCrash(report []byte) { def().UploadCrash(report) }

// Flush drains the default client.
func Flush(ctx context.Context) { def().Flush(ctx) }
