// Package client is the agent's HTTP client for the central bell server.
// Every call degrades cleanly: the sync layer treats any error here as
// "remote unreachable" and falls back to local tiers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/belfry-systems/belfry/internal/model"
)

// Client talks to the server's /api endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for a server base URL such as "http://bellhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type mutationResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	ID      int    `json:"id"`
}

// FetchSchedules retrieves the full schedule set.
func (c *Client) FetchSchedules(ctx context.Context) ([]model.Schedule, error) {
	var out []model.Schedule
	if err := c.getJSON(ctx, "/api/schedules", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSchedule pushes a new schedule to the server and returns its id.
func (c *Client) CreateSchedule(ctx context.Context, s model.Schedule) (int, error) {
	var resp mutationResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/api/schedules", s, &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, fmt.Errorf("server rejected schedule: %s", resp.Error)
	}
	return resp.ID, nil
}

// UpdateSchedule replaces the schedule with the given id.
func (c *Client) UpdateSchedule(ctx context.Context, id int, s model.Schedule) error {
	var resp mutationResponse
	if err := c.sendJSON(ctx, http.MethodPut, "/api/schedules/"+strconv.Itoa(id), s, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("server rejected update: %s", resp.Error)
	}
	return nil
}

// DeleteSchedule removes the schedule with the given id.
func (c *Client) DeleteSchedule(ctx context.Context, id int) error {
	var resp mutationResponse
	if err := c.sendJSON(ctx, http.MethodDelete, "/api/schedules/"+strconv.Itoa(id), nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("server rejected delete: %s", resp.Error)
	}
	return nil
}

// ToggleSchedule flips is_active on the server side.
func (c *Client) ToggleSchedule(ctx context.Context, id int) error {
	var resp mutationResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/api/schedules/"+strconv.Itoa(id)+"/toggle", nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("server rejected toggle: %s", resp.Error)
	}
	return nil
}

// FetchStatus retrieves the server's view of global state (holiday mode,
// volume, whether its own player is busy).
func (c *Client) FetchStatus(ctx context.Context) (*model.Status, error) {
	var out model.Status
	if err := c.getJSON(ctx, "/api/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PushLog forwards one play log entry. Callers treat failures as
// fire-and-forget; the local ring buffer already has the entry.
func (c *Client) PushLog(ctx context.Context, entry model.PlayLogEntry) error {
	var resp mutationResponse
	return c.sendJSON(ctx, http.MethodPost, "/api/logs", entry, &resp)
}

// FetchLogs retrieves the newest n log entries from the server.
func (c *Client) FetchLogs(ctx context.Context, n int) ([]model.PlayLogEntry, error) {
	var out []model.PlayLogEntry
	path := "/api/logs?" + url.Values{"limit": {strconv.Itoa(n)}}.Encode()
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAudio retrieves the server's audio file registry.
func (c *Client) ListAudio(ctx context.Context) ([]model.AudioFile, error) {
	var out []model.AudioFile
	if err := c.getJSON(ctx, "/api/audio", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchAudio downloads the raw bytes of one audio file.
func (c *Client) FetchAudio(ctx context.Context, filename string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/static/audio/"+url.PathEscape(filename), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch audio %q: %w", filename, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch audio %q: status %d", filename, res.StatusCode)
	}
	return io.ReadAll(res.Body)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		log.Debug().Str("path", path).Int("status", res.StatusCode).Msg("server rejected request")
		return fmt.Errorf("%s %s: status %d: %s", method, path, res.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
