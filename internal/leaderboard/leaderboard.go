// Package leaderboard fetches results from the submission service in the
// order the service ranks them.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/verte-zerg/typetest/internal/model"
)

const (
	globalPath  = "/api/leaderboard/global"
	collegePath = "/api/leaderboard/college"
)

// ErrNoCollege is returned when a college board is requested without a name.
var ErrNoCollege = errors.New("college name is required")

// Client reads leaderboards.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for the service at baseURL. A nil httpClient
// uses one with a 10 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Global returns the global board, best first.
func (c *Client) Global(ctx context.Context) ([]model.LeaderboardEntry, error) {
	return c.fetch(ctx, globalPath, nil)
}

// College returns the board for one college, best first.
func (c *Client) College(ctx context.Context, college string) ([]model.LeaderboardEntry, error) {
	college = strings.TrimSpace(college)
	if college == "" {
		return nil, ErrNoCollege
	}
	return c.fetch(ctx, collegePath, url.Values{"college": {college}})
}

func (c *Client) fetch(ctx context.Context, path string, query url.Values) ([]model.LeaderboardEntry, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			_ = cerr
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch leaderboard: %s", resp.Status)
	}

	var entries []model.LeaderboardEntry
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}
	return entries, nil
}

// Rows formats entries for stats.FormatTable.
func Rows(entries []model.LeaderboardEntry, limit int) [][]string {
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			e.Name,
			fmt.Sprintf("%.0f", e.WPM),
			fmt.Sprintf("%.1f%%", e.Accuracy),
		})
	}
	return rows
}

// Headers are the column titles matching Rows.
var Headers = []string{"#", "Name", "WPM", "Acc"}
