package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apiv1 "covidpulse/pkg/contracts/api/v1"
)

// dashboardClient drives a running dashboard through its HTTP API
type dashboardClient struct {
	baseURL string
	http    *http.Client
}

// stateSummary is the part of the document state the capture needs
type stateSummary struct {
	Revision uint64 `json:"revision"`
	Playing  bool   `json:"playing"`
	Date     string `json:"date"`
}

// patchSummary is the part of a patch the capture needs
type patchSummary struct {
	Revision uint64  `json:"revision"`
	Date     *string `json:"date,omitempty"`
	Playing  *bool   `json:"playing,omitempty"`
}

// problem is an RFC 7807 error body
type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func newDashboardClient(baseURL string, timeout time.Duration) *dashboardClient {
	return &dashboardClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *dashboardClient) Dates(ctx context.Context) ([]string, error) {
	var res apiv1.DatesResponse
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/dates", nil, &res); err != nil {
		return nil, err
	}
	return res.Dates, nil
}

func (c *dashboardClient) State(ctx context.Context) (*stateSummary, error) {
	var res stateSummary
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/state", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Pause stops playback if the dashboard is playing
func (c *dashboardClient) Pause(ctx context.Context) error {
	state, err := c.State(ctx)
	if err != nil {
		return err
	}
	if !state.Playing {
		return nil
	}
	var patch patchSummary
	return c.do(ctx, http.MethodPost, "/api/dashboard/playback/toggle", nil, &patch)
}

func (c *dashboardClient) SetSlider(ctx context.Context, value int) (*patchSummary, error) {
	var patch patchSummary
	if err := c.do(ctx, http.MethodPut, "/api/dashboard/slider", apiv1.SliderRequest{Value: &value}, &patch); err != nil {
		return nil, err
	}
	return &patch, nil
}

func (c *dashboardClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var p problem
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil || p.Detail == "" {
			return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: %d %s: %s", method, path, resp.StatusCode, p.Title, p.Detail)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}
