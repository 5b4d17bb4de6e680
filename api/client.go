package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL     = "https://api.courtmap.app/v1"
	defaultGeocodeURL  = "https://nominatim.openstreetmap.org/search"
	defaultUserAgent   = "courtmap/0.1 (+https://courtmap.app)"
	defaultHTTPTimeout = 15 * time.Second
)

type Client struct {
	HTTP       *http.Client
	BaseURL    string
	GeocodeURL string
	UserAgent  string
	APIKey     string
}

func NewClient() *Client {
	return &Client{
		HTTP:       &http.Client{Timeout: defaultHTTPTimeout},
		BaseURL:    DefaultBaseURL,
		GeocodeURL: defaultGeocodeURL,
		UserAgent:  defaultUserAgent,
	}
}

// GetNearby fetches the venues within q.RadiusMiles of (q.Lat, q.Lng).
func (c *Client) GetNearby(ctx context.Context, q NearbyQuery) (NearbyResponse, error) {
	const op = "nearby"

	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(q.Lat, 'f', 6, 64))
	query.Set("lng", strconv.FormatFloat(q.Lng, 'f', 6, 64))
	query.Set("radius", strconv.FormatFloat(q.RadiusMiles, 'f', -1, 64))

	req, err := c.newRequest(ctx, c.BaseURL, http.MethodGet, "/locations/nearby", query)
	if err != nil {
		return NearbyResponse{}, err
	}

	var resp NearbyResponse
	if err := c.doJSON(op, req, &resp); err != nil {
		return NearbyResponse{}, err
	}
	if !resp.OK {
		reason := strings.TrimSpace(resp.Error)
		if reason == "" {
			reason = "ok is false"
		}
		return NearbyResponse{}, &InvalidResponseError{Op: op, Reason: reason}
	}
	if resp.Locations == nil {
		return NearbyResponse{}, &InvalidResponseError{Op: op, Reason: "missing locations"}
	}
	return resp, nil
}

// Geocode resolves a free-text place name to a coordinate using Nominatim.
func (c *Client) Geocode(ctx context.Context, query string) (float64, float64, error) {
	const op = "geocode"

	endpoint := c.GeocodeURL
	if endpoint == "" {
		endpoint = defaultGeocodeURL
	}
	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := c.doJSON(op, req, &results); err != nil {
		return 0, 0, err
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("no results for %q", query)
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, &InvalidResponseError{Op: op, Reason: "bad latitude", Err: err}
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, &InvalidResponseError{Op: op, Reason: "bad longitude", Err: err}
	}
	return lat, lon, nil
}

func (c *Client) newRequest(ctx context.Context, baseURL, method, path string, query url.Values) (*http.Request, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	path = strings.TrimPrefix(path, "/")
	base.Path = strings.TrimSuffix(base.Path, "/") + "/" + path
	if query != nil {
		base.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, base.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	return req, nil
}

func (c *Client) doJSON(op string, req *http.Request, dest any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return classifyTransport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &InvalidResponseError{Op: op, Status: resp.StatusCode, Reason: strings.TrimSpace(string(body))}
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return classifyTransport(op, ctxErr)
		}
		return &InvalidResponseError{Op: op, Status: resp.StatusCode, Reason: "decode body", Err: err}
	}
	return nil
}
