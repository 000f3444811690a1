package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Advisory is the scored advisory for one country.
type Advisory struct {
	CountryCode string   `json:"countryCode"`
	CountryName string   `json:"countryName"`
	Score       float64  `json:"score"`
	Message     string   `json:"message"`
	Updated     string   `json:"updated"`
	Details     *Details `json:"details,omitempty"`
}

type Details struct {
	Source string `json:"source"`
	URL    string `json:"url"`
}

type IPInfo struct {
	IP          string  `json:"ip"`
	City        string  `json:"city,omitempty"`
	Region      string  `json:"region,omitempty"`
	CountryName string  `json:"country_name,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
	Org         string  `json:"org,omitempty"`
}

type Combined struct {
	IPInfo    *IPInfo  `json:"ipInfo"`
	Advisory  Advisory `json:"advisory"`
	RiskLevel string   `json:"riskLevel"`
}

// Snapshot is a saved history record.
type Snapshot struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	IPInfo    *IPInfo           `json:"ipInfo,omitempty"`
	Advisory  Advisory          `json:"advisory"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

type Usage struct {
	Principal string `json:"principal"`
	LimitRPM  int    `json:"limit_rpm"`
	Usage     struct {
		Period    string         `json:"period"`
		Total     int            `json:"total"`
		Endpoints map[string]int `json:"endpoints"`
	} `json:"usage"`
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string `json:"error"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("travelsafe: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("travelsafe: %d %s", e.StatusCode, e.Code)
}

type Client struct {
	BaseURL string
	APIKey  string
	// Session is the travelsafe_session cookie value; required for history calls.
	Session string
	HTTP    *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:4000"
	}
	return &Client{BaseURL: baseURL, APIKey: apiKey, HTTP: &http.Client{Timeout: 15 * time.Second}}
}

func (c *Client) headers(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	if c.Session != "" {
		req.AddCookie(&http.Cookie{Name: "travelsafe_session", Value: c.Session})
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.headers(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		if apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Advisory returns the scored advisory for a two-letter country code.
func (c *Client) Advisory(ctx context.Context, code string) (*Advisory, error) {
	var out Advisory
	if err := c.do(ctx, http.MethodGet, "/api/advisory/"+url.PathEscape(code), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IPInfo geolocates the calling address.
func (c *Client) IPInfo(ctx context.Context) (*IPInfo, error) {
	var out IPInfo
	if err := c.do(ctx, http.MethodGet, "/api/ipinfo", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Combined geolocates the caller and scores country, or the caller's own
// country when country is empty.
func (c *Client) Combined(ctx context.Context, country string) (*Combined, error) {
	path := "/api/combined"
	if country != "" {
		path += "?country=" + url.QueryEscape(country)
	}
	var out Combined
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History lists the signed-in user's snapshots, newest first. limit <= 0 uses the server default.
func (c *Client) History(ctx context.Context, limit int) ([]Snapshot, error) {
	path := "/api/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Data []Snapshot `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// SaveSnapshot stores an advisory (and optionally the location) in the user's history.
func (c *Client) SaveSnapshot(ctx context.Context, ipInfo *IPInfo, advisory Advisory, meta map[string]string) (*Snapshot, error) {
	body := map[string]any{"ipInfo": ipInfo, "advisory": advisory, "meta": meta}
	var out Snapshot
	if err := c.do(ctx, http.MethodPost, "/api/history", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSnapshot removes one of the user's snapshots.
func (c *Client) DeleteSnapshot(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/history/"+url.PathEscape(id), nil, nil)
}

// Usage returns this month's request counters for the calling key.
func (c *Client) Usage(ctx context.Context) (*Usage, error) {
	var out Usage
	if err := c.do(ctx, http.MethodGet, "/api/usage", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
