package geo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	apperrors "github.com/rajasatyajit/TravelSafe/internal/errors"
	"github.com/rajasatyajit/TravelSafe/internal/models"
)

// JSONGetter decodes the JSON document at url into v.
type JSONGetter interface {
	GetJSON(ctx context.Context, url string, v any) error
}

// Client resolves client IP addresses to locations.
type Client struct {
	getter      JSONGetter
	urlTemplate string
}

// New creates a client. urlTemplate carries one %s for the address.
func New(getter JSONGetter, urlTemplate string) *Client {
	return &Client{getter: getter, urlTemplate: urlTemplate}
}

type lookupResponse struct {
	models.IPInfo
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Lookup geolocates ip. Loopback, private and unparsable addresses resolve
// the server's own public address instead.
func (c *Client) Lookup(ctx context.Context, ip string) (models.IPInfo, error) {
	url := c.URLFor(ip)

	var resp lookupResponse
	if err := c.getter.GetJSON(ctx, url, &resp); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.IPInfo{}, &apperrors.UpstreamError{Source: "geo", URL: url, StatusCode: 404, Err: err}
		}
		return models.IPInfo{}, err
	}
	if resp.Error {
		reason := resp.Reason
		if reason == "" {
			reason = "lookup rejected"
		}
		return models.IPInfo{}, &apperrors.UpstreamError{Source: "geo", URL: url, Err: errors.New(reason)}
	}

	info := resp.IPInfo
	info.CountryCode = strings.ToUpper(info.CountryCode)
	return info, nil
}

// URLFor builds the lookup URL, dropping the address segment for
// addresses the geolocation service cannot see.
func (c *Client) URLFor(ip string) string {
	if !IsPublic(ip) {
		if strings.Contains(c.urlTemplate, "%s/") {
			return strings.Replace(c.urlTemplate, "%s/", "", 1)
		}
		return fmt.Sprintf(c.urlTemplate, "")
	}
	return fmt.Sprintf(c.urlTemplate, ip)
}

// IsPublic reports whether ip is a routable unicast address.
func IsPublic(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	return !(parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() ||
		parsed.IsLinkLocalUnicast() || parsed.IsLinkLocalMulticast() || parsed.IsMulticast())
}

// ClientIP extracts the host from a RemoteAddr style value.
func ClientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
