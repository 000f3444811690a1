package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rajasatyajit/TravelSafe/internal/errors"
	"github.com/rajasatyajit/TravelSafe/internal/upstream"
)

func TestClient_URLFor(t *testing.T) {
	c := New(nil, "https://ipapi.co/%s/json/")

	tests := []struct {
		ip   string
		want string
	}{
		{"8.8.8.8", "https://ipapi.co/8.8.8.8/json/"},
		{"2001:4860:4860::8888", "https://ipapi.co/2001:4860:4860::8888/json/"},
		{"127.0.0.1", "https://ipapi.co/json/"},
		{"::1", "https://ipapi.co/json/"},
		{"10.1.2.3", "https://ipapi.co/json/"},
		{"192.168.0.5", "https://ipapi.co/json/"},
		{"", "https://ipapi.co/json/"},
		{"not-an-ip", "https://ipapi.co/json/"},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.want, c.URLFor(tt.ip))
		})
	}

	query := New(nil, "https://geo.test/lookup?ip=%s")
	assert.Equal(t, "https://geo.test/lookup?ip=", query.URLFor("127.0.0.1"))
}

func TestClient_Lookup(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		switch r.URL.Path {
		case "/203.0.113.9/json/":
			_, _ = w.Write([]byte(`{"ip":"203.0.113.9","city":"Ottawa","region":"Ontario","country_name":"Canada","country_code":"ca","latitude":45.42,"longitude":-75.69,"timezone":"America/Toronto","org":"Example ISP"}`))
		case "/198.51.100.1/json/":
			_, _ = w.Write([]byte(`{"ip":"198.51.100.1","error":true,"reason":"RateLimited"}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	c := New(upstream.New("geo", time.Second, ""), server.URL+"/%s/json/")

	info, err := c.Lookup(context.Background(), "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, "/203.0.113.9/json/", gotPath)
	assert.Equal(t, "Ottawa", info.City)
	assert.Equal(t, "CA", info.CountryCode)
	assert.Equal(t, "Canada", info.CountryName)
	assert.InDelta(t, 45.42, info.Latitude, 0.001)

	_, err = c.Lookup(context.Background(), "198.51.100.1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUpstream))
	assert.Contains(t, err.Error(), "RateLimited")

	_, err = c.Lookup(context.Background(), "127.0.0.1")
	require.Error(t, err)
	assert.Equal(t, "/json/", gotPath)
	var ue *apperrors.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusServiceUnavailable, ue.StatusCode)
}

func TestIsPublicAndClientIP(t *testing.T) {
	assert.True(t, IsPublic("8.8.4.4"))
	assert.False(t, IsPublic("172.16.0.1"))
	assert.False(t, IsPublic("fe80::1"))
	assert.False(t, IsPublic("0.0.0.0"))

	assert.Equal(t, "203.0.113.9", ClientIP("203.0.113.9:53211"))
	assert.Equal(t, "::1", ClientIP("[::1]:8080"))
	assert.Equal(t, "203.0.113.9", ClientIP("203.0.113.9"))
}
