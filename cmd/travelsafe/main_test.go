package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rajasatyajit/TravelSafe/config"
	"github.com/rajasatyajit/TravelSafe/internal/api"
	"github.com/rajasatyajit/TravelSafe/internal/logger"
	"github.com/rajasatyajit/TravelSafe/internal/store"
)

// getFreePort returns an available TCP port
func getFreePort(t *testing.T) int {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServe_MetricsServerShutsDown(t *testing.T) {
	logger.Init("error", "text")
	port := getFreePort(t)
	srv := newMetricsServer(port, "/metrics")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, time.Second) }()

	url := fmt.Sprintf("http://localhost:%d/metrics", port)
	deadline := time.Now().Add(3 * time.Second)
	var lastErr error
	reached := false
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			// NoOp handler returns 404 Not Found
			if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusOK {
				reached = true
				break
			}
		}
		lastErr = err
		time.Sleep(100 * time.Millisecond)
	}
	if !reached {
		t.Fatalf("metrics server not reachable: %v", lastErr)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestRouter_GlobalMiddleware(t *testing.T) {
	logger.Init("error", "text")
	cfg := &config.Config{
		Server: config.ServerConfig{ReadTimeout: 5 * time.Second},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"https://app.example.com"}},
	}
	h := api.NewHandler(api.Deps{Config: cfg, Store: store.NewInMemoryStore()}, api.BuildInfo{Version: "test"})
	r := newRouter(cfg, h)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("Expected security headers")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Error("Expected CORS origin to be echoed")
	}
}
