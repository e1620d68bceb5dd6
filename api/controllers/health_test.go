package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/angelmondragon/alexandria-backend/pkg/config"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	rec := serve(t, http.MethodGet, "/health/live", "/health/live", nil, HealthLive(cfg))
	if rec.Code != http.StatusOK || rec.Header().Get(envHeader) != "dev" {
		t.Fatalf("unexpected live response %d %q", rec.Code, rec.Header().Get(envHeader))
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := serve(t, http.MethodGet, "/health/ready", "/health/ready", nil, HealthReady(cfg, map[string]Pinger{"db": ok, "redis": ok}, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected ready, got %d", rec.Code)
	}

	rec = serve(t, http.MethodGet, "/health/ready", "/health/ready", nil, HealthReady(cfg, map[string]Pinger{"db": ok, "redis": down}, nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when redis is down, got %d", rec.Code)
	}
}
