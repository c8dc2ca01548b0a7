package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"

	"tourdesk/pkg/logger"
)

func serve(h *HealthHandler, path string) (*httptest.ResponseRecorder, HealthResponse) {
	router := httprouter.New()
	h.RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp HealthResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	return rec, resp
}

func TestReady(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	h := NewHealthHandler(map[string]Checker{
		"redis": RedisChecker(client),
		"mongo": func(context.Context) error { return errors.New("no primary") },
	}, logger.Discard())

	rec, resp := serve(h, "/ready")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
	if resp.Dependencies["redis"] != "ok" || resp.Dependencies["mongo"] != "error" {
		t.Errorf("dependencies = %v", resp.Dependencies)
	}
}

func TestReady_AllHealthy(t *testing.T) {
	h := NewHealthHandler(map[string]Checker{
		"mongo": func(context.Context) error { return nil },
	}, logger.Discard())

	rec, resp := serve(h, "/ready")
	if rec.Code != http.StatusOK || resp.Status != "ready" {
		t.Errorf("status = %d, body = %+v", rec.Code, resp)
	}
}

func TestHealth(t *testing.T) {
	rec, resp := serve(NewHealthHandler(nil, logger.Discard()), "/health")
	if rec.Code != http.StatusOK || resp.Status != "ok" {
		t.Errorf("status = %d, body = %+v", rec.Code, resp)
	}
}
