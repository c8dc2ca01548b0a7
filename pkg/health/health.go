package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	httputil "tourdesk/pkg/http"
	"tourdesk/pkg/logger"
)

const checkTimeout = 2 * time.Second

// Checker reports whether one dependency is reachable.
type Checker func(ctx context.Context) error

func MongoChecker(client *mongo.Client) Checker {
	return func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	}
}

func RedisChecker(client *redis.Client) Checker {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

type HealthHandler struct {
	checkers map[string]Checker
	log      *logger.Logger
}

func NewHealthHandler(checkers map[string]Checker, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		log:      log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	response := HealthResponse{Status: "ready", Dependencies: map[string]string{}}
	for _, name := range names {
		if err := h.checkers[name](ctx); err != nil {
			h.log.Error("Dependency health check failed", "dependency", name, "error", err)
			response.Dependencies[name] = "error"
			response.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Dependencies[name] = "ok"
	}

	if err := httputil.WriteJSON(w, status, response); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
