package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"tourdesk/internal/auth/service"
	httputil "tourdesk/pkg/http"
	"tourdesk/pkg/logger"
	"tourdesk/pkg/middleware"
	"tourdesk/pkg/model"
	"tourdesk/pkg/token"
)

type AuthHandler struct {
	service      service.AuthService
	verifier     token.Verifier
	loginLimiter *middleware.RateLimiter
	log          *logger.Logger
}

// NewAuthHandler wires the auth routes. loginLimiter throttles login attempts
// per client IP on top of the global limit.
func NewAuthHandler(service service.AuthService, verifier token.Verifier, loginLimiter *middleware.RateLimiter, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service:      service,
		verifier:     verifier,
		loginLimiter: loginLimiter,
		log:          log,
	}
}

func (h *AuthHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var creds model.Credentials
	if err := httputil.DecodeJSON(r, &creds); err != nil {
		h.writeError(w, "Login", err)
		return
	}

	resp, err := h.service.Login(r.Context(), &creds)
	if err != nil {
		h.writeError(w, "Login", err)
		return
	}

	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "Login", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Refresh", err)
		return
	}

	resp, err := h.service.Refresh(r.Context(), req.Refresh)
	if err != nil {
		h.writeError(w, "Refresh", err)
		return
	}

	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "Refresh", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Logout", err)
		return
	}

	if err := h.service.Logout(r.Context(), req.Refresh); err != nil {
		h.writeError(w, "Logout", err)
		return
	}

	httputil.WriteResetContent(w)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, _ := middleware.Claims(r.Context())

	user, err := h.service.Profile(r.Context(), claims.Subject)
	if err != nil {
		h.writeError(w, "Profile", err)
		return
	}

	if err := httputil.WriteSuccess(w, user); err != nil {
		h.log.Error("failed to write success response", "handler", "Profile", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AuthHandler) RegisterRoutes(router *httprouter.Router) {
	limited := middleware.RateLimit(h.loginLimiter)
	router.Handler(http.MethodPost, "/api/auth/login/", limited(adapt(h.Login)))
	router.POST("/api/auth/refresh/", h.Refresh)
	router.POST("/api/auth/logout/", h.Logout)
	router.GET("/api/auth/profile/", middleware.Authenticated(h.verifier, h.log)(h.Profile))
}

func adapt(handle httprouter.Handle) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handle(w, r, httprouter.ParamsFromContext(r.Context()))
	})
}
