package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	apperrors "tourdesk/pkg/errors"
	httputil "tourdesk/pkg/http"
	"tourdesk/pkg/logger"
	"tourdesk/pkg/token"
)

const claimsKey contextKey = "claims"

// Claims returns the verified access token claims of the request, if any.
func Claims(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*token.Claims)
	return claims, ok
}

func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(raw)
}

// Authenticated rejects requests without a valid access token with 401.
// The 401 is what tells clients to refresh.
func Authenticated(verifier token.Verifier, log *logger.Logger) func(httprouter.Handle) httprouter.Handle {
	return func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			raw := BearerToken(r)
			if raw == "" {
				_ = httputil.WriteError(w, apperrors.Unauthorized("Authentication credentials were not provided"))
				return
			}

			claims, err := verifier.Verify(raw, token.TypeAccess)
			if err != nil {
				message := "Token is invalid"
				if errors.Is(err, token.ErrExpired) {
					message = "Token is expired"
				}
				log.Debug("Access token rejected", "request_id", RequestID(r.Context()), "error", err)
				_ = httputil.WriteError(w, apperrors.Unauthorized(message))
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)), ps)
		}
	}
}

// RequireStaff is Authenticated plus a staff or admin role check.
func RequireStaff(verifier token.Verifier, log *logger.Logger) func(httprouter.Handle) httprouter.Handle {
	authenticated := Authenticated(verifier, log)
	return func(next httprouter.Handle) httprouter.Handle {
		return authenticated(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			claims, _ := Claims(r.Context())
			if !claims.CanManageBookings() {
				log.Warn("Non-staff user denied", "request_id", RequestID(r.Context()), "username", claims.Username)
				_ = httputil.WriteError(w, apperrors.Forbidden("Staff access required"))
				return
			}
			next(w, r, ps)
		})
	}
}
