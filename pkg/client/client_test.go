package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tourdesk/pkg/errors"
	"tourdesk/pkg/model"
)

type fakeAuthorizer struct {
	token      string
	refreshed  string
	refreshErr error
	refreshes  int32
}

func (f *fakeAuthorizer) Token(context.Context) (string, error) {
	return f.token, nil
}

func (f *fakeAuthorizer) ForceRefresh(_ context.Context, stale string) (string, error) {
	atomic.AddInt32(&f.refreshes, 1)
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	f.token = f.refreshed
	return f.refreshed, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestDo_RetriesOnceAfterRefresh(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "UNAUTHORIZED", "error": "Token is expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": model.BookingStats{Total: 4}})
	}))
	defer srv.Close()

	auth := &fakeAuthorizer{token: "stale", refreshed: "fresh"}
	bookings := NewBookingClient(NewHttpClient(srv.URL, 0).WithAuthorizer(auth))

	stats, err := bookings.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&auth.refreshes))
}

func TestDo_SecondFailurePropagatesUnchanged(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "UNAUTHORIZED", "error": "Token is invalid"})
	}))
	defer srv.Close()

	auth := &fakeAuthorizer{token: "stale", refreshed: "also-bad"}
	bookings := NewBookingClient(NewHttpClient(srv.URL, 0).WithAuthorizer(auth))

	_, err := bookings.Stats(context.Background())
	require.Error(t, err)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeServer, appErr.Code)
	assert.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&auth.refreshes))
}

func TestDo_RefreshFailureStopsRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token is expired"})
	}))
	defer srv.Close()

	expired := apperrors.AuthExpired("session expired", nil)
	auth := &fakeAuthorizer{token: "stale", refreshErr: expired}
	bookings := NewBookingClient(NewHttpClient(srv.URL, 0).WithAuthorizer(auth))

	err := bookings.Delete(context.Background(), "42")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAuthExpired))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_ErrorKinds(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       any
		wantCode   string
		wantMsg    string
		wantDetail string
	}{
		{"not found", http.StatusNotFound, map[string]any{"code": "NOT_FOUND", "error": "Booking not found"}, apperrors.CodeNotFound, "Booking not found", ""},
		{"validation", http.StatusUnprocessableEntity, map[string]any{"code": "VALIDATION_ERROR", "error": "Invalid confirmation details", "details": map[string]any{"confirmed_date": "required"}}, apperrors.CodeValidation, "Invalid confirmation details", "confirmed_date"},
		{"conflict", http.StatusConflict, map[string]any{"code": "CONFLICT", "error": "cancelled"}, apperrors.CodeServer, "cancelled", ""},
		{"no body", http.StatusBadGateway, nil, apperrors.CodeServer, "Bad Gateway", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.body == nil {
					w.WriteHeader(tt.status)
					return
				}
				writeJSON(w, tt.status, tt.body)
			}))
			defer srv.Close()

			bookings := NewBookingClient(NewHttpClient(srv.URL, 0))
			_, err := bookings.Confirm(context.Background(), "42", &model.ConfirmationDetails{})
			require.Error(t, err)

			appErr := apperrors.AsAppError(err)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantMsg, appErr.Message)
			assert.Equal(t, tt.status, appErr.HTTPStatus)
			if tt.wantDetail != "" {
				assert.Contains(t, appErr.Details, tt.wantDetail)
			}
		})
	}
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	auth := NewAuthClient(NewHttpClient(url, 0))
	err := auth.Logout(context.Background(), "ref1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNetwork), "got %v", err)
}

func TestBookingClient_List(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/bookings/pending/", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]any{
			"data":        []model.Booking{{ID: "1", Status: model.StatusPending}},
			"total_count": 31,
			"limit":       20,
			"offset":      0,
		})
	}))
	defer srv.Close()

	page, err := NewBookingClient(NewHttpClient(srv.URL, 0)).List(context.Background(), model.StatusPending, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(31), page.TotalCount)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "1", page.Data[0].ID)
}

func TestBookingClient_PublicRoutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/bookings/":
			var req model.BookingRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			writeJSON(w, http.StatusCreated, map[string]any{"data": model.Booking{
				ID: "9", BookingReference: "TRQWE123", Status: model.StatusPending, Customer: req.Customer,
			}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/bookings/check/":
			assert.Equal(t, "TRQWE123", r.URL.Query().Get("reference"))
			assert.Equal(t, "jo+tours@example.com", r.URL.Query().Get("email"))
			writeJSON(w, http.StatusOK, map[string]any{"data": model.Booking{ID: "9", Status: model.StatusPending}})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	bookings := NewBookingClient(NewHttpClient(srv.URL, 0))
	ctx := context.Background()

	created, err := bookings.Create(ctx, &model.BookingRequest{Customer: model.Customer{Name: "Jo"}, TourReference: "masai-mara-3d"})
	require.NoError(t, err)
	assert.Equal(t, "TRQWE123", created.BookingReference)
	assert.Equal(t, "Jo", created.Customer.Name)

	found, err := bookings.Check(ctx, "TRQWE123", "jo+tours@example.com")
	require.NoError(t, err)
	assert.Equal(t, "9", found.ID)
}

func TestAuthClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login/":
			var creds model.Credentials
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds.Password != "secret" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "UNAUTHORIZED", "error": "No active account found with the given credentials"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": model.LoginResponse{Access: "tok1", Refresh: "ref1", User: model.User{Username: creds.Username, IsStaff: true}}})
		case "/api/auth/refresh/":
			writeJSON(w, http.StatusOK, map[string]any{"data": model.RefreshResponse{Access: "tok2"}})
		case "/api/auth/profile/":
			assert.Equal(t, "Bearer tok1", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]any{"data": model.User{ID: "1", Username: "admin"}})
		}
	}))
	defer srv.Close()

	auth := NewAuthClient(NewHttpClient(srv.URL, 0))
	ctx := context.Background()

	login, err := auth.Login(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok1", login.Access)
	assert.True(t, login.User.IsStaff)

	_, err = auth.Login(ctx, "admin", "wrong")
	require.Error(t, err)
	assert.Equal(t, "No active account found with the given credentials", apperrors.AsAppError(err).Message)

	access, err := auth.Refresh(ctx, "ref1")
	require.NoError(t, err)
	assert.Equal(t, "tok2", access)

	user, err := auth.Profile(ctx, "tok1")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
}

func TestWaitForHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, NewHttpClient(srv.URL, 0).WaitForHealthy(context.Background(), 2*time.Second))
}
