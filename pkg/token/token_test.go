package token

import (
	"errors"
	"testing"
	"time"

	"tourdesk/pkg/model"
)

const secret = "0123456789abcdef0123456789abcdef"

func newTestManager(now time.Time) *Manager {
	m := NewManager(secret, time.Hour, 24*time.Hour)
	m.now = func() time.Time { return now }
	return m
}

func TestPairAndVerify(t *testing.T) {
	now := time.Now()
	m := newTestManager(now)
	user := &model.User{ID: "u1", Username: "admin", IsStaff: true}

	access, refresh, err := m.Pair(user)
	if err != nil {
		t.Fatalf("Pair() error: %v", err)
	}

	claims, err := m.Verify(access, TypeAccess)
	if err != nil {
		t.Fatalf("Verify(access) error: %v", err)
	}
	if claims.Subject != "u1" || claims.Username != "admin" || !claims.CanManageBookings() {
		t.Errorf("claims = %+v", claims)
	}

	refreshClaims, err := m.Verify(refresh, TypeRefresh)
	if err != nil {
		t.Fatalf("Verify(refresh) error: %v", err)
	}
	if refreshClaims.ID == claims.ID {
		t.Error("tokens of a pair must have distinct ids")
	}

	if _, err := m.Verify(refresh, TypeAccess); !errors.Is(err, ErrWrongType) {
		t.Errorf("refresh used as access: %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	m := newTestManager(issued)
	access, _, err := m.Pair(&model.User{ID: "u1"})
	if err != nil {
		t.Fatalf("Pair() error: %v", err)
	}

	m.now = time.Now
	if _, err := m.Verify(access, TypeAccess); !errors.Is(err, ErrExpired) {
		t.Errorf("Verify() = %v, want ErrExpired", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	m := newTestManager(time.Now())
	access, _, _ := m.Pair(&model.User{ID: "u1"})

	other := NewManager("another-secret-another-secret-xx", time.Hour, 24*time.Hour)
	if _, err := other.Verify(access, TypeAccess); !errors.Is(err, ErrInvalid) {
		t.Errorf("Verify() = %v, want ErrInvalid", err)
	}
}

func TestAccessFromRefresh(t *testing.T) {
	m := newTestManager(time.Now())
	_, refresh, _ := m.Pair(&model.User{ID: "u1", Username: "admin", IsAdmin: true})
	claims, _ := m.Verify(refresh, TypeRefresh)

	access, err := m.Access(claims)
	if err != nil {
		t.Fatalf("Access() error: %v", err)
	}
	got, err := m.Verify(access, TypeAccess)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if got.Subject != "u1" || !got.IsAdmin {
		t.Errorf("claims = %+v", got)
	}
}

func TestExpiresAt(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	m := newTestManager(now)
	access, _, _ := m.Pair(&model.User{ID: "u1"})

	exp, err := ExpiresAt(access)
	if err != nil {
		t.Fatalf("ExpiresAt() error: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Errorf("exp = %v, want %v", exp, now.Add(time.Hour))
	}

	if _, err := ExpiresAt("not-a-jwt"); !errors.Is(err, ErrInvalid) {
		t.Errorf("ExpiresAt(garbage) = %v", err)
	}
}

func TestLifetime(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	m := newTestManager(now)
	access, _, _ := m.Pair(&model.User{ID: "u1"})

	issued, expires, err := Lifetime(access)
	if err != nil {
		t.Fatalf("Lifetime() error: %v", err)
	}
	if got := expires.Sub(issued); got != time.Hour {
		t.Errorf("window = %s, want 1h", got)
	}
}
