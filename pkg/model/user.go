package model

import "time"

type User struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	FirstName    string    `json:"first_name" bson:"first_name"`
	LastName     string    `json:"last_name" bson:"last_name"`
	IsStaff      bool      `json:"is_staff" bson:"is_staff"`
	IsAdmin      bool      `json:"is_admin" bson:"is_admin"`
	IsActive     bool      `json:"-" bson:"is_active"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	DateJoined   time.Time `json:"date_joined" bson:"date_joined"`
}

// CanManageBookings is true for staff and admin accounts.
func (u *User) CanManageBookings() bool {
	return u.IsStaff || u.IsAdmin
}

type Credentials struct {
	Username string `json:"username" validate:"required,max=150"`
	Password string `json:"password" validate:"required,max=128"`
}

type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type RefreshResponse struct {
	Access string `json:"access"`
}
