// Package httpapi implements the record service: the REST authority the
// identity library talks to. Responses use the uniform envelope
// {success, data?, error?}.
package httpapi

import "time"

// User is the stored and wire shape of an account on the record service.
// role is redundant with userType; legacy readers of this API still consume
// it, so both are kept in sync on every write.
type User struct {
	ID          string     `gorm:"primaryKey;size:64" json:"id"`
	Username    string     `gorm:"size:191;uniqueIndex" json:"username"`
	Email       string     `gorm:"size:191;index" json:"email"`
	Password    string     `gorm:"size:255" json:"password"`
	Role        string     `gorm:"size:32" json:"role"`
	UserType    string     `gorm:"size:32;column:user_type" json:"userType"`
	IsActive    bool       `json:"isActive"`
	IsGuest     bool       `json:"isGuest"`
	GuestID     string     `gorm:"size:64" json:"guestId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// TableName keeps the historical table name.
func (User) TableName() string { return "users" }

// roleFor derives the legacy role value from a userType.
func roleFor(userType string) string {
	switch userType {
	case "admin":
		return "admin"
	case "superAdmin":
		return "superAdmin"
	default:
		return "user"
	}
}

// createRequest is the POST /users payload. Empty id/createdAt mean "server
// assigns"; a promotion supplies both to preserve the former guest identity.
type createRequest struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	UserType  string     `json:"userType"`
	IsActive  *bool      `json:"isActive"`
	CreatedAt *time.Time `json:"createdAt"`
}

// updateRequest is the PUT /users/{id} payload; nil fields are untouched.
type updateRequest struct {
	Username    *string    `json:"username"`
	Email       *string    `json:"email"`
	Password    *string    `json:"password"`
	UserType    *string    `json:"userType"`
	IsActive    *bool      `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
}

// validateRequest is the POST /users/validate payload.
type validateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserStats mirrors the legacy stats payload.
type UserStats struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Admins      int `json:"admins"`
	SuperAdmins int `json:"superAdmins"`
	Regulars    int `json:"regularUsers"`
	Guests      int `json:"guests"`
}
