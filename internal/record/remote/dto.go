package remote

import (
	"time"

	"github.com/gamehub/identity/internal/model"
	"github.com/gamehub/identity/internal/record"
)

// accountDTO is the wire shape of an account on the record service. The
// role field is redundant with userType; it is kept because legacy readers
// of the same API still consume it.
type accountDTO struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	Role        string     `json:"role"`
	UserType    string     `json:"userType"`
	IsActive    bool       `json:"isActive"`
	IsGuest     bool       `json:"isGuest"`
	GuestID     string     `json:"guestId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func (d accountDTO) toModel() model.Account {
	a := model.Account{
		ID:         d.ID,
		Username:   d.Username,
		Email:      d.Email,
		Credential: d.Password,
		Tier:       model.Tier(d.UserType),
		IsActive:   d.IsActive,
		IsGuest:    d.IsGuest,
		GuestID:    d.GuestID,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if d.LastLoginAt != nil {
		a.LastLoginAt = *d.LastLoginAt
	}
	return a
}

// createDTO carries a create request. Zero id/createdAt mean "server assigns".
type createDTO struct {
	ID        string     `json:"id,omitempty"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Role      string     `json:"role"`
	UserType  string     `json:"userType"`
	IsActive  bool       `json:"isActive"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

func createFrom(n record.NewAccount) createDTO {
	a := model.Account{Tier: n.Tier}
	d := createDTO{
		ID:       n.ID,
		Username: n.Username,
		Email:    n.Email,
		Password: n.Credential,
		Role:     string(a.Role()),
		UserType: string(n.Tier),
		IsActive: n.IsActive,
	}
	if !n.CreatedAt.IsZero() {
		t := n.CreatedAt
		d.CreatedAt = &t
	}
	return d
}

// patchDTO carries a partial update; nil fields are omitted from the wire.
type patchDTO struct {
	Username    *string    `json:"username,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Password    *string    `json:"password,omitempty"`
	Role        *string    `json:"role,omitempty"`
	UserType    *string    `json:"userType,omitempty"`
	IsActive    *bool      `json:"isActive,omitempty"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func patchFrom(p record.Patch) patchDTO {
	d := patchDTO{
		Username:    p.Username,
		Email:       p.Email,
		Password:    p.Credential,
		IsActive:    p.IsActive,
		LastLoginAt: p.LastLoginAt,
	}
	if p.Tier != nil {
		ut := string(*p.Tier)
		role := string((&model.Account{Tier: *p.Tier}).Role())
		d.UserType = &ut
		d.Role = &role
	}
	return d
}

type statsDTO struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Admins      int `json:"admins"`
	SuperAdmins int `json:"superAdmins"`
	Regulars    int `json:"regularUsers"`
	Guests      int `json:"guests"`
}

func (d statsDTO) toModel() model.Stats {
	return model.Stats{
		Total:       d.Total,
		Active:      d.Active,
		Admins:      d.Admins,
		SuperAdmins: d.SuperAdmins,
		Regulars:    d.Regulars,
		Guests:      d.Guests,
	}
}
