// Package session owns the "who is currently signed in" slot for one client
// process: a durable, signed pointer to exactly one account, the guest
// lifecycle, and cross-process rehydration when another tab moves the pointer.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gamehub/identity/internal/model"
)

// PointerStore persists the current-account pointer in a durable area shared
// by every tab/process of the same client.
type PointerStore interface {
	// Load returns the stored pointer token, or "" when signed out.
	Load(ctx context.Context) (string, error)
	// Save replaces the pointer.
	Save(ctx context.Context, token string) error
	// Clear removes the pointer.
	Clear(ctx context.Context) error
	// Watch returns a channel that receives a tick whenever the pointer
	// changes underneath this process, or nil if the store only supports
	// polling. The channel closes when ctx is done.
	Watch(ctx context.Context) <-chan struct{}
}

// guestClaim embeds the full guest identity in the pointer: a guest is never
// written to any record store, so the pointer is its only home.
type guestClaim struct {
	ID        string    `json:"id"`
	GuestID   string    `json:"guestId"`
	CreatedAt time.Time `json:"createdAt"`
}

type pointerClaims struct {
	jwt.RegisteredClaims
	Guest *guestClaim `json:"guest,omitempty"`
}

// encodePointer signs the pointer so a neighboring process cannot forge a
// session by editing the shared area.
func encodePointer(key []byte, a *model.Account) (string, error) {
	claims := pointerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  a.ID,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if a.IsGuest {
		claims.Guest = &guestClaim{ID: a.ID, GuestID: a.GuestID, CreatedAt: a.CreatedAt}
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(key)
}

// decodePointer verifies the token and returns the account id it points at.
// For guest pointers the embedded guest account is reconstructed as well.
func decodePointer(key []byte, token string) (string, *model.Account, error) {
	var claims pointerClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("session: pointer: %w", err)
	}
	if claims.Guest != nil {
		g := &model.Account{
			ID:        claims.Guest.ID,
			Tier:      model.TierGuest,
			IsActive:  true,
			IsGuest:   true,
			GuestID:   claims.Guest.GuestID,
			CreatedAt: claims.Guest.CreatedAt,
			UpdatedAt: claims.Guest.CreatedAt,
		}
		return claims.Subject, g, nil
	}
	return claims.Subject, nil, nil
}
