package types

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims represents the claims in a JWT token
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID  uuid.UUID `json:"user_id"`
	IsAdmin bool      `json:"is_admin"`
	// Version must match the user's token version for the token to be valid
	Version int `json:"ver"`
}

// Actor is the identity behind a request. The zero value is anonymous.
type Actor struct {
	UserID        uuid.UUID
	IsAdmin       bool
	Authenticated bool
}

// Anonymous is the actor of unauthenticated requests.
var Anonymous = Actor{}

// CanModify reports whether the actor may change an object owned by ownerID.
func (a Actor) CanModify(ownerID uuid.UUID) bool {
	return a.Authenticated && (a.IsAdmin || a.UserID == ownerID)
}
