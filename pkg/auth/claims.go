package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/farmyapp/farmyapp-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	PartyID   uuid.UUID
	PartyType enums.PartyType
	Roles     []string
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	PartyID   uuid.UUID       `json:"party_id"`
	PartyType enums.PartyType `json:"party_type"`
	Roles     []string        `json:"roles,omitempty"`
	jwt.RegisteredClaims
}
