package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/farmyapp/farmyapp-backend/pkg/config"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
)

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "farmyapp",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()
	partyID := uuid.New()

	payload := AccessTokenPayload{
		PartyID:   partyID,
		PartyType: enums.PartyTypeStore,
		Roles:     []string{"seller"},
	}

	token, err := MintAccessToken(cfg, now, payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims.PartyID != partyID {
		t.Fatalf("expected party_id %s, got %s", partyID, claims.PartyID)
	}
	if claims.PartyType != enums.PartyTypeStore {
		t.Fatalf("unexpected party type %s", claims.PartyType)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "seller" {
		t.Fatalf("roles not preserved: %v", claims.Roles)
	}

	// RegisteredClaims is embedded, so access fields directly.
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestMintAccessTokenRejectsInvalidPartyType(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "farmyapp",
		ExpirationMinutes: 10,
	}
	payload := AccessTokenPayload{
		PartyID:   uuid.New(),
		PartyType: enums.PartyType("warehouse"),
	}
	if _, err := MintAccessToken(cfg, time.Now(), payload); err == nil {
		t.Fatal("expected invalid party type error")
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "farmyapp",
		ExpirationMinutes: 10,
	}
	payload := AccessTokenPayload{
		PartyID:   uuid.New(),
		PartyType: enums.PartyTypeBuyer,
	}

	token, err := MintAccessToken(cfg, time.Now(), payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err = ParseAccessToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "farmyapp",
		ExpirationMinutes: 10,
	}
	payload := AccessTokenPayload{
		PartyID:   uuid.New(),
		PartyType: enums.PartyTypeFarm,
	}

	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), payload)
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	if _, err = ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token error")
	}
}
