package middleware

import (
	"context"
	"strings"
)

type contextKey string

const (
	ctxPartyID   contextKey = "party_id"
	ctxPartyType contextKey = "party_type"
	ctxRoles     contextKey = "roles"
)

func PartyIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxPartyID).(string); ok {
		return v
	}
	return ""
}

func PartyTypeFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxPartyType).(string); ok {
		return v
	}
	return ""
}

func RolesFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxRoles).([]string); ok {
		return v
	}
	return nil
}

// HasRole reports whether the authenticated party carries the given role.
func HasRole(ctx context.Context, role string) bool {
	for _, candidate := range RolesFromContext(ctx) {
		if strings.EqualFold(candidate, role) {
			return true
		}
	}
	return false
}

// WithParty injects the authenticated party identity into the context.
func WithParty(ctx context.Context, partyID, partyType string, roles []string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxPartyID, partyID)
	ctx = context.WithValue(ctx, ctxPartyType, partyType)
	if len(roles) > 0 {
		ctx = context.WithValue(ctx, ctxRoles, roles)
	}
	return ctx
}
