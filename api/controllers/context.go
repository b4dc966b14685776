package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/farmyapp/farmyapp-backend/api/middleware"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
)

// actor is the authenticated party extracted from the request context.
type actor struct {
	Type enums.PartyType
	ID   uuid.UUID
}

func actorFromContext(ctx context.Context) (actor, error) {
	rawID := middleware.PartyIDFromContext(ctx)
	if rawID == "" {
		return actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid party id")
	}
	partyType, err := enums.ParsePartyType(middleware.PartyTypeFromContext(ctx))
	if err != nil {
		return actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid party type")
	}
	return actor{Type: partyType, ID: id}, nil
}
