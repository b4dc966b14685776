package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmyapp/farmyapp-backend/api/responses"
	"github.com/farmyapp/farmyapp-backend/api/validators"
	"github.com/farmyapp/farmyapp-backend/pkg/db/models"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
	"github.com/farmyapp/farmyapp-backend/pkg/logger"
	"github.com/farmyapp/farmyapp-backend/pkg/paystack"
)

// PaymentGateway is the slice of the Paystack client the payment
// endpoints use.
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, email string, amount decimal.Decimal) (*paystack.InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

// PartyLoader resolves the caller's party record.
type PartyLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Party, error)
}

type initializePaymentRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// PaymentInitialize opens a hosted checkout session for the caller
// and returns the redirect URL plus reference.
func PaymentInitialize(gateway PaymentGateway, parties PartyLoader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload initializePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		party, err := parties.Get(r.Context(), caller.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := gateway.InitializeTransaction(r.Context(), party.Email, amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// PaymentVerify resolves the settled state of a charge by its gateway
// reference.
func PaymentVerify(gateway PaymentGateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := r.URL.Query().Get("reference")
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reference is required"))
			return
		}

		result, err := gateway.VerifyTransaction(r.Context(), reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
