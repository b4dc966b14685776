package controllers

import (
	"net/http"

	"github.com/farmyapp/farmyapp-backend/api/responses"
	"github.com/farmyapp/farmyapp-backend/api/validators"
	"github.com/farmyapp/farmyapp-backend/internal/transactions"
	"github.com/farmyapp/farmyapp-backend/internal/wallet"
	"github.com/farmyapp/farmyapp-backend/pkg/logger"
	"github.com/farmyapp/farmyapp-backend/pkg/pagination"
)

// WalletGet returns the caller's wallet, creating it on first access.
func WalletGet(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		acct, err := svc.Ensure(r.Context(), wallet.PartyRef{Type: caller.Type, ID: caller.ID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, acct)
	}
}

// WalletTransactions lists the caller's ledger history, newest first.
func WalletTransactions(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForParty(r.Context(), transactions.ListTransactionsInput{
			PartyType: caller.Type,
			PartyID:   caller.ID,
			Limit:     limit,
			Cursor:    r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}
