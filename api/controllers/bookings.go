package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/farmyapp/farmyapp-backend/api/responses"
	"github.com/farmyapp/farmyapp-backend/api/validators"
	bookingsvc "github.com/farmyapp/farmyapp-backend/internal/bookings"
	"github.com/farmyapp/farmyapp-backend/pkg/enums"
	pkgerrors "github.com/farmyapp/farmyapp-backend/pkg/errors"
	"github.com/farmyapp/farmyapp-backend/pkg/logger"
)

type registerVehicleRequest struct {
	Name      string `json:"name" validate:"required"`
	Price     string `json:"price" validate:"required"`
	RegNumber string `json:"reg_number" validate:"required"`
	Capacity  int    `json:"capacity" validate:"required,min=1"`
}

// VehicleRegister adds a vehicle to the caller's logistics fleet.
func VehicleRegister(svc bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload registerVehicleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := decimal.NewFromString(payload.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price"))
			return
		}

		vehicle, err := svc.RegisterVehicle(r.Context(), bookingsvc.Actor{Type: caller.Type, ID: caller.ID}, bookingsvc.RegisterVehicleInput{
			Name:      payload.Name,
			Price:     price,
			RegNumber: payload.RegNumber,
			Capacity:  payload.Capacity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, vehicle)
	}
}

// VehicleList lists the caller's registered vehicles.
func VehicleList(svc bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vehicles, err := svc.ListVehicles(r.Context(), caller.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, vehicles)
	}
}

type bookVehicleRequest struct {
	VehicleID     uuid.UUID `json:"vehicle_id" validate:"required"`
	Pickup        string    `json:"pickup" validate:"required"`
	Destination   string    `json:"destination" validate:"required"`
	PaymentMethod string    `json:"payment_method" validate:"required"`
}

// BookingCreate books a vehicle for the caller.
func BookingCreate(svc bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bookVehicleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		result, err := svc.Book(r.Context(), bookingsvc.BookInput{
			BuyerID:       caller.ID,
			VehicleID:     payload.VehicleID,
			Pickup:        payload.Pickup,
			Destination:   payload.Destination,
			PaymentMethod: method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"booking":     result.Booking,
			"payment_url": result.PaymentURL,
		})
	}
}

// BookingPaymentCallback verifies a hosted card payment for a booking.
func BookingPaymentCallback(svc bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reference := r.URL.Query().Get("reference")
		booking, err := svc.ConfirmCardPayment(r.Context(), reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

type updateBookingStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// BookingUpdateStatus advances the booking lifecycle.
func BookingUpdateStatus(svc bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking id"))
			return
		}

		var payload updateBookingStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseBookingStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking status"))
			return
		}

		booking, err := svc.UpdateStatus(r.Context(), bookingsvc.Actor{Type: caller.Type, ID: caller.ID}, bookingID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, booking)
	}
}

// BookingGet returns one booking visible to the caller.
func BookingGet(svc bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking id"))
			return
		}

		booking, err := svc.Get(r.Context(), bookingsvc.Actor{Type: caller.Type, ID: caller.ID}, bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, booking)
	}
}

// BookingListMine lists the caller's bookings as a buyer.
func BookingListMine(svc bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForBuyer(r.Context(), caller.ID, paginationParams(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// BookingListFleet lists bookings placed against the caller's fleet.
func BookingListFleet(svc bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := actorFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListForLogistics(r.Context(), bookingsvc.Actor{Type: caller.Type, ID: caller.ID}, paginationParams(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}
