package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/middleware"
	"github.com/kevinaaaquil/bookstore/models"
	"github.com/kevinaaaquil/bookstore/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProfileLoader interface {
	Profile(ctx context.Context, userID primitive.ObjectID) (*service.Profile, error)
}

type Rentals interface {
	Rent(ctx context.Context, userID, bookID primitive.ObjectID, duration models.RentalDuration) (*models.Transaction, error)
	Purchase(ctx context.Context, userID, bookID primitive.ObjectID) (*models.Transaction, error)
	Return(ctx context.Context, userID, txID primitive.ObjectID) (*models.Transaction, error)
}

type ProfileHandler struct {
	Accounts ProfileLoader
	Rentals  Rentals
	Validate *validator.Validate
}

type RentRequest struct {
	RentalDuration models.RentalDuration `json:"rentalDuration" validate:"required"`
}

func currentUser(r *http.Request) (primitive.ObjectID, error) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("no user in token: %w", apperrors.ErrUnauthorized)
	}
	return id, nil
}

func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Accounts.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) Rent(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bookID, err := pathID(r, "bookId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req RentRequest
	if err := decodeJSON(w, r, &req, h.Validate); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.Rentals.Rent(r.Context(), userID, bookID, req.RentalDuration)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *ProfileHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	bookID, err := pathID(r, "bookId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.Rentals.Purchase(r.Context(), userID, bookID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *ProfileHandler) Return(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txID, err := pathID(r, "transactionId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.Rentals.Return(r.Context(), userID, txID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Book returned successfully"})
}
