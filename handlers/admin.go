package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kevinaaaquil/bookstore/models"
	"github.com/kevinaaaquil/bookstore/service"
	"github.com/kevinaaaquil/bookstore/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultNotificationCount = 50

type Dashboard interface {
	ListTransactions(ctx context.Context, f store.TransactionFilter) (*service.TransactionPage, error)
	Overdue(ctx context.Context) ([]models.TransactionView, error)
	Stats(ctx context.Context) (*service.Stats, error)
	Notifications(ctx context.Context, n int) ([]models.NotificationLog, error)
}

type StatusSetter interface {
	SetStatus(ctx context.Context, txID primitive.ObjectID, status string) (*models.Transaction, error)
}

type SweepRunner interface {
	RunOnce(ctx context.Context, now time.Time) (service.SweepReport, error)
}

type AdminHandler struct {
	Dashboard Dashboard
	Rentals   StatusSetter
	Sweeper   SweepRunner
	Validate  *validator.Validate
}

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *AdminHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := service.ParseTransactionFilter(queryInt(r, "page"), queryInt(r, "limit"), q.Get("status"), q.Get("type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := h.Dashboard.ListTransactions(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *AdminHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	views, err := h.Dashboard.Overdue(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Dashboard.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *AdminHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "limit")
	if n <= 0 || n > 200 {
		n = defaultNotificationCount
	}
	logs, err := h.Dashboard.Notifications(r.Context(), n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req StatusRequest
	if err := decodeJSON(w, r, &req, h.Validate); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := h.Rentals.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// Sweep runs the reminder and overdue passes immediately.
func (h *AdminHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	if h.Sweeper == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "sweeper not configured")
		return
	}
	report, err := h.Sweeper.RunOnce(r.Context(), time.Now())
	if errors.Is(err, service.ErrSweepInProgress) {
		writeErrorMessage(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
