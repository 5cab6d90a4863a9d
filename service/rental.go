package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidTransition is returned when a status change is not in the transition table.
var ErrInvalidTransition = fmt.Errorf("status transition not allowed: %w", apperrors.ErrConflict)

// BookStore is the part of the catalog the rental lifecycle touches.
type BookStore interface {
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	ReserveBook(ctx context.Context, id primitive.ObjectID) (bool, error)
	ReleaseBook(ctx context.Context, id primitive.ObjectID) error
}

// Ledger stores transactions. TransitionStatus must only apply when the stored status equals from.
type Ledger interface {
	InsertTransaction(ctx context.Context, tx *models.Transaction) error
	TransactionByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error)
	TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.TransactionStatus) (bool, error)
}

// UnitOfWork runs fn as one atomic unit where the backing store supports it.
type UnitOfWork interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type RentalStore interface {
	BookStore
	Ledger
	UnitOfWork
}

type RentalService struct {
	store RentalStore
	now   func() time.Time
}

func NewRentalService(store RentalStore) *RentalService {
	return &RentalService{store: store, now: time.Now}
}

// Rent checks a book out to userID for one of the fixed rental periods.
func (s *RentalService) Rent(ctx context.Context, userID, bookID primitive.ObjectID, duration models.RentalDuration) (*models.Transaction, error) {
	days, ok := duration.Days()
	if !ok {
		return nil, fmt.Errorf("rental duration %q: %w", duration, apperrors.ErrInvalidArgument)
	}
	book, err := s.store.BookByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !book.IsAvailable {
		return nil, fmt.Errorf("book %s is not available: %w", bookID.Hex(), apperrors.ErrConflict)
	}

	now := s.now().UTC()
	end := now.AddDate(0, 0, days)
	var tx *models.Transaction
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		reserved, err := s.store.ReserveBook(ctx, bookID)
		if err != nil {
			return err
		}
		if !reserved {
			return fmt.Errorf("book %s is not available: %w", bookID.Hex(), apperrors.ErrConflict)
		}
		tx = &models.Transaction{
			UserID:         userID,
			BookID:         bookID,
			Type:           models.TypeRental,
			RentalDuration: duration,
			RentalEndDate:  &end,
			Amount:         RentalAmount(book.RentalPrice, days),
			Status:         models.StatusActiveRental,
			CreatedAt:      now,
		}
		if err := s.store.InsertTransaction(ctx, tx); err != nil {
			if rerr := s.store.ReleaseBook(ctx, bookID); rerr != nil {
				slog.ErrorContext(ctx, "release book after failed rental insert", "book_id", bookID.Hex(), "error", rerr)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Purchase records a sale. Availability is not changed.
func (s *RentalService) Purchase(ctx context.Context, userID, bookID primitive.ObjectID) (*models.Transaction, error) {
	book, err := s.store.BookByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	tx := &models.Transaction{
		UserID:    userID,
		BookID:    bookID,
		Type:      models.TypePurchase,
		Amount:    book.Price,
		Status:    models.StatusCompleted,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Return completes a rental owned by userID and releases its book.
// Returning an already completed rental succeeds without side effects.
func (s *RentalService) Return(ctx context.Context, userID, txID primitive.ObjectID) (*models.Transaction, error) {
	tx, err := s.store.TransactionByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.UserID != userID {
		return nil, fmt.Errorf("transaction %s: %w", txID.Hex(), apperrors.ErrNotFound)
	}
	if tx.Type != models.TypeRental {
		return nil, fmt.Errorf("purchases cannot be returned: %w", apperrors.ErrInvalidArgument)
	}
	if tx.Status == models.StatusCompleted {
		return tx, nil
	}
	return s.transition(ctx, tx, models.StatusCompleted, models.ActorOwner)
}

// SetStatus is the administrative override of a transaction's status.
func (s *RentalService) SetStatus(ctx context.Context, txID primitive.ObjectID, status string) (*models.Transaction, error) {
	to, ok := models.ParseTransactionStatus(status)
	if !ok {
		return nil, fmt.Errorf("status %q: %w", status, apperrors.ErrInvalidArgument)
	}
	tx, err := s.store.TransactionByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, tx, to, models.ActorAdmin)
}

// MarkOverdue moves an active rental to overdue on behalf of the sweeper.
func (s *RentalService) MarkOverdue(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	return s.transition(ctx, tx, models.StatusOverdue, models.ActorSweeper)
}

func (s *RentalService) transition(ctx context.Context, tx *models.Transaction, to models.TransactionStatus, actor models.Actor) (*models.Transaction, error) {
	from := tx.Status
	if !models.CanTransition(tx.Type, from, to, actor) {
		return nil, fmt.Errorf("%s %s -> %s by %s: %w", tx.Type, from, to, actor, ErrInvalidTransition)
	}
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		moved, err := s.store.TransitionStatus(ctx, tx.ID, from, to)
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("transaction %s changed concurrently: %w", tx.ID.Hex(), apperrors.ErrConflict)
		}
		if from.CheckedOut() && !to.CheckedOut() {
			return s.store.ReleaseBook(ctx, tx.BookID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := *tx
	out.Status = to
	out.UpdatedAt = s.now().UTC()
	return &out, nil
}
