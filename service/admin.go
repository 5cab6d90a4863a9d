package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/models"
	"github.com/kevinaaaquil/bookstore/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const recentTransactionCount = 5

type AdminStore interface {
	ListTransactions(ctx context.Context, f store.TransactionFilter) ([]models.Transaction, int64, error)
	RentalsEndedBefore(ctx context.Context, t time.Time, statuses ...models.TransactionStatus) ([]models.Transaction, error)
	RecentTransactions(ctx context.Context, n int) ([]models.Transaction, error)
	BooksCount(ctx context.Context) (int64, error)
	UsersCount(ctx context.Context) (int64, error)
	TransactionsCount(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status models.TransactionStatus) (int64, error)
	Revenue(ctx context.Context) (float64, error)
	UserSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
	BookSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.BookSummary, error)
	RecentNotifications(ctx context.Context, n int) ([]models.NotificationLog, error)
}

type AdminService struct {
	store AdminStore
	now   func() time.Time
}

func NewAdminService(store AdminStore) *AdminService {
	return &AdminService{store: store, now: time.Now}
}

type TransactionPage struct {
	Transactions []models.TransactionView `json:"transactions"`
	TotalPages   int                      `json:"totalPages"`
	CurrentPage  int                      `json:"currentPage"`
	Total        int64                    `json:"total"`
}

type Stats struct {
	TotalBooks         int64                    `json:"totalBooks"`
	TotalUsers         int64                    `json:"totalUsers"`
	TotalTransactions  int64                    `json:"totalTransactions"`
	TotalRevenue       float64                  `json:"totalRevenue"`
	ActiveRentals      int64                    `json:"activeRentals"`
	OverdueRentals     int64                    `json:"overdueRentals"`
	RecentTransactions []models.TransactionView `json:"recentTransactions"`
}

func ignored(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "all")
}

// ParseTransactionFilter turns query-string values into a filter. "all" and empty values are ignored.
func ParseTransactionFilter(page, limit int, status, typ string) (store.TransactionFilter, error) {
	f := store.TransactionFilter{Page: page, Limit: limit}
	if !ignored(status) {
		st, ok := models.ParseTransactionStatus(strings.TrimSpace(status))
		if !ok {
			return f, fmt.Errorf("status %q: %w", status, apperrors.ErrInvalidArgument)
		}
		f.Status = st
	}
	if !ignored(typ) {
		t, ok := models.ParseTransactionType(strings.TrimSpace(typ))
		if !ok {
			return f, fmt.Errorf("type %q: %w", typ, apperrors.ErrInvalidArgument)
		}
		f.Type = t
	}
	f.Normalize()
	return f, nil
}

func (s *AdminService) ListTransactions(ctx context.Context, f store.TransactionFilter) (*TransactionPage, error) {
	f.Normalize()
	txs, total, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, err
	}
	views, err := s.populate(ctx, txs)
	if err != nil {
		return nil, err
	}
	return &TransactionPage{
		Transactions: views,
		TotalPages:   store.TotalPages(total, f.Limit),
		CurrentPage:  f.Page,
		Total:        total,
	}, nil
}

// Overdue lists rentals past their end date that are still checked out, earliest due first.
func (s *AdminService) Overdue(ctx context.Context) ([]models.TransactionView, error) {
	txs, err := s.store.RentalsEndedBefore(ctx, s.now().UTC(), models.StatusActiveRental, models.StatusOverdue)
	if err != nil {
		return nil, err
	}
	return s.populate(ctx, txs)
}

func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	var err error
	if st.TotalBooks, err = s.store.BooksCount(ctx); err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}
	if st.TotalUsers, err = s.store.UsersCount(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if st.TotalTransactions, err = s.store.TransactionsCount(ctx); err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	if st.ActiveRentals, err = s.store.CountByStatus(ctx, models.StatusActiveRental); err != nil {
		return nil, fmt.Errorf("count active rentals: %w", err)
	}
	if st.OverdueRentals, err = s.store.CountByStatus(ctx, models.StatusOverdue); err != nil {
		return nil, fmt.Errorf("count overdue rentals: %w", err)
	}
	revenue, err := s.store.Revenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("revenue: %w", err)
	}
	st.TotalRevenue = roundCents(revenue)

	recent, err := s.store.RecentTransactions(ctx, recentTransactionCount)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	if st.RecentTransactions, err = s.populate(ctx, recent); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *AdminService) Notifications(ctx context.Context, n int) ([]models.NotificationLog, error) {
	if n < 1 || n > store.MaxPageSize {
		n = store.MaxPageSize
	}
	return s.store.RecentNotifications(ctx, n)
}

// populate attaches user and book summaries with one batched lookup per collection.
func (s *AdminService) populate(ctx context.Context, txs []models.Transaction) ([]models.TransactionView, error) {
	views := make([]models.TransactionView, 0, len(txs))
	if len(txs) == 0 {
		return views, nil
	}
	userIDs := make([]primitive.ObjectID, 0, len(txs))
	bookIDs := make([]primitive.ObjectID, 0, len(txs))
	seenU := map[primitive.ObjectID]bool{}
	seenB := map[primitive.ObjectID]bool{}
	for _, tx := range txs {
		if !seenU[tx.UserID] {
			seenU[tx.UserID] = true
			userIDs = append(userIDs, tx.UserID)
		}
		if !seenB[tx.BookID] {
			seenB[tx.BookID] = true
			bookIDs = append(bookIDs, tx.BookID)
		}
	}
	users, err := s.store.UserSummaries(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	books, err := s.store.BookSummaries(ctx, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	for _, tx := range txs {
		v := models.TransactionView{Transaction: tx}
		if u, ok := users[tx.UserID]; ok {
			v.User = &u
		}
		if b, ok := books[tx.BookID]; ok {
			v.Book = &b
		}
		views = append(views, v)
	}
	return views, nil
}
