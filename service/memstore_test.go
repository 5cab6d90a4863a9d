package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/models"
	"github.com/kevinaaaquil/bookstore/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory stand-in for *store.DB with the same conditional-update semantics.
type memStore struct {
	mu    sync.Mutex
	books map[primitive.ObjectID]*models.Book
	users map[primitive.ObjectID]*models.User
	txs   map[primitive.ObjectID]*models.Transaction
	logs  []models.NotificationLog

	failInsertTx bool
	units        int
}

func newMemStore() *memStore {
	return &memStore{
		books: map[primitive.ObjectID]*models.Book{},
		users: map[primitive.ObjectID]*models.User{},
		txs:   map[primitive.ObjectID]*models.Transaction{},
	}
}

func (m *memStore) addBook(b models.Book) models.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = primitive.NewObjectID()
	m.books[b.ID] = &b
	return b
}

func (m *memStore) book(id primitive.ObjectID) models.Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.books[id]
}

func (m *memStore) addUser(u models.User) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = primitive.NewObjectID()
	m.users[u.ID] = &u
	return u
}

func (m *memStore) addTx(tx models.Transaction) models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx.ID = primitive.NewObjectID()
	m.txs[tx.ID] = &tx
	return tx
}

func (m *memStore) tx(id primitive.ObjectID) models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.txs[id]
}

func (m *memStore) txCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

func (m *memStore) BookByID(_ context.Context, id primitive.ObjectID) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil, fmt.Errorf("book %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) ReserveBook(_ context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok || !b.IsAvailable {
		return false, nil
	}
	b.IsAvailable = false
	return true, nil
}

func (m *memStore) ReleaseBook(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.books[id]; ok {
		b.IsAvailable = true
	}
	return nil
}

func (m *memStore) SetBookCover(_ context.Context, id primitive.ObjectID, coverImage, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	prev := b.CoverS3Key
	b.CoverImage, b.CoverS3Key = coverImage, key
	return prev, nil
}

func (m *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.units++
	m.mu.Unlock()
	return fn(ctx)
}

func (m *memStore) InsertTransaction(_ context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsertTx {
		return errStoreDown
	}
	tx.ID = primitive.NewObjectID()
	tx.UpdatedAt = tx.CreatedAt
	cp := *tx
	m.txs[tx.ID] = &cp
	return nil
}

func (m *memStore) TransactionByID(_ context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	cp := *tx
	return &cp, nil
}

func (m *memStore) TransitionStatus(_ context.Context, id primitive.ObjectID, from, to models.TransactionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[id]
	if !ok || tx.Status != from {
		return false, nil
	}
	tx.Status = to
	return true, nil
}

func (m *memStore) selectTxs(match func(*models.Transaction) bool, less func(a, b *models.Transaction) bool) []models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Transaction
	for _, tx := range m.txs {
		if match(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	res := make([]models.Transaction, 0, len(out))
	for _, tx := range out {
		res = append(res, *tx)
	}
	return res
}

func byEndDate(a, b *models.Transaction) bool { return a.RentalEndDate.Before(*b.RentalEndDate) }
func newestFirst(a, b *models.Transaction) bool { return a.CreatedAt.After(b.CreatedAt) }

func (m *memStore) RentalsEndingBetween(_ context.Context, from, to time.Time) ([]models.Transaction, error) {
	return m.selectTxs(func(tx *models.Transaction) bool {
		return tx.Type == models.TypeRental && tx.Status == models.StatusActiveRental && tx.RentalEndDate != nil &&
			!tx.RentalEndDate.Before(from) && !tx.RentalEndDate.After(to)
	}, byEndDate), nil
}

func (m *memStore) RentalsEndedBefore(_ context.Context, t time.Time, statuses ...models.TransactionStatus) ([]models.Transaction, error) {
	return m.selectTxs(func(tx *models.Transaction) bool {
		if tx.Type != models.TypeRental || tx.RentalEndDate == nil || !tx.RentalEndDate.Before(t) {
			return false
		}
		for _, s := range statuses {
			if tx.Status == s {
				return true
			}
		}
		return false
	}, byEndDate), nil
}

func (m *memStore) TransactionsByUser(_ context.Context, userID primitive.ObjectID) ([]models.Transaction, error) {
	return m.selectTxs(func(tx *models.Transaction) bool { return tx.UserID == userID }, newestFirst), nil
}

func (m *memStore) ActiveRentalsByUser(_ context.Context, userID primitive.ObjectID) ([]models.Transaction, error) {
	return m.selectTxs(func(tx *models.Transaction) bool {
		return tx.UserID == userID && tx.Type == models.TypeRental && tx.Status.CheckedOut()
	}, func(a, b *models.Transaction) bool { return a.CreatedAt.Before(b.CreatedAt) }), nil
}

func (m *memStore) ListTransactions(_ context.Context, f store.TransactionFilter) ([]models.Transaction, int64, error) {
	f.Normalize()
	all := m.selectTxs(func(tx *models.Transaction) bool {
		return (f.Status == "" || tx.Status == f.Status) && (f.Type == "" || tx.Type == f.Type)
	}, newestFirst)
	start := (f.Page - 1) * f.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (m *memStore) RecentTransactions(_ context.Context, n int) ([]models.Transaction, error) {
	all := m.selectTxs(func(*models.Transaction) bool { return true }, newestFirst)
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (m *memStore) BooksCount(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.books)), nil
}

func (m *memStore) UsersCount(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

func (m *memStore) TransactionsCount(context.Context) (int64, error) {
	return int64(m.txCount()), nil
}

func (m *memStore) CountByStatus(_ context.Context, status models.TransactionStatus) (int64, error) {
	return int64(len(m.selectTxs(func(tx *models.Transaction) bool { return tx.Status == status }, newestFirst))), nil
}

func (m *memStore) Revenue(context.Context) (float64, error) {
	var total float64
	for _, tx := range m.selectTxs(func(tx *models.Transaction) bool { return tx.Status == models.StatusCompleted }, newestFirst) {
		total += tx.Amount
	}
	return total, nil
}

func (m *memStore) UserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == models.NormalizeEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateUser(_ context.Context, u *models.User) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return primitive.NilObjectID, fmt.Errorf("duplicate: %w", apperrors.ErrConflict)
		}
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	m.users[u.ID] = &cp
	return u.ID, nil
}

func (m *memStore) UserSummaries(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[primitive.ObjectID]models.UserSummary{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out[id] = models.UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
		}
	}
	return out, nil
}

func (m *memStore) BookSummaries(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.BookSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[primitive.ObjectID]models.BookSummary{}
	for _, id := range ids {
		if b, ok := m.books[id]; ok {
			out[id] = models.BookSummary{ID: b.ID, Title: b.Title, Author: b.Author, CoverImage: b.CoverImage}
		}
	}
	return out, nil
}

func (m *memStore) InsertNotificationLog(_ context.Context, log *models.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = primitive.NewObjectID()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *memStore) RecentNotifications(_ context.Context, n int) ([]models.NotificationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.NotificationLog{}
	for i := len(m.logs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.logs[i])
	}
	return out, nil
}

var (
	_ RentalStore    = (*memStore)(nil)
	_ SweepStore     = (*memStore)(nil)
	_ AdminStore     = (*memStore)(nil)
	_ AccountStore   = (*memStore)(nil)
	_ CoverBookStore = (*memStore)(nil)
)
