package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/middleware"
	"github.com/kevinaaaquil/bookstore/models"
	"github.com/kevinaaaquil/bookstore/service"
	"github.com/kevinaaaquil/bookstore/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// serve routes a single request through a chi router so URL params resolve.
func serve(t *testing.T, method, pattern, target string, h http.HandlerFunc, body io.Reader, ctx context.Context) *httptest.ResponseRecorder {
	t.Helper()
	r := newRouterFor(method, pattern, h)
	req := httptest.NewRequest(method, target, body)
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func newRouterFor(method, pattern string, h http.HandlerFunc) chi.Router {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	return r
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func asUser(id primitive.ObjectID, role string) context.Context {
	ctx := context.WithValue(context.Background(), middleware.UserIDKey, id)
	return context.WithValue(ctx, middleware.RoleKey, role)
}

type fakeCatalog struct {
	mu        sync.Mutex
	books     map[primitive.ObjectID]*models.Book
	lastQuery store.BookQuery
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{books: map[primitive.ObjectID]*models.Book{}}
}

func (c *fakeCatalog) add(b models.Book) models.Book {
	c.mu.Lock()
	defer c.mu.Unlock()
	b.ID = primitive.NewObjectID()
	c.books[b.ID] = &b
	return b
}

func (c *fakeCatalog) QueryBooks(_ context.Context, q store.BookQuery) ([]models.Book, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastQuery = q
	out := []models.Book{}
	for _, b := range c.books {
		out = append(out, *b)
	}
	return out, int64(len(out)), nil
}

func (c *fakeCatalog) Filters(context.Context) (*store.BookFilters, error) {
	return &store.BookFilters{Categories: []string{"Fiction"}, Authors: []string{"Frank Herbert"}, Years: []int{1965}}, nil
}

func (c *fakeCatalog) BookByID(_ context.Context, id primitive.ObjectID) (*models.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.books[id]
	if !ok {
		return nil, fmt.Errorf("book %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (c *fakeCatalog) InsertBook(_ context.Context, b *models.Book) (primitive.ObjectID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b.ID = primitive.NewObjectID()
	b.IsAvailable = true
	b.CreatedAt = time.Now()
	cp := *b
	c.books[b.ID] = &cp
	return b.ID, nil
}

func (c *fakeCatalog) UpdateBook(_ context.Context, id primitive.ObjectID, b *models.Book) (*models.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.books[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	avail, key := cur.IsAvailable, cur.CoverS3Key
	*cur = *b
	cur.ID, cur.IsAvailable, cur.CoverS3Key = id, avail, key
	cp := *cur
	return &cp, nil
}

func (c *fakeCatalog) DeleteBook(_ context.Context, id primitive.ObjectID) (*models.Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.books[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if !b.IsAvailable {
		return nil, fmt.Errorf("book is checked out: %w", apperrors.ErrConflict)
	}
	delete(c.books, id)
	return b, nil
}

func (c *fakeCatalog) SetBookCover(_ context.Context, id primitive.ObjectID, coverImage, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.books[id]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	prev := b.CoverS3Key
	b.CoverImage, b.CoverS3Key = coverImage, key
	return prev, nil
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memObjects) Put(_ context.Context, key string, body io.Reader, contentType string) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key], m.types[key] = b, contentType
	return nil
}

func (m *memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, "", apperrors.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), m.types[key], nil
}

func (m *memObjects) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type mockLookup struct{ mock.Mock }

func (m *mockLookup) FetchByISBN(ctx context.Context, isbn string) (*service.BookMetadata, error) {
	args := m.Called(ctx, isbn)
	meta, _ := args.Get(0).(*service.BookMetadata)
	return meta, args.Error(1)
}

type mockRentals struct{ mock.Mock }

func (m *mockRentals) Rent(ctx context.Context, userID, bookID primitive.ObjectID, d models.RentalDuration) (*models.Transaction, error) {
	args := m.Called(ctx, userID, bookID, d)
	tx, _ := args.Get(0).(*models.Transaction)
	return tx, args.Error(1)
}

func (m *mockRentals) Purchase(ctx context.Context, userID, bookID primitive.ObjectID) (*models.Transaction, error) {
	args := m.Called(ctx, userID, bookID)
	tx, _ := args.Get(0).(*models.Transaction)
	return tx, args.Error(1)
}

func (m *mockRentals) Return(ctx context.Context, userID, txID primitive.ObjectID) (*models.Transaction, error) {
	args := m.Called(ctx, userID, txID)
	tx, _ := args.Get(0).(*models.Transaction)
	return tx, args.Error(1)
}

func (m *mockRentals) SetStatus(ctx context.Context, txID primitive.ObjectID, status string) (*models.Transaction, error) {
	args := m.Called(ctx, txID, status)
	tx, _ := args.Get(0).(*models.Transaction)
	return tx, args.Error(1)
}
