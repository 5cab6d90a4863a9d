package service

import (
	"context"
	"testing"
	"time"

	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func newTestAccounts(st *memStore) *AccountService {
	svc := NewAccountService(st)
	svc.cost = bcrypt.MinCost
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	st := newMemStore()
	svc := newTestAccounts(st)
	ctx := context.Background()

	u, err := svc.Register(ctx, Registration{Username: " reader ", Email: "Reader@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "reader", u.Username)
	assert.Equal(t, "reader@example.com", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.NotEqual(t, "secret1", u.Password)

	_, err = svc.Register(ctx, Registration{Username: "other", Email: "reader@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	got, err := svc.Login(ctx, "READER@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Login(ctx, "reader@example.com", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestEnsureAdmin(t *testing.T) {
	st := newMemStore()
	svc := newTestAccounts(st)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := svc.Login(ctx, "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
	assert.Equal(t, "admin", u.Username)
}

func TestProfileDerivesRentedBooks(t *testing.T) {
	st := newMemStore()
	svc := newTestAccounts(st)
	rentals := NewRentalService(st)
	ctx := context.Background()

	u := st.addUser(models.User{Username: "reader", Email: "reader@example.com"})
	dune := st.addBook(models.Book{Title: "Dune", RentalPrice: 30, Price: 20, IsAvailable: true})
	emma := st.addBook(models.Book{Title: "Emma", RentalPrice: 30, Price: 20, IsAvailable: true})

	kept, err := rentals.Rent(ctx, u.ID, dune.ID, models.OneMonth)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	returned, err := rentals.Rent(ctx, u.ID, emma.ID, models.TwoWeeks)
	require.NoError(t, err)
	_, err = rentals.Return(ctx, u.ID, returned.ID)
	require.NoError(t, err)
	_, err = rentals.Purchase(ctx, u.ID, emma.ID)
	require.NoError(t, err)

	p, err := svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, p.User.RentedBooks, 1)
	assert.Equal(t, dune.ID, p.User.RentedBooks[0].BookID)
	assert.Equal(t, kept.ID, p.User.RentedBooks[0].TransactionID)
	assert.Equal(t, *kept.RentalEndDate, p.User.RentedBooks[0].RentalEndDate)

	require.Len(t, p.Transactions, 3)
	for _, v := range p.Transactions {
		require.NotNil(t, v.Book)
		assert.Nil(t, v.User)
	}
}

func TestProfileMissingUser(t *testing.T) {
	svc := newTestAccounts(newMemStore())
	_, err := svc.Profile(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
