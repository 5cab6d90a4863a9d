package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type AccountStore interface {
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error)
	TransactionsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Transaction, error)
	ActiveRentalsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Transaction, error)
	BookSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.BookSummary, error)
}

type AccountService struct {
	store AccountStore
	cost  int
}

func NewAccountService(store AccountStore) *AccountService {
	return &AccountService{store: store, cost: bcrypt.DefaultCost}
}

type Registration struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Register creates a user account. The role is always user.
func (s *AccountService) Register(ctx context.Context, r Registration) (*models.User, error) {
	return s.create(ctx, strings.TrimSpace(r.Username), r.Email, r.Password, models.RoleUser)
}

func (s *AccountService) create(ctx context.Context, username, email, password, role string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		Username:  username,
		Email:     models.NormalizeEmail(email),
		Password:  string(hash),
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks credentials. Unknown email and wrong password both return ErrUnauthorized.
func (s *AccountService) Login(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("invalid email or password: %w", apperrors.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid email or password: %w", apperrors.ErrUnauthorized)
	}
	return u, nil
}

// EnsureAdmin creates an admin account with the given credentials unless the email is taken.
// It reports whether an account was created.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	existing, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	username := strings.SplitN(models.NormalizeEmail(email), "@", 2)[0]
	if len(username) < 3 {
		username = "admin"
	}
	if _, err := s.create(ctx, username, email, password, models.RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}

type Profile struct {
	User         *models.User             `json:"user"`
	Transactions []models.TransactionView `json:"transactions"`
}

// Profile loads a user with the books they have checked out and their transaction history.
func (s *AccountService) Profile(ctx context.Context, userID primitive.ObjectID) (*Profile, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.RentedBooks, err = s.RentedBooks(ctx, userID); err != nil {
		return nil, err
	}
	txs, err := s.store.TransactionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.BookID)
	}
	books, err := s.store.BookSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]models.TransactionView, 0, len(txs))
	for _, tx := range txs {
		v := models.TransactionView{Transaction: tx}
		if b, ok := books[tx.BookID]; ok {
			v.Book = &b
		}
		views = append(views, v)
	}
	return &Profile{User: u, Transactions: views}, nil
}

// RentedBooks derives the user's checked-out list from the ledger.
func (s *AccountService) RentedBooks(ctx context.Context, userID primitive.ObjectID) ([]models.RentalRef, error) {
	active, err := s.store.ActiveRentalsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	refs := make([]models.RentalRef, 0, len(active))
	for _, tx := range active {
		ref := models.RentalRef{BookID: tx.BookID, TransactionID: tx.ID}
		if tx.RentalEndDate != nil {
			ref.RentalEndDate = *tx.RentalEndDate
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
