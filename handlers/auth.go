package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/kevinaaaquil/bookstore/middleware"
	"github.com/kevinaaaquil/bookstore/models"
	"github.com/kevinaaaquil/bookstore/service"
)

type Accounts interface {
	Register(ctx context.Context, r service.Registration) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
}

type AuthHandler struct {
	Accounts  Accounts
	Validate  *validator.Validate
	JWTSecret string
	TokenTTL  time.Duration
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.Registration
	if err := decodeJSON(w, r, &req, h.Validate); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.Accounts.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondWithToken(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req, h.Validate); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondWithToken(w, r, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	token, err := h.createToken(user)
	if err != nil {
		writeError(w, r, fmt.Errorf("could not create token: %w", err))
		return
	}
	writeJSON(w, status, AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) createToken(user *models.User) (string, error) {
	if h.JWTSecret == "" {
		return "", errors.New("jwt secret not configured")
	}
	ttl := h.TokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	now := time.Now()
	claims := &middleware.Claims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.JWTSecret))
}
