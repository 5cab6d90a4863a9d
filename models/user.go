package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role constants for user authorization.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var ValidRoles = []string{RoleUser, RoleAdmin}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username  string             `bson:"username" json:"username"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"` // bcrypt hash
	Role      string             `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	// RentedBooks is filled on read from the ledger and never stored.
	RentedBooks []RentalRef `bson:"-" json:"rentedBooks"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// RentalRef points at a book the user currently has checked out.
type RentalRef struct {
	BookID        primitive.ObjectID `json:"bookId"`
	RentalEndDate time.Time          `json:"rentalEndDate"`
	TransactionID primitive.ObjectID `json:"transactionId"`
}

// UserSummary is the subset of a User embedded in transaction listings.
type UserSummary struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Username string             `bson:"username" json:"username"`
	Email    string             `bson:"email" json:"email"`
}

// NormalizeEmail lower-cases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
