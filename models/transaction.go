package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionType string

const (
	TypePurchase TransactionType = "purchase"
	TypeRental   TransactionType = "rental"
)

func ParseTransactionType(s string) (TransactionType, bool) {
	switch t := TransactionType(s); t {
	case TypePurchase, TypeRental:
		return t, true
	}
	return "", false
}

type TransactionStatus string

const (
	StatusCompleted    TransactionStatus = "completed"
	StatusActiveRental TransactionStatus = "active_rental"
	StatusOverdue      TransactionStatus = "overdue"
	StatusCancelled    TransactionStatus = "cancelled"
)

func ParseTransactionStatus(s string) (TransactionStatus, bool) {
	switch st := TransactionStatus(s); st {
	case StatusCompleted, StatusActiveRental, StatusOverdue, StatusCancelled:
		return st, true
	}
	return "", false
}

// CheckedOut reports whether a rental in this status still holds its book.
func (s TransactionStatus) CheckedOut() bool {
	return s == StatusActiveRental || s == StatusOverdue
}

// RentalDuration is one of the fixed rental periods offered.
type RentalDuration string

const (
	TwoWeeks    RentalDuration = "2 weeks"
	OneMonth    RentalDuration = "1 month"
	ThreeMonths RentalDuration = "3 months"
)

var rentalDays = map[RentalDuration]int{
	TwoWeeks:    14,
	OneMonth:    30,
	ThreeMonths: 90,
}

// Days returns the length of the period in days, or false for an unknown duration.
func (d RentalDuration) Days() (int, bool) {
	n, ok := rentalDays[d]
	return n, ok
}

type Transaction struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"userId" json:"userId"`
	BookID         primitive.ObjectID `bson:"bookId" json:"bookId"`
	Type           TransactionType    `bson:"type" json:"type"`
	RentalDuration RentalDuration     `bson:"rentalDuration,omitempty" json:"rentalDuration,omitempty"`
	RentalEndDate  *time.Time         `bson:"rentalEndDate,omitempty" json:"rentalEndDate,omitempty"`
	Amount         float64            `bson:"amount" json:"amount"`
	Status         TransactionStatus  `bson:"status" json:"status"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TransactionView is a Transaction with its user and book populated for listings.
type TransactionView struct {
	Transaction `bson:",inline"`
	User        *UserSummary `json:"user,omitempty"`
	Book        *BookSummary `json:"book,omitempty"`
}

// Actor identifies who is asking for a status change.
type Actor string

const (
	ActorOwner   Actor = "owner"
	ActorAdmin   Actor = "admin"
	ActorSweeper Actor = "sweeper"
)

type transition struct {
	from, to TransactionStatus
}

// rentalTransitions lists every legal status change of a rental and who may make it.
// Purchases are created completed and never move.
var rentalTransitions = map[transition][]Actor{
	{StatusActiveRental, StatusCompleted}: {ActorOwner, ActorAdmin},
	{StatusActiveRental, StatusOverdue}:   {ActorSweeper},
	{StatusOverdue, StatusCompleted}:      {ActorOwner, ActorAdmin},
	{StatusOverdue, StatusCancelled}:      {ActorAdmin},
}

// CanTransition reports whether actor may move a transaction of type t from one status to another.
func CanTransition(t TransactionType, from, to TransactionStatus, actor Actor) bool {
	if t != TypeRental {
		return false
	}
	for _, a := range rentalTransitions[transition{from, to}] {
		if a == actor {
			return true
		}
	}
	return false
}
