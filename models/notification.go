package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NoticeKind string

const (
	NoticeRentalReminder NoticeKind = "rental_reminder"
	NoticeRentalOverdue  NoticeKind = "rental_overdue"
)

// NotificationLog records one reminder or overdue notice the sweeper attempted to send.
type NotificationLog struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind          NoticeKind         `bson:"kind" json:"kind"`
	TransactionID primitive.ObjectID `bson:"transactionId" json:"transactionId"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	BookID        primitive.ObjectID `bson:"bookId" json:"bookId"`
	ToEmail       string             `bson:"toEmail" json:"toEmail"`
	Error         string             `bson:"error,omitempty" json:"error,omitempty"` // empty when delivered
	SentAt        time.Time          `bson:"sentAt" json:"sentAt"`
}
