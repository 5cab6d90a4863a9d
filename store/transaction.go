package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DefaultTransactionPageSize = 20

// TransactionFilter narrows an admin listing. Zero values mean no constraint.
type TransactionFilter struct {
	Status models.TransactionStatus
	Type   models.TransactionType
	Page   int
	Limit  int
}

func (f *TransactionFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultTransactionPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
}

func (f TransactionFilter) Document() bson.M {
	doc := bson.M{}
	if f.Status != "" {
		doc["status"] = f.Status
	}
	if f.Type != "" {
		doc["type"] = f.Type
	}
	return doc
}

var checkedOut = bson.M{"$in": bson.A{models.StatusActiveRental, models.StatusOverdue}}

// endingBetweenFilter matches active rentals whose end date lies in [from, to].
func endingBetweenFilter(from, to time.Time) bson.M {
	return bson.M{
		"type":          models.TypeRental,
		"status":        models.StatusActiveRental,
		"rentalEndDate": bson.M{"$gte": from, "$lte": to},
	}
}

// endedBeforeFilter matches rentals in one of statuses whose end date is strictly before t.
func endedBeforeFilter(t time.Time, statuses ...models.TransactionStatus) bson.M {
	in := bson.A{}
	for _, s := range statuses {
		in = append(in, s)
	}
	return bson.M{
		"type":          models.TypeRental,
		"status":        bson.M{"$in": in},
		"rentalEndDate": bson.M{"$lt": t},
	}
}

func (db *DB) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	now := time.Now().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	res, err := db.Transactions().InsertOne(ctx, tx)
	if err != nil {
		return err
	}
	tx.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (db *DB) TransactionByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	var tx models.Transaction
	err := db.Transactions().FindOne(ctx, bson.M{"_id": id}).Decode(&tx)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("transaction %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// TransitionStatus moves a transaction from one status to another only if it is still in from.
// It reports false when another writer changed the status first.
func (db *DB) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.TransactionStatus) (bool, error) {
	res, err := db.Transactions().UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (db *DB) findTransactions(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Transaction, error) {
	cur, err := db.Transactions().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	txs := []models.Transaction{}
	if err := cur.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// ListTransactions returns one page of transactions, newest first, and the total number of matches.
func (db *DB) ListTransactions(ctx context.Context, f TransactionFilter) ([]models.Transaction, int64, error) {
	f.Normalize()
	doc := f.Document()
	total, err := db.Transactions().CountDocuments(ctx, doc)
	if err != nil {
		return nil, 0, err
	}
	txs, err := db.findTransactions(ctx, doc, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((f.Page-1)*f.Limit)).
		SetLimit(int64(f.Limit)))
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// TransactionsByUser returns every transaction of a user, newest first.
func (db *DB) TransactionsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Transaction, error) {
	return db.findTransactions(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

// ActiveRentalsByUser returns the rentals a user still has checked out, oldest first.
func (db *DB) ActiveRentalsByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Transaction, error) {
	return db.findTransactions(ctx, bson.M{"userId": userID, "type": models.TypeRental, "status": checkedOut},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// RentalsEndingBetween returns active rentals due in [from, to].
func (db *DB) RentalsEndingBetween(ctx context.Context, from, to time.Time) ([]models.Transaction, error) {
	return db.findTransactions(ctx, endingBetweenFilter(from, to),
		options.Find().SetSort(bson.D{{Key: "rentalEndDate", Value: 1}}))
}

// RentalsEndedBefore returns rentals in one of statuses that were due strictly before t,
// earliest due first.
func (db *DB) RentalsEndedBefore(ctx context.Context, t time.Time, statuses ...models.TransactionStatus) ([]models.Transaction, error) {
	return db.findTransactions(ctx, endedBeforeFilter(t, statuses...),
		options.Find().SetSort(bson.D{{Key: "rentalEndDate", Value: 1}}))
}

func (db *DB) TransactionsCount(ctx context.Context) (int64, error) {
	return db.Transactions().CountDocuments(ctx, bson.M{})
}

func (db *DB) CountByStatus(ctx context.Context, status models.TransactionStatus) (int64, error) {
	return db.Transactions().CountDocuments(ctx, bson.M{"status": status})
}

// Revenue sums the amount of all completed transactions.
func (db *DB) Revenue(ctx context.Context) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.StatusCompleted}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}}},
	}
	cur, err := db.Transactions().Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)
	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (db *DB) RecentTransactions(ctx context.Context, n int) ([]models.Transaction, error) {
	return db.findTransactions(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(n)))
}
