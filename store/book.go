package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error) {
	now := time.Now().UTC()
	book.CreatedAt, book.UpdatedAt = now, now
	book.IsAvailable = true
	res, err := db.Books().InsertOne(ctx, book, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	book.ID = res.InsertedID.(primitive.ObjectID)
	return book.ID, nil
}

// QueryBooks returns one page of books matching q and the total number of matches.
func (db *DB) QueryBooks(ctx context.Context, q BookQuery) ([]models.Book, int64, error) {
	q.Normalize()
	filter, err := q.Filter()
	if err != nil {
		return nil, 0, err
	}
	total, err := db.Books().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(q.Sort()).
		SetSkip(q.Skip()).
		SetLimit(int64(q.Limit)).
		SetProjection(bson.M{"content": 0})
	cur, err := db.Books().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	books := []models.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

type BookFilters struct {
	Categories []string `json:"categories"`
	Authors    []string `json:"authors"`
	Years      []int    `json:"years"`
}

// Filters returns the distinct categories and authors (ascending) and years (descending) in the catalog.
func (db *DB) Filters(ctx context.Context) (*BookFilters, error) {
	f := &BookFilters{Categories: []string{}, Authors: []string{}, Years: []int{}}

	cats, err := db.Books().Distinct(ctx, "category", bson.M{})
	if err != nil {
		return nil, err
	}
	for _, c := range cats {
		if s, ok := c.(string); ok && s != "" {
			f.Categories = append(f.Categories, s)
		}
	}
	authors, err := db.Books().Distinct(ctx, "author", bson.M{})
	if err != nil {
		return nil, err
	}
	for _, a := range authors {
		if s, ok := a.(string); ok && s != "" {
			f.Authors = append(f.Authors, s)
		}
	}
	years, err := db.Books().Distinct(ctx, "year", bson.M{})
	if err != nil {
		return nil, err
	}
	for _, y := range years {
		switch v := y.(type) {
		case int32:
			f.Years = append(f.Years, int(v))
		case int64:
			f.Years = append(f.Years, int(v))
		case float64:
			f.Years = append(f.Years, int(v))
		}
	}
	sort.Strings(f.Categories)
	sort.Strings(f.Authors)
	sort.Sort(sort.Reverse(sort.IntSlice(f.Years)))
	return f, nil
}

func (db *DB) BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOne(ctx, bson.M{"_id": id}).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("book %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// UpdateBook overwrites the editable fields of a book. Availability is left alone.
func (db *DB) UpdateBook(ctx context.Context, id primitive.ObjectID, book *models.Book) (*models.Book, error) {
	update := bson.M{
		"title":       book.Title,
		"author":      book.Author,
		"description": book.Description,
		"content":     book.Content,
		"year":        book.Year,
		"category":    book.Category,
		"price":       book.Price,
		"rentalPrice": book.RentalPrice,
		"coverImage":  book.CoverImage,
		"updatedAt":   time.Now().UTC(),
	}
	var updated models.Book
	err := db.Books().FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": update},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("book %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteBook removes an available book by ID and returns it so the caller can clean up its cover.
// A checked-out book is not deleted.
func (db *DB) DeleteBook(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOneAndDelete(ctx, bson.M{"_id": id, "isAvailable": true}).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, err := db.BookByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("book %s is checked out: %w", id.Hex(), apperrors.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// ReserveBook flips isAvailable from true to false. It reports false when the book was
// already unavailable, which is how concurrent rentals of the same book are decided.
func (db *DB) ReserveBook(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := db.Books().UpdateOne(ctx,
		bson.M{"_id": id, "isAvailable": true},
		bson.M{"$set": bson.M{"isAvailable": false, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// ReleaseBook marks a book available again.
func (db *DB) ReleaseBook(ctx context.Context, id primitive.ObjectID) error {
	_, err := db.Books().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isAvailable": true, "updatedAt": time.Now().UTC()}})
	return err
}

// SetBookCover points a book at an uploaded cover and returns the key it replaced.
func (db *DB) SetBookCover(ctx context.Context, id primitive.ObjectID, coverImage, s3Key string) (string, error) {
	var prev models.Book
	err := db.Books().FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"coverImage": coverImage, "coverS3Key": s3Key, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before)).Decode(&prev)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("book %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return prev.CoverS3Key, nil
}

func (db *DB) BooksCount(ctx context.Context) (int64, error) {
	return db.Books().CountDocuments(ctx, bson.M{})
}

// BookSummaries loads id/title/author/cover for every id in ids, keyed by id.
func (db *DB) BookSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.BookSummary, error) {
	out := make(map[primitive.ObjectID]models.BookSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := db.Books().Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"title": 1, "author": 1, "coverImage": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var summaries []models.BookSummary
	if err := cur.All(ctx, &summaries); err != nil {
		return nil, err
	}
	for _, s := range summaries {
		out[s.ID] = s
	}
	return out, nil
}
