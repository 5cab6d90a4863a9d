package store

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

var sortableFields = map[string]bool{
	"title":       true,
	"author":      true,
	"year":        true,
	"category":    true,
	"price":       true,
	"rentalPrice": true,
	"createdAt":   true,
	"isAvailable": true,
}

// BookQuery is a catalog search as it arrives from the query string.
// Empty values and "all" mean no constraint on that field.
type BookQuery struct {
	Category  string
	Author    string
	Year      string
	Search    string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// Normalize applies paging defaults and the limit cap.
func (q *BookQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if !sortableFields[q.SortBy] {
		q.SortBy = "title"
	}
	if q.SortOrder != "desc" {
		q.SortOrder = "asc"
	}
}

func (q BookQuery) Skip() int64 {
	return int64((q.Page - 1) * q.Limit)
}

func set(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, "all")
}

// literal builds a case-insensitive regex that matches s as a plain substring.
func literal(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(s)), Options: "i"}
}

// Filter builds the MongoDB filter document for q.
func (q BookQuery) Filter() (bson.M, error) {
	filter := bson.M{}
	if set(q.Category) {
		if c, ok := models.ParseCategory(q.Category); ok {
			filter["category"] = c
		} else {
			filter["category"] = strings.TrimSpace(q.Category)
		}
	}
	if set(q.Author) {
		filter["author"] = literal(q.Author)
	}
	if set(q.Year) {
		year, err := strconv.Atoi(strings.TrimSpace(q.Year))
		if err != nil {
			return nil, fmt.Errorf("year %q: %w", q.Year, apperrors.ErrInvalidArgument)
		}
		filter["year"] = year
	}
	if set(q.Search) {
		re := literal(q.Search)
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"author": re},
			bson.M{"description": re},
		}
	}
	return filter, nil
}

// Sort returns the sort document; _id breaks ties so pages are stable.
func (q BookQuery) Sort() bson.D {
	dir := 1
	if q.SortOrder == "desc" {
		dir = -1
	}
	return bson.D{{Key: q.SortBy, Value: dir}, {Key: "_id", Value: 1}}
}

// TotalPages is ceil(total/limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
