package store

import (
	"testing"

	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBookQueryNormalize(t *testing.T) {
	q := BookQuery{}
	q.Normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultPageSize, q.Limit)
	assert.Equal(t, "title", q.SortBy)
	assert.Equal(t, "asc", q.SortOrder)
	assert.Equal(t, int64(0), q.Skip())

	q = BookQuery{Page: 3, Limit: 500, SortBy: "password", SortOrder: "desc"}
	q.Normalize()
	assert.Equal(t, MaxPageSize, q.Limit)
	assert.Equal(t, "title", q.SortBy)
	assert.Equal(t, "desc", q.SortOrder)
	assert.Equal(t, int64(200), q.Skip())
}

func TestBookQueryFilterIgnoresAll(t *testing.T) {
	q := BookQuery{Category: "all", Author: "", Year: "ALL", Search: "  "}
	f, err := q.Filter()
	require.NoError(t, err)
	assert.Empty(t, f)
}

func TestBookQueryFilter(t *testing.T) {
	q := BookQuery{Category: "fantasy", Author: "Tolkien", Year: "1954", Search: "ring"}
	f, err := q.Filter()
	require.NoError(t, err)

	assert.Equal(t, models.CategoryFantasy, f["category"])
	assert.Equal(t, primitive.Regex{Pattern: "Tolkien", Options: "i"}, f["author"])
	assert.Equal(t, 1954, f["year"])

	re := primitive.Regex{Pattern: "ring", Options: "i"}
	assert.Equal(t, bson.A{
		bson.M{"title": re},
		bson.M{"author": re},
		bson.M{"description": re},
	}, f["$or"])
}

func TestBookQueryFilterQuotesRegex(t *testing.T) {
	f, err := BookQuery{Search: "C++ (2nd ed.)"}.Filter()
	require.NoError(t, err)
	or := f["$or"].(bson.A)
	assert.Equal(t, `C\+\+ \(2nd ed\.\)`, or[0].(bson.M)["title"].(primitive.Regex).Pattern)
}

func TestBookQueryFilterBadYear(t *testing.T) {
	_, err := BookQuery{Year: "nineteen"}.Filter()
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestBookQuerySort(t *testing.T) {
	q := BookQuery{SortBy: "price", SortOrder: "desc"}
	q.Normalize()
	assert.Equal(t, bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}, q.Sort())
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 12))
	assert.Equal(t, 1, TotalPages(12, 12))
	assert.Equal(t, 2, TotalPages(13, 12))
	assert.Equal(t, 9, TotalPages(100, 12))
}
