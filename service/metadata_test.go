package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const volumeJSON = `{
  "totalItems": 1,
  "items": [{
    "volumeInfo": {
      "title": "The Fellowship of the Ring",
      "subtitle": "Being the First Part of The Lord of the Rings",
      "authors": ["J. R. R. Tolkien"],
      "publishedDate": "1954-07-29",
      "description": "  The first volume.  ",
      "categories": ["Fiction / Fantasy / Epic"],
      "industryIdentifiers": [
        {"type": "ISBN_10", "identifier": "0261103571"},
        {"type": "ISBN_13", "identifier": "9780261103573"}
      ]
    }
  }]
}`

func TestFetchByISBN(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(volumeJSON))
	}))
	defer srv.Close()

	c := &MetadataClient{HTTP: srv.Client(), BaseURL: srv.URL}
	meta, err := c.FetchByISBN(context.Background(), "0-261-10357-1")
	require.NoError(t, err)

	assert.Equal(t, "isbn:0261103571", gotQuery)
	assert.Equal(t, "9780261103573", meta.ISBN)
	assert.Equal(t, "The Fellowship of the Ring: Being the First Part of The Lord of the Rings", meta.Title)
	assert.Equal(t, "J. R. R. Tolkien", meta.Author)
	assert.Equal(t, "The first volume.", meta.Description)
	assert.Equal(t, 1954, meta.Year)
	assert.Equal(t, models.CategoryFantasy, meta.Category)
	assert.Equal(t, "https://covers.openlibrary.org/b/isbn/9780261103573-L.jpg", meta.CoverURL)

	in := meta.Input(models.BookInput{Price: 20, RentalPrice: 5})
	assert.Equal(t, 1954, in.Year)
	assert.Equal(t, "Fantasy", in.Category)
	assert.Equal(t, 20.0, in.Price)
	assert.Equal(t, meta.CoverURL, in.CoverImage)
}

func TestFetchByISBNInvalid(t *testing.T) {
	c := &MetadataClient{HTTP: http.DefaultClient, BaseURL: "http://127.0.0.1:0"}
	_, err := c.FetchByISBN(context.Background(), "12345")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestFetchByISBNNoVolume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	}))
	defer srv.Close()

	c := &MetadataClient{HTTP: srv.Client(), BaseURL: srv.URL}
	_, err := c.FetchByISBN(context.Background(), "9780261103573")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestMapCategory(t *testing.T) {
	assert.Equal(t, models.CategoryHistory, mapCategory([]string{"history"}))
	assert.Equal(t, models.CategoryChildren, mapCategory([]string{"Juvenile Fiction"}))
	assert.Equal(t, models.CategoryBiography, mapCategory([]string{"Biography & Autobiography"}))
	assert.Equal(t, models.CategoryNonFiction, mapCategory([]string{"Cooking"}))
	assert.Equal(t, models.CategoryOther, mapCategory(nil))
}
