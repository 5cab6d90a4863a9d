package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/middleware"
	"github.com/kevinaaaquil/bookstore/models"
	"github.com/kevinaaaquil/bookstore/service"
	"github.com/kevinaaaquil/bookstore/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Catalog interface {
	QueryBooks(ctx context.Context, q store.BookQuery) ([]models.Book, int64, error)
	Filters(ctx context.Context) (*store.BookFilters, error)
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	InsertBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error)
	UpdateBook(ctx context.Context, id primitive.ObjectID, book *models.Book) (*models.Book, error)
	DeleteBook(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
}

type ISBNLookup interface {
	FetchByISBN(ctx context.Context, isbn string) (*service.BookMetadata, error)
}

type Covers interface {
	Save(ctx context.Context, bookID primitive.ObjectID, body io.Reader, contentType string) (string, error)
	Mirror(ctx context.Context, bookID primitive.ObjectID, url string) (string, error)
	Open(ctx context.Context, bookID primitive.ObjectID) (io.ReadCloser, string, error)
	Remove(ctx context.Context, key string) error
}

type BooksHandler struct {
	Catalog        Catalog
	Covers         Covers
	Metadata       ISBNLookup
	Validate       *validator.Validate
	MaxUploadBytes int64
}

type BookPage struct {
	Books       []models.Book `json:"books"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Total       int64         `json:"total"`
}

func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := store.BookQuery{
		Category:  q.Get("category"),
		Author:    q.Get("author"),
		Year:      q.Get("year"),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      queryInt(r, "page"),
		Limit:     queryInt(r, "limit"),
	}
	query.Normalize()
	books, total, err := h.Catalog.QueryBooks(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BookPage{
		Books:       books,
		TotalPages:  store.TotalPages(total, query.Limit),
		CurrentPage: query.Page,
		Total:       total,
	})
}

func (h *BooksHandler) Filters(w http.ResponseWriter, r *http.Request) {
	f, err := h.Catalog.Filters(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	book, err := h.Catalog.BookByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.BookInput
	if err := decodeJSON(w, r, &in, h.Validate); err != nil {
		writeError(w, r, err)
		return
	}
	var book models.Book
	in.Apply(&book)
	if _, err := h.Catalog.InsertBook(r.Context(), &book); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in models.BookInput
	if err := decodeJSON(w, r, &in, h.Validate); err != nil {
		writeError(w, r, err)
		return
	}
	book, err := h.Catalog.BookByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if in.CoverImage == "" && book.CoverS3Key != "" {
		in.CoverImage = book.CoverImage
	}
	in.Apply(book)
	updated, err := h.Catalog.UpdateBook(r.Context(), id, book)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	book, err := h.Catalog.DeleteBook(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Covers != nil && book.CoverS3Key != "" {
		if err := h.Covers.Remove(r.Context(), book.CoverS3Key); err != nil {
			middleware.LoggerFromContext(r.Context()).Warn("delete cover object", "key", book.CoverS3Key, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Book deleted"})
}

type ImportRequest struct {
	ISBN        string  `json:"isbn" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	RentalPrice float64 `json:"rentalPrice" validate:"gte=0"`
	Category    string  `json:"category" validate:"omitempty,category"`
}

// Import creates a catalog entry from Google Books metadata and mirrors its cover when storage is configured.
func (h *BooksHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := decodeJSON(w, r, &req, h.Validate); err != nil {
		writeError(w, r, err)
		return
	}
	if h.Metadata == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "isbn lookup not configured")
		return
	}
	meta, err := h.Metadata.FetchByISBN(r.Context(), req.ISBN)
	if err != nil {
		if !errors.Is(err, apperrors.ErrInvalidArgument) {
			middleware.LoggerFromContext(r.Context()).Warn("isbn lookup", "isbn", req.ISBN, "error", err)
			err = fmt.Errorf("isbn lookup failed: %w", apperrors.ErrInvalidArgument)
		}
		writeError(w, r, err)
		return
	}
	in := meta.Input(models.BookInput{Price: req.Price, RentalPrice: req.RentalPrice, Category: req.Category})
	if h.Validate != nil {
		if err := h.Validate.Struct(in); err != nil {
			writeError(w, r, err)
			return
		}
	}
	var book models.Book
	in.Apply(&book)
	if _, err := h.Catalog.InsertBook(r.Context(), &book); err != nil {
		writeError(w, r, err)
		return
	}
	if h.Covers != nil && meta.CoverURL != "" {
		if _, err := h.Covers.Mirror(r.Context(), book.ID, meta.CoverURL); err == nil {
			if reloaded, err := h.Catalog.BookByID(r.Context(), book.ID); err == nil {
				book = *reloaded
			}
		} else if !errors.Is(err, service.ErrStorageDisabled) {
			middleware.LoggerFromContext(r.Context()).Warn("mirror cover", "book_id", book.ID.Hex(), "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, book)
}

// UploadCover stores a multipart "file" image as the book's cover.
func (h *BooksHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Covers == nil {
		writeError(w, r, service.ErrStorageDisabled)
		return
	}
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if _, ok := service.CoverExtension(contentType); !ok {
		sniff := make([]byte, 512)
		n, _ := io.ReadFull(file, sniff)
		contentType = http.DetectContentType(sniff[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if _, err := h.Covers.Save(r.Context(), id, file, contentType); err != nil {
		writeError(w, r, err)
		return
	}
	book, err := h.Catalog.BookByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// Cover streams a stored cover image. Public so it works as an img src.
func (h *BooksHandler) Cover(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Covers == nil {
		writeError(w, r, fmt.Errorf("cover: %w", apperrors.ErrNotFound))
		return
	}
	body, contentType, err := h.Covers.Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrStorageDisabled) {
			err = fmt.Errorf("cover: %w", apperrors.ErrNotFound)
		}
		writeError(w, r, err)
		return
	}
	defer body.Close()
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, body); err != nil {
		middleware.LoggerFromContext(r.Context()).Warn("stream cover", "book_id", id.Hex(), "error", err)
	}
}
