package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const coverPrefix = "covers/"

// ErrStorageDisabled is returned by cover operations when no bucket is configured.
var ErrStorageDisabled = errors.New("cover storage not configured")

var coverExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// CoverExtension returns the file extension for a supported cover content type.
func CoverExtension(contentType string) (string, bool) {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext, ok := coverExtensions[ct]
	return ext, ok
}

// ObjectStore holds cover image bytes.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
}

type S3Store struct {
	client *s3.Client
	bucket string
}

func NewS3Store(ctx context.Context, bucket, region, accessKeyID, secretAccessKey string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &S3Store{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=86400"),
	})
	return err
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// Get returns the object body and content type. Caller must close the reader.
func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", err
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

// CoverBookStore is the part of the catalog that records covers.
type CoverBookStore interface {
	BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error)
	SetBookCover(ctx context.Context, id primitive.ObjectID, coverImage, s3Key string) (string, error)
}

// CoverService stores uploaded covers and serves them back through the API.
// A nil Objects disables uploads.
type CoverService struct {
	Objects ObjectStore
	Books   CoverBookStore
	HTTP    *http.Client
}

// CoverPath is the API path a stored cover is served from.
func CoverPath(bookID primitive.ObjectID) string {
	return "/api/books/" + bookID.Hex() + "/cover"
}

// Save stores body as the cover of bookID and removes the object it replaces.
func (s *CoverService) Save(ctx context.Context, bookID primitive.ObjectID, body io.Reader, contentType string) (string, error) {
	if s.Objects == nil {
		return "", ErrStorageDisabled
	}
	ext, ok := CoverExtension(contentType)
	if !ok {
		return "", fmt.Errorf("cover type %q: %w", contentType, apperrors.ErrInvalidArgument)
	}
	if _, err := s.Books.BookByID(ctx, bookID); err != nil {
		return "", err
	}
	key := coverPrefix + bookID.Hex() + "/" + uuid.New().String() + ext
	if err := s.Objects.Put(ctx, key, body, contentType); err != nil {
		return "", fmt.Errorf("put cover: %w", err)
	}
	path := CoverPath(bookID)
	prev, err := s.Books.SetBookCover(ctx, bookID, path, key)
	if err != nil {
		_ = s.Objects.Delete(ctx, key)
		return "", err
	}
	if prev != "" && prev != key {
		_ = s.Objects.Delete(ctx, prev)
	}
	return path, nil
}

// Mirror downloads an external cover image and stores it as the book's cover.
func (s *CoverService) Mirror(ctx context.Context, bookID primitive.ObjectID, url string) (string, error) {
	if s.Objects == nil {
		return "", ErrStorageDisabled
	}
	body, ct, err := s.download(ctx, url)
	if err != nil {
		return "", err
	}
	return s.Save(ctx, bookID, bytes.NewReader(body), ct)
}

// Open returns the stored cover of a book. A book without an uploaded cover is ErrNotFound.
func (s *CoverService) Open(ctx context.Context, bookID primitive.ObjectID) (io.ReadCloser, string, error) {
	if s.Objects == nil {
		return nil, "", ErrStorageDisabled
	}
	book, err := s.Books.BookByID(ctx, bookID)
	if err != nil {
		return nil, "", err
	}
	if book.CoverS3Key == "" {
		return nil, "", fmt.Errorf("book %s has no stored cover: %w", bookID.Hex(), apperrors.ErrNotFound)
	}
	return s.Objects.Get(ctx, book.CoverS3Key)
}

// Remove deletes a stored cover object, ignoring books without one.
func (s *CoverService) Remove(ctx context.Context, key string) error {
	if s.Objects == nil || key == "" {
		return nil
	}
	return s.Objects.Delete(ctx, key)
}

const maxMirrorBytes = 5 << 20

func (s *CoverService) download(ctx context.Context, url string) ([]byte, string, error) {
	client := s.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("cover URL returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMirrorBytes))
	if err != nil {
		return nil, "", err
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	return body, ct, nil
}
