package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kevinaaaquil/bookstore/apperrors"
	"github.com/kevinaaaquil/bookstore/models"
	"github.com/kevinaaaquil/bookstore/utils"
)

const (
	googleBooksBase   = "https://www.googleapis.com/books/v1/volumes"
	openLibraryCovers = "https://covers.openlibrary.org/b/isbn/"
)

// googleBooksVolumesResp is the response from GET /volumes?q=isbn:...
type googleBooksVolumesResp struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title               string   `json:"title"`
			Subtitle            string   `json:"subtitle"`
			Authors             []string `json:"authors"`
			PublishedDate       string   `json:"publishedDate"`
			Description         string   `json:"description"`
			Categories          []string `json:"categories"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// MetadataClient looks up catalog data for an ISBN on Google Books.
type MetadataClient struct {
	HTTP    *http.Client
	BaseURL string
}

func NewMetadataClient() *MetadataClient {
	// short timeout so a hung lookup doesn't hold the admin request
	return &MetadataClient{HTTP: &http.Client{Timeout: 15 * time.Second}, BaseURL: googleBooksBase}
}

// BookMetadata is a lookup result ready to merge into a BookInput.
type BookMetadata struct {
	ISBN        string
	Title       string
	Author      string
	Description string
	Year        int
	Category    models.Category
	CoverURL    string
}

// FetchByISBN fetches book metadata by ISBN. An unknown or malformed ISBN is ErrInvalidArgument.
func (c *MetadataClient) FetchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	isbn = utils.NormalizeISBN(isbn)
	if !utils.ValidISBN(isbn) {
		return nil, fmt.Errorf("isbn %q: %w", isbn, apperrors.ErrInvalidArgument)
	}
	q := url.Values{}
	q.Set("q", "isbn:"+isbn)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google books returned %d", resp.StatusCode)
	}
	var data googleBooksVolumesResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	if data.TotalItems == 0 || len(data.Items) == 0 {
		return nil, fmt.Errorf("no volume found for isbn %s: %w", isbn, apperrors.ErrInvalidArgument)
	}
	vi := data.Items[0].VolumeInfo
	meta := &BookMetadata{
		ISBN:        isbn,
		Title:       vi.Title,
		Author:      strings.Join(vi.Authors, ", "),
		Description: strings.TrimSpace(vi.Description),
		Year:        publishedYear(vi.PublishedDate),
		Category:    mapCategory(vi.Categories),
	}
	if vi.Subtitle != "" {
		meta.Title = meta.Title + ": " + vi.Subtitle
	}
	for _, id := range vi.IndustryIdentifiers {
		if id.Type == "ISBN_13" {
			meta.ISBN = id.Identifier
			break
		}
	}
	// Google Books image links often sit behind a captcha; Open Library serves covers by ISBN directly
	meta.CoverURL = openLibraryCovers + url.PathEscape(meta.ISBN) + "-L.jpg"
	return meta, nil
}

// Input merges the metadata into a catalog entry, keeping prices and an explicit category from in.
func (m *BookMetadata) Input(in models.BookInput) models.BookInput {
	in.Title = truncate(m.Title, 200)
	in.Author = truncate(m.Author, 100)
	in.Description = truncate(m.Description, 2000)
	if in.Description == "" {
		in.Description = in.Title
	}
	in.Year = m.Year
	if in.Category == "" {
		in.Category = string(m.Category)
	}
	if in.CoverImage == "" {
		in.CoverImage = m.CoverURL
	}
	return in
}

func publishedYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

var categoryKeywords = []struct {
	keyword  string
	category models.Category
}{
	{"juvenile", models.CategoryChildren},
	{"science fiction", models.CategoryScienceFiction},
	{"fantasy", models.CategoryFantasy},
	{"mystery", models.CategoryMystery},
	{"romance", models.CategoryRomance},
	{"biography", models.CategoryBiography},
	{"history", models.CategoryHistory},
	{"science", models.CategoryScience},
	{"fiction", models.CategoryFiction},
}

// mapCategory picks the closest catalog category for Google Books subject headings.
func mapCategory(subjects []string) models.Category {
	for _, s := range subjects {
		if c, ok := models.ParseCategory(s); ok {
			return c
		}
	}
	for _, s := range subjects {
		lower := strings.ToLower(s)
		for _, k := range categoryKeywords {
			if strings.Contains(lower, k.keyword) {
				return k.category
			}
		}
	}
	if len(subjects) > 0 {
		return models.CategoryNonFiction
	}
	return models.CategoryOther
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
