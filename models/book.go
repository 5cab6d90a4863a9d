package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category is the closed set of catalog categories.
type Category string

const (
	CategoryFiction        Category = "Fiction"
	CategoryFantasy        Category = "Fantasy"
	CategoryScienceFiction Category = "Science Fiction"
	CategoryMystery        Category = "Mystery"
	CategoryRomance        Category = "Romance"
	CategoryNonFiction     Category = "Non-Fiction"
	CategoryScience        Category = "Science"
	CategoryHistory        Category = "History"
	CategoryBiography      Category = "Biography"
	CategoryChildren       Category = "Children"
	CategoryOther          Category = "Other"
)

var ValidCategories = []Category{
	CategoryFiction, CategoryFantasy, CategoryScienceFiction, CategoryMystery, CategoryRomance,
	CategoryNonFiction, CategoryScience, CategoryHistory, CategoryBiography, CategoryChildren, CategoryOther,
}

// ParseCategory matches s against ValidCategories, ignoring case.
func ParseCategory(s string) (Category, bool) {
	for _, c := range ValidCategories {
		if equalFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

const DefaultCoverImage = "/images/default-cover.jpg"

type Book struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Author      string             `bson:"author" json:"author"`
	Description string             `bson:"description" json:"description"`
	Content     string             `bson:"content,omitempty" json:"content,omitempty"`
	Year        int                `bson:"year" json:"year"`
	Category    Category           `bson:"category" json:"category"`
	Price       float64            `bson:"price" json:"price"`
	RentalPrice float64            `bson:"rentalPrice" json:"rentalPrice"`
	IsAvailable bool               `bson:"isAvailable" json:"isAvailable"`
	CoverImage  string             `bson:"coverImage" json:"coverImage"`
	CoverS3Key  string             `bson:"coverS3Key,omitempty" json:"-"` // object key of an uploaded cover
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// BookInput holds the administrator-editable fields of a Book. isAvailable is not among them.
type BookInput struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Author      string  `json:"author" validate:"required,max=100"`
	Description string  `json:"description" validate:"required,max=2000"`
	Content     string  `json:"content" validate:"max=20000"`
	Year        int     `json:"year" validate:"required,min=1,max=2100"`
	Category    string  `json:"category" validate:"omitempty,category"`
	Price       float64 `json:"price" validate:"gte=0"`
	RentalPrice float64 `json:"rentalPrice" validate:"gte=0"`
	CoverImage  string  `json:"coverImage" validate:"max=500"`
}

// Apply copies the input onto b, filling defaults for category and cover.
func (in BookInput) Apply(b *Book) {
	b.Title = in.Title
	b.Author = in.Author
	b.Description = in.Description
	b.Content = in.Content
	b.Year = in.Year
	b.Category = CategoryOther
	if c, ok := ParseCategory(in.Category); ok {
		b.Category = c
	}
	b.Price = in.Price
	b.RentalPrice = in.RentalPrice
	b.CoverImage = in.CoverImage
	if b.CoverImage == "" {
		b.CoverImage = DefaultCoverImage
	}
}

// BookSummary is the subset of a Book embedded in transaction listings.
type BookSummary struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Title      string             `bson:"title" json:"title"`
	Author     string             `bson:"author" json:"author"`
	CoverImage string             `bson:"coverImage" json:"coverImage,omitempty"`
}
