package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Supported book file formats.
const (
	FormatPDF  = "PDF"
	FormatEPUB = "EPUB"
	FormatMOBI = "MOBI"
)

func ValidFormat(format string) bool {
	switch format {
	case FormatPDF, FormatEPUB, FormatMOBI:
		return true
	}
	return false
}

const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 2000
	MaxCommentLen     = 500
)

// Ratings is the denormalized rating summary for a book. Average is the
// arithmetic mean of all review ratings, stored unrounded; Count is the
// number of reviews. Both are zero when the book has no reviews.
type Ratings struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}

// Review is embedded in its book document and has no independent
// lifecycle. At most one review per (book, user) pair, enforced at write
// time by the store.
type Review struct {
	User      primitive.ObjectID `bson:"user" json:"user"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Book struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	Author        string             `bson:"author" json:"author"`
	Description   string             `bson:"description" json:"description"`
	ISBN          string             `bson:"isbn,omitempty" json:"isbn,omitempty"`
	Category      primitive.ObjectID `bson:"category" json:"category"`
	CoverImage    string             `bson:"coverImage" json:"coverImage"`
	CoverKey      string             `bson:"coverKey,omitempty" json:"-"` // object key in S3, kept for deletion
	FileURL       string             `bson:"fileUrl" json:"fileUrl"`
	FileKey       string             `bson:"fileKey,omitempty" json:"-"`
	FileFormat    string             `bson:"fileFormat" json:"fileFormat"`
	FileSize      int64              `bson:"fileSize" json:"fileSize"`
	Language      string             `bson:"language" json:"language"`
	Publisher     string             `bson:"publisher,omitempty" json:"publisher,omitempty"`
	PublishedDate *time.Time         `bson:"publishedDate,omitempty" json:"publishedDate,omitempty"`
	Pages         int                `bson:"pages,omitempty" json:"pages,omitempty"`
	Ratings       Ratings            `bson:"ratings" json:"ratings"`
	Reviews       []Review           `bson:"reviews" json:"reviews"`
	Downloads     int64              `bson:"downloads" json:"downloads"`
	Views         int64              `bson:"views" json:"views"`
	IsFeatured    bool               `bson:"isFeatured" json:"isFeatured"`
	Tags          []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedBy     primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// RecalculateRatings derives the rating summary from the full review
// sequence. It always averages over the whole set rather than folding the
// latest rating into a running mean; an empty sequence resets both fields
// to zero.
func (b *Book) RecalculateRatings() {
	if len(b.Reviews) == 0 {
		b.Ratings = Ratings{}
		return
	}
	sum := 0
	for _, r := range b.Reviews {
		sum += r.Rating
	}
	b.Ratings.Average = float64(sum) / float64(len(b.Reviews))
	b.Ratings.Count = len(b.Reviews)
}

// HasReviewBy reports whether user has already reviewed the book.
func (b *Book) HasReviewBy(user primitive.ObjectID) bool {
	for _, r := range b.Reviews {
		if r.User == user {
			return true
		}
	}
	return false
}

// FileName is the download filename presented to clients, e.g. "1984.epub".
func (b *Book) FileName() string {
	return b.Title + "." + strings.ToLower(b.FileFormat)
}
