package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Defaults applied when a category is created without icon or color.
const (
	DefaultCategoryIcon  = "book"
	DefaultCategoryColor = "#3B82F6"
)

const MaxCategoryNameLen = 50

// Category holds a denormalized BooksCount that tracks how many books
// currently reference it. The count is maintained incrementally on book
// create/update/delete, so it can drift under partial failure; the
// reconcile routine recomputes it from the books collection.
type Category struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Icon        string             `bson:"icon" json:"icon"`
	Color       string             `bson:"color" json:"color"`
	BooksCount  int64              `bson:"booksCount" json:"booksCount"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// CategoryRef is the projection of a category attached to book responses
// (the name/slug/color the catalog pages render).
type CategoryRef struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Slug  string             `bson:"slug" json:"slug"`
	Color string             `bson:"color" json:"color"`
}
