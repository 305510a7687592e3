package store

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openshelf/elibrary/backend/apperr"
	"github.com/openshelf/elibrary/backend/models"
	"github.com/openshelf/elibrary/backend/utils"
)

func (db *DB) CreateCategory(ctx context.Context, cat *models.Category) (primitive.ObjectID, error) {
	cat.Slug = utils.Slugify(cat.Name)
	if cat.Icon == "" {
		cat.Icon = models.DefaultCategoryIcon
	}
	if cat.Color == "" {
		cat.Color = models.DefaultCategoryColor
	}
	cat.CreatedAt = time.Now().UTC()
	res, err := db.Categories().InsertOne(ctx, cat)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, apperr.Conflict("a category with this name already exists")
		}
		return primitive.NilObjectID, storageErr(err)
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) ListCategories(ctx context.Context) ([]models.Category, error) {
	cur, err := db.Categories().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		return nil, storageErr(err)
	}
	defer cur.Close(ctx)
	cats := []models.Category{}
	if err := cur.All(ctx, &cats); err != nil {
		return nil, storageErr(err)
	}
	return cats, nil
}

func (db *DB) CategoryByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	var cat models.Category
	err := db.Categories().FindOne(ctx, bson.M{"_id": id}).Decode(&cat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("Category")
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return &cat, nil
}

// UpdateCategory updates the mutable fields; a name change regenerates
// the slug.
func (db *DB) UpdateCategory(ctx context.Context, id primitive.ObjectID, name, description, icon, color *string) (*models.Category, error) {
	set := bson.M{}
	if name != nil {
		set["name"] = *name
		set["slug"] = utils.Slugify(*name)
	}
	if description != nil {
		set["description"] = *description
	}
	if icon != nil {
		set["icon"] = *icon
	}
	if color != nil {
		set["color"] = *color
	}
	if len(set) > 0 {
		res, err := db.Categories().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, apperr.Conflict("a category with this name already exists")
			}
			return nil, storageErr(err)
		}
		if res.MatchedCount == 0 {
			return nil, apperr.NotFound("Category")
		}
	}
	return db.CategoryByID(ctx, id)
}

// DeleteCategory refuses to remove a category that books still reference,
// since that would orphan them.
func (db *DB) DeleteCategory(ctx context.Context, id primitive.ObjectID) error {
	n, err := db.Books().CountDocuments(ctx, bson.M{"category": id})
	if err != nil {
		return storageErr(err)
	}
	if n > 0 {
		return apperr.Validation("category still has books assigned to it")
	}
	res, err := db.Categories().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return storageErr(err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("Category")
	}
	return nil
}

// IncrementBooksCount applies one atomic delta to a category's
// denormalized count. A count that lands below zero is a reconciliation
// signal and is logged, never clamped: clamping would mask the bug that
// produced it.
func (db *DB) IncrementBooksCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var cat models.Category
	err := db.Categories().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"booksCount": delta}},
		opts,
	).Decode(&cat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFound("Category")
	}
	if err != nil {
		return storageErr(err)
	}
	if cat.BooksCount < 0 {
		log.Printf("category %s booksCount is negative (%d): reconciliation needed", id.Hex(), cat.BooksCount)
	}
	return nil
}

// RecalculateBooksCounts recomputes every category's booksCount from the
// books collection. This is the operator reconcile routine for the drift
// the incremental counters tolerate; it returns how many categories were
// corrected.
func (db *DB) RecalculateBooksCounts(ctx context.Context) (int64, error) {
	cats, err := db.ListCategories(ctx)
	if err != nil {
		return 0, err
	}
	var updated int64
	for _, cat := range cats {
		n, err := db.Books().CountDocuments(ctx, bson.M{"category": cat.ID})
		if err != nil {
			return updated, storageErr(err)
		}
		if n == cat.BooksCount {
			continue
		}
		_, err = db.Categories().UpdateOne(ctx, bson.M{"_id": cat.ID}, bson.M{"$set": bson.M{"booksCount": n}})
		if err != nil {
			return updated, storageErr(err)
		}
		updated++
	}
	return updated, nil
}
