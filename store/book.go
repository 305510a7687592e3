package store

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openshelf/elibrary/backend/apperr"
	"github.com/openshelf/elibrary/backend/catalog"
	"github.com/openshelf/elibrary/backend/models"
)

// BookPage is one page of catalog results. Total counts every document
// matching the filter, with pagination ignored.
type BookPage struct {
	Items       []models.Book
	Total       int64
	PageCount   int64
	CurrentPage int64
}

// ListBooks executes a catalog spec against the books collection. The
// read is side-effect free: view and download counters are separate,
// explicit operations.
func (db *DB) ListBooks(ctx context.Context, spec catalog.Spec) (*BookPage, error) {
	filter := specFilter(spec)
	opts := options.Find().
		SetSort(specSort(spec)).
		SetSkip(spec.Skip).
		SetLimit(spec.Limit)
	cur, err := db.Books().Find(ctx, filter, opts)
	if err != nil {
		return nil, storageErr(err)
	}
	defer cur.Close(ctx)
	books := []models.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, storageErr(err)
	}
	total, err := db.Books().CountDocuments(ctx, filter)
	if err != nil {
		return nil, storageErr(err)
	}
	var pageCount int64
	if spec.Limit > 0 {
		pageCount = (total + spec.Limit - 1) / spec.Limit
	}
	return &BookPage{
		Items:       books,
		Total:       total,
		PageCount:   pageCount,
		CurrentPage: spec.Page,
	}, nil
}

func (db *DB) BookByID(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOne(ctx, bson.M{"_id": id}).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("Book")
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return &book, nil
}

// CreateBook inserts the book and increments its category's booksCount.
// The two writes are separate atomic operations, not a transaction; drift
// between them is reconciled offline.
func (db *DB) CreateBook(ctx context.Context, book *models.Book) (primitive.ObjectID, error) {
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now
	if book.Language == "" {
		book.Language = "English"
	}
	if book.Reviews == nil {
		book.Reviews = []models.Review{}
	}
	if n, err := db.Categories().CountDocuments(ctx, bson.M{"_id": book.Category}); err != nil {
		return primitive.NilObjectID, storageErr(err)
	} else if n == 0 {
		return primitive.NilObjectID, apperr.NotFound("Category")
	}
	res, err := db.Books().InsertOne(ctx, book)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, apperr.Conflict("a book with this ISBN already exists")
		}
		return primitive.NilObjectID, storageErr(err)
	}
	if err := db.IncrementBooksCount(ctx, book.Category, 1); err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

// BookUpdate lists the fields an update may change; nil pointers leave
// the stored value untouched.
type BookUpdate struct {
	Title         *string
	Author        *string
	Description   *string
	ISBN          *string
	Category      *primitive.ObjectID
	CoverImage    *string
	CoverKey      *string
	FileURL       *string
	FileKey       *string
	FileFormat    *string
	FileSize      *int64
	Language      *string
	Publisher     *string
	PublishedDate *time.Time
	Pages         *int
	IsFeatured    *bool
	Tags          []string
}

// UpdateBook applies the update and keeps category counts in sync when
// the book moves between categories. Identical old and new categories
// issue no count writes at all.
func (db *DB) UpdateBook(ctx context.Context, id primitive.ObjectID, upd BookUpdate) (*models.Book, error) {
	book, err := db.BookByID(ctx, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	setIfString := func(field string, v *string) {
		if v != nil {
			set[field] = *v
		}
	}
	setIfString("title", upd.Title)
	setIfString("author", upd.Author)
	setIfString("description", upd.Description)
	setIfString("isbn", upd.ISBN)
	setIfString("coverImage", upd.CoverImage)
	setIfString("coverKey", upd.CoverKey)
	setIfString("fileUrl", upd.FileURL)
	setIfString("fileKey", upd.FileKey)
	setIfString("fileFormat", upd.FileFormat)
	setIfString("language", upd.Language)
	setIfString("publisher", upd.Publisher)
	if upd.FileSize != nil {
		set["fileSize"] = *upd.FileSize
	}
	if upd.PublishedDate != nil {
		set["publishedDate"] = *upd.PublishedDate
	}
	if upd.Pages != nil {
		set["pages"] = *upd.Pages
	}
	if upd.IsFeatured != nil {
		set["isFeatured"] = *upd.IsFeatured
	}
	if upd.Tags != nil {
		set["tags"] = upd.Tags
	}

	recategorized := upd.Category != nil && *upd.Category != book.Category
	if recategorized {
		if n, err := db.Categories().CountDocuments(ctx, bson.M{"_id": *upd.Category}); err != nil {
			return nil, storageErr(err)
		} else if n == 0 {
			return nil, apperr.NotFound("Category")
		}
		set["category"] = *upd.Category
	}

	if _, err := db.Books().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
		return nil, storageErr(err)
	}
	if recategorized {
		// Two separate atomic increments on two category documents; the
		// gap between them is the accepted consistency tradeoff.
		if err := db.IncrementBooksCount(ctx, book.Category, -1); err != nil {
			return nil, err
		}
		if err := db.IncrementBooksCount(ctx, *upd.Category, 1); err != nil {
			return nil, err
		}
	}
	return db.BookByID(ctx, id)
}

// DeleteBook removes the document and decrements its category count.
// Embedded reviews disappear with the document; there is nothing to
// cascade. The returned book carries the S3 keys the caller cleans up.
func (db *DB) DeleteBook(ctx context.Context, id primitive.ObjectID) (*models.Book, error) {
	var book models.Book
	err := db.Books().FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&book)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("Book")
	}
	if err != nil {
		return nil, storageErr(err)
	}
	if err := db.IncrementBooksCount(ctx, book.Category, -1); err != nil {
		return nil, err
	}
	return &book, nil
}

// validateReview checks the submitted rating and comment bounds. The
// comment limit counts characters, not bytes, so multibyte text is not
// cut short.
func validateReview(review models.Review) error {
	if review.Rating < 1 || review.Rating > 5 {
		return apperr.Validation("rating must be between 1 and 5")
	}
	if utf8.RuneCountInString(review.Comment) > models.MaxCommentLen {
		return apperr.Validation("comment cannot be more than 500 characters")
	}
	return nil
}

// reviewAppendPipeline builds the pipeline update that appends the
// review and recomputes the rating summary from the full sequence. The
// review document is wrapped in $literal: pipeline stages evaluate
// object values as expressions, so without it a user comment starting
// with '$' would be parsed as a field path instead of stored verbatim.
func reviewAppendPipeline(review models.Review, now time.Time) mongo.Pipeline {
	doc := bson.M{
		"user":      review.User,
		"rating":    review.Rating,
		"createdAt": review.CreatedAt,
	}
	if review.Comment != "" {
		doc["comment"] = review.Comment
	}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"reviews": bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$reviews", bson.A{}}},
				bson.A{bson.M{"$literal": doc}},
			}},
		}}},
		{{Key: "$set", Value: bson.M{
			"ratings.average": bson.M{"$avg": "$reviews.rating"},
			"ratings.count":   bson.M{"$size": "$reviews"},
			"updatedAt":       now,
		}}},
	}
}

// AddReview appends the review and recomputes the rating summary in a
// single conditional document write. The filter excludes books already
// holding a review by this user, which closes the check-then-append race
// without a per-book lock, and the pipeline recomputes the average over
// the full review sequence rather than folding into a running mean.
func (db *DB) AddReview(ctx context.Context, bookID primitive.ObjectID, review models.Review) (*models.Book, error) {
	if err := validateReview(review); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	review.CreatedAt = now

	filter := bson.M{
		"_id":          bookID,
		"reviews.user": bson.M{"$ne": review.User},
	}
	res, err := db.Books().UpdateOne(ctx, filter, reviewAppendPipeline(review, now))
	if err != nil {
		return nil, storageErr(err)
	}
	if res.MatchedCount == 0 {
		// Either the book does not exist or the user already reviewed it.
		if _, err := db.BookByID(ctx, bookID); err != nil {
			return nil, err
		}
		return nil, apperr.DuplicateReview()
	}
	return db.BookByID(ctx, bookID)
}

// IncrementViews bumps the raw view counter. One call per detail fetch;
// repeats are intentionally not deduplicated.
func (db *DB) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	return db.incrementCounter(ctx, id, "views")
}

// IncrementDownloads bumps the raw download counter, once per download
// request.
func (db *DB) IncrementDownloads(ctx context.Context, id primitive.ObjectID) error {
	return db.incrementCounter(ctx, id, "downloads")
}

func (db *DB) incrementCounter(ctx context.Context, id primitive.ObjectID, field string) error {
	res, err := db.Books().UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{field: 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return storageErr(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("Book")
	}
	return nil
}

// RelatedBooks returns up to limit books sharing the given book's
// category, excluding the book itself, best-rated first.
func (db *DB) RelatedBooks(ctx context.Context, book *models.Book, limit int64) ([]models.Book, error) {
	filter := bson.M{
		"_id":      bson.M{"$ne": book.ID},
		"category": book.Category,
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "ratings.average", Value: -1}}).
		SetLimit(limit)
	cur, err := db.Books().Find(ctx, filter, opts)
	if err != nil {
		return nil, storageErr(err)
	}
	defer cur.Close(ctx)
	books := []models.Book{}
	if err := cur.All(ctx, &books); err != nil {
		return nil, storageErr(err)
	}
	return books, nil
}

// RecalculateRatings rewrites every book's rating summary from its stored
// review sequence. This is the reconcile path for data touched outside
// the review operation (migrations, manual deletions); it returns the
// number of books whose summary actually changed.
func (db *DB) RecalculateRatings(ctx context.Context) (int64, error) {
	cur, err := db.Books().Find(ctx, bson.M{})
	if err != nil {
		return 0, storageErr(err)
	}
	defer cur.Close(ctx)
	var updated int64
	for cur.Next(ctx) {
		var book models.Book
		if err := cur.Decode(&book); err != nil {
			return updated, storageErr(err)
		}
		before := book.Ratings
		book.RecalculateRatings()
		if book.Ratings == before {
			continue
		}
		_, err := db.Books().UpdateOne(ctx, bson.M{"_id": book.ID}, bson.M{
			"$set": bson.M{"ratings": book.Ratings, "updatedAt": time.Now().UTC()},
		})
		if err != nil {
			return updated, storageErr(err)
		}
		updated++
	}
	if err := cur.Err(); err != nil {
		return updated, storageErr(err)
	}
	return updated, nil
}

// BookWithRefs pairs a book with display data for its references, the
// equivalent of populating category and creator on the way out.
type BookWithRefs struct {
	models.Book
	CategoryRef   *models.CategoryRef `json:"categoryRef,omitempty"`
	CreatedByName string              `json:"createdByName,omitempty"`
}

// WithRefs resolves category (name, slug, color) and creator (name)
// display data for a slice of books using projected batch lookups.
func (db *DB) WithRefs(ctx context.Context, books []models.Book) ([]BookWithRefs, error) {
	catIDs := make([]primitive.ObjectID, 0, len(books))
	userIDs := make([]primitive.ObjectID, 0, len(books))
	seenCat := map[primitive.ObjectID]bool{}
	seenUser := map[primitive.ObjectID]bool{}
	for _, b := range books {
		if !seenCat[b.Category] {
			seenCat[b.Category] = true
			catIDs = append(catIDs, b.Category)
		}
		if !b.CreatedBy.IsZero() && !seenUser[b.CreatedBy] {
			seenUser[b.CreatedBy] = true
			userIDs = append(userIDs, b.CreatedBy)
		}
	}

	cats, err := db.categoryRefs(ctx, catIDs)
	if err != nil {
		return nil, err
	}
	names, err := db.userNames(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	out := make([]BookWithRefs, len(books))
	for i, b := range books {
		out[i] = BookWithRefs{Book: b, CreatedByName: names[b.CreatedBy]}
		if ref, ok := cats[b.Category]; ok {
			ref := ref
			out[i].CategoryRef = &ref
		}
	}
	return out, nil
}

func (db *DB) categoryRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.CategoryRef, error) {
	refs := map[primitive.ObjectID]models.CategoryRef{}
	if len(ids) == 0 {
		return refs, nil
	}
	opts := options.Find().SetProjection(bson.M{"name": 1, "slug": 1, "color": 1})
	cur, err := db.Categories().Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, storageErr(err)
	}
	defer cur.Close(ctx)
	var list []models.CategoryRef
	if err := cur.All(ctx, &list); err != nil {
		return nil, storageErr(err)
	}
	for _, ref := range list {
		refs[ref.ID] = ref
	}
	return refs, nil
}

func (db *DB) userNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	names := map[primitive.ObjectID]string{}
	if len(ids) == 0 {
		return names, nil
	}
	opts := options.Find().SetProjection(bson.M{"name": 1})
	cur, err := db.Users().Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, storageErr(err)
	}
	defer cur.Close(ctx)
	var list []struct {
		ID   primitive.ObjectID `bson:"_id"`
		Name string             `bson:"name"`
	}
	if err := cur.All(ctx, &list); err != nil {
		return nil, storageErr(err)
	}
	for _, u := range list {
		names[u.ID] = u.Name
	}
	return names, nil
}
