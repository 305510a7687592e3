package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openshelf/elibrary/backend/apperr"
	"github.com/openshelf/elibrary/backend/models"
)

func (db *DB) CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	user.CreatedAt = time.Now().UTC()
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.FavoriteBooks == nil {
		user.FavoriteBooks = []primitive.ObjectID{}
	}
	if user.ReadingHistory == nil {
		user.ReadingHistory = []models.ReadingEntry{}
	}
	if user.Downloads == nil {
		user.Downloads = []models.DownloadEntry{}
	}
	res, err := db.Users().InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, apperr.Conflict("a user with this email already exists")
		}
		return primitive.NilObjectID, storageErr(err)
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return &u, nil
}

func (db *DB) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return &u, nil
}

// UserPage mirrors BookPage for the admin user listing.
type UserPage struct {
	Items       []models.User
	Total       int64
	PageCount   int64
	CurrentPage int64
}

func (db *DB) ListUsers(ctx context.Context, page, limit int64) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cur, err := db.Users().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, storageErr(err)
	}
	defer cur.Close(ctx)
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, storageErr(err)
	}
	total, err := db.Users().CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, storageErr(err)
	}
	return &UserPage{
		Items:       users,
		Total:       total,
		PageCount:   (total + limit - 1) / limit,
		CurrentPage: page,
	}, nil
}

func (db *DB) UpdateUser(ctx context.Context, id primitive.ObjectID, name, email, avatar, hashedPassword, role *string) (*models.User, error) {
	set := bson.M{}
	if name != nil {
		set["name"] = *name
	}
	if email != nil {
		set["email"] = *email
	}
	if avatar != nil {
		set["avatar"] = *avatar
	}
	if hashedPassword != nil {
		set["password"] = *hashedPassword
	}
	if role != nil {
		set["role"] = *role
	}
	if len(set) > 0 {
		res, err := db.Users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, apperr.Conflict("a user with this email already exists")
			}
			return nil, storageErr(err)
		}
		if res.MatchedCount == 0 {
			return nil, apperr.NotFound("User")
		}
	}
	return db.UserByID(ctx, id)
}

func (db *DB) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.Users().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return storageErr(err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// AddFavorite inserts the book into the user's favorites set. The filter
// excludes users that already hold the book, making the write a
// conditional insert-if-absent: a duplicate add errors instead of
// silently succeeding.
func (db *DB) AddFavorite(ctx context.Context, userID, bookID primitive.ObjectID) ([]primitive.ObjectID, error) {
	res, err := db.Users().UpdateOne(ctx,
		bson.M{"_id": userID, "favoriteBooks": bson.M{"$ne": bookID}},
		bson.M{"$push": bson.M{"favoriteBooks": bookID}},
	)
	if err != nil {
		return nil, storageErr(err)
	}
	if res.MatchedCount == 0 {
		// Either the user is missing or the book is already a favorite.
		if _, err := db.UserByID(ctx, userID); err != nil {
			return nil, err
		}
		return nil, apperr.AlreadyFavorited()
	}
	user, err := db.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.FavoriteBooks, nil
}

// RemoveFavorite pulls the book from the favorites set. Removing an
// absent favorite succeeds silently; only the add side is strict.
func (db *DB) RemoveFavorite(ctx context.Context, userID, bookID primitive.ObjectID) ([]primitive.ObjectID, error) {
	res, err := db.Users().UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$pull": bson.M{"favoriteBooks": bookID}},
	)
	if err != nil {
		return nil, storageErr(err)
	}
	if res.MatchedCount == 0 {
		return nil, apperr.NotFound("User")
	}
	user, err := db.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.FavoriteBooks, nil
}

// RecordDownload appends to the user's download log. The log is
// unbounded and never deduplicated; ordering is append order.
func (db *DB) RecordDownload(ctx context.Context, userID, bookID primitive.ObjectID) error {
	entry := models.DownloadEntry{Book: bookID, DownloadedAt: time.Now().UTC()}
	res, err := db.Users().UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$push": bson.M{"downloads": entry}},
	)
	if err != nil {
		return storageErr(err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// UpsertReadingProgress updates the user's history entry for the book,
// refreshing lastRead, or inserts a new entry when none exists. The
// insert is guarded against a concurrent insert of the same book so the
// one-entry-per-book invariant holds.
func (db *DB) UpsertReadingProgress(ctx context.Context, userID, bookID primitive.ObjectID, progress int) ([]models.ReadingEntry, error) {
	if progress < 0 || progress > 100 {
		return nil, apperr.Validation("progress must be between 0 and 100")
	}
	now := time.Now().UTC()
	set := bson.M{"$set": bson.M{
		"readingHistory.$.progress": progress,
		"readingHistory.$.lastRead": now,
	}}
	existing := bson.M{"_id": userID, "readingHistory.book": bookID}

	res, err := db.Users().UpdateOne(ctx, existing, set)
	if err != nil {
		return nil, storageErr(err)
	}
	if res.MatchedCount == 0 {
		entry := models.ReadingEntry{Book: bookID, Progress: progress, LastRead: now}
		res, err = db.Users().UpdateOne(ctx,
			bson.M{"_id": userID, "readingHistory.book": bson.M{"$ne": bookID}},
			bson.M{"$push": bson.M{"readingHistory": entry}},
		)
		if err != nil {
			return nil, storageErr(err)
		}
		if res.MatchedCount == 0 {
			// Lost the insert race to a concurrent request, or the user is
			// gone. Retry the in-place update once to tell the two apart.
			res, err = db.Users().UpdateOne(ctx, existing, set)
			if err != nil {
				return nil, storageErr(err)
			}
			if res.MatchedCount == 0 {
				return nil, apperr.NotFound("User")
			}
		}
	}
	user, err := db.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.ReadingHistory, nil
}
