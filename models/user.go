package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ReadingEntry tracks a user's progress through one book. There is at
// most one entry per book; updates refresh the existing entry.
type ReadingEntry struct {
	Book     primitive.ObjectID `bson:"book" json:"book"`
	Progress int                `bson:"progress" json:"progress"`
	LastRead time.Time          `bson:"lastRead" json:"lastRead"`
}

// DownloadEntry is one line of the user's download log. The log is
// append-only and never deduplicated.
type DownloadEntry struct {
	Book         primitive.ObjectID `bson:"book" json:"book"`
	DownloadedAt time.Time          `bson:"downloadedAt" json:"downloadedAt"`
}

type User struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name           string               `bson:"name" json:"name"`
	Email          string               `bson:"email" json:"email"`
	Password       string               `bson:"password" json:"-"`
	Avatar         string               `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Role           string               `bson:"role" json:"role"`
	FavoriteBooks  []primitive.ObjectID `bson:"favoriteBooks" json:"favoriteBooks"`
	ReadingHistory []ReadingEntry       `bson:"readingHistory" json:"readingHistory"`
	Downloads      []DownloadEntry      `bson:"downloads" json:"downloads"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
