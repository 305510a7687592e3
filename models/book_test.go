package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openshelf/elibrary/backend/models"
)

func review(user primitive.ObjectID, rating int) models.Review {
	return models.Review{User: user, Rating: rating}
}

func TestRecalculateRatings(t *testing.T) {
	u := func() primitive.ObjectID { return primitive.NewObjectID() }

	tests := []struct {
		name        string
		reviews     []models.Review
		wantAverage float64
		wantCount   int
	}{
		{"empty_resets_to_zero", nil, 0, 0},
		{"single_review", []models.Review{review(u(), 4)}, 4, 1},
		{"exact_mean", []models.Review{review(u(), 4), review(u(), 2)}, 3, 2},
		{
			"unrounded_mean",
			[]models.Review{review(u(), 5), review(u(), 4), review(u(), 4)},
			13.0 / 3.0,
			3,
		},
		{
			"all_fives",
			[]models.Review{review(u(), 5), review(u(), 5), review(u(), 5), review(u(), 5)},
			5,
			4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := models.Book{Reviews: tt.reviews}
			book.RecalculateRatings()
			assert.Equal(t, tt.wantAverage, book.Ratings.Average)
			assert.Equal(t, tt.wantCount, book.Ratings.Count)
		})
	}
}

// A summary left over from deleted reviews must be reset, not kept stale.
func TestRecalculateRatings_ClearsStaleSummary(t *testing.T) {
	book := models.Book{
		Ratings: models.Ratings{Average: 4.5, Count: 7},
		Reviews: []models.Review{},
	}
	book.RecalculateRatings()

	assert.Zero(t, book.Ratings.Average)
	assert.Zero(t, book.Ratings.Count)
}

// The summary is always recomputed from the full sequence; submitting
// reviews one at a time must land on the exact mean, and a duplicate
// reviewer must be detectable without touching the summary.
func TestRatingLifecycle(t *testing.T) {
	user1 := primitive.NewObjectID()
	user2 := primitive.NewObjectID()

	book := models.Book{}
	require.Zero(t, book.Ratings.Average)
	require.Zero(t, book.Ratings.Count)

	book.Reviews = append(book.Reviews, review(user1, 4))
	book.RecalculateRatings()
	assert.Equal(t, 4.0, book.Ratings.Average)
	assert.Equal(t, 1, book.Ratings.Count)

	book.Reviews = append(book.Reviews, review(user2, 2))
	book.RecalculateRatings()
	assert.Equal(t, 3.0, book.Ratings.Average)
	assert.Equal(t, 2, book.Ratings.Count)

	// user1 tries again: the write path rejects it, the summary stays.
	assert.True(t, book.HasReviewBy(user1))
	assert.Equal(t, 3.0, book.Ratings.Average)
	assert.Equal(t, 2, book.Ratings.Count)
	assert.Len(t, book.Reviews, 2)
}

func TestHasReviewBy(t *testing.T) {
	user := primitive.NewObjectID()
	other := primitive.NewObjectID()
	book := models.Book{Reviews: []models.Review{review(user, 5)}}

	assert.True(t, book.HasReviewBy(user))
	assert.False(t, book.HasReviewBy(other))
	assert.False(t, (&models.Book{}).HasReviewBy(user))
}

func TestFileName(t *testing.T) {
	book := models.Book{Title: "Animal Farm", FileFormat: models.FormatEPUB}
	assert.Equal(t, "Animal Farm.epub", book.FileName())
}

func TestValidFormat(t *testing.T) {
	assert.True(t, models.ValidFormat(models.FormatPDF))
	assert.True(t, models.ValidFormat(models.FormatEPUB))
	assert.True(t, models.ValidFormat(models.FormatMOBI))
	assert.False(t, models.ValidFormat("pdf"))
	assert.False(t, models.ValidFormat("AZW3"))
	assert.False(t, models.ValidFormat(""))
}
