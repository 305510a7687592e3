package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openshelf/elibrary/backend/apperr"
	"github.com/openshelf/elibrary/backend/models"
)

func TestValidateReview(t *testing.T) {
	tests := []struct {
		name    string
		review  models.Review
		wantErr bool
	}{
		{"valid", models.Review{Rating: 4, Comment: "great read"}, false},
		{"rating_low", models.Review{Rating: 0}, true},
		{"rating_high", models.Review{Rating: 6}, true},
		{"no_comment", models.Review{Rating: 1}, false},
		{"comment_at_limit", models.Review{Rating: 5, Comment: strings.Repeat("a", models.MaxCommentLen)}, false},
		{"comment_over_limit", models.Review{Rating: 5, Comment: strings.Repeat("a", models.MaxCommentLen+1)}, true},
		// 300 characters but 900 bytes; the limit counts characters.
		{"multibyte_within_limit", models.Review{Rating: 5, Comment: strings.Repeat("書", 300)}, false},
		{"multibyte_over_limit", models.Review{Rating: 5, Comment: strings.Repeat("書", models.MaxCommentLen+1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateReview(tt.review)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// appendedReviewDoc digs the review document out of the first pipeline
// stage: $set.reviews.$concatArrays[1][0] must be a $literal wrapper.
func appendedReviewDoc(t *testing.T, pipeline []bson.D) bson.M {
	t.Helper()
	require.Len(t, pipeline, 2)
	require.Equal(t, "$set", pipeline[0][0].Key)

	set, ok := pipeline[0][0].Value.(bson.M)
	require.True(t, ok)
	reviews, ok := set["reviews"].(bson.M)
	require.True(t, ok)
	concat, ok := reviews["$concatArrays"].(bson.A)
	require.True(t, ok)
	require.Len(t, concat, 2)
	appended, ok := concat[1].(bson.A)
	require.True(t, ok)
	require.Len(t, appended, 1)

	wrapper, ok := appended[0].(bson.M)
	require.True(t, ok, "appended element must be an expression wrapper")
	doc, ok := wrapper["$literal"].(bson.M)
	require.True(t, ok, "review document must be wrapped in $literal")
	return doc
}

// Pipeline updates evaluate object values as aggregation expressions, so
// the review document has to go through $literal or a comment starting
// with '$' would be read as a field path. These comments must all be
// stored verbatim.
func TestReviewAppendPipeline_StoresCommentVerbatim(t *testing.T) {
	comments := []string{
		"$5 well spent",
		"$description",
		"$$NOW is as good a time as any",
		"plain comment",
	}

	for _, comment := range comments {
		t.Run(comment, func(t *testing.T) {
			review := models.Review{
				User:      primitive.NewObjectID(),
				Rating:    5,
				Comment:   comment,
				CreatedAt: time.Now().UTC(),
			}
			doc := appendedReviewDoc(t, reviewAppendPipeline(review, review.CreatedAt))

			assert.Equal(t, comment, doc["comment"])
			assert.Equal(t, review.User, doc["user"])
			assert.Equal(t, 5, doc["rating"])
		})
	}
}

func TestReviewAppendPipeline_OmitsEmptyComment(t *testing.T) {
	review := models.Review{User: primitive.NewObjectID(), Rating: 3, CreatedAt: time.Now().UTC()}
	doc := appendedReviewDoc(t, reviewAppendPipeline(review, review.CreatedAt))

	_, present := doc["comment"]
	assert.False(t, present)
}

// The second stage recomputes the summary from the full review sequence.
func TestReviewAppendPipeline_RecomputesSummary(t *testing.T) {
	now := time.Now().UTC()
	pipeline := reviewAppendPipeline(models.Review{User: primitive.NewObjectID(), Rating: 4, CreatedAt: now}, now)

	require.Len(t, pipeline, 2)
	require.Equal(t, "$set", pipeline[1][0].Key)
	set, ok := pipeline[1][0].Value.(bson.M)
	require.True(t, ok)

	assert.Equal(t, bson.M{"$avg": "$reviews.rating"}, set["ratings.average"])
	assert.Equal(t, bson.M{"$size": "$reviews"}, set["ratings.count"])
	assert.Equal(t, now, set["updatedAt"])
}
