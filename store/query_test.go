package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openshelf/elibrary/backend/catalog"
)

func TestSpecFilter_Empty(t *testing.T) {
	filter := specFilter(catalog.Build(catalog.Params{}))
	assert.Empty(t, filter)
}

func TestSpecFilter_Category(t *testing.T) {
	id := primitive.NewObjectID()
	filter := specFilter(catalog.Spec{Category: id.Hex()})

	assert.Equal(t, bson.M{"category": id}, filter)
}

func TestSpecFilter_MalformedCategoryMatchesNothing(t *testing.T) {
	filter := specFilter(catalog.Spec{Category: "not-a-hex-id"})

	// Degrades to an empty result set instead of raising an error.
	assert.Equal(t, bson.M{"category": primitive.NilObjectID}, filter)
}

func TestSpecFilter_Author(t *testing.T) {
	filter := specFilter(catalog.Spec{Author: "orwell"})

	re, ok := filter["author"].(primitive.Regex)
	require.True(t, ok)
	assert.Equal(t, "orwell", re.Pattern)
	assert.Equal(t, "i", re.Options)
}

func TestSpecFilter_Featured(t *testing.T) {
	filter := specFilter(catalog.Spec{Featured: true})
	assert.Equal(t, bson.M{"isFeatured": true}, filter)

	filter = specFilter(catalog.Spec{Featured: false})
	assert.NotContains(t, filter, "isFeatured")
}

func TestSpecFilter_SearchSpansThreeFields(t *testing.T) {
	filter := specFilter(catalog.Spec{Search: "farm"})

	or, ok := filter["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 3)

	re := primitive.Regex{Pattern: "farm", Options: "i"}
	assert.Equal(t, bson.M{"title": re}, or[0])
	assert.Equal(t, bson.M{"author": re}, or[1])
	assert.Equal(t, bson.M{"description": re}, or[2])
}

func TestSpecFilter_ClausesCombineWithAnd(t *testing.T) {
	id := primitive.NewObjectID()
	filter := specFilter(catalog.Spec{
		Category: id.Hex(),
		Author:   "orwell",
		Search:   "farm",
		Featured: true,
	})

	// Top-level keys AND together; only search expands to an OR.
	assert.Len(t, filter, 4)
	assert.Equal(t, id, filter["category"])
	assert.Contains(t, filter, "author")
	assert.Contains(t, filter, "isFeatured")
	assert.Contains(t, filter, "$or")
}

func TestSpecSort_PreservesRuleOrder(t *testing.T) {
	sort := specSort(catalog.Spec{Sort: []catalog.SortRule{
		{Field: "ratings.average", Descending: true},
		{Field: "title"},
	}})

	assert.Equal(t, bson.D{
		{Key: "ratings.average", Value: -1},
		{Key: "title", Value: 1},
	}, sort)
}

func TestSpecSort_Default(t *testing.T) {
	sort := specSort(catalog.Build(catalog.Params{}))

	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}}, sort)
}
