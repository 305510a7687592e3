package store

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/openshelf/elibrary/backend/catalog"
)

// specFilter translates a catalog spec into the bson filter the books
// collection understands. All clauses AND together; the search clause
// expands to an OR over title, author and description. Patterns arrive
// already escaped from the builder, so they only ever match literally.
func specFilter(spec catalog.Spec) bson.M {
	filter := bson.M{}
	if spec.Category != "" {
		id, err := primitive.ObjectIDFromHex(spec.Category)
		if err != nil {
			// A malformed reference matches nothing rather than erroring.
			filter["category"] = primitive.NilObjectID
		} else {
			filter["category"] = id
		}
	}
	if spec.Author != "" {
		filter["author"] = primitive.Regex{Pattern: spec.Author, Options: "i"}
	}
	if spec.Featured {
		filter["isFeatured"] = true
	}
	if spec.Search != "" {
		re := primitive.Regex{Pattern: spec.Search, Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"author": re},
			bson.M{"description": re},
		}
	}
	return filter
}

// specSort translates the sort rules into a bson.D, preserving rule order
// so later fields act as tie-breaks.
func specSort(spec catalog.Spec) bson.D {
	sort := make(bson.D, 0, len(spec.Sort))
	for _, rule := range spec.Sort {
		dir := 1
		if rule.Descending {
			dir = -1
		}
		sort = append(sort, bson.E{Key: rule.Field, Value: dir})
	}
	return sort
}
