package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openshelf/elibrary/backend/utils"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Fiction", "fiction"},
		{"whitespace_to_hyphen", "Science Fiction", "science-fiction"},
		{"collapses_whitespace_run", "Self   Help", "self-help"},
		{"strips_non_word", "Kids' Books!", "kids-books"},
		{"keeps_existing_hyphen", "Sci-Fi", "sci-fi"},
		{"strips_accents", "Café Culture", "cafe-culture"},
		{"trims_outer_space", "  History  ", "history"},
		{"digits_kept", "Top 100 Picks", "top-100-picks"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, utils.Slugify(tt.in))
		})
	}
}
