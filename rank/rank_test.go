package rank

import (
	"strings"
	"testing"

	"github.com/robertmeta/macros/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func views(names ...string) []model.FoodView {
	out := make([]model.FoodView, len(names))
	for i, n := range names {
		out[i] = model.FoodView{Food: model.Food{ID: int64(i), Name: n}}
	}
	return out
}

func names(vs []model.FoodView) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Name
	}
	return out
}

func TestSimilarity_Bounds(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"apple", "apple"},
		{"applesauce", "apple"},
		{"bread", "apple"},
		{"chicken breast", "chikn"},
		{"x", "yyyyyyyy"},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.query, func(t *testing.T) {
			got := Similarity(tt.name, tt.query)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}

	assert.Equal(t, 1.0, Similarity("apple", "apple"))
	assert.Zero(t, Similarity("apple", ""))
	assert.Zero(t, Similarity("", "apple"))
}

func TestScore_SubstringBonus(t *testing.T) {
	assert.GreaterOrEqual(t, Score("Greek Yogurt", "yogurt"), SubstringBonus)
	assert.Less(t, Score("Bread", "apple"), SubstringBonus)
	assert.Equal(t, SubstringBonus, Score("Bread", ""), "empty query gives only the bonus")
	assert.Equal(t, Score("APPLE", "apple"), Score("apple", "APPLE"), "scoring is case-insensitive")
}

func TestRank_AppleScenario(t *testing.T) {
	vs := views("Bread", "Applesauce", "Apple")
	Rank(vs, "apple")

	require.Equal(t, []string{"Apple", "Applesauce", "Bread"}, names(vs))

	apple, sauce, bread := vs[0].Relevance, vs[1].Relevance, vs[2].Relevance
	assert.GreaterOrEqual(t, apple, SubstringBonus)
	assert.GreaterOrEqual(t, sauce, SubstringBonus)
	assert.Less(t, bread, SubstringBonus)
	assert.Greater(t, apple, sauce, "both get the bonus; fuzzy similarity breaks the tie")
}

func TestRank_EmptyQueryKeepsOrder(t *testing.T) {
	vs := views("Oats", "Banana", "Rice", "Apple")
	Rank(vs, "")

	assert.Equal(t, []string{"Oats", "Banana", "Rice", "Apple"}, names(vs))
	for _, v := range vs {
		assert.Equal(t, SubstringBonus, v.Relevance)
	}
}

func TestRank_SubstringMatchesNeverBelowOthers(t *testing.T) {
	catalog := []string{
		"Banana", "Banana Bread", "Bread", "Brown Rice", "White Rice",
		"Rice Cakes", "Chicken Breast", "Chickpeas", "Peanut Butter",
		"Butter", "Apple", "Pineapple", "Applesauce", "Grapes",
	}
	queries := []string{"", "a", "rice", "BREAD", "butter", "apple", "pea", "zzz", "chick"}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			vs := views(catalog...)
			Rank(vs, q)

			seenMiss := false
			for _, v := range vs {
				contains := strings.Contains(strings.ToLower(v.Name), strings.ToLower(q))
				if !contains {
					seenMiss = true
					continue
				}
				assert.False(t, seenMiss, "%q contains %q but ranked below a non-match", v.Name, q)
			}
		})
	}
}
