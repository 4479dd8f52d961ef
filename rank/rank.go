// Package rank orders the food catalog by relevance to a search query.
package rank

import (
	"sort"
	"strings"

	"github.com/robertmeta/macros/model"
	"github.com/xrash/smetrics"
)

// SubstringBonus is added when the name contains the query.
const SubstringBonus = 1.0

// Jaro-Winkler tuning: the common-prefix boost applies above this
// threshold, over at most this many leading characters.
const (
	boostThreshold = 0.7
	prefixSize     = 4
)

// Similarity returns a fuzzy similarity in [0, 1] between two strings.
// An empty query matches nothing fuzzily.
func Similarity(name, query string) float64 {
	if query == "" || name == "" {
		return 0
	}
	return smetrics.JaroWinkler(name, query, boostThreshold, prefixSize)
}

// Score combines case-insensitive fuzzy similarity with a flat bonus for
// substring matches, so substring matches always outrank the rest.
func Score(name, query string) float64 {
	name = strings.ToLower(name)
	query = strings.ToLower(query)

	score := Similarity(name, query)
	if strings.Contains(name, query) {
		score += SubstringBonus
	}
	return score
}

// Rank rescores every view against query and sorts them by descending
// relevance. Equal or incomparable scores keep their relative order.
func Rank(views []model.FoodView, query string) {
	for i := range views {
		views[i].Relevance = Score(views[i].Name, query)
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Relevance > views[j].Relevance
	})
}
