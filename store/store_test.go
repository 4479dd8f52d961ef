package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robertmeta/macros/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), ".macros"), nil)
	require.NoError(t, err)
	return s
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", ".macros")
	s, err := New(dir, nil)
	require.NoError(t, err)
	require.NotNil(t, s)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, s.Dir())
}

func TestStore_LoadMissingFiles(t *testing.T) {
	s := newTestStore(t)

	foods, feed, err := s.Load()
	require.NoError(t, err)
	assert.NotNil(t, foods)
	assert.NotNil(t, feed)
	assert.Empty(t, foods)
	assert.Empty(t, feed)
}

func TestStore_LoadCorruptFile(t *testing.T) {
	s := newTestStore(t)
	err := os.WriteFile(filepath.Join(s.Dir(), FoodsFile), []byte("{not json"), 0644)
	require.NoError(t, err)

	_, _, err = s.Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestStore_LoadWrongSchema(t *testing.T) {
	s := newTestStore(t)
	err := os.WriteFile(filepath.Join(s.Dir(), FeedFile), []byte(`[{"id": "zero"}]`), 0644)
	require.NoError(t, err)

	_, _, err = s.Load()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestStore_PersistAndLoad(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	foods := []model.Food{
		{ID: 0, Name: "Banana", ServingSize: "1 medium", Carbs: 27, Fats: 0.3, Protein: 1.3},
		{ID: 3, Name: "Rice", ServingSize: "100g", Carbs: 28, Fats: 0.3, Protein: 2.7},
	}
	feed := []model.FeedEntry{
		{ID: 1, FoodID: 3, Amount: 1.5, Date: base.Add(time.Hour)},
		{ID: 0, FoodID: 0, Amount: 2, Date: base},
	}

	require.NoError(t, s.PersistFoods(foods))
	require.NoError(t, s.PersistFeed(feed))

	gotFoods, gotFeed, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, foods, gotFoods)

	require.Len(t, gotFeed, 2)
	assert.Equal(t, int64(0), gotFeed[0].ID, "feed should be sorted by date on load")
	assert.Equal(t, int64(1), gotFeed[1].ID)
	assert.True(t, base.Equal(gotFeed[0].Date))
}

func TestStore_PersistedShape(t *testing.T) {
	s := newTestStore(t)
	foods := []model.Food{{ID: 0, Name: "Oats", ServingSize: "40g", Carbs: 27, Fats: 2.8, Protein: 5}}
	feed := []model.FeedEntry{{ID: 0, FoodID: 0, Amount: 1, Date: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}}

	require.NoError(t, s.PersistFoods(foods))
	require.NoError(t, s.PersistFeed(feed))

	foodsJSON, err := os.ReadFile(filepath.Join(s.Dir(), FoodsFile))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":0,"name":"Oats","brand":"","carbs":27,"fats":2.8,"protein":5,"serving_size":"40g"}]`, string(foodsJSON))
	assert.Contains(t, string(foodsJSON), "\n  {", "output should be pretty-printed")
	assert.NotContains(t, string(foodsJSON), "relevance")

	feedJSON, err := os.ReadFile(filepath.Join(s.Dir(), FeedFile))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":0,"food_id":0,"amount":1,"date":"2024-01-02T03:04:05Z"}]`, string(feedJSON))
	assert.NotContains(t, string(feedJSON), "is_daily_total")
}

func TestStore_PersistEmptyWritesArray(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.PersistFoods(nil))
	require.NoError(t, s.PersistFeed(nil))

	data, err := os.ReadFile(filepath.Join(s.Dir(), FoodsFile))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	data, err = os.ReadFile(filepath.Join(s.Dir(), FeedFile))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestStore_RoundTripIsStable(t *testing.T) {
	s := newTestStore(t)
	foods := []model.Food{
		{ID: 2, Name: "Apple", ServingSize: "1 medium", Carbs: 25, Fats: 0.3, Protein: 0.5},
		{ID: 0, Name: "Applesauce", ServingSize: "1 cup", Carbs: 27.5, Protein: 0.4},
	}
	feed := []model.FeedEntry{
		{ID: 0, FoodID: 2, Amount: 1, Date: time.Date(2024, 2, 1, 8, 30, 0, 123456789, time.UTC)},
	}
	require.NoError(t, s.PersistFoods(foods))
	require.NoError(t, s.PersistFeed(feed))

	firstFoods, err := os.ReadFile(filepath.Join(s.Dir(), FoodsFile))
	require.NoError(t, err)
	firstFeed, err := os.ReadFile(filepath.Join(s.Dir(), FeedFile))
	require.NoError(t, err)

	loadedFoods, loadedFeed, err := s.Load()
	require.NoError(t, err)
	require.NoError(t, s.PersistFoods(loadedFoods))
	require.NoError(t, s.PersistFeed(loadedFeed))

	secondFoods, err := os.ReadFile(filepath.Join(s.Dir(), FoodsFile))
	require.NoError(t, err)
	secondFeed, err := os.ReadFile(filepath.Join(s.Dir(), FeedFile))
	require.NoError(t, err)

	assert.Equal(t, string(firstFoods), string(secondFoods))
	assert.Equal(t, string(firstFeed), string(secondFeed))
}

func TestNextIDs(t *testing.T) {
	assert.Equal(t, int64(0), NextFoodID(nil))
	assert.Equal(t, int64(0), NextFeedID([]model.FeedEntry{}))

	foods := []model.Food{{ID: 4}, {ID: 1}, {ID: 9}}
	assert.Equal(t, int64(10), NextFoodID(foods))

	feed := []model.FeedEntry{{ID: 0}}
	assert.Equal(t, int64(1), NextFeedID(feed))
}

func TestSortFeed_Stable(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feed := []model.FeedEntry{
		{ID: 5, Date: at.Add(time.Minute)},
		{ID: 1, Date: at},
		{ID: 2, Date: at},
	}
	SortFeed(feed)

	assert.Equal(t, []int64{1, 2, 5}, []int64{feed[0].ID, feed[1].ID, feed[2].ID})
}
