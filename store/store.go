// Package store persists the food catalog and the consumption feed as JSON
// files in a per-user directory.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/robertmeta/macros/logger"
	"github.com/robertmeta/macros/model"
)

// File names inside the storage directory.
const (
	FoodsFile = "foods.json"
	FeedFile  = "feed.json"
)

// ErrCorrupt is returned when a storage file exists but cannot be decoded.
var ErrCorrupt = errors.New("storage file is corrupt")

// Store manages the two JSON collections.
type Store struct {
	dir string
	log *logger.Logger
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Store{dir: dir, log: log.With("dir", dir)}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Load reads both collections. Missing files yield empty collections; the
// feed comes back sorted by date.
func (s *Store) Load() ([]model.Food, []model.FeedEntry, error) {
	foods := []model.Food{}
	if err := s.read(FoodsFile, &foods); err != nil {
		return nil, nil, err
	}
	if foods == nil {
		foods = []model.Food{}
	}

	feed := []model.FeedEntry{}
	if err := s.read(FeedFile, &feed); err != nil {
		return nil, nil, err
	}
	if feed == nil {
		feed = []model.FeedEntry{}
	}
	SortFeed(feed)

	s.log.Debug("loaded collections", "foods", len(foods), "feed", len(feed))
	return foods, feed, nil
}

// PersistFoods overwrites foods.json with the given catalog.
func (s *Store) PersistFoods(foods []model.Food) error {
	if foods == nil {
		foods = []model.Food{}
	}
	return s.write(FoodsFile, foods)
}

// PersistFeed overwrites feed.json with the given entries.
func (s *Store) PersistFeed(feed []model.FeedEntry) error {
	if feed == nil {
		feed = []model.FeedEntry{}
	}
	return s.write(FeedFile, feed)
}

func (s *Store) read(name string, v interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Debug("storage file missing, starting empty", "file", name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	return nil
}

func (s *Store) write(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	s.log.Debug("wrote collection", "file", name, "bytes", len(data))
	return nil
}

// SortFeed orders entries by ascending date, keeping insertion order for
// equal timestamps.
func SortFeed(feed []model.FeedEntry) {
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Date.Before(feed[j].Date)
	})
}

// NextFoodID returns 1 + the highest food id, or 0 for an empty catalog.
func NextFoodID(foods []model.Food) int64 {
	next := int64(0)
	for _, f := range foods {
		if f.ID+1 > next {
			next = f.ID + 1
		}
	}
	return next
}

// NextFeedID returns 1 + the highest entry id, or 0 for an empty feed.
func NextFeedID(feed []model.FeedEntry) int64 {
	next := int64(0)
	for _, e := range feed {
		if e.ID+1 > next {
			next = e.ID + 1
		}
	}
	return next
}
