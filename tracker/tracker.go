// Package tracker holds the application state of macros and applies user
// commands to it. Every accepted mutation is written to storage before
// Dispatch returns.
package tracker

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robertmeta/macros/logger"
	"github.com/robertmeta/macros/model"
	"github.com/robertmeta/macros/rank"
	"github.com/robertmeta/macros/store"
	"github.com/robertmeta/macros/timeline"
)

// Persister writes whole collections to durable storage.
type Persister interface {
	PersistFoods(foods []model.Food) error
	PersistFeed(feed []model.FeedEntry) error
}

// Mode is the state of the food editor.
type Mode int

const (
	Idle Mode = iota
	Editing
)

// EditBuffer holds the raw text typed into the food editor.
type EditBuffer struct {
	Name        string `json:"name"`
	ServingSize string `json:"serving_size"`
	Carbs       string `json:"carbs"`
	Fats        string `json:"fats"`
	Protein     string `json:"protein"`
}

// Tracker is the in-memory state: the ranked catalog, the feed, the current
// query and the editor. It is not safe for concurrent use.
type Tracker struct {
	store Persister
	log   *logger.Logger
	now   func() time.Time
	loc   *time.Location

	view   View
	query  string
	mode   Mode
	editID int64
	buffer EditBuffer

	foods []model.FoodView
	feed  []model.FeedEntry
}

// Open loads both collections from s and returns a ready Tracker.
func Open(s *store.Store, log *logger.Logger) (*Tracker, error) {
	foods, feed, err := s.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}
	return New(s, foods, feed, log), nil
}

// New builds a Tracker over already-loaded collections.
func New(p Persister, foods []model.Food, feed []model.FeedEntry, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	t := &Tracker{
		store: p,
		log:   log,
		now:   time.Now,
		loc:   time.Local,
		foods: make([]model.FoodView, 0, len(foods)),
		feed:  append([]model.FeedEntry{}, feed...),
	}
	for _, f := range foods {
		t.foods = append(t.foods, model.FoodView{Food: f})
	}
	store.SortFeed(t.feed)
	t.resetServingInputs()
	rank.Rank(t.foods, t.query)
	return t
}

// Dispatch applies cmd. It reports whether the command changed anything;
// rejected input is not an error. A non-nil error means storage could not be
// written and the caller must stop.
func (t *Tracker) Dispatch(cmd Command) (bool, error) {
	switch c := cmd.(type) {
	case SelectView:
		return t.selectView(c.Index), nil
	case ChangeSearch:
		t.query = c.Query
		rank.Rank(t.foods, t.query)
		return true, nil
	case BeginAdd:
		t.openEditor(store.NextFoodID(t.Records()), EditBuffer{})
		return true, nil
	case ModifyFood:
		return t.modifyFood(c.ID), nil
	case EditField:
		return t.editField(c.Field, c.Value), nil
	case CancelEdit:
		if t.mode != Editing {
			return false, nil
		}
		t.closeEditor()
		return true, nil
	case FinishEdit:
		return t.finishEdit()
	case SetServing:
		return t.setServing(c.FoodID, c.Value), nil
	case AddFeedEntry:
		return t.addFeedEntry(c.FoodID)
	case DeleteFood:
		return t.deleteFood(c.ID)
	case DeleteFeedEntry:
		return t.deleteFeedEntry(c.ID)
	default:
		panic(fmt.Sprintf("tracker: unknown command %T", cmd))
	}
}

func (t *Tracker) selectView(index int) bool {
	if index < 0 || index >= len(viewNames) {
		panic(fmt.Sprintf("tracker: invalid view index %d", index))
	}
	t.view = View(index)
	return true
}

func (t *Tracker) openEditor(id int64, buf EditBuffer) {
	t.mode = Editing
	t.editID = id
	t.buffer = buf
}

func (t *Tracker) closeEditor() {
	t.mode = Idle
	t.buffer = EditBuffer{}
}

func (t *Tracker) modifyFood(id int64) bool {
	i := t.indexOfFood(id)
	if i < 0 {
		t.log.Debug("modify rejected: no such food", "food_id", id)
		return false
	}
	f := t.foods[i].Food
	t.openEditor(f.ID, EditBuffer{
		Name:        f.Name,
		ServingSize: f.ServingSize,
		Carbs:       formatFloat(f.Carbs),
		Fats:        formatFloat(f.Fats),
		Protein:     formatFloat(f.Protein),
	})
	return true
}

func (t *Tracker) editField(field Field, value string) bool {
	if t.mode != Editing {
		return false
	}
	switch field {
	case FieldName:
		t.buffer.Name = value
	case FieldServingSize:
		t.buffer.ServingSize = value
	case FieldCarbs:
		t.buffer.Carbs = value
	case FieldFats:
		t.buffer.Fats = value
	case FieldProtein:
		t.buffer.Protein = value
	default:
		return false
	}
	return true
}

// finishEdit validates the buffer and upserts the food. On rejection the
// editor stays open with its inputs intact.
func (t *Tracker) finishEdit() (bool, error) {
	if t.mode != Editing {
		return false, nil
	}
	food, err := t.buffer.parse(t.editID)
	if err != nil {
		t.log.Debug("food rejected", "food_id", t.editID, "error", err)
		return false, nil
	}

	kept := t.foods[:0]
	for _, v := range t.foods {
		if v.ID != food.ID {
			kept = append(kept, v)
		}
	}
	t.foods = append(kept, model.FoodView{Food: food})
	t.closeEditor()
	t.resetServingInputs()

	if err := t.store.PersistFoods(t.Records()); err != nil {
		return true, err
	}
	rank.Rank(t.foods, t.query)
	t.log.Info("saved food", "food_id", food.ID, "name", food.Name)
	return true, nil
}

func (b EditBuffer) parse(id int64) (model.Food, error) {
	food := model.Food{
		ID:          id,
		Name:        strings.TrimSpace(b.Name),
		ServingSize: strings.TrimSpace(b.ServingSize),
	}
	var err error
	if food.Carbs, err = parseFloat("carbs", b.Carbs); err != nil {
		return food, err
	}
	if food.Fats, err = parseFloat("fats", b.Fats); err != nil {
		return food, err
	}
	if food.Protein, err = parseFloat("protein", b.Protein); err != nil {
		return food, err
	}
	return food, food.Validate()
}

func (t *Tracker) setServing(foodID int64, value string) bool {
	i := t.indexOfFood(foodID)
	if i < 0 {
		return false
	}
	t.foods[i].ServingInput = value
	return true
}

func (t *Tracker) addFeedEntry(foodID int64) (bool, error) {
	i := t.indexOfFood(foodID)
	if i < 0 {
		t.log.Debug("feed entry rejected: no such food", "food_id", foodID)
		return false, nil
	}
	entry := model.FeedEntry{
		ID:     store.NextFeedID(t.feed),
		FoodID: foodID,
		Date:   t.now().UTC(),
	}
	amount, err := parseFloat("amount", t.foods[i].ServingInput)
	if err == nil {
		entry.Amount = amount
		err = entry.Validate()
	}
	if err != nil {
		t.log.Debug("feed entry rejected", "food_id", foodID, "error", err)
		return false, nil
	}

	t.feed = append(t.feed, entry)
	store.SortFeed(t.feed)
	if err := t.store.PersistFeed(t.feed); err != nil {
		return true, err
	}
	t.log.Info("recorded feed entry", "entry_id", entry.ID, "food_id", foodID, "amount", entry.Amount)
	return true, nil
}

func (t *Tracker) deleteFood(id int64) (bool, error) {
	i := t.indexOfFood(id)
	if i < 0 {
		return false, nil
	}
	t.foods = append(t.foods[:i], t.foods[i+1:]...)

	kept := t.feed[:0]
	for _, e := range t.feed {
		if e.FoodID != id {
			kept = append(kept, e)
		}
	}
	removed := len(t.feed) - len(kept)
	t.feed = kept
	t.resetServingInputs()

	if err := t.store.PersistFoods(t.Records()); err != nil {
		return true, err
	}
	if err := t.store.PersistFeed(t.feed); err != nil {
		return true, err
	}
	t.log.Info("deleted food", "food_id", id, "feed_entries_removed", removed)
	return true, nil
}

func (t *Tracker) deleteFeedEntry(id int64) (bool, error) {
	for i, e := range t.feed {
		if e.ID != id {
			continue
		}
		t.feed = append(t.feed[:i], t.feed[i+1:]...)
		if err := t.store.PersistFeed(t.feed); err != nil {
			return true, err
		}
		t.log.Info("deleted feed entry", "entry_id", id)
		return true, nil
	}
	return false, nil
}

func (t *Tracker) resetServingInputs() {
	for i := range t.foods {
		t.foods[i].ServingInput = model.DefaultServingInput
	}
}

func (t *Tracker) indexOfFood(id int64) int {
	for i, v := range t.foods {
		if v.ID == id {
			return i
		}
	}
	return -1
}

// Foods returns the catalog in ranked order.
func (t *Tracker) Foods() []model.FoodView {
	return append([]model.FoodView(nil), t.foods...)
}

// Records returns the persisted form of the catalog, in ranked order.
func (t *Tracker) Records() []model.Food {
	out := make([]model.Food, len(t.foods))
	for i, v := range t.foods {
		out[i] = v.Food
	}
	return out
}

// Feed returns the entries sorted by ascending date.
func (t *Tracker) Feed() []model.FeedEntry {
	return append([]model.FeedEntry(nil), t.feed...)
}

// Timeline returns the feed with daily totals, most recent first.
func (t *Tracker) Timeline() ([]model.Row, error) {
	return timeline.Build(t.feed, t.Records(), t.loc)
}

// TimelineSince is Timeline restricted to entries dated at or after cutoff.
// Daily totals only count the entries that are shown.
func (t *Tracker) TimelineSince(cutoff time.Time) ([]model.Row, error) {
	return timeline.Build(store.EntriesSince(t.feed, cutoff), t.Records(), t.loc)
}

// Food returns the food with the given id.
func (t *Tracker) Food(id int64) (model.FoodView, bool) {
	if i := t.indexOfFood(id); i >= 0 {
		return t.foods[i], true
	}
	return model.FoodView{}, false
}

func (t *Tracker) View() View         { return t.view }
func (t *Tracker) Query() string      { return t.query }
func (t *Tracker) Mode() Mode         { return t.mode }
func (t *Tracker) EditingID() int64   { return t.editID }
func (t *Tracker) Buffer() EditBuffer { return t.buffer }

func parseFloat(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%s is not a number: %q", field, s)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
