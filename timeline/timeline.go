// Package timeline turns the consumption feed into the display sequence:
// real entries interleaved with one synthesized total per calendar day,
// most recent first.
package timeline

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robertmeta/macros/model"
)

// ErrUnknownFood is returned when an entry references a food that does not
// exist. Deleting a food removes its entries, so this means the caller broke
// that invariant.
var ErrUnknownFood = errors.New("feed entry references unknown food")

type dayTotal struct {
	date                 time.Time
	carbs, fats, protein float64
}

// Build returns the display rows for feed, grouping days in loc. A nil loc
// means time.Local.
func Build(feed []model.FeedEntry, foods []model.Food, loc *time.Location) ([]model.Row, error) {
	if loc == nil {
		loc = time.Local
	}

	byID := make(map[int64]*model.Food, len(foods))
	for i := range foods {
		byID[foods[i].ID] = &foods[i]
	}

	rows := make([]model.Row, 0, len(feed)+len(feed)/2)
	totals := make(map[string]*dayTotal)
	var days []string

	for i := range feed {
		entry := feed[i]
		food, ok := byID[entry.FoodID]
		if !ok {
			return nil, fmt.Errorf("%w: entry %d, food %d", ErrUnknownFood, entry.ID, entry.FoodID)
		}

		row := model.Row{
			Date:    entry.Date.UTC(),
			Entry:   &entry,
			Food:    food,
			Carbs:   food.Carbs * entry.Amount,
			Fats:    food.Fats * entry.Amount,
			Protein: food.Protein * entry.Amount,
		}
		rows = append(rows, row)

		day := row.Day(loc)
		total, ok := totals[day]
		if !ok {
			total = &dayTotal{date: endOfDay(entry.Date, loc)}
			totals[day] = total
			days = append(days, day)
		}
		total.carbs += row.Carbs
		total.fats += row.Fats
		total.protein += row.Protein
	}

	for _, day := range days {
		total := totals[day]
		rows = append(rows, model.Row{
			Date:         total.date,
			IsDailyTotal: true,
			Carbs:        total.carbs,
			Fats:         total.fats,
			Protein:      total.protein,
		})
	}

	// Ascending by day, real entries before the day's total, then by time.
	sort.SliceStable(rows, func(i, j int) bool {
		di, dj := rows[i].Day(loc), rows[j].Day(loc)
		if di != dj {
			return di < dj
		}
		if rows[i].IsDailyTotal != rows[j].IsDailyTotal {
			return !rows[i].IsDailyTotal
		}
		return rows[i].Date.Before(rows[j].Date)
	})

	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// endOfDay returns 23:59:59 on t's calendar day in loc, expressed in UTC.
func endOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, loc).UTC()
}
