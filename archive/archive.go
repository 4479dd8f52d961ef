// Package archive snapshots the catalog, the feed and the daily totals into
// a SQLite database for ad-hoc querying.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/robertmeta/macros/model"
	_ "modernc.org/sqlite"
)

// Archive is an open SQLite snapshot database.
type Archive struct {
	db *sql.DB
}

// Counts reports how many rows a snapshot wrote.
type Counts struct {
	Foods       int `json:"foods"`
	FeedEntries int `json:"feed_entries"`
	DailyTotals int `json:"daily_totals"`
}

// New opens (or creates) the archive at dbPath.
// Use ":memory:" for an in-memory database (useful for testing).
func New(dbPath string) (*Archive, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	a := &Archive{db: db}
	if err := a.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS foods (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		brand TEXT,
		carbs REAL NOT NULL,
		fats REAL NOT NULL,
		protein REAL NOT NULL,
		serving_size TEXT NOT NULL,
		calories REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS feed_entries (
		id INTEGER PRIMARY KEY,
		food_id INTEGER NOT NULL,
		amount REAL NOT NULL,
		date INTEGER NOT NULL,
		FOREIGN KEY (food_id) REFERENCES foods(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS daily_totals (
		day TEXT PRIMARY KEY,
		carbs REAL NOT NULL,
		fats REAL NOT NULL,
		protein REAL NOT NULL,
		calories REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feed_entries_date ON feed_entries(date DESC);
	CREATE INDEX IF NOT EXISTS idx_feed_entries_food_id ON feed_entries(food_id);
	`

	_, err := a.db.Exec(schema)
	return err
}

// Snapshot replaces the archive contents with the given state. Daily totals
// are taken from the timeline rows and keyed by their day in loc.
func (a *Archive) Snapshot(foods []model.Food, feed []model.FeedEntry, rows []model.Row, loc *time.Location) (Counts, error) {
	var counts Counts

	tx, err := a.db.Begin()
	if err != nil {
		return counts, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"feed_entries", "daily_totals", "foods"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return counts, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, f := range foods {
		_, err := tx.Exec(
			"INSERT INTO foods (id, name, brand, carbs, fats, protein, serving_size, calories) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			f.ID, f.Name, f.Brand, f.Carbs, f.Fats, f.Protein, f.ServingSize, f.Calories(),
		)
		if err != nil {
			return counts, fmt.Errorf("failed to insert food %d: %w", f.ID, err)
		}
		counts.Foods++
	}

	for _, e := range feed {
		_, err := tx.Exec(
			"INSERT INTO feed_entries (id, food_id, amount, date) VALUES (?, ?, ?, ?)",
			e.ID, e.FoodID, e.Amount, e.Date.Unix(),
		)
		if err != nil {
			return counts, fmt.Errorf("failed to insert feed entry %d: %w", e.ID, err)
		}
		counts.FeedEntries++
	}

	for _, r := range rows {
		if !r.IsDailyTotal {
			continue
		}
		_, err := tx.Exec(
			"INSERT INTO daily_totals (day, carbs, fats, protein, calories) VALUES (?, ?, ?, ?, ?)",
			r.Day(loc), r.Carbs, r.Fats, r.Protein, r.Calories(),
		)
		if err != nil {
			return counts, fmt.Errorf("failed to insert daily total %s: %w", r.Day(loc), err)
		}
		counts.DailyTotals++
	}

	if err := tx.Commit(); err != nil {
		return Counts{}, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return counts, nil
}

// DailyTotal is one row of the daily_totals table.
type DailyTotal struct {
	Day      string  `json:"day"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
	Protein  float64 `json:"protein"`
	Calories float64 `json:"calories"`
}

// DailyTotals returns the archived totals, newest day first.
func (a *Archive) DailyTotals() ([]DailyTotal, error) {
	rows, err := a.db.Query("SELECT day, carbs, fats, protein, calories FROM daily_totals ORDER BY day DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query daily totals: %w", err)
	}
	defer rows.Close()

	var totals []DailyTotal
	for rows.Next() {
		var d DailyTotal
		if err := rows.Scan(&d.Day, &d.Carbs, &d.Fats, &d.Protein, &d.Calories); err != nil {
			return nil, fmt.Errorf("failed to scan daily total: %w", err)
		}
		totals = append(totals, d)
	}
	return totals, rows.Err()
}
