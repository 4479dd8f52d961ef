// Package model defines the core data structures for macros.
package model

import (
	"errors"
	"strings"
	"time"
)

// Bounds for per-serving macros and consumed amounts.
const (
	MaxMacro  = 1000.0
	MaxAmount = 1000.0
)

// DefaultServingInput is the serving amount pre-filled for every food.
const DefaultServingInput = "1.0"

// Atwater factors, kcal per gram.
const (
	KcalPerGramCarbs   = 4.0
	KcalPerGramFats    = 9.0
	KcalPerGramProtein = 4.0
)

// Food is a catalog entry with macro content per serving.
type Food struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	Carbs       float64 `json:"carbs"`
	Fats        float64 `json:"fats"`
	Protein     float64 `json:"protein"`
	ServingSize string  `json:"serving_size"`
}

// Validate checks required fields and macro bounds.
func (f *Food) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return errors.New("food name is required")
	}
	if strings.TrimSpace(f.ServingSize) == "" {
		return errors.New("serving size is required")
	}
	if !inMacroRange(f.Carbs) || !inMacroRange(f.Fats) || !inMacroRange(f.Protein) {
		return errors.New("macros must be between 0 and 1000 grams")
	}
	return nil
}

// Calories returns the energy of one serving.
func (f *Food) Calories() float64 {
	return Calories(f.Carbs, f.Fats, f.Protein)
}

// Calories converts grams of macros into kcal.
func Calories(carbs, fats, protein float64) float64 {
	return carbs*KcalPerGramCarbs + fats*KcalPerGramFats + protein*KcalPerGramProtein
}

// ValidAmount reports whether servings lies in (0, MaxAmount].
func ValidAmount(servings float64) bool {
	return servings > 0 && servings <= MaxAmount
}

func inMacroRange(v float64) bool {
	return v >= 0 && v <= MaxMacro
}

// FeedEntry records consuming some servings of a food.
type FeedEntry struct {
	ID     int64     `json:"id"`
	FoodID int64     `json:"food_id"`
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
}

// Validate checks the consumed amount.
func (e *FeedEntry) Validate() error {
	if !ValidAmount(e.Amount) {
		return errors.New("amount must be greater than 0 and at most 1000 servings")
	}
	return nil
}

// FoodView decorates a Food with search and input state. Never persisted.
type FoodView struct {
	Food
	Relevance    float64 `json:"relevance"`
	ServingInput string  `json:"serving_input"`
}

// Row is one line of the feed timeline: either a real entry or a
// synthesized daily total.
type Row struct {
	Date         time.Time  `json:"date"`
	IsDailyTotal bool       `json:"is_daily_total"`
	Entry        *FeedEntry `json:"entry,omitempty"`
	Food         *Food      `json:"food,omitempty"`
	Carbs        float64    `json:"carbs"`
	Fats         float64    `json:"fats"`
	Protein      float64    `json:"protein"`
}

// Calories returns the energy of the row's macros.
func (r *Row) Calories() float64 {
	return Calories(r.Carbs, r.Fats, r.Protein)
}

// Day returns the row's calendar day in loc, formatted YYYY-MM-DD.
func (r *Row) Day(loc *time.Location) string {
	return r.Date.In(loc).Format(time.DateOnly)
}
