package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robertmeta/macros/archive"
	"github.com/robertmeta/macros/logger"
	"github.com/robertmeta/macros/model"
	"github.com/robertmeta/macros/store"
	"github.com/robertmeta/macros/tracker"
	"github.com/urfave/cli/v2"
)

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitDataError    = 3
)

func main() {
	// A missing .env is normal; flags and the real environment still apply.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitGeneralError)
	}
}

func newApp() *cli.App {
	foodFlags := []cli.Flag{
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Food name"},
		&cli.StringFlag{Name: "serving-size", Aliases: []string{"s"}, Usage: "Description of one serving, e.g. 100g"},
		&cli.StringFlag{Name: "carbs", Aliases: []string{"c"}, Usage: "Carbohydrates per serving (g)"},
		&cli.StringFlag{Name: "fats", Aliases: []string{"f"}, Usage: "Fats per serving (g)"},
		&cli.StringFlag{Name: "protein", Aliases: []string{"p"}, Usage: "Protein per serving (g)"},
	}

	return &cli.App{
		Name:    "macros",
		Usage:   "A scriptable food catalog and macro tracker",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Value:   getDefaultDir(),
				Usage:   "Storage directory",
				EnvVars: []string{"MACROS_DIR"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Log debug output to stderr",
				EnvVars: []string{"MACROS_DEBUG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "foods",
				Usage: "List foods ranked by relevance to a query",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Search text",
					},
				},
				Action: listFoods,
			},
			{
				Name:   "add-food",
				Usage:  "Add a food to the catalog",
				Flags:  foodFlags,
				Action: addFood,
			},
			{
				Name:      "edit-food",
				Usage:     "Change a food; omitted flags keep their value",
				ArgsUsage: "<food-id>",
				Flags:     foodFlags,
				Action:    editFood,
			},
			{
				Name:      "rm-food",
				Usage:     "Remove a food and every feed entry for it",
				ArgsUsage: "<food-id>",
				Action:    removeFood,
			},
			{
				Name:      "eat",
				Usage:     "Record servings of a food",
				ArgsUsage: "<food-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "amount",
						Aliases: []string{"a"},
						Value:   model.DefaultServingInput,
						Usage:   "Number of servings",
					},
				},
				Action: eat,
			},
			{
				Name:      "rm-entry",
				Usage:     "Remove a feed entry",
				ArgsUsage: "<entry-id>",
				Action:    removeEntry,
			},
			{
				Name:  "timeline",
				Usage: "Show the feed with daily totals, most recent first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "since",
						Aliases: []string{"s"},
						Usage:   "Show entries since duration (e.g., 7d, 2w, 3m, 1y)",
					},
				},
				Action: showTimeline,
			},
			{
				Name:  "export",
				Usage: "Snapshot foods, feed and daily totals into a SQLite file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (default: <dir>/macros.db)",
					},
					&cli.BoolFlag{
						Name:  "print-totals",
						Usage: "Include the archived daily totals in the output",
					},
				},
				Action: exportSQLite,
			},
		},
	}
}

func getDefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".macros"
	}
	return filepath.Join(home, ".macros")
}

// session is the per-invocation state shared by command actions.
type session struct {
	store   *store.Store
	tracker *tracker.Tracker
	log     *logger.Logger
}

func openSession(c *cli.Context) (*session, error) {
	log, err := logger.New(c.Bool("debug"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	s, err := store.New(c.String("dir"), log)
	if err != nil {
		return nil, err
	}

	t, err := tracker.Open(s, log)
	if err != nil {
		log.Error("cannot load storage", "dir", s.Dir(), "error", err)
		return nil, err
	}
	return &session{store: s, tracker: t, log: log}, nil
}

func (s *session) close() {
	s.log.Sync()
}

// apply dispatches cmds in order and reports whether the last one took
// effect. A storage error aborts with ExitDataError.
func (s *session) apply(cmds ...tracker.Command) (bool, error) {
	applied := false
	for _, cmd := range cmds {
		ok, err := s.tracker.Dispatch(cmd)
		if err != nil {
			s.log.Error("failed to persist", "command", fmt.Sprintf("%T", cmd), "error", err)
			return false, cli.Exit(fmt.Sprintf("Failed to save: %v", err), ExitDataError)
		}
		applied = ok
	}
	return applied, nil
}

func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func rejected(reason string) error {
	if err := outputJSON(map[string]interface{}{
		"success": false,
		"reason":  reason,
	}); err != nil {
		return err
	}
	return cli.Exit("", ExitUsageError)
}

func parseID(c *cli.Context, usage string) (int64, error) {
	if c.NArg() < 1 {
		return 0, cli.Exit("Usage: macros "+usage, ExitUsageError)
	}
	id, err := strconv.ParseInt(c.Args().Get(0), 10, 64)
	if err != nil || id < 0 {
		return 0, cli.Exit("Invalid ID", ExitUsageError)
	}
	return id, nil
}

type foodJSON struct {
	model.FoodView
	Calories float64 `json:"calories"`
}

func toFoodJSON(views []model.FoodView) []foodJSON {
	out := make([]foodJSON, len(views))
	for i, v := range views {
		out[i] = foodJSON{FoodView: v, Calories: v.Calories()}
	}
	return out
}

func listFoods(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer s.close()

	if _, err := s.apply(tracker.ChangeSearch{Query: c.String("query")}); err != nil {
		return err
	}

	foods := s.tracker.Foods()
	return outputJSON(map[string]interface{}{
		"count": len(foods),
		"query": s.tracker.Query(),
		"foods": toFoodJSON(foods),
	})
}

func editCommands(c *cli.Context) []tracker.Command {
	var cmds []tracker.Command
	fields := []struct {
		flag  string
		field tracker.Field
	}{
		{"name", tracker.FieldName},
		{"serving-size", tracker.FieldServingSize},
		{"carbs", tracker.FieldCarbs},
		{"fats", tracker.FieldFats},
		{"protein", tracker.FieldProtein},
	}
	for _, f := range fields {
		if c.IsSet(f.flag) {
			cmds = append(cmds, tracker.EditField{Field: f.field, Value: c.String(f.flag)})
		}
	}
	return cmds
}

func addFood(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer s.close()

	cmds := append([]tracker.Command{tracker.BeginAdd{}}, editCommands(c)...)
	cmds = append(cmds, tracker.FinishEdit{})
	id := store.NextFoodID(s.tracker.Records())

	applied, err := s.apply(cmds...)
	if err != nil {
		return err
	}
	if !applied {
		return rejected("name and serving size are required; macros must be numbers between 0 and 1000")
	}

	food, _ := s.tracker.Food(id)
	return outputJSON(map[string]interface{}{
		"success": true,
		"food":    foodJSON{FoodView: food, Calories: food.Calories()},
	})
}

func editFood(c *cli.Context) error {
	id, err := parseID(c, "edit-food [flags] <food-id>")
	if err != nil {
		return err
	}

	s, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer s.close()

	if ok, err := s.apply(tracker.ModifyFood{ID: id}); err != nil {
		return err
	} else if !ok {
		return cli.Exit(fmt.Sprintf("Food %d not found", id), ExitDataError)
	}

	cmds := append(editCommands(c), tracker.FinishEdit{})
	applied, err := s.apply(cmds...)
	if err != nil {
		return err
	}
	if !applied {
		return rejected("name and serving size are required; macros must be numbers between 0 and 1000")
	}

	food, _ := s.tracker.Food(id)
	return outputJSON(map[string]interface{}{
		"success": true,
		"food":    foodJSON{FoodView: food, Calories: food.Calories()},
	})
}

func removeFood(c *cli.Context) error {
	id, err := parseID(c, "rm-food <food-id>")
	if err != nil {
		return err
	}

	s, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer s.close()

	before := len(s.tracker.Feed())
	applied, err := s.apply(tracker.DeleteFood{ID: id})
	if err != nil {
		return err
	}
	if !applied {
		return cli.Exit(fmt.Sprintf("Food %d not found", id), ExitDataError)
	}

	return outputJSON(map[string]interface{}{
		"success":              true,
		"food_id":              id,
		"feed_entries_removed": before - len(s.tracker.Feed()),
	})
}

func eat(c *cli.Context) error {
	id, err := parseID(c, "eat [--amount N] <food-id>")
	if err != nil {
		return err
	}

	s, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer s.close()

	if _, ok := s.tracker.Food(id); !ok {
		return cli.Exit(fmt.Sprintf("Food %d not found", id), ExitDataError)
	}

	entryID := store.NextFeedID(s.tracker.Feed())
	applied, err := s.apply(
		tracker.SetServing{FoodID: id, Value: c.String("amount")},
		tracker.AddFeedEntry{FoodID: id},
	)
	if err != nil {
		return err
	}
	if !applied {
		return rejected("amount must be a number greater than 0 and at most 1000")
	}

	var entry model.FeedEntry
	for _, e := range s.tracker.Feed() {
		if e.ID == entryID {
			entry = e
		}
	}
	return outputJSON(map[string]interface{}{
		"success": true,
		"entry":   entry,
	})
}

func removeEntry(c *cli.Context) error {
	id, err := parseID(c, "rm-entry <entry-id>")
	if err != nil {
		return err
	}

	s, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer s.close()

	applied, err := s.apply(tracker.DeleteFeedEntry{ID: id})
	if err != nil {
		return err
	}
	if !applied {
		return cli.Exit(fmt.Sprintf("Feed entry %d not found", id), ExitDataError)
	}

	return outputJSON(map[string]interface{}{
		"success":  true,
		"entry_id": id,
	})
}

type rowJSON struct {
	Day          string  `json:"day"`
	Time         string  `json:"time,omitempty"`
	IsDailyTotal bool    `json:"is_daily_total"`
	EntryID      *int64  `json:"entry_id,omitempty"`
	FoodID       *int64  `json:"food_id,omitempty"`
	Food         string  `json:"food,omitempty"`
	Servings     float64 `json:"servings,omitempty"`
	Carbs        float64 `json:"carbs"`
	Fats         float64 `json:"fats"`
	Protein      float64 `json:"protein"`
	Calories     float64 `json:"calories"`
}

func toRowJSON(rows []model.Row, loc *time.Location) []rowJSON {
	out := make([]rowJSON, 0, len(rows))
	for _, r := range rows {
		j := rowJSON{
			Day:          r.Day(loc),
			IsDailyTotal: r.IsDailyTotal,
			Carbs:        r.Carbs,
			Fats:         r.Fats,
			Protein:      r.Protein,
			Calories:     r.Calories(),
		}
		if !r.IsDailyTotal {
			j.Time = r.Date.In(loc).Format("15:04")
			j.EntryID = &r.Entry.ID
			j.FoodID = &r.Entry.FoodID
			j.Food = r.Food.Name
			j.Servings = r.Entry.Amount
		}
		out = append(out, j)
	}
	return out
}

func showTimeline(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer s.close()

	var rows []model.Row
	if since := c.String("since"); since != "" {
		cutoff, cutErr := store.SinceCutoff(since, time.Now())
		if cutErr != nil {
			return cli.Exit(fmt.Sprintf("Invalid --since: %v", cutErr), ExitUsageError)
		}
		rows, err = s.tracker.TimelineSince(cutoff)
	} else {
		rows, err = s.tracker.Timeline()
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to build timeline: %v", err), ExitDataError)
	}

	return outputJSON(map[string]interface{}{
		"count": len(rows),
		"rows":  toRowJSON(rows, time.Local),
	})
}

func exportSQLite(c *cli.Context) error {
	s, err := openSession(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer s.close()

	outputPath := c.String("output")
	if outputPath == "" {
		outputPath = filepath.Join(s.store.Dir(), "macros.db")
	}

	rows, err := s.tracker.Timeline()
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to build timeline: %v", err), ExitDataError)
	}

	a, err := archive.New(outputPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to open %s: %v", outputPath, err), ExitDataError)
	}
	defer a.Close()

	counts, err := a.Snapshot(s.tracker.Records(), s.tracker.Feed(), rows, time.Local)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to export: %v", err), ExitDataError)
	}

	result := map[string]interface{}{
		"success": true,
		"file":    outputPath,
		"counts":  counts,
	}
	if c.Bool("print-totals") {
		totals, err := a.DailyTotals()
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to read totals: %v", err), ExitDataError)
		}
		result["daily_totals"] = totals
	}
	return outputJSON(result)
}
