package tracker

// Command is a user action handled by Tracker.Dispatch.
type Command interface {
	command()
}

// View identifies one of the tracker's screens.
type View int

const (
	ViewFeed View = iota
	ViewFood
)

var viewNames = []string{"Feed", "Food"}

func (v View) String() string {
	if int(v) < 0 || int(v) >= len(viewNames) {
		return "Unknown"
	}
	return viewNames[v]
}

// Field names one input of the food editor.
type Field int

const (
	FieldName Field = iota
	FieldServingSize
	FieldCarbs
	FieldFats
	FieldProtein
)

// SelectView switches the active view. Index must be a valid View.
type SelectView struct{ Index int }

// ChangeSearch sets the catalog query and reranks.
type ChangeSearch struct{ Query string }

// BeginAdd opens the editor for a new food.
type BeginAdd struct{}

// ModifyFood opens the editor pre-filled with an existing food.
type ModifyFood struct{ ID int64 }

// EditField sets one editor input.
type EditField struct {
	Field Field
	Value string
}

// CancelEdit closes the editor and discards its inputs.
type CancelEdit struct{}

// FinishEdit validates the editor inputs and saves the food.
type FinishEdit struct{}

// SetServing sets the serving amount typed next to a food.
type SetServing struct {
	FoodID int64
	Value  string
}

// AddFeedEntry records eating a food, using its serving input as amount.
type AddFeedEntry struct{ FoodID int64 }

// DeleteFood removes a food and every feed entry that references it.
type DeleteFood struct{ ID int64 }

// DeleteFeedEntry removes one feed entry.
type DeleteFeedEntry struct{ ID int64 }

func (SelectView) command()      {}
func (ChangeSearch) command()    {}
func (BeginAdd) command()        {}
func (ModifyFood) command()      {}
func (EditField) command()       {}
func (CancelEdit) command()      {}
func (FinishEdit) command()      {}
func (SetServing) command()      {}
func (AddFeedEntry) command()    {}
func (DeleteFood) command()      {}
func (DeleteFeedEntry) command() {}
