package task

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/colonyops/tasksync/internal/core/diff"
)

// Action is a reviewer's decision for one diff result.
type Action string

const (
	ActionConfirm  Action = "CONFIRM"
	ActionUnlink   Action = "UNLINK"
	ActionCreate   Action = "CREATE"
	ActionIgnore   Action = "IGNORE"
	ActionDelete   Action = "DELETE"
	ActionComplete Action = "COMPLETE"
)

// Actions lists the accepted action vocabulary.
var Actions = []Action{ActionConfirm, ActionUnlink, ActionCreate, ActionIgnore, ActionDelete, ActionComplete}

// ErrInvalidAction is returned when an action is unknown or not legal for a
// diff result's type.
var ErrInvalidAction = errors.New("invalid action")

// allowed maps each diff type to the actions that may be applied to it.
var allowed = map[diff.Type][]Action{
	diff.TypeNew:    {ActionCreate, ActionIgnore},
	diff.TypeSame:   {ActionConfirm, ActionUnlink},
	diff.TypeMove:   {ActionConfirm, ActionUnlink},
	diff.TypeUpdate: {ActionConfirm, ActionUnlink},
	diff.TypeDelete: {ActionUnlink, ActionDelete, ActionComplete},
}

// ParseAction parses an action name case-insensitively.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(Actions, a) {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidAction, s)
	}
	return a, nil
}

// AllowedActions returns the actions legal for a diff type.
func AllowedActions(t diff.Type) []Action {
	return slices.Clone(allowed[t])
}

// ValidateAction returns ErrInvalidAction when a is not legal for t.
func ValidateAction(t diff.Type, a Action) error {
	if !slices.Contains(allowed[t], a) {
		return fmt.Errorf("%w: %s is not allowed for %s results", ErrInvalidAction, a, t)
	}
	return nil
}
