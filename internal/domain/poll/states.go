package poll

import (
	"fmt"
	"strings"

	committee_errors "committee-live/pkg/errors"
)

// Action is a lifecycle operation on one poll
type Action string

const (
	ActionShow   Action = "show"
	ActionOpen   Action = "open"
	ActionClose  Action = "close"
	ActionUnshow Action = "unshow"
	ActionReset  Action = "reset"
)

// Activates reports whether the action may leave the poll holding a non-null state
// and therefore competes for the group's active slot.
func (a Action) Activates() bool {
	return a == ActionShow || a == ActionOpen || a == ActionClose
}

// Transition is the outcome of applying an action to a poll.
type Transition struct {
	Poll       Poll
	From       State
	ClearVotes bool
}

// Apply validates action against the current state of p and returns the resulting poll.
// Closing only moves the state; the caller freezes ResultsSummary from the recorded votes.
func Apply(p Poll, action Action) (Transition, error) {
	t := Transition{Poll: p, From: p.State}
	switch action {
	case ActionShow:
		t.Poll.State = StateShown
	case ActionOpen:
		if p.State == StateClosed {
			return Transition{}, fmt.Errorf("%w: poll is closed; reset it before opening again", committee_errors.ErrInvalidTransition)
		}
		if err := ReadyToOpen(p); err != nil {
			return Transition{}, err
		}
		t.Poll.State = StateOpened
	case ActionClose:
		if p.State != StateOpened {
			return Transition{}, fmt.Errorf("%w: only an opened poll can be closed", committee_errors.ErrInvalidTransition)
		}
		t.Poll.State = StateClosed
	case ActionUnshow:
		t.Poll.State = StateHidden
	case ActionReset:
		t.ClearVotes = true
		t.Poll.ResultsSummary = nil
		if !p.State.IsNull() {
			t.Poll.State = StateShown
		}
	default:
		return Transition{}, fmt.Errorf("%w: unknown action %q", committee_errors.ErrInvalidInput, action)
	}
	return t, nil
}

// ReadyToOpen checks that a poll is fully specified.
func ReadyToOpen(p Poll) error {
	var missing []string
	if strings.TrimSpace(p.Title) == "" {
		missing = append(missing, "title")
	}
	if len(p.Options) < 2 {
		missing = append(missing, "at least two options")
	}
	if p.Type == TypeMotion {
		if p.MovedSAPIN == nil {
			missing = append(missing, "movedSAPIN")
		}
		if p.SecondedSAPIN == nil {
			missing = append(missing, "secondedSAPIN")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: poll is missing %s", committee_errors.ErrInvalidTransition, strings.Join(missing, ", "))
	}
	return nil
}

// IsVoting reports whether ballots are accepted.
func (p Poll) IsVoting() bool {
	return p.State == StateOpened
}

// IsFrozen reports whether the ballot shape may no longer change.
func (p Poll) IsFrozen() bool {
	return p.State == StateOpened || p.State == StateClosed
}
