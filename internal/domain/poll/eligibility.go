package poll

import (
	"fmt"

	"committee-live/internal/domain/member"
	committee_errors "committee-live/pkg/errors"
)

var eligibleStatuses = map[VotersType][]member.Status{
	VotersVoter:                 {member.StatusVoter, member.StatusExOfficio},
	VotersVoterOrPotentialVoter: {member.StatusVoter, member.StatusPotentialVoter, member.StatusExOfficio},
}

// IsEligible reports whether a connected member with status may vote under votersType.
func IsEligible(votersType VotersType, status member.Status) bool {
	if votersType == VotersAnyone || votersType == "" {
		return true
	}
	for _, s := range eligibleStatuses[votersType] {
		if s == status {
			return true
		}
	}
	return false
}

// CheckEligible returns a validation error when status may not vote on p.
func CheckEligible(p Poll, status member.Status) error {
	if !IsEligible(p.VotersType, status) {
		return fmt.Errorf("%w: member status %q may not vote on a %s poll",
			committee_errors.ErrInvalidInput, status, p.VotersType)
	}
	return nil
}

// ValidateBallot checks the ballot shape against the poll's choice cardinality and options.
func ValidateBallot(p Poll, votes []int) error {
	if !p.IsVoting() {
		return fmt.Errorf("%w: poll is not open for voting", committee_errors.ErrInvalidTransition)
	}
	switch p.Choice {
	case ChoiceMultiple:
		if len(votes) == 0 {
			return fmt.Errorf("%w: select at least one option", committee_errors.ErrInvalidInput)
		}
	default:
		if len(votes) != 1 {
			return fmt.Errorf("%w: select exactly one option", committee_errors.ErrInvalidInput)
		}
	}
	seen := make(map[int]struct{}, len(votes))
	for _, v := range votes {
		if v < 0 || v >= len(p.Options) {
			return fmt.Errorf("%w: option %d out of range", committee_errors.ErrInvalidInput, v)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("%w: option %d selected twice", committee_errors.ErrInvalidInput, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}
