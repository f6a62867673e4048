package poll

import (
	"time"

	"committee-live/internal/domain/member"
)

// ResultsSummary is frozen once at close and cleared only by reset
type ResultsSummary struct {
	Counts    []int     `json:"counts"`
	NumVotes  int       `json:"numVotes"`
	NumVoters int       `json:"numVoters"`
	ClosedAt  time.Time `json:"closedAt"`
}

// Summarize aggregates recorded ballots into per-option counts.
func Summarize(p Poll, votes []Vote, numVoters int, closedAt time.Time) ResultsSummary {
	counts := make([]int, len(p.Options))
	for _, v := range votes {
		for _, i := range v.Votes {
			if i >= 0 && i < len(counts) {
				counts[i]++
			}
		}
	}
	if numVoters < len(votes) {
		numVoters = len(votes)
	}
	return ResultsSummary{
		Counts:    counts,
		NumVotes:  len(votes),
		NumVoters: numVoters,
		ClosedAt:  closedAt.UTC(),
	}
}

// LiveIndicator is the content-free progress count pushed as poll:voted
type LiveIndicator struct {
	PollID     string `json:"pollId"`
	NumMembers int    `json:"numMembers"`
	NumVoters  int    `json:"numVoters"`
	NumVotes   int    `json:"numVotes"`
}

// Attendee is one distinct member present in the live session.
type Attendee struct {
	SAPIN  int
	Status member.Status
}

// Indicate computes the live indicator. Members whose ballot stands are counted as present
// and eligible even after they disconnect, so NumVotes <= NumVoters <= NumMembers holds.
func Indicate(p Poll, present []Attendee, voted []int) LiveIndicator {
	members := make(map[int]struct{}, len(present)+len(voted))
	voters := make(map[int]struct{}, len(present)+len(voted))
	for _, a := range present {
		members[a.SAPIN] = struct{}{}
		if IsEligible(p.VotersType, a.Status) {
			voters[a.SAPIN] = struct{}{}
		}
	}
	for _, sapin := range voted {
		members[sapin] = struct{}{}
		voters[sapin] = struct{}{}
	}
	return LiveIndicator{
		PollID:     p.ID,
		NumMembers: len(members),
		NumVoters:  len(voters),
		NumVotes:   len(voted),
	}
}
