package poll

import (
	"errors"
	"testing"
	"time"

	"committee-live/internal/domain/member"
	committee_errors "committee-live/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func readyMotion(state State) Poll {
	return Poll{
		ID:            "p1",
		EventID:       "e1",
		State:         state,
		Type:          TypeMotion,
		VotersType:    VotersVoter,
		RecordType:    RecordAnonymous,
		Title:         "Motion 1",
		Options:       []string{"Yes", "No", "Abstain"},
		Choice:        ChoiceSingle,
		MovedSAPIN:    intPtr(10),
		SecondedSAPIN: intPtr(11),
	}
}

func TestApplyTransitions(t *testing.T) {
	cases := []struct {
		name   string
		from   State
		action Action
		want   State
		err    error
	}{
		{"show hidden", StateHidden, ActionShow, StateShown, nil},
		{"show closed", StateClosed, ActionShow, StateShown, nil},
		{"open shown", StateShown, ActionOpen, StateOpened, nil},
		{"open hidden", StateHidden, ActionOpen, StateOpened, nil},
		{"open closed", StateClosed, ActionOpen, "", committee_errors.ErrInvalidTransition},
		{"close opened", StateOpened, ActionClose, StateClosed, nil},
		{"close shown", StateShown, ActionClose, "", committee_errors.ErrInvalidTransition},
		{"close closed", StateClosed, ActionClose, "", committee_errors.ErrInvalidTransition},
		{"unshow opened", StateOpened, ActionUnshow, StateHidden, nil},
		{"reset closed", StateClosed, ActionReset, StateShown, nil},
		{"reset hidden", StateHidden, ActionReset, StateHidden, nil},
		{"unknown", StateShown, Action("explode"), "", committee_errors.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := Apply(readyMotion(tc.from), tc.action)
			if tc.err != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tc.err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, tr.Poll.State)
			assert.Equal(t, tc.from, tr.From)
		})
	}
}

func TestResetClearsResults(t *testing.T) {
	p := readyMotion(StateClosed)
	p.ResultsSummary = &ResultsSummary{Counts: []int{1, 0, 0}, NumVotes: 1}

	tr, err := Apply(p, ActionReset)
	require.NoError(t, err)
	assert.True(t, tr.ClearVotes)
	assert.Nil(t, tr.Poll.ResultsSummary)
	assert.Equal(t, StateShown, tr.Poll.State)
}

func TestOpenMotionRequiresMoverAndSeconder(t *testing.T) {
	p := readyMotion(StateShown)
	p.SecondedSAPIN = nil
	_, err := Apply(p, ActionOpen)
	require.Error(t, err)
	assert.True(t, committee_errors.IsValidation(err))
	assert.Contains(t, err.Error(), "secondedSAPIN")

	p.MovedSAPIN = nil
	_, err = Apply(p, ActionOpen)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "movedSAPIN")

	sp := readyMotion(StateShown)
	sp.Type = TypeStrawpoll
	sp.MovedSAPIN, sp.SecondedSAPIN = nil, nil
	_, err = Apply(sp, ActionOpen)
	assert.NoError(t, err)
}

func TestOpenRequiresTitleAndOptions(t *testing.T) {
	p := readyMotion(StateShown)
	p.Title = "  "
	p.Options = []string{"Only"}
	err := ReadyToOpen(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
	assert.Contains(t, err.Error(), "at least two options")
}

func TestIsEligible(t *testing.T) {
	assert.True(t, IsEligible(VotersAnyone, member.StatusAspirant))
	assert.True(t, IsEligible(VotersVoter, member.StatusVoter))
	assert.True(t, IsEligible(VotersVoter, member.StatusExOfficio))
	assert.False(t, IsEligible(VotersVoter, member.StatusPotentialVoter))
	assert.False(t, IsEligible(VotersVoter, member.StatusAspirant))
	assert.True(t, IsEligible(VotersVoterOrPotentialVoter, member.StatusPotentialVoter))
	assert.False(t, IsEligible(VotersVoterOrPotentialVoter, member.StatusNonVoter))
}

func TestValidateBallot(t *testing.T) {
	single := Poll{State: StateOpened, Options: []string{"Yes", "No"}, Choice: ChoiceSingle}
	assert.Error(t, ValidateBallot(single, []int{0, 1}))
	assert.Error(t, ValidateBallot(single, []int{}))
	assert.Error(t, ValidateBallot(single, []int{2}))
	assert.NoError(t, ValidateBallot(single, []int{0}))

	multi := Poll{State: StateOpened, Options: []string{"A", "B", "C"}, Choice: ChoiceMultiple}
	assert.NoError(t, ValidateBallot(multi, []int{0, 2}))
	assert.Error(t, ValidateBallot(multi, []int{1, 1}))
	assert.Error(t, ValidateBallot(multi, nil))

	shown := single
	shown.State = StateShown
	err := ValidateBallot(shown, []int{0})
	require.Error(t, err)
	assert.True(t, committee_errors.IsValidation(err))
}

func TestSummarize(t *testing.T) {
	p := Poll{Options: []string{"A", "B", "C"}}
	votes := []Vote{{SAPIN: 1, Votes: []int{0}}, {SAPIN: 2, Votes: []int{0, 2}}, {SAPIN: 3, Votes: []int{2}}}
	closedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	s := Summarize(p, votes, 5, closedAt)
	assert.Equal(t, []int{2, 0, 2}, s.Counts)
	assert.Equal(t, 3, s.NumVotes)
	assert.Equal(t, 5, s.NumVoters)
	assert.Equal(t, closedAt, s.ClosedAt)

	s = Summarize(p, votes, 1, closedAt)
	assert.Equal(t, 3, s.NumVoters)
}

func TestIndicateOrdering(t *testing.T) {
	p := Poll{ID: "p1", VotersType: VotersVoter}
	present := []Attendee{
		{SAPIN: 1, Status: member.StatusVoter},
		{SAPIN: 2, Status: member.StatusAspirant},
		{SAPIN: 3, Status: member.StatusExOfficio},
	}
	// SAPIN 4 voted and left
	li := Indicate(p, present, []int{1, 4})
	assert.Equal(t, LiveIndicator{PollID: "p1", NumMembers: 4, NumVoters: 3, NumVotes: 2}, li)
	assert.LessOrEqual(t, li.NumVotes, li.NumVoters)
	assert.LessOrEqual(t, li.NumVoters, li.NumMembers)
}

func TestCreateBuildDefaults(t *testing.T) {
	p := Create{EventID: "e1", Type: TypeMotion}.Build("p1", 3, true)
	assert.Equal(t, DefaultMotionOptions, p.Options)
	assert.Equal(t, ChoiceSingle, p.Choice)
	assert.Equal(t, VotersAnyone, p.VotersType)
	assert.Equal(t, RecordAnonymous, p.RecordType)
	assert.Equal(t, "Motion 3", p.Title)
	assert.True(t, p.State.IsNull())

	sp := Create{EventID: "e1", Type: TypeStrawpoll, Title: "Lunch?"}.Build("p2", 4, true)
	assert.Equal(t, "Lunch?", sp.Title)
	assert.Empty(t, sp.Options)
}

func TestChangesRejectedOnceFrozen(t *testing.T) {
	opts := []string{"A", "B"}
	_, err := Changes{Options: opts}.Apply(readyMotion(StateOpened))
	require.Error(t, err)
	assert.True(t, committee_errors.IsValidation(err))

	title := "Renamed"
	p, err := Changes{Title: &title}.Apply(readyMotion(StateClosed))
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Title)

	p, err = Changes{Options: opts}.Apply(readyMotion(StateShown))
	require.NoError(t, err)
	assert.Equal(t, opts, p.Options)
}

func TestStateJSON(t *testing.T) {
	b, err := StateHidden.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	var s State
	require.NoError(t, s.UnmarshalJSON([]byte(`"opened"`)))
	assert.Equal(t, StateOpened, s)
	assert.Error(t, s.UnmarshalJSON([]byte(`"paused"`)))
}
