package poll

import (
	"fmt"
	"slices"

	committee_errors "committee-live/pkg/errors"
)

// Create is the payload of poll:create
type Create struct {
	EventID       string     `json:"eventId" validate:"required,uuid"`
	Index         *int       `json:"index,omitempty" validate:"omitempty,min=0"`
	Type          Type       `json:"type" validate:"required,oneof=m sp"`
	VotersType    VotersType `json:"votersType" validate:"omitempty,oneof=anyone voter voter-or-potential-voter"`
	RecordType    RecordType `json:"recordType" validate:"omitempty,oneof=anonymous admin-view recorded"`
	Title         string     `json:"title" validate:"max=255"`
	Body          string     `json:"body"`
	Options       []string   `json:"options" validate:"omitempty,max=64,dive,required,max=255"`
	Choice        Choice     `json:"choice" validate:"omitempty,oneof=single multiple"`
	MovedSAPIN    *int       `json:"movedSAPIN,omitempty" validate:"omitempty,min=1"`
	SecondedSAPIN *int       `json:"secondedSAPIN,omitempty" validate:"omitempty,min=1"`
}

// Build turns a create payload into a hidden poll with defaults filled in.
func (c Create) Build(id string, index int, autoNumber bool) Poll {
	p := Poll{
		ID:            id,
		EventID:       c.EventID,
		Index:         index,
		State:         StateHidden,
		Type:          c.Type,
		VotersType:    c.VotersType,
		RecordType:    c.RecordType,
		Title:         c.Title,
		Body:          c.Body,
		Options:       slices.Clone(c.Options),
		Choice:        c.Choice,
		MovedSAPIN:    c.MovedSAPIN,
		SecondedSAPIN: c.SecondedSAPIN,
	}
	if c.Index != nil {
		p.Index = *c.Index
	}
	if p.VotersType == "" {
		p.VotersType = VotersAnyone
	}
	if p.RecordType == "" {
		p.RecordType = RecordAnonymous
	}
	if p.Choice == "" {
		p.Choice = ChoiceSingle
	}
	if p.Type == TypeMotion && len(p.Options) == 0 {
		p.Options = slices.Clone(DefaultMotionOptions)
		p.Choice = ChoiceSingle
	}
	if p.Options == nil {
		p.Options = []string{}
	}
	if autoNumber && p.Title == "" {
		p.Title = fmt.Sprintf("%s %d", p.Type.Label(), p.Index)
	}
	return p
}

// Changes is the changes object of poll:update. State is never changed here;
// lifecycle moves go through the show/open/close/unshow/reset actions.
type Changes struct {
	Index         *int        `json:"index,omitempty" validate:"omitempty,min=0"`
	Type          *Type       `json:"type,omitempty" validate:"omitempty,oneof=m sp"`
	VotersType    *VotersType `json:"votersType,omitempty" validate:"omitempty,oneof=anyone voter voter-or-potential-voter"`
	RecordType    *RecordType `json:"recordType,omitempty" validate:"omitempty,oneof=anonymous admin-view recorded"`
	Title         *string     `json:"title,omitempty" validate:"omitempty,max=255"`
	Body          *string     `json:"body,omitempty"`
	Options       []string    `json:"options,omitempty" validate:"omitempty,max=64,dive,required,max=255"`
	Choice        *Choice     `json:"choice,omitempty" validate:"omitempty,oneof=single multiple"`
	MovedSAPIN    *int        `json:"movedSAPIN,omitempty" validate:"omitempty,min=1"`
	SecondedSAPIN *int        `json:"secondedSAPIN,omitempty" validate:"omitempty,min=1"`
}

func (c Changes) touchesBallotShape() bool {
	return c.Type != nil || c.Options != nil || c.Choice != nil || c.VotersType != nil
}

// Apply returns p with the changes applied, refusing ballot shape edits once voting started.
func (c Changes) Apply(p Poll) (Poll, error) {
	if p.IsFrozen() && c.touchesBallotShape() {
		return Poll{}, fmt.Errorf("%w: type, options, choice and votersType cannot change while the poll is %s",
			committee_errors.ErrInvalidTransition, p.State)
	}
	if c.Index != nil {
		p.Index = *c.Index
	}
	if c.Type != nil {
		p.Type = *c.Type
	}
	if c.VotersType != nil {
		p.VotersType = *c.VotersType
	}
	if c.RecordType != nil {
		p.RecordType = *c.RecordType
	}
	if c.Title != nil {
		p.Title = *c.Title
	}
	if c.Body != nil {
		p.Body = *c.Body
	}
	if c.Options != nil {
		p.Options = slices.Clone(c.Options)
	}
	if c.Choice != nil {
		p.Choice = *c.Choice
	}
	if c.MovedSAPIN != nil {
		p.MovedSAPIN = c.MovedSAPIN
	}
	if c.SecondedSAPIN != nil {
		p.SecondedSAPIN = c.SecondedSAPIN
	}
	return p, nil
}
