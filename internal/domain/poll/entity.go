package poll

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// State is the nullable lifecycle state of a poll. The zero value is the hidden (null) state.
type State string

const (
	StateHidden State = ""
	StateShown  State = "shown"
	StateOpened State = "opened"
	StateClosed State = "closed"
)

func (s State) Valid() bool {
	switch s {
	case StateHidden, StateShown, StateOpened, StateClosed:
		return true
	}
	return false
}

func (s State) IsNull() bool { return s == StateHidden }

func (s State) MarshalJSON() ([]byte, error) {
	if s == StateHidden {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

func (s *State) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = StateHidden
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if !State(v).Valid() {
		return fmt.Errorf("unknown poll state %q", v)
	}
	*s = State(v)
	return nil
}

// Value stores the hidden state as SQL NULL.
func (s State) Value() (driver.Value, error) {
	if s == StateHidden {
		return nil, nil
	}
	return string(s), nil
}

func (s *State) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = StateHidden
	case string:
		*s = State(v)
	case []byte:
		*s = State(v)
	default:
		return fmt.Errorf("cannot scan %T into poll.State", src)
	}
	return nil
}

type Type string

const (
	TypeMotion    Type = "m"
	TypeStrawpoll Type = "sp"
)

func (t Type) Label() string {
	if t == TypeMotion {
		return "Motion"
	}
	return "Strawpoll"
}

// VotersType selects which roster statuses may vote
type VotersType string

const (
	VotersAnyone                VotersType = "anyone"
	VotersVoter                 VotersType = "voter"
	VotersVoterOrPotentialVoter VotersType = "voter-or-potential-voter"
)

// RecordType selects who may see the voter to ballot link
type RecordType string

const (
	RecordAnonymous RecordType = "anonymous"
	RecordAdminView RecordType = "admin-view"
	RecordRecorded  RecordType = "recorded"
)

type Choice string

const (
	ChoiceSingle   Choice = "single"
	ChoiceMultiple Choice = "multiple"
)

// DefaultMotionOptions are used when a motion is created without options.
var DefaultMotionOptions = []string{"Yes", "No", "Abstain"}

// Poll represents polls: one question of an event
type Poll struct {
	ID             string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	EventID        string          `gorm:"type:varchar(36);not null;index" json:"eventId"`
	Index          int             `gorm:"column:idx;not null;default:0" json:"index"`
	State          State           `gorm:"type:varchar(16);index" json:"state"`
	Type           Type            `gorm:"type:varchar(4);not null" json:"type"`
	VotersType     VotersType      `gorm:"type:varchar(32);not null" json:"votersType"`
	RecordType     RecordType      `gorm:"type:varchar(32);not null" json:"recordType"`
	Title          string          `gorm:"type:varchar(255)" json:"title"`
	Body           string          `gorm:"type:text" json:"body"`
	Options        []string        `gorm:"serializer:json" json:"options"`
	Choice         Choice          `gorm:"type:varchar(16);not null" json:"choice"`
	MovedSAPIN     *int            `gorm:"column:moved_sapin" json:"movedSAPIN"`
	SecondedSAPIN  *int            `gorm:"column:seconded_sapin" json:"secondedSAPIN"`
	ResultsSummary *ResultsSummary `gorm:"serializer:json" json:"resultsSummary"`
	CreatedAt      time.Time       `json:"-"`
	UpdatedAt      time.Time       `json:"-"`
}

func (Poll) TableName() string {
	return "polls"
}

// Vote represents poll_votes; keyed by (poll, voter) so a resubmission replaces the ballot
type Vote struct {
	PollID    string    `gorm:"type:varchar(36);primaryKey" json:"pollId"`
	SAPIN     int       `gorm:"column:sapin;primaryKey;autoIncrement:false" json:"SAPIN"`
	Votes     []int     `gorm:"serializer:json" json:"votes"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Vote) TableName() string {
	return "poll_votes"
}

// Query filters GetPolls
type Query struct {
	GroupID string
	EventID string
	ID      string
	NonNull bool
}
