package member

import "time"

// Status is a member's standing in the group roster
type Status string

const (
	StatusVoter          Status = "Voter"
	StatusExOfficio      Status = "ExOfficio"
	StatusPotentialVoter Status = "Potential Voter"
	StatusAspirant       Status = "Aspirant"
	StatusNonVoter       Status = "Non-Voter"
	StatusObsolete       Status = "Obsolete"
)

// AccessLevel controls which gateway operations a member may invoke
type AccessLevel int

const (
	AccessNone AccessLevel = iota
	AccessReadOnly
	AccessReadWrite
	AccessAdmin
)

func (a AccessLevel) String() string {
	switch a {
	case AccessReadOnly:
		return "ro"
	case AccessReadWrite:
		return "rw"
	case AccessAdmin:
		return "admin"
	default:
		return "none"
	}
}

// IsAdmin reports whether the level belongs to the admin audience.
func (a AccessLevel) IsAdmin() bool {
	return a >= AccessReadWrite
}

// Member represents members (one roster row per group)
type Member struct {
	GroupID     string      `gorm:"type:varchar(64);primaryKey" json:"groupId"`
	SAPIN       int         `gorm:"column:sapin;primaryKey;autoIncrement:false" json:"SAPIN"`
	Name        string      `gorm:"type:varchar(255)" json:"name"`
	Email       string      `gorm:"type:varchar(255)" json:"email,omitempty"`
	Status      Status      `gorm:"type:varchar(32);not null;default:'Non-Voter'" json:"status"`
	AccessLevel AccessLevel `gorm:"not null;default:0" json:"access"`
	CreatedAt   time.Time   `json:"-"`
	UpdatedAt   time.Time   `json:"-"`
}

func (Member) TableName() string {
	return "members"
}
