package event

import (
	"time"
)

// Event represents events: one live meeting session of a group
type Event struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	GroupID     string    `gorm:"type:varchar(64);not null;index" json:"groupId"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Timezone    string    `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	Datetime    time.Time `json:"datetime"`
	IsPublished bool      `gorm:"not null;default:false" json:"isPublished"`
	AutoNumber  bool      `gorm:"not null;default:false" json:"autoNumber"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

func (Event) TableName() string {
	return "events"
}

// Changes carries a partial event update; nil fields are left untouched.
type Changes struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Timezone    *string    `json:"timezone,omitempty" validate:"omitempty,timezone"`
	Datetime    *time.Time `json:"datetime,omitempty"`
	IsPublished *bool      `json:"isPublished,omitempty"`
	AutoNumber  *bool      `json:"autoNumber,omitempty"`
}

// Apply returns a copy of e with the changes applied.
func (c Changes) Apply(e Event) Event {
	if c.Name != nil {
		e.Name = *c.Name
	}
	if c.Timezone != nil {
		e.Timezone = *c.Timezone
	}
	if c.Datetime != nil {
		e.Datetime = c.Datetime.UTC()
	}
	if c.IsPublished != nil {
		e.IsPublished = *c.IsPublished
	}
	if c.AutoNumber != nil {
		e.AutoNumber = *c.AutoNumber
	}
	return e
}

// Query filters GetEvents
type Query struct {
	GroupID     string
	ID          string
	IsPublished *bool
}

// Create is the payload of event:create
type Create struct {
	Name        string    `json:"name" validate:"required,max=255"`
	Timezone    string    `json:"timezone" validate:"omitempty,timezone"`
	Datetime    time.Time `json:"datetime" validate:"required"`
	IsPublished bool      `json:"isPublished"`
	AutoNumber  bool      `json:"autoNumber"`
}

// Build turns a create payload into an event of groupID.
func (c Create) Build(id, groupID string) Event {
	tz := c.Timezone
	if tz == "" {
		tz = "UTC"
	}
	return Event{
		ID:          id,
		GroupID:     groupID,
		Name:        c.Name,
		Timezone:    tz,
		Datetime:    c.Datetime.UTC(),
		IsPublished: c.IsPublished,
		AutoNumber:  c.AutoNumber,
	}
}
