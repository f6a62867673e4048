package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"committee-live/internal/domain/event"
	"committee-live/internal/domain/member"
	"committee-live/internal/domain/poll"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedConfig holds configuration for seeding the database
type SeedConfig struct {
	GroupID   string
	EventName string
	Timezone  string
}

// DefaultSeedConfig returns default seed configuration
func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{
		GroupID:   "dev-group",
		EventName: "Plenary session",
		Timezone:  "America/New_York",
	}
}

// SeedResult holds the result of the seeding operation
type SeedResult struct {
	Members []member.Member
	Event   event.Event
	Polls   []poll.Poll
}

func devRoster(groupID string) []member.Member {
	return []member.Member{
		{GroupID: groupID, SAPIN: 1001, Name: "Chair", Status: member.StatusVoter, AccessLevel: member.AccessAdmin},
		{GroupID: groupID, SAPIN: 1002, Name: "Secretary", Status: member.StatusExOfficio, AccessLevel: member.AccessReadWrite},
		{GroupID: groupID, SAPIN: 1003, Name: "Voter A", Status: member.StatusVoter, AccessLevel: member.AccessReadOnly},
		{GroupID: groupID, SAPIN: 1004, Name: "Voter B", Status: member.StatusVoter, AccessLevel: member.AccessReadOnly},
		{GroupID: groupID, SAPIN: 1005, Name: "Potential", Status: member.StatusPotentialVoter, AccessLevel: member.AccessReadOnly},
		{GroupID: groupID, SAPIN: 1006, Name: "Aspirant", Status: member.StatusAspirant, AccessLevel: member.AccessReadOnly},
	}
}

// Seed runs the complete database seeding
func Seed(ctx context.Context, db *gorm.DB, cfg *SeedConfig) (*SeedResult, error) {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}
	result := &SeedResult{Members: devRoster(cfg.GroupID)}

	log.Println("Starting database seeding...")

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&result.Members).Error; err != nil {
			return fmt.Errorf("failed to seed members: %w", err)
		}

		result.Event = event.Event{
			ID:         uuid.NewString(),
			GroupID:    cfg.GroupID,
			Name:       cfg.EventName,
			Timezone:   cfg.Timezone,
			Datetime:   time.Now().UTC().Truncate(time.Hour),
			AutoNumber: true,
		}
		if err := tx.Create(&result.Event).Error; err != nil {
			return fmt.Errorf("failed to seed event: %w", err)
		}

		moved, seconded := 1003, 1004
		motion := poll.Create{EventID: result.Event.ID, Type: poll.TypeMotion, VotersType: poll.VotersVoter,
			MovedSAPIN: &moved, SecondedSAPIN: &seconded}.Build(uuid.NewString(), 1, true)
		straw := poll.Create{EventID: result.Event.ID, Type: poll.TypeStrawpoll, Title: "Preferred meeting day",
			Options: []string{"Monday", "Tuesday", "Thursday"}, Choice: poll.ChoiceMultiple}.Build(uuid.NewString(), 2, true)
		result.Polls = []poll.Poll{motion, straw}
		if err := tx.Create(&result.Polls).Error; err != nil {
			return fmt.Errorf("failed to seed polls: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database seeding completed successfully!")
	return result, nil
}
