package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"committee-live/internal/domain/event"
	"committee-live/internal/domain/member"
	"committee-live/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB opens a private in-memory SQLite database with the schema applied.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, repository.InitSchema(db))
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

const GroupID = "802.11"

// Roster SAPINs seeded by SeedRoster.
const (
	AdminSAPIN     = 100
	EditorSAPIN    = 101
	VoterSAPIN     = 200
	VoterSAPIN2    = 201
	PotentialSAPIN = 300
	AspirantSAPIN  = 400
	ObserverSAPIN  = 500
	OutsiderSAPIN  = 900
)

func SeedRoster(t *testing.T, db *gorm.DB) []member.Member {
	t.Helper()
	roster := []member.Member{
		{GroupID: GroupID, SAPIN: AdminSAPIN, Name: "Chair", Status: member.StatusVoter, AccessLevel: member.AccessAdmin},
		{GroupID: GroupID, SAPIN: EditorSAPIN, Name: "Secretary", Status: member.StatusExOfficio, AccessLevel: member.AccessReadWrite},
		{GroupID: GroupID, SAPIN: VoterSAPIN, Name: "Voter One", Status: member.StatusVoter, AccessLevel: member.AccessReadOnly},
		{GroupID: GroupID, SAPIN: VoterSAPIN2, Name: "Voter Two", Status: member.StatusVoter, AccessLevel: member.AccessReadOnly},
		{GroupID: GroupID, SAPIN: PotentialSAPIN, Name: "Potential", Status: member.StatusPotentialVoter, AccessLevel: member.AccessReadOnly},
		{GroupID: GroupID, SAPIN: AspirantSAPIN, Name: "Aspirant", Status: member.StatusAspirant, AccessLevel: member.AccessReadOnly},
		{GroupID: GroupID, SAPIN: ObserverSAPIN, Name: "Observer", Status: member.StatusNonVoter, AccessLevel: member.AccessNone},
	}
	repo := repository.NewMemberRepository(db)
	for _, m := range roster {
		require.NoError(t, repo.UpsertMember(context.Background(), m))
	}
	return roster
}

// SeedEvent stores an event for GroupID.
func SeedEvent(t *testing.T, db *gorm.DB, published bool) event.Event {
	t.Helper()
	e := event.Event{
		ID:          uuid.NewString(),
		GroupID:     GroupID,
		Name:        "Interim session",
		Timezone:    "UTC",
		Datetime:    time.Date(2026, 5, 12, 9, 0, 0, 0, time.UTC),
		IsPublished: published,
		AutoNumber:  true,
	}
	require.NoError(t, repository.NewEventRepository(db).AddEvent(context.Background(), &e))
	return e
}
