package repository

import (
	"context"

	"committee-live/internal/domain/poll"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormPollRepository struct {
	db *gorm.DB
}

func NewPollRepository(db *gorm.DB) PollRepository {
	return &GormPollRepository{db: db}
}

func (r *GormPollRepository) GetPolls(ctx context.Context, q poll.Query) ([]poll.Poll, error) {
	var polls []poll.Poll
	tx := r.db.WithContext(ctx).Model(&poll.Poll{}).Select("polls.*")
	if q.GroupID != "" {
		tx = tx.Joins("JOIN events ON events.id = polls.event_id").Where("events.group_id = ?", q.GroupID)
	}
	if q.EventID != "" {
		tx = tx.Where("polls.event_id = ?", q.EventID)
	}
	if q.ID != "" {
		tx = tx.Where("polls.id = ?", q.ID)
	}
	if q.NonNull {
		tx = tx.Where("polls.state IS NOT NULL")
	}
	if err := tx.Order("polls.idx ASC").Order("polls.created_at ASC").Find(&polls).Error; err != nil {
		return nil, err
	}
	return polls, nil
}

func (r *GormPollRepository) GetPoll(ctx context.Context, id string) (poll.Poll, error) {
	var p poll.Poll
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return poll.Poll{}, translate(err)
	}
	return p, nil
}

func (r *GormPollRepository) AddPoll(ctx context.Context, p *poll.Poll) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *GormPollRepository) UpdatePoll(ctx context.Context, p poll.Poll) error {
	res := r.db.WithContext(ctx).
		Model(&poll.Poll{}).
		Where("id = ?", p.ID).
		Select("*").
		Omit("id", "event_id", "created_at").
		Updates(&p)
	return affected(res)
}

func (r *GormPollRepository) DeletePoll(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ?", id).Delete(&poll.Vote{}).Error; err != nil {
			return err
		}
		return affected(tx.Where("id = ?", id).Delete(&poll.Poll{}))
	})
}

func (r *GormPollRepository) MaxIndex(ctx context.Context, eventID string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&poll.Poll{}).
		Where("event_id = ?", eventID).
		Select("COALESCE(MAX(idx), 0)").
		Scan(&max).Error
	return max, err
}

// PollVote records a ballot; a second ballot from the same member replaces the first.
func (r *GormPollRepository) PollVote(ctx context.Context, v poll.Vote) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "poll_id"}, {Name: "sapin"}},
			DoUpdates: clause.AssignmentColumns([]string{"votes", "updated_at"}),
		}).
		Create(&v).Error
}

func (r *GormPollRepository) PollResults(ctx context.Context, pollID string) ([]poll.Vote, error) {
	var votes []poll.Vote
	err := r.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("sapin ASC").
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *GormPollRepository) PollVoters(ctx context.Context, pollID string) ([]int, error) {
	var sapins []int
	err := r.db.WithContext(ctx).
		Model(&poll.Vote{}).
		Where("poll_id = ?", pollID).
		Order("sapin ASC").
		Pluck("sapin", &sapins).Error
	return sapins, err
}

func (r *GormPollRepository) PollVoteCount(ctx context.Context, pollID string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&poll.Vote{}).Where("poll_id = ?", pollID).Count(&n).Error
	return int(n), err
}

func (r *GormPollRepository) PollClearVotes(ctx context.Context, pollID string) error {
	return r.db.WithContext(ctx).Where("poll_id = ?", pollID).Delete(&poll.Vote{}).Error
}

func (r *GormPollRepository) Transaction(ctx context.Context, fn func(PollRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormPollRepository{db: tx})
	})
}
