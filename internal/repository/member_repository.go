package repository

import (
	"context"
	"errors"

	"committee-live/internal/domain/member"
	committee_errors "committee-live/pkg/errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormMemberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &GormMemberRepository{db: db}
}

func (r *GormMemberRepository) GetMember(ctx context.Context, groupID string, sapin int) (member.Member, error) {
	var m member.Member
	err := r.db.WithContext(ctx).Where("group_id = ? AND sapin = ?", groupID, sapin).First(&m).Error
	if err != nil {
		return member.Member{}, translate(err)
	}
	return m, nil
}

// GetMembers returns the group roster, or only the listed SAPINs when sapins is non-empty.
func (r *GormMemberRepository) GetMembers(ctx context.Context, groupID string, sapins []int) ([]member.Member, error) {
	var members []member.Member
	tx := r.db.WithContext(ctx).Where("group_id = ?", groupID)
	if len(sapins) > 0 {
		tx = tx.Where("sapin IN ?", sapins)
	}
	if err := tx.Order("sapin ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// AccessLevel resolves a member's access; members missing from the roster get none.
func (r *GormMemberRepository) AccessLevel(ctx context.Context, groupID string, sapin int) (member.AccessLevel, error) {
	m, err := r.GetMember(ctx, groupID, sapin)
	if err != nil {
		if errors.Is(err, committee_errors.ErrNotFound) {
			return member.AccessNone, nil
		}
		return member.AccessNone, err
	}
	return m.AccessLevel, nil
}

func (r *GormMemberRepository) UpsertMember(ctx context.Context, m member.Member) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_id"}, {Name: "sapin"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "status", "access_level", "updated_at"}),
		}).
		Create(&m).Error
}
