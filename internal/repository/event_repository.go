package repository

import (
	"context"

	"committee-live/internal/domain/event"

	"gorm.io/gorm"
)

type GormEventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) GetEvents(ctx context.Context, q event.Query) ([]event.Event, error) {
	var events []event.Event
	tx := r.db.WithContext(ctx).Model(&event.Event{})
	if q.GroupID != "" {
		tx = tx.Where("group_id = ?", q.GroupID)
	}
	if q.ID != "" {
		tx = tx.Where("id = ?", q.ID)
	}
	if q.IsPublished != nil {
		tx = tx.Where("is_published = ?", *q.IsPublished)
	}
	if err := tx.Order("datetime ASC").Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *GormEventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	var e event.Event
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return event.Event{}, translate(err)
	}
	return e, nil
}

func (r *GormEventRepository) GetPublishedEvent(ctx context.Context, groupID string) (event.Event, error) {
	var e event.Event
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND is_published = ?", groupID, true).
		Order("updated_at DESC").
		First(&e).Error
	if err != nil {
		return event.Event{}, translate(err)
	}
	return e, nil
}

func (r *GormEventRepository) AddEvent(ctx context.Context, e *event.Event) error {
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r *GormEventRepository) UpdateEvent(ctx context.Context, e event.Event) error {
	res := r.db.WithContext(ctx).
		Model(&event.Event{}).
		Where("id = ?", e.ID).
		Select("name", "timezone", "datetime", "is_published", "auto_number", "updated_at").
		Updates(&e)
	return affected(res)
}

// UnpublishOthers clears the published flag on every other event of the group
// and returns the events that changed.
func (r *GormEventRepository) UnpublishOthers(ctx context.Context, groupID, keepID string) ([]event.Event, error) {
	var changed []event.Event
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND id <> ? AND is_published = ?", groupID, keepID, true).
		Find(&changed).Error
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return nil, nil
	}
	ids := make([]string, len(changed))
	for i := range changed {
		ids[i] = changed[i].ID
		changed[i].IsPublished = false
	}
	err = r.db.WithContext(ctx).
		Model(&event.Event{}).
		Where("id IN ?", ids).
		Update("is_published", false).Error
	if err != nil {
		return nil, err
	}
	return changed, nil
}

func (r *GormEventRepository) Transaction(ctx context.Context, fn func(EventRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormEventRepository{db: tx})
	})
}
