package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"EventSync/internal/interfaces"
	"EventSync/internal/model"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TopicRepository struct {
	db *gorm.DB
}

func NewTopicRepository(db *gorm.DB) interfaces.TopicStore {
	return &TopicRepository{db: db}
}

func (r *TopicRepository) Create(ctx context.Context, params interfaces.TopicParams) (*model.Topic, error) {
	tags, err := marshalTags(params.Tags)
	if err != nil {
		return nil, err
	}

	topic := model.Topic{
		TopicUUID: uuid.NewString(),
		Slug:      slug.Make(params.Title),
		Title:     params.Title,
		Raw:       params.Raw,
		Category:  params.Category,
		Tags:      tags,
		CreatorID: params.CreatorID,
	}
	if err := r.db.WithContext(ctx).Create(&topic).Error; err != nil {
		return nil, fmt.Errorf("create topic %q: %w", params.Title, err)
	}
	return &topic, nil
}

func (r *TopicRepository) Revise(ctx context.Context, topicID uint64, params interfaces.TopicParams) (*model.Topic, error) {
	topic, err := r.Get(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, fmt.Errorf("revise topic %d: not found", topicID)
	}

	tags, err := marshalTags(params.Tags)
	if err != nil {
		return nil, err
	}

	topic.Title = params.Title
	topic.Raw = params.Raw
	topic.Tags = tags
	topic.EditReason = params.EditReason
	topic.RevisionCount++
	topic.UpdatedAt = time.Now().UTC()
	if err := r.db.WithContext(ctx).Save(topic).Error; err != nil {
		return nil, fmt.Errorf("revise topic %d: %w", topicID, err)
	}
	return topic, nil
}

// Destroy removes the topic together with its invitees and any mapping row
// pointing at it.
func (r *TopicRepository) Destroy(ctx context.Context, topicID uint64) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("destroy topic %d: begin: %w", topicID, tx.Error)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := tx.Where("topic_id = ?", topicID).Delete(&model.Invitee{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("destroy topic %d: invitees: %w", topicID, err)
	}
	if err := tx.Where("topic_id = ?", topicID).Delete(&model.EventMapping{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("destroy topic %d: mapping: %w", topicID, err)
	}
	if err := tx.Where("id = ?", topicID).Delete(&model.Topic{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("destroy topic %d: %w", topicID, err)
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("destroy topic %d: commit: %w", topicID, err)
	}
	return nil
}

func (r *TopicRepository) Get(ctx context.Context, topicID uint64) (*model.Topic, error) {
	var topic model.Topic
	err := r.db.WithContext(ctx).Where("id = ?", topicID).First(&topic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup topic %d: %w", topicID, err)
	}
	return &topic, nil
}

func marshalTags(tags []string) (datatypes.JSON, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return datatypes.JSON(data), nil
}
