package repository

import (
	"context"

	"github.com/lshigami/quizcore/internal/model"
	"gorm.io/gorm"
)

type GroupRepository interface {
	IsMember(ctx context.Context, groupID, studentID uint) (bool, error)
}

type groupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

func (r *groupRepository) IsMember(ctx context.Context, groupID, studentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.GroupMember{}).
		Where("group_id = ? AND student_id = ?", groupID, studentID).
		Count(&count).Error
	return count > 0, err
}
