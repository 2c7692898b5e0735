package repository

import (
	"context"
	"errors"
	"fmt"

	"EventSync/internal/interfaces"
	"EventSync/internal/model"

	"gorm.io/gorm"
)

// SystemUsername is the seeded fallback identity that owns topics whose
// publisher has no matching account.
const SystemUsername = "system"

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) interfaces.IdentityResolver {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.TopicUser, error) {
	var user model.TopicUser
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) FindByEmails(ctx context.Context, emails []string) (map[string]*model.TopicUser, error) {
	result := make(map[string]*model.TopicUser, len(emails))
	if len(emails) == 0 {
		return result, nil
	}

	var users []model.TopicUser
	err := r.db.WithContext(ctx).Where("email IN ?", emails).Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("lookup users by emails: %w", err)
	}
	for i := range users {
		result[users[i].Email] = &users[i]
	}
	return result, nil
}

func (r *UserRepository) System(ctx context.Context) (*model.TopicUser, error) {
	var user model.TopicUser
	err := r.db.WithContext(ctx).Where("is_system = ?", true).First(&user).Error
	if err != nil {
		return nil, fmt.Errorf("lookup system user: %w", err)
	}
	return &user, nil
}

// EnsureSystemUser seeds the system identity if the table has none. Called
// once at boot after migration.
func EnsureSystemUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.TopicUser{}).Where("is_system = ?", true).Count(&count).Error; err != nil {
		return fmt.Errorf("count system users: %w", err)
	}
	if count > 0 {
		return nil
	}
	user := model.TopicUser{
		Username: SystemUsername,
		Email:    "system@localhost",
		IsSystem: true,
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("seed system user: %w", err)
	}
	return nil
}
