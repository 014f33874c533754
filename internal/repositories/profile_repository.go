package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"helpdesk_backend/internal/models"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrAuthNotFound    = errors.New("auth record not found")
)

// ProfileRepository отвечает за таблицы участников. Таблица выбирается
// по роли владеющей записи, никогда по форме идентификатора.
type ProfileRepository interface {
	FindUserByID(ctx context.Context, id string) (*models.UserProfile, error)
	FindAdminByID(ctx context.Context, id string) (*models.AdminProfile, error)
	// FindAuthEmail возвращает best-effort email из auth-записи для
	// fallback-синтеза личности пользователя.
	FindAuthEmail(ctx context.Context, id string) (string, error)
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) FindUserByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) FindAdminByID(ctx context.Context, id string) (*models.AdminProfile, error) {
	var profile models.AdminProfile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) FindAuthEmail(ctx context.Context, id string) (string, error) {
	var record models.AuthRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrAuthNotFound
		}
		return "", err
	}
	return record.Email, nil
}
