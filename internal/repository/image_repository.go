package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"agrovision/internal/model"
)

type ImageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) Create(ctx context.Context, image *model.Image) error {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return fmt.Errorf("create image failed: %w", err)
	}
	return nil
}

func (r *ImageRepository) ListByUserID(ctx context.Context, userID uint) ([]model.Image, error) {
	var images []model.Image
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("list images failed: %w", err)
	}
	return images, nil
}

// GetByFilenameAndUserID returns nil, nil when the filename is unknown or
// belongs to another user; callers must not tell the two apart.
func (r *ImageRepository) GetByFilenameAndUserID(ctx context.Context, filename string, userID uint) (*model.Image, error) {
	var image model.Image
	if err := r.db.WithContext(ctx).Where("filename = ? AND user_id = ?", filename, userID).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get image failed: %w", err)
	}
	return &image, nil
}

func (r *ImageRepository) ExistsByFilename(ctx context.Context, filename string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Image{}).Where("filename = ?", filename).Count(&n).Error; err != nil {
		return false, fmt.Errorf("count images by filename failed: %w", err)
	}
	return n > 0, nil
}

func (r *ImageRepository) DeleteByIDAndUserID(ctx context.Context, imageID, userID uint) error {
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", imageID, userID).Delete(&model.Image{}).Error; err != nil {
		return fmt.Errorf("delete image failed: %w", err)
	}
	return nil
}
