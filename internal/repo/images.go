package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/temurun/internal/models"
)

func (r *GormRepo) ListImages(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error) {
	var images []models.ProductImage
	if err := preloadImages(r.DB.WithContext(ctx)).
		Where("product_id = ?", productID).
		Find(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

func (r *GormRepo) GetImage(ctx context.Context, productID, imageID uuid.UUID) (*models.ProductImage, error) {
	var img models.ProductImage
	if err := r.DB.WithContext(ctx).
		Where("id = ? AND product_id = ?", imageID, productID).
		First(&img).Error; err != nil {
		return nil, err
	}
	return &img, nil
}

// NextImageSort is one past the highest sort value, or 0 for no images.
func (r *GormRepo) NextImageSort(ctx context.Context, productID uuid.UUID) (int, error) {
	var next int
	if err := r.DB.WithContext(ctx).
		Model(&models.ProductImage{}).
		Select("COALESCE(MAX(sort), -1) + 1").
		Where("product_id = ?", productID).
		Scan(&next).Error; err != nil {
		return 0, err
	}
	return next, nil
}

func (r *GormRepo) CreateImage(ctx context.Context, img *models.ProductImage) error {
	return r.DB.WithContext(ctx).Create(img).Error
}

func (r *GormRepo) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error {
	res := r.DB.WithContext(ctx).
		Where("id = ? AND product_id = ?", imageID, productID).
		Delete(&models.ProductImage{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetImageOrder writes sort = position for every id, in one transaction.
func (r *GormRepo) SetImageOrder(ctx context.Context, productID uuid.UUID, ids []uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			if err := tx.Model(&models.ProductImage{}).
				Where("id = ? AND product_id = ?", id, productID).
				Update("sort", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
