package service

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/temurun/internal/models"
	"github.com/Skotchmaster/temurun/internal/repo"
	"github.com/Skotchmaster/temurun/internal/search"
	"github.com/Skotchmaster/temurun/internal/storage"
	"github.com/Skotchmaster/temurun/pkg/logging"
)

type CatalogService struct {
	Repo  *repo.GormRepo
	Blobs storage.Store
	// Index is optional; search falls back to the database without it.
	Index *search.Index
}

// Upload is one file from a multipart image upload.
type Upload struct {
	Filename string
	Body     io.Reader
}

func (s *CatalogService) withURLs(p *models.Product) {
	for i := range p.Images {
		p.Images[i].URL = s.Blobs.URL(p.Images[i].Key)
	}
}

func (s *CatalogService) GetProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	total, items, err := s.Repo.GetProducts(ctx, offset, limit)
	if err != nil {
		return 0, nil, err
	}
	for i := range items {
		s.withURLs(&items[i])
	}
	return total, items, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Product not found")
	}
	if err != nil {
		return nil, err
	}
	s.withURLs(p)
	return p, nil
}

func (s *CatalogService) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	p, err := s.Repo.GetProductBySlug(ctx, strings.TrimSpace(slug))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Product not found")
	}
	if err != nil {
		return nil, err
	}
	s.withURLs(p)
	return p, nil
}

func (s *CatalogService) ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	items, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		s.withURLs(&items[i])
	}
	return items, nil
}

// Search uses the index when configured and the database otherwise or when
// the index fails.
func (s *CatalogService) Search(ctx context.Context, q string, offset, limit int) (int64, []models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return s.GetProducts(ctx, offset, limit)
	}

	if s.Index != nil {
		total, ids, err := s.Index.Search(ctx, q, offset, limit)
		if err == nil {
			items, err := s.ProductsByIDs(ctx, ids)
			if err != nil {
				return 0, nil, err
			}
			return total, orderByIDs(items, ids), nil
		}
		logging.FromContext(ctx).Warn("search_index_failed", "reason", "falling back to database", "error", err)
	}

	total, items, err := s.Repo.SearchProducts(ctx, q, offset, limit)
	if err != nil {
		return 0, nil, err
	}
	for i := range items {
		s.withURLs(&items[i])
	}
	return total, items, nil
}

func orderByIDs(items []models.Product, ids []uuid.UUID) []models.Product {
	byID := make(map[uuid.UUID]models.Product, len(items))
	for _, p := range items {
		byID[p.ID] = p
	}
	out := make([]models.Product, 0, len(items))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// ParsePrice keeps digits only; input without digits is 0.
func ParsePrice(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, validationf("Price is required")
	}
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, nil
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil || v < 0 {
		return 0, validationf("Price is out of range")
	}
	return v, nil
}

func (s *CatalogService) UpdatePrice(ctx context.Context, id uuid.UUID, raw string) (int64, error) {
	price, err := ParsePrice(raw)
	if err != nil {
		return 0, err
	}
	if err := s.Repo.UpdateProductPrice(ctx, id, price); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, notFound("Product not found")
		}
		return 0, err
	}
	s.reindex(ctx, id)
	return price, nil
}

func (s *CatalogService) SetNew(ctx context.Context, id uuid.UUID, isNew bool) error {
	if err := s.Repo.SetProductNew(ctx, id, isNew); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("Product not found")
		}
		return err
	}
	s.reindex(ctx, id)
	return nil
}

func (s *CatalogService) reindex(ctx context.Context, id uuid.UUID) {
	if s.Index == nil {
		return
	}
	p, err := s.Repo.GetProduct(ctx, id)
	if err == nil {
		err = s.Index.Upsert(ctx, p)
	}
	if err != nil {
		logging.FromContext(ctx).Warn("search_reindex_failed", "product_id", id.String(), "error", err)
	}
}

// ReindexAll pushes every product into the search index.
func (s *CatalogService) ReindexAll(ctx context.Context) (int, error) {
	if s.Index == nil {
		return 0, nil
	}
	n := 0
	for offset := 0; ; offset += 100 {
		_, items, err := s.Repo.GetProducts(ctx, offset, 100)
		if err != nil {
			return n, err
		}
		for i := range items {
			if err := s.Index.Upsert(ctx, &items[i]); err != nil {
				return n, err
			}
			n++
		}
		if len(items) < 100 {
			return n, nil
		}
	}
}

func (s *CatalogService) ListImages(ctx context.Context, productID uuid.UUID) ([]models.ProductImage, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	images, err := s.Repo.ListImages(ctx, productID)
	if err != nil {
		return nil, err
	}
	for i := range images {
		images[i].URL = s.Blobs.URL(images[i].Key)
	}
	return images, nil
}

// UploadImages stores the files and appends them after the existing images.
func (s *CatalogService) UploadImages(ctx context.Context, productID uuid.UUID, files []Upload) (int, error) {
	if len(files) == 0 {
		return 0, validationf("Choose at least one image")
	}
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return 0, err
	}
	for _, f := range files {
		if !storage.ValidImageName(f.Filename) {
			return 0, validationf("Only jpg/png/webp allowed")
		}
	}

	next, err := s.Repo.NextImageSort(ctx, productID)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, f := range files {
		key, err := storage.ProductImageKey(productID, f.Filename)
		if err != nil {
			return n, validationf("Only jpg/png/webp allowed")
		}
		if err := s.Blobs.Put(ctx, key, f.Body); err != nil {
			return n, err
		}
		if err := s.Repo.CreateImage(ctx, &models.ProductImage{
			ProductID: productID,
			Key:       key,
			Sort:      next + n,
		}); err != nil {
			if derr := s.Blobs.Delete(ctx, key); derr != nil {
				logging.FromContext(ctx).Warn("image_blob_delete_failed", "key", key, "error", derr)
			}
			return n, err
		}
		n++
	}
	return n, nil
}

// DeleteImage removes the row; blob removal is best-effort.
func (s *CatalogService) DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error {
	img, err := s.Repo.GetImage(ctx, productID, imageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound("Image not found")
	}
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteImage(ctx, productID, imageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("Image not found")
		}
		return err
	}
	if !storage.IsHTTPURL(img.Key) {
		if err := s.Blobs.Delete(ctx, img.Key); err != nil {
			logging.FromContext(ctx).Warn("image_blob_delete_failed", "key", img.Key, "error", err)
		}
	}
	return nil
}

func (s *CatalogService) imageIDs(ctx context.Context, productID uuid.UUID) ([]uuid.UUID, error) {
	images, err := s.Repo.ListImages(ctx, productID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.ID)
	}
	return ids, nil
}

func (s *CatalogService) reorder(ctx context.Context, productID uuid.UUID, imageID uuid.UUID, fn func([]uuid.UUID) []uuid.UUID) error {
	ids, err := s.imageIDs(ctx, productID)
	if err != nil {
		return err
	}
	if imageID != uuid.Nil && indexOf(ids, imageID) < 0 {
		return notFound("Image not found")
	}
	return s.Repo.SetImageOrder(ctx, productID, fn(ids))
}

func (s *CatalogService) MoveImage(ctx context.Context, productID, imageID uuid.UUID, dir string) error {
	if dir != DirUp && dir != DirDown {
		return validationf("Direction must be up or down")
	}
	return s.reorder(ctx, productID, imageID, func(ids []uuid.UUID) []uuid.UUID {
		return MoveID(ids, imageID, dir)
	})
}

func (s *CatalogService) SetCover(ctx context.Context, productID, imageID uuid.UUID) error {
	return s.reorder(ctx, productID, imageID, func(ids []uuid.UUID) []uuid.UUID {
		return CoverFirst(ids, imageID)
	})
}

func (s *CatalogService) ReorderImages(ctx context.Context, productID uuid.UUID, rawIDs string) error {
	requested, err := ParseIDList(rawIDs)
	if err != nil {
		return err
	}
	if len(requested) == 0 {
		return validationf("No image order supplied")
	}
	return s.reorder(ctx, productID, uuid.Nil, func(ids []uuid.UUID) []uuid.UUID {
		return ApplyOrder(ids, requested)
	})
}
