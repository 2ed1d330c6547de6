package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const (
	// TagAll lists products regardless of tag.
	TagAll = "all"

	maxProductName = 40
)

type CatalogService struct {
	db       port.DatabaseRepository
	images   port.ImageStore
	pageSize int
	now      func() time.Time
}

func NewCatalogService(db port.DatabaseRepository, images port.ImageStore, pageSize int) *CatalogService {
	if pageSize <= 0 {
		pageSize = 12
	}
	return &CatalogService{db: db, images: images, pageSize: pageSize, now: time.Now}
}

type ProductPage struct {
	Tag      *domain.ProductTag
	Products []domain.Product
	Page     int
	HasNext  bool
}

// ListActive returns one page of active products, optionally restricted to
// a tag. Inactive products never appear whatever the tag.
func (s *CatalogService) ListActive(ctx context.Context, tagSlug string, page int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	result := &ProductPage{Page: page}

	filter := domain.ProductFilter{
		ActiveOnly: true,
		Limit:      s.pageSize + 1,
		Offset:     (page - 1) * s.pageSize,
	}
	if tagSlug != "" && tagSlug != TagAll {
		tag, err := s.db.GetTagBySlug(ctx, tagSlug)
		if err != nil {
			return nil, err
		}
		if tag == nil || !tag.IsActive() {
			return nil, ErrTagNotFound
		}
		result.Tag = tag
		filter.TagSlug = tag.Slug
	}

	products, err := s.db.ListProducts(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(products) > s.pageSize {
		products = products[:s.pageSize]
		result.HasNext = true
	}
	result.Products = products
	return result, nil
}

// ProductBySlug returns an active product. Products sharing a name share a
// slug, so inactive duplicates are skipped in the lookup itself.
func (s *CatalogService) ProductBySlug(ctx context.Context, productSlug string) (*domain.Product, error) {
	p, err := s.db.GetProductBySlug(ctx, productSlug, true)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProductNotFound
	}
	if p.Images, err = s.db.ListProductImages(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) ActiveTags(ctx context.Context) ([]domain.ProductTag, error) {
	return s.db.ListTags(ctx, true)
}

type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	InStock     bool
	TagIDs      []string
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor Actor, in ProductInput) (*domain.Product, error) {
	role, _, err := staffRole(ctx, s.db, actor)
	if err != nil {
		return nil, err
	}
	if !role.CanEditProductDetails() {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	if err := validateProduct(name, in.Price); err != nil {
		return nil, err
	}

	p := domain.Product{
		ID:          uuid.NewString(),
		Name:        name,
		Description: in.Description,
		Price:       in.Price,
		Slug:        slug.Make(name),
		State:       domain.CatalogStateActive,
		InStock:     in.InStock,
		UpdatedAt:   s.now(),
	}
	err = s.db.WithinTx(ctx, func(tx port.Repository) error {
		if err := tx.CreateProduct(ctx, p); err != nil {
			return err
		}
		if len(in.TagIDs) > 0 {
			return tx.SetProductTags(ctx, p.ID, in.TagIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.db.GetProduct(ctx, p.ID)
}

func validateProduct(name string, price decimal.Decimal) error {
	if name == "" || len(name) > maxProductName {
		return fmt.Errorf("%w: name must have 1 to %d characters", ErrInvalidInput, maxProductName)
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	return nil
}

// ProductUpdate carries the fields to change; nil fields stay as they are.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	InStock     *bool
	Active      *bool
	TagIDs      *[]string
}

func (u ProductUpdate) touchesDetails() bool {
	return u.Name != nil || u.Description != nil || u.Price != nil || u.Active != nil || u.TagIDs != nil
}

// UpdateProduct applies an edit. Dispatchers may only change stock, and the
// name and slug of an existing product never change for them either.
func (s *CatalogService) UpdateProduct(ctx context.Context, actor Actor, id string, u ProductUpdate) (*domain.Product, error) {
	role, _, err := staffRole(ctx, s.db, actor)
	if err != nil {
		return nil, err
	}
	if u.touchesDetails() && !role.CanEditProductDetails() {
		return nil, ErrForbidden
	}

	err = s.db.WithinTx(ctx, func(tx port.Repository) error {
		p, err := tx.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProductNotFound
		}
		if u.Name != nil {
			p.Name = strings.TrimSpace(*u.Name)
			p.Slug = slug.Make(p.Name)
		}
		if u.Description != nil {
			p.Description = *u.Description
		}
		if u.Price != nil {
			p.Price = *u.Price
		}
		if u.InStock != nil {
			p.InStock = *u.InStock
		}
		if u.Active != nil {
			p.State = stateFor(*u.Active)
		}
		if err := validateProduct(p.Name, p.Price); err != nil {
			return err
		}
		p.UpdatedAt = s.now()
		if err := tx.UpdateProduct(ctx, *p); err != nil {
			return err
		}
		if u.TagIDs != nil {
			return tx.SetProductTags(ctx, p.ID, *u.TagIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.db.GetProduct(ctx, id)
}

func stateFor(active bool) domain.CatalogState {
	if active {
		return domain.CatalogStateActive
	}
	return domain.CatalogStateInactive
}

// SetActive flips the lifecycle state of several products at once and
// returns how many changed.
func (s *CatalogService) SetActive(ctx context.Context, actor Actor, ids []string, active bool) (int, error) {
	role, _, err := staffRole(ctx, s.db, actor)
	if err != nil {
		return 0, err
	}
	if !role.CanEditProductDetails() {
		return 0, ErrForbidden
	}
	return s.db.SetProductState(ctx, ids, stateFor(active))
}

type TagInput struct {
	Name        string
	Description string
}

func (s *CatalogService) CreateTag(ctx context.Context, actor Actor, in TagInput) (*domain.ProductTag, error) {
	role, _, err := staffRole(ctx, s.db, actor)
	if err != nil {
		return nil, err
	}
	if !role.CanEditProductDetails() {
		return nil, ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > maxProductName {
		return nil, fmt.Errorf("%w: tag name must have 1 to %d characters", ErrInvalidInput, maxProductName)
	}

	tag := domain.ProductTag{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        slug.Make(name),
		Description: in.Description,
		State:       domain.CatalogStateActive,
	}
	if err := s.db.CreateTag(ctx, tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

// AllProducts lists every product including inactive ones, for staff.
func (s *CatalogService) AllProducts(ctx context.Context, actor Actor) ([]domain.Product, error) {
	if _, _, err := staffRole(ctx, s.db, actor); err != nil {
		return nil, err
	}
	return s.db.ListProducts(ctx, domain.ProductFilter{})
}

type ImportStats struct {
	Products        int
	ProductsCreated int
	Tags            int
	TagsCreated     int
	Images          int
}

// ImageSource opens the image named by an import row.
type ImageSource func(name string) (io.ReadCloser, error)

// AddImage stores an uploaded picture with its thumbnail and attaches it to
// the product.
func (s *CatalogService) AddImage(ctx context.Context, actor Actor, productID, name string, r io.Reader) (*domain.ProductImage, error) {
	role, _, err := staffRole(ctx, s.db, actor)
	if err != nil {
		return nil, err
	}
	if !role.CanEditProductDetails() {
		return nil, ErrForbidden
	}
	if s.images == nil {
		return nil, ErrImagesDisabled
	}

	var img *domain.ProductImage
	err = s.db.WithinTx(ctx, func(tx port.Repository) error {
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProductNotFound
		}
		img, err = s.saveImage(ctx, tx, p.ID, name, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (s *CatalogService) saveImage(ctx context.Context, tx port.Repository, productID, name string, r io.Reader) (*domain.ProductImage, error) {
	imagePath, thumbnailPath, err := s.images.Save(ctx, name, r)
	if err != nil {
		return nil, err
	}
	img := domain.ProductImage{
		ID:            uuid.NewString(),
		ProductID:     productID,
		ImagePath:     imagePath,
		ThumbnailPath: thumbnailPath,
		CreatedAt:     s.now(),
	}
	if err := tx.AddProductImage(ctx, img); err != nil {
		return nil, err
	}
	return &img, nil
}

func (s *CatalogService) importImage(ctx context.Context, tx port.Repository, productID, name string, open ImageSource) error {
	f, err := open(name)
	if err != nil {
		return fmt.Errorf("open image %s: %w", name, err)
	}
	defer f.Close()
	_, err = s.saveImage(ctx, tx, productID, name, f)
	return err
}

// ImportAs runs Import on behalf of a staff member allowed to edit the
// catalog.
func (s *CatalogService) ImportAs(ctx context.Context, actor Actor, rows []domain.ProductImport, images ImageSource) (ImportStats, error) {
	role, _, err := staffRole(ctx, s.db, actor)
	if err != nil {
		return ImportStats{}, err
	}
	if !role.CanEditProductDetails() {
		return ImportStats{}, ErrForbidden
	}
	return s.Import(ctx, rows, images)
}

// Import creates or refreshes products from an import file. Products are
// matched on name and price, tags on name. Rows naming an image get a new
// product image when images is not nil.
func (s *CatalogService) Import(ctx context.Context, rows []domain.ProductImport, images ImageSource) (ImportStats, error) {
	if images != nil && s.images == nil {
		return ImportStats{}, ErrImagesDisabled
	}
	var stats ImportStats
	err := s.db.WithinTx(ctx, func(tx port.Repository) error {
		for _, row := range rows {
			name := strings.TrimSpace(row.Name)
			if err := validateProduct(name, row.Price); err != nil {
				return fmt.Errorf("import %q: %w", row.Name, err)
			}

			p, err := tx.FindProduct(ctx, name, row.Price)
			if err != nil {
				return err
			}
			created := p == nil
			if created {
				p = &domain.Product{
					ID:      uuid.NewString(),
					Name:    name,
					Price:   row.Price,
					State:   domain.CatalogStateActive,
					InStock: true,
				}
			}
			p.Description = row.Description
			p.Slug = slug.Make(name)
			p.UpdatedAt = s.now()
			if created {
				err = tx.CreateProduct(ctx, *p)
			} else {
				err = tx.UpdateProduct(ctx, *p)
			}
			if err != nil {
				return err
			}

			tagIDs := make([]string, 0, len(p.Tags)+len(row.Tags))
			for _, t := range p.Tags {
				tagIDs = append(tagIDs, t.ID)
			}
			for _, tagName := range row.Tags {
				tagName = strings.TrimSpace(tagName)
				if tagName == "" {
					continue
				}
				tag, err := tx.GetTagByName(ctx, tagName)
				if err != nil {
					return err
				}
				if tag == nil {
					tag = &domain.ProductTag{
						ID:    uuid.NewString(),
						Name:  tagName,
						Slug:  slug.Make(tagName),
						State: domain.CatalogStateActive,
					}
					if err := tx.CreateTag(ctx, *tag); err != nil {
						return err
					}
					stats.TagsCreated++
				}
				if !slices.Contains(tagIDs, tag.ID) {
					tagIDs = append(tagIDs, tag.ID)
				}
				stats.Tags++
			}
			if err := tx.SetProductTags(ctx, p.ID, tagIDs); err != nil {
				return err
			}

			if row.ImageFilename != "" && images != nil {
				if err := s.importImage(ctx, tx, p.ID, row.ImageFilename, images); err != nil {
					return fmt.Errorf("import %q: %w", row.Name, err)
				}
				stats.Images++
			}

			stats.Products++
			if created {
				stats.ProductsCreated++
			}
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}
	log.Printf("catalog: imported %d products, %d tags, %d images", stats.Products, stats.Tags, stats.Images)
	return stats, nil
}
