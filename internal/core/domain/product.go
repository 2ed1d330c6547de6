package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogState is the lifecycle of products and tags. Inactive entries are
// hidden from customers but kept for the orders that reference them.
type CatalogState string

const (
	CatalogStateActive   CatalogState = "active"
	CatalogStateInactive CatalogState = "inactive"
)

func (s CatalogState) Valid() bool {
	return s == CatalogStateActive || s == CatalogStateInactive
}

type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Slug        string
	State       CatalogState
	InStock     bool
	Tags        []ProductTag
	Images      []ProductImage
	UpdatedAt   time.Time
}

func (p Product) IsActive() bool {
	return p.State == CatalogStateActive
}

type ProductTag struct {
	ID          string
	Name        string
	Slug        string
	Description string
	State       CatalogState
}

func (t ProductTag) IsActive() bool {
	return t.State == CatalogStateActive
}

// ProductFilter selects products for listings. An empty TagSlug matches
// every tag.
type ProductFilter struct {
	TagSlug    string
	ActiveOnly bool
	Search     string
	Limit      int
	Offset     int
}

// ProductImage is an uploaded picture of a product. Paths are relative to
// the media root; the thumbnail fits in ThumbnailSize on both sides.
type ProductImage struct {
	ID            string
	ProductID     string
	ImagePath     string
	ThumbnailPath string
	CreatedAt     time.Time
}

const ThumbnailSize = 300

// ProductImport is one row of a catalog import file. ImageFilename is
// optional and names a file next to the import.
type ProductImport struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	Tags          []string
	ImageFilename string
}
